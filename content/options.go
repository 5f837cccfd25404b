package content

// RemovableTags are deleted from every document before rendering.
var RemovableTags = []string{"script", "style", "meta", "link", "noscript", "iframe", "svg"}

// Options controls which constructs are rendered as markdown syntax. A set
// flag drops the construct to plain text (or removes it, for images).
type Options struct {
	IgnoreLinks       bool `yaml:"ignore_links"`
	IgnoreImages      bool `yaml:"ignore_images"`
	IgnoreEmphasis    bool `yaml:"ignore_emphasis"`
	IgnoreTables      bool `yaml:"ignore_tables"`
	IgnoreMailtoLinks bool `yaml:"ignore_mailto_links"`
}

// DefaultOptions favors plain text, which is what extraction wants.
func DefaultOptions() Options {
	return Options{
		IgnoreLinks:       true,
		IgnoreImages:      true,
		IgnoreEmphasis:    true,
		IgnoreTables:      true,
		IgnoreMailtoLinks: true,
	}
}
