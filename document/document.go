package document

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Metadata is written as YAML front matter when a page is exported.
type Metadata struct {
	Title         string `yaml:"title,omitempty"`
	Source        string `yaml:"source"`
	Depth         int    `yaml:"depth"`
	ProcessedTime string `yaml:"processedTime,omitempty"`
}

// Page is the markdown content of one crawled URL.
type Page struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Title string `json:"title,omitempty"`
	// The normalized markdown content of the page.
	Markdown string `json:"markdown"`
}

// NewPage creates a page and discovers its title from the markdown.
func NewPage(url string, depth int, markdown string) *Page {
	return &Page{
		URL:      url,
		Depth:    depth,
		Title:    FindTitle(markdown),
		Markdown: markdown,
	}
}

// FindTitle returns the text of the first level 1 heading in markdown, or
// an empty string. Inline markup such as emphasis, code spans and links
// contributes its text.
func FindTitle(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var title strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering && h.Level == 1 {
			writeInlineText(&title, h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(title.String())
}

func writeInlineText(b *strings.Builder, n ast.Node, source []byte) {
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		}

		return ast.WalkContinue, nil
	})
}

var unsafeFileChars = regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}\s]+`)

// FileName derives a file name from the page URL: the host without "www."
// followed by the path segments, joined by dashes.
func (p *Page) FileName() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return sanitizeFileName(p.URL) + ".md"
	}

	parts := []string{strings.ReplaceAll(strings.TrimPrefix(u.Host, "www."), ".", "-")}
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			parts = append(parts, segment)
		}
	}

	return sanitizeFileName(strings.Join(parts, "-")) + ".md"
}

func sanitizeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(name, "-")
	return strings.Trim(name, " .-")
}

// ToMarkdown renders the page as a markdown file with its metadata as YAML
// front matter. It returns the file name and the content.
func (p *Page) ToMarkdown(processedTime string) (string, []byte, error) {
	frontMatter, err := yaml.Marshal(Metadata{
		Title:         p.Title,
		Source:        p.URL,
		Depth:         p.Depth,
		ProcessedTime: processedTime,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to marshal metadata to YAML")
	}

	var builder strings.Builder
	builder.WriteString("---\n")
	builder.Write(frontMatter)
	builder.WriteString("---\n")
	builder.WriteString(p.Markdown)
	builder.WriteByte('\n')

	return p.FileName(), []byte(builder.String()), nil
}

// ParseFrontMatter splits a file produced by ToMarkdown back into its
// metadata and markdown body.
func ParseFrontMatter(content []byte) (Metadata, string, error) {
	var meta Metadata

	rest, ok := strings.CutPrefix(string(content), "---\n")
	if !ok {
		return meta, "", errors.New("missing front matter")
	}

	header, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		return meta, "", errors.New("unterminated front matter")
	}

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return meta, "", errors.Wrap(err, "failed to parse front matter")
	}

	return meta, strings.TrimSuffix(body, "\n"), nil
}
