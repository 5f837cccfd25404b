package crawler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mempirate/trawl/document"
)

// Format selects the representation a crawl produces.
type Format string

const (
	// FormatMarkdown joins every page into one markdown document.
	FormatMarkdown Format = "markdown"
	// FormatStructured maps every URL to its page.
	FormatStructured Format = "structured"
)

// Separator is placed between pages in a FormatMarkdown result.
const Separator = "\n\n---\n\n"

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts "markdown", "structured" and its alias "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", string(FormatMarkdown):
		return FormatMarkdown, nil
	case string(FormatStructured), "json":
		return FormatStructured, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

// Failure records a URL that could not be fetched or transformed.
type Failure struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Err   error  `json:"-"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s (depth %d): %v", f.URL, f.Depth, f.Err)
}

// Result is the outcome of one crawl. Only the field matching Format is
// populated: Markdown for FormatMarkdown, Pages for FormatStructured.
type Result struct {
	Format   Format
	Markdown string
	Pages    map[string]*document.Page

	// Visited lists every URL that was dequeued and fetched, in visit order.
	Visited []string
	// Collected lists the URLs that produced content, in visit order.
	Collected []string
	// Failures lists the URLs whose fetch or transform failed.
	Failures []Failure
}

// Len returns the number of pages with content.
func (r *Result) Len() int {
	return len(r.Collected)
}

// Ordered returns the pages of a FormatStructured result in visit order.
func (r *Result) Ordered() []*document.Page {
	pages := make([]*document.Page, 0, len(r.Pages))
	for _, u := range r.Collected {
		if page, ok := r.Pages[u]; ok {
			pages = append(pages, page)
		}
	}
	return pages
}

func assemble(format Format, pages []*document.Page) (string, map[string]*document.Page) {
	if format == FormatStructured {
		byURL := make(map[string]*document.Page, len(pages))
		for _, page := range pages {
			byURL[page.URL] = page
		}
		return "", byURL
	}

	return JoinMarkdown(pages), nil
}

// JoinMarkdown renders pages as one document: a "URL: ..." block per page,
// in order, joined by Separator.
func JoinMarkdown(pages []*document.Page) string {
	blocks := make([]string, 0, len(pages))
	for _, page := range pages {
		blocks = append(blocks, fmt.Sprintf("URL: %s\n\n%s", page.URL, page.Markdown))
	}
	return strings.Join(blocks, Separator)
}
