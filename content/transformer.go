package content

import (
	"bytes"
	"html"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	nethtml "golang.org/x/net/html"
)

// Transformer turns raw HTML pages into normalized markdown and the list of
// same-domain links they contain.
type Transformer struct {
	opts Options
	conv *converter.Converter
}

func NewTransformer(opts Options) *Transformer {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	return &Transformer{
		opts: opts,
		conv: conv,
	}
}

// Options returns the render options the transformer was created with.
func (t *Transformer) Options() Options {
	return t.opts
}

// Transform converts the HTML body fetched from pageURL. Links are taken
// from the full document, before any element is removed.
func (t *Transformer) Transform(body []byte, pageURL string) (string, []string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", nil, errors.Wrapf(err, "invalid page URL %q", pageURL)
	}

	root, err := nethtml.Parse(bytes.NewReader(body))
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to parse HTML")
	}

	doc := goquery.NewDocumentFromNode(root)

	links := ExtractLinks(doc, base)

	doc.Find(strings.Join(RemovableTags, ", ")).Remove()
	t.applyOptions(doc)

	var buf bytes.Buffer
	if err := nethtml.Render(&buf, root); err != nil {
		return "", nil, errors.Wrap(err, "failed to render HTML")
	}

	md, err := t.conv.ConvertReader(&buf, converter.WithDomain(base.Scheme+"://"+base.Host))
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to convert HTML to Markdown")
	}

	return Normalize(string(md)), links, nil
}

// applyOptions rewrites the tree so that ignored constructs reach the
// converter as plain text.
func (t *Transformer) applyOptions(doc *goquery.Document) {
	if t.opts.IgnoreLinks {
		doc.Find("a").Each(unwrap)
	} else if t.opts.IgnoreMailtoLinks {
		doc.Find(`a[href^="mailto:"]`).Each(unwrap)
	}

	if t.opts.IgnoreImages {
		doc.Find("img, picture").Remove()
	}

	if t.opts.IgnoreEmphasis {
		doc.Find("em, strong, i, b").Each(unwrap)
	}

	if t.opts.IgnoreTables {
		doc.Find("table").Each(flattenTable)
	}
}

// unwrap replaces an element with its children.
func unwrap(_ int, s *goquery.Selection) {
	if children := s.Contents(); children.Length() > 0 {
		children.Unwrap()
		return
	}
	s.Remove()
}

// flattenTable replaces a table with one paragraph per row, cells separated
// by spaces.
func flattenTable(_ int, s *goquery.Selection) {
	var paragraphs strings.Builder

	if caption := collapseSpace(s.ChildrenFiltered("caption").Text()); caption != "" {
		paragraphs.WriteString("<p>" + html.EscapeString(caption) + "</p>")
	}

	s.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if !row.Closest("table").IsSelection(s) {
			return
		}

		cells := make([]string, 0)
		row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			if text := collapseSpace(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})

		if len(cells) > 0 {
			paragraphs.WriteString("<p>" + html.EscapeString(strings.Join(cells, " ")) + "</p>")
		}
	})

	s.ReplaceWithHtml(paragraphs.String())
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
