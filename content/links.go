package content

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the absolute, same-domain targets of every anchor in
// doc, in document order. Fragments and query strings are stripped. Pure
// fragment references are skipped. Duplicates are kept.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		target := base.ResolveReference(ref)
		target.Fragment = ""
		target.RawFragment = ""
		target.RawQuery = ""
		target.ForceQuery = false

		if SameDomain(target, base) {
			links = append(links, target.String())
		}
	})

	return links
}

// SameDomain reports whether both URLs share a registrable domain.
func SameDomain(a, b *url.URL) bool {
	return RegistrableDomain(a) == RegistrableDomain(b)
}

// RegistrableDomain is the URL's host (with port, if any) without a leading
// "www." prefix.
func RegistrableDomain(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
