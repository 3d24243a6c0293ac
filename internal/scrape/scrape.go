// Package scrape pulls raw comments out of a forum page.
package scrape

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hpungsan/ctrack/internal/comments"
	"github.com/hpungsan/ctrack/internal/config"
)

// Extract returns one Raw per comment element in document order.
// Empty selector fields fall back to config.DefaultSelectors.
func Extract(r io.Reader, sel config.Selectors) ([]comments.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, sel), nil
}

// FromDocument is Extract over an already parsed document.
func FromDocument(doc *goquery.Document, sel config.Selectors) []comments.Raw {
	sel = withDefaults(sel)

	var raws []comments.Raw
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		raw := comments.Raw{}

		if dateEl := item.Find(sel.Date).First(); dateEl.Length() > 0 {
			raw.HasDate = true
			raw.DateText = ownText(dateEl)
			raw.TimeText = strings.TrimSpace(dateEl.Find(sel.Time).First().Text())
		}

		if author := item.Find(sel.Author).First(); author.Length() > 0 {
			raw.Author = strings.TrimSpace(author.Text())
		}

		if body := item.Find(sel.Content).First(); body.Length() > 0 {
			raw.Body = strings.TrimSpace(body.Text())
		}

		raws = append(raws, raw)
	})
	return raws
}

// ownText joins the trimmed text nodes that are direct children of s,
// leaving out text inside nested elements such as the time span.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(strings.TrimSpace(c.Text()))
		}
	})
	return b.String()
}

func withDefaults(sel config.Selectors) config.Selectors {
	def := config.DefaultSelectors()
	if sel.Item == "" {
		sel.Item = def.Item
	}
	if sel.Date == "" {
		sel.Date = def.Date
	}
	if sel.Time == "" {
		sel.Time = def.Time
	}
	if sel.Author == "" {
		sel.Author = def.Author
	}
	if sel.Content == "" {
		sel.Content = def.Content
	}
	return sel
}
