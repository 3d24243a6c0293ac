// Package comments decides which scraped comments appeared after the
// reader's last visit to a page.
package comments

import (
	"strings"
	"time"
	"unicode/utf8"
)

// UnknownAuthor is used when a comment has no author name.
const UnknownAuthor = "Unknown"

// DefaultPreviewChars is the preview length when Options leaves it unset.
const DefaultPreviewChars = 100

// Raw is one comment element as scraped from a page, in document order.
type Raw struct {
	Author   string
	DateText string
	TimeText string
	Body     string
	// HasDate is false when the element has no date block at all.
	HasDate bool
}

// Comment is a classified comment.
type Comment struct {
	Index    int       `json:"index"` // 1-based position among all scraped elements
	Author   string    `json:"author"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	PostedAt time.Time `json:"posted_at"`
	IsNew    bool      `json:"is_new"`
	Preview  string    `json:"preview"`
}

// Result is the outcome of classifying one page.
type Result struct {
	Comments []Comment `json:"comments"`
	NewCount int       `json:"new_count"`
	Skipped  int       `json:"skipped"`
}

// Options tune parsing and previews.
type Options struct {
	Location     *time.Location
	PreviewChars int
}

// IsNew reports whether a comment posted at posted is newer than the last
// visit. Without a last visit every comment is new. A comment posted
// exactly at lastVisit is not new.
func IsNew(posted, lastVisit time.Time, hasLastVisit bool) bool {
	return !hasLastVisit || posted.After(lastVisit)
}

// Classify parses and tags every raw comment. Elements without a date block
// or with an unparseable date are skipped and only counted in Skipped.
// Classify has no state; the same input always yields the same output.
func Classify(raws []Raw, lastVisit time.Time, hasLastVisit bool, opts Options) *Result {
	res := &Result{Comments: make([]Comment, 0, len(raws))}

	for i, raw := range raws {
		if !raw.HasDate {
			res.Skipped++
			continue
		}
		posted, ok := ParseDate(raw.DateText, raw.TimeText, opts.Location)
		if !ok {
			res.Skipped++
			continue
		}

		author := strings.TrimSpace(raw.Author)
		if author == "" {
			author = UnknownAuthor
		}

		c := Comment{
			Index:    i + 1,
			Author:   author,
			Date:     raw.DateText,
			Time:     raw.TimeText,
			PostedAt: posted,
			IsNew:    IsNew(posted, lastVisit, hasLastVisit),
			Preview:  Preview(raw.Body, opts.PreviewChars),
		}
		if c.IsNew {
			res.NewCount++
		}
		res.Comments = append(res.Comments, c)
	}

	return res
}

// NewComments returns the new comments in document order.
func (r *Result) NewComments() []Comment {
	out := make([]Comment, 0, r.NewCount)
	for _, c := range r.Comments {
		if c.IsNew {
			out = append(out, c)
		}
	}
	return out
}

// Preview trims body and cuts it to n characters, appending "..." when
// anything was cut. n <= 0 means DefaultPreviewChars.
func Preview(body string, n int) string {
	if n <= 0 {
		n = DefaultPreviewChars
	}
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= n {
		return body
	}
	runes := []rune(body)
	return string(runes[:n]) + "..."
}
