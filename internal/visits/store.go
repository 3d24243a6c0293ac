// Package visits remembers when each page was last processed.
//
// All records live in one blob, {"readPosts": {pageKey: isoTimestamp}},
// which is read and rewritten whole. Sessions do not lock it: two sessions
// finishing at the same time race and the last write wins.
package visits

import (
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 UTC layout with milliseconds used for
// every stored timestamp, e.g. 2026-01-20T10:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Store is the persisted aggregate.
type Store struct {
	ReadPosts map[string]string `json:"readPosts"`
}

// Entry is one visit record.
type Entry struct {
	PageKey   string    `json:"page_key"`
	VisitedAt time.Time `json:"visited_at"`
	// Raw is the stored text; it is kept even when it does not parse.
	Raw string `json:"raw"`
}

// NewStore returns a store with no records.
func NewStore() *Store {
	return &Store{ReadPosts: make(map[string]string)}
}

// PageKey returns the page identity for a URL: everything before the first '#'.
func PageKey(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// FormatTimestamp renders t the way it is persisted.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without fractions.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Lookup returns the last visit for pageKey. An unparseable record is
// reported as absent.
func (s *Store) Lookup(pageKey string) (time.Time, bool) {
	raw, ok := s.ReadPosts[pageKey]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	return ParseTimestamp(raw)
}

// Evict removes every record older than now-retention and returns the
// removed keys, sorted. Records whose timestamp does not parse cannot be
// aged and stay.
func (s *Store) Evict(now time.Time, retention time.Duration) []string {
	var evicted []string
	for key, raw := range s.ReadPosts {
		visited, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		if now.Sub(visited) > retention {
			delete(s.ReadPosts, key)
			evicted = append(evicted, key)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Set records a visit to pageKey at t.
func (s *Store) Set(pageKey string, t time.Time) {
	s.ReadPosts[pageKey] = FormatTimestamp(t)
}

// Entries returns all records, newest first; unparseable ones sort last.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.ReadPosts))
	for key, raw := range s.ReadPosts {
		visited, _ := ParseTimestamp(raw)
		entries = append(entries, Entry{PageKey: key, VisitedAt: visited, Raw: raw})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].VisitedAt.Equal(entries[j].VisitedAt) {
			return entries[i].VisitedAt.After(entries[j].VisitedAt)
		}
		return entries[i].PageKey < entries[j].PageKey
	})
	return entries
}
