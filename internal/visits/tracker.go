package visits

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/hpungsan/ctrack/internal/blob"
)

// DefaultStorageKey is the blob key the visit store lives under.
const DefaultStorageKey = "exler_comments_data"

// DefaultRetention is how long a record survives without a new visit.
const DefaultRetention = 30 * 24 * time.Hour

// Tracker reads and writes the visit store through a blob.Store.
type Tracker struct {
	blobs     blob.Store
	key       string
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithKey overrides DefaultStorageKey.
func WithKey(key string) Option {
	return func(t *Tracker) {
		if key != "" {
			t.key = key
		}
	}
}

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for degraded reads.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// NewTracker returns a tracker over blobs.
func NewTracker(blobs blob.Store, opts ...Option) *Tracker {
	t := &Tracker{
		blobs:     blobs,
		key:       DefaultStorageKey,
		retention: DefaultRetention,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UseLogger returns a copy of t that logs to log. Both share the backend.
func (t *Tracker) UseLogger(log zerolog.Logger) *Tracker {
	c := *t
	c.log = log
	return &c
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Load reads the store. A missing, unreadable or corrupt blob yields an
// empty store; Load never fails.
func (t *Tracker) Load(ctx context.Context) *Store {
	data, err := t.blobs.Get(ctx, t.key)
	if err != nil {
		if !stderrors.Is(err, blob.ErrNotFound) {
			t.log.Warn().Err(err).Str("key", t.key).Msg("visit store unreadable, treating as empty")
		}
		return NewStore()
	}

	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		t.log.Warn().Err(err).Str("key", t.key).Msg("visit store corrupt, treating as empty")
		return NewStore()
	}
	if s.ReadPosts == nil {
		s.ReadPosts = make(map[string]string)
	}
	return &s
}

// LastVisit returns when pageKey was last recorded. ok is false for a page
// that was never visited (or whose record no longer parses).
func (t *Tracker) LastVisit(ctx context.Context, pageKey string) (time.Time, bool) {
	return t.Load(ctx).Lookup(pageKey)
}

// RecordResult describes one RecordVisit call.
type RecordResult struct {
	PageKey    string    `json:"page_key"`
	RecordedAt time.Time `json:"recorded_at"`
	Evicted    []string  `json:"evicted,omitempty"`
}

// RecordVisit evicts stale records across the whole store, sets pageKey to
// now and writes the store back in one Put. now is read once.
func (t *Tracker) RecordVisit(ctx context.Context, pageKey string) (*RecordResult, error) {
	s := t.Load(ctx)

	now := t.now()
	evicted := s.Evict(now, t.retention)
	s.Set(pageKey, now)

	if err := t.save(ctx, s); err != nil {
		return nil, err
	}

	if len(evicted) > 0 {
		t.log.Debug().Strs("evicted", evicted).Msg("evicted stale visits")
	}

	recorded, _ := ParseTimestamp(s.ReadPosts[pageKey])
	return &RecordResult{PageKey: pageKey, RecordedAt: recorded, Evicted: evicted}, nil
}

// Entries lists every record, newest first.
func (t *Tracker) Entries(ctx context.Context) []Entry {
	return t.Load(ctx).Entries()
}

// Reset drops the whole blob.
func (t *Tracker) Reset(ctx context.Context) error {
	return t.blobs.Delete(ctx, t.key)
}

func (t *Tracker) save(ctx context.Context, s *Store) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return t.blobs.Put(ctx, t.key, data)
}
