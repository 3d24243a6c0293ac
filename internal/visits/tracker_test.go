package visits

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ctrack/internal/blob"
	"github.com/hpungsan/ctrack/internal/comments"
)

// countingStore wraps a blob.Store and counts calls.
type countingStore struct {
	blob.Store
	mu         sync.Mutex
	gets, puts int
	putErr     error
	getErr     error
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets++
	err := c.getErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Store.Get(ctx, key)
}

func (c *countingStore) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.puts++
	err := c.putErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Store.Put(ctx, key, value)
}

// fixedClock returns a controllable clock.
type fixedClock struct{ t time.Time }

func (f *fixedClock) Now() time.Time { return f.t }

var baseNow = time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) (*Tracker, *blob.Memory, *fixedClock) {
	t.Helper()
	mem := blob.NewMemory()
	clock := &fixedClock{t: baseNow}
	return NewTracker(mem, WithClock(clock.Now)), mem, clock
}

func seed(t *testing.T, mem *blob.Memory, body string) {
	t.Helper()
	require.NoError(t, mem.Put(context.Background(), DefaultStorageKey, []byte(body)))
}

func TestLoad_EmptyWhenMissing(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	s := tr.Load(context.Background())
	require.NotNil(t, s.ReadPosts)
	assert.Empty(t, s.ReadPosts)
}

func TestLoad_EmptyWhenCorrupt(t *testing.T) {
	tests := []string{`{not json`, `[]`, `null`, `{"readPosts": null}`}

	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			tr, mem, _ := newTestTracker(t)
			seed(t, mem, body)

			s := tr.Load(context.Background())
			require.NotNil(t, s.ReadPosts)
			assert.Empty(t, s.ReadPosts)
		})
	}
}

func TestLoad_EmptyWhenBackendFails(t *testing.T) {
	store := &countingStore{Store: blob.NewMemory(), getErr: fmt.Errorf("connection refused")}
	tr := NewTracker(store)

	s := tr.Load(context.Background())
	assert.Empty(t, s.ReadPosts)
}

func TestUseLogger_RedirectsDegradedReads(t *testing.T) {
	var orig, redirected bytes.Buffer
	mem := blob.NewMemory()
	tr := NewTracker(mem, WithLogger(zerolog.New(&orig)))
	seed(t, mem, `{not json`)

	copied := tr.UseLogger(zerolog.New(&redirected))
	copied.Load(context.Background())

	assert.Empty(t, orig.String())
	assert.Contains(t, redirected.String(), `"level":"warn"`)

	// The copy shares the backend.
	_, err := copied.RecordVisit(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	_, ok := tr.LastVisit(context.Background(), "https://a.example/1")
	assert.True(t, ok)
}

func TestRecordVisit_FirstUse(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	ctx := context.Background()
	page := "https://exler.example/post/123"

	res, err := tr.RecordVisit(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, page, res.PageKey)
	assert.True(t, res.RecordedAt.Equal(baseNow))
	assert.Empty(t, res.Evicted)

	data, err := mem.Get(ctx, DefaultStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"readPosts":{"https://exler.example/post/123":"2026-01-22T12:00:00.000Z"}}`, string(data))
}

func TestLastVisit_Untracked(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	_, ok := tr.LastVisit(context.Background(), "https://exler.example/never")
	assert.False(t, ok)
}

func TestLastVisit_AfterRecord(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordVisit(ctx, "https://exler.example/post/1")
	require.NoError(t, err)

	got, ok := tr.LastVisit(ctx, "https://exler.example/post/1")
	require.True(t, ok)
	assert.True(t, got.Equal(baseNow))
}

func TestLastVisit_UnparseableIsAbsent(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	seed(t, mem, `{"readPosts":{"p":"yesterday-ish"}}`)

	_, ok := tr.LastVisit(context.Background(), "p")
	assert.False(t, ok)
}

func TestLastVisit_AcceptsForeignISOForms(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	seed(t, mem, `{"readPosts":{"a":"2026-01-20T10:00:00Z","b":"2026-01-20T13:00:00+03:00"}}`)

	a, ok := tr.LastVisit(context.Background(), "a")
	require.True(t, ok)
	b, ok := tr.LastVisit(context.Background(), "b")
	require.True(t, ok)
	assert.True(t, a.Equal(b))
}

func TestRecordVisit_EvictsGlobally(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	ctx := context.Background()

	old := FormatTimestamp(baseNow.Add(-31 * 24 * time.Hour))
	recent := FormatTimestamp(baseNow.Add(-10 * 24 * time.Hour))
	seed(t, mem, fmt.Sprintf(`{"readPosts":{"old":%q,"recent":%q,"junk":"???"}}`, old, recent))

	res, err := tr.RecordVisit(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, res.Evicted)

	s := tr.Load(ctx)
	assert.NotContains(t, s.ReadPosts, "old")
	assert.Equal(t, recent, s.ReadPosts["recent"])
	assert.Equal(t, "???", s.ReadPosts["junk"], "unparseable records are never aged out")
	assert.Equal(t, FormatTimestamp(baseNow), s.ReadPosts["new"])
}

func TestRecordVisit_EvictionBoundary(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	ctx := context.Background()

	exactly := FormatTimestamp(baseNow.Add(-DefaultRetention))
	justOver := FormatTimestamp(baseNow.Add(-DefaultRetention - time.Millisecond))
	seed(t, mem, fmt.Sprintf(`{"readPosts":{"exactly":%q,"over":%q}}`, exactly, justOver))

	res, err := tr.RecordVisit(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"over"}, res.Evicted)
}

func TestRecordVisit_UpsertsExisting(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordVisit(ctx, "p")
	require.NoError(t, err)

	clock.t = baseNow.Add(time.Hour)
	_, err = tr.RecordVisit(ctx, "p")
	require.NoError(t, err)

	s := tr.Load(ctx)
	assert.Len(t, s.ReadPosts, 1)
	got, ok := s.Lookup("p")
	require.True(t, ok)
	assert.True(t, got.Equal(baseNow.Add(time.Hour)))
}

func TestRecordVisit_OneReadOneWrite(t *testing.T) {
	store := &countingStore{Store: blob.NewMemory()}
	tr := NewTracker(store)

	_, err := tr.RecordVisit(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.puts)
}

func TestRecordVisit_WriteFailure(t *testing.T) {
	store := &countingStore{Store: blob.NewMemory(), putErr: fmt.Errorf("read-only")}
	tr := NewTracker(store)

	_, err := tr.RecordVisit(context.Background(), "p")
	require.Error(t, err)
}

func TestRecordVisit_CustomRetentionAndKey(t *testing.T) {
	mem := blob.NewMemory()
	clock := &fixedClock{t: baseNow}
	tr := NewTracker(mem, WithClock(clock.Now), WithKey("other"), WithRetention(24*time.Hour))
	ctx := context.Background()

	_, err := tr.RecordVisit(ctx, "a")
	require.NoError(t, err)

	clock.t = baseNow.Add(25 * time.Hour)
	res, err := tr.RecordVisit(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Evicted)

	_, err = mem.Get(ctx, DefaultStorageKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	_, err = mem.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordVisit(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, tr.Reset(ctx))

	assert.Empty(t, tr.Load(ctx).ReadPosts)
}

func TestEntries_NewestFirst(t *testing.T) {
	tr, mem, _ := newTestTracker(t)
	seed(t, mem, `{"readPosts":{
		"a":"2026-01-20T10:00:00.000Z",
		"b":"2026-01-21T10:00:00.000Z",
		"c":"broken"
	}}`)

	entries := tr.Entries(context.Background())
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].PageKey)
	assert.Equal(t, "a", entries[1].PageKey)
	assert.Equal(t, "c", entries[2].PageKey)
	assert.True(t, entries[2].VisitedAt.IsZero())
	assert.Equal(t, "broken", entries[2].Raw)
}

func TestPageKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://exler.example/post/123", "https://exler.example/post/123"},
		{"https://exler.example/post/123#comment-5", "https://exler.example/post/123"},
		{"https://exler.example/post/123?page=2#c#d", "https://exler.example/post/123?page=2"},
		{"#only", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PageKey(tt.in), tt.in)
	}
}

// A page loaded at T1 sees a later comment as new; once that load has been
// recorded, later loads see the same comment as seen.
func TestVisitOverwriteOrdering(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	ctx := context.Background()
	page := "https://exler.example/post/42"
	opts := comments.Options{Location: time.UTC}

	// Load 0 at T1 only records the visit.
	clock.t = time.Date(2026, time.January, 20, 10, 0, 0, 0, time.UTC)
	_, err := tr.RecordVisit(ctx, page)
	require.NoError(t, err)

	raws := []comments.Raw{{Author: "a", DateText: "20.01.26", TimeText: "11:00", HasDate: true}}

	// Load 1 happens after the comment was posted.
	clock.t = time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)
	last, ok := tr.LastVisit(ctx, page)
	require.True(t, ok)
	res := comments.Classify(raws, last, ok, opts)
	assert.True(t, res.Comments[0].IsNew)
	_, err = tr.RecordVisit(ctx, page)
	require.NoError(t, err)

	// Load 2 sees the same comment as already seen.
	clock.t = time.Date(2026, time.January, 20, 13, 0, 0, 0, time.UTC)
	last, ok = tr.LastVisit(ctx, page)
	require.True(t, ok)
	res = comments.Classify(raws, last, ok, opts)
	assert.False(t, res.Comments[0].IsNew)
}
