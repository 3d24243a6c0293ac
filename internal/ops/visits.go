package ops

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/hpungsan/ctrack/internal/errors"
)

var errMissingTracker = stderrors.New("tracker not configured")

// MarkReadOutput is the result of MarkRead.
type MarkReadOutput struct {
	PageKey      string    `json:"page_key"`
	RecordedAt   time.Time `json:"recorded_at"`
	Evicted      []string  `json:"evicted,omitempty"`
	EvictedCount int       `json:"evicted_count"`
}

// MarkRead records a visit to url now, so every comment currently on the
// page reads as seen next time.
func MarkRead(ctx context.Context, deps Deps, url string) (*MarkReadOutput, error) {
	deps = deps.Normalize()
	if deps.Tracker == nil {
		return nil, errors.NewInternal(errMissingTracker)
	}
	pageKey, err := pageKeyFor(url)
	if err != nil {
		return nil, err
	}

	rec, err := deps.Tracker.RecordVisit(ctx, pageKey)
	if err != nil {
		return nil, errors.NewStoreFailed(err)
	}
	deps.Metrics.VisitsEvicted.Add(float64(len(rec.Evicted)))
	deps.Log.Info().Str("page_key", pageKey).Msg("marked read")

	return &MarkReadOutput{
		PageKey:      pageKey,
		RecordedAt:   rec.RecordedAt,
		Evicted:      rec.Evicted,
		EvictedCount: len(rec.Evicted),
	}, nil
}

// LastVisitOutput is the result of LastVisit.
type LastVisitOutput struct {
	PageKey   string    `json:"page_key"`
	VisitedAt time.Time `json:"visited_at"`
	Age       string    `json:"age"`
}

// LastVisit returns when url was last recorded. An untracked page is
// NOT_FOUND.
func LastVisit(ctx context.Context, deps Deps, url string) (*LastVisitOutput, error) {
	if deps.Tracker == nil {
		return nil, errors.NewInternal(errMissingTracker)
	}
	pageKey, err := pageKeyFor(url)
	if err != nil {
		return nil, err
	}

	t, ok := deps.Tracker.LastVisit(ctx, pageKey)
	if !ok {
		return nil, errors.NewNotFound(pageKey)
	}
	return &LastVisitOutput{
		PageKey:   pageKey,
		VisitedAt: t,
		Age:       deps.Tracker.Now().Sub(t).Truncate(time.Second).String(),
	}, nil
}

// VisitItem is one row of ListVisits.
type VisitItem struct {
	PageKey   string     `json:"page_key"`
	VisitedAt *time.Time `json:"visited_at,omitempty"`
	Raw       string     `json:"raw"`
	Stale     bool       `json:"stale"`
}

// ListVisitsOutput is the result of ListVisits.
type ListVisitsOutput struct {
	Items []VisitItem `json:"items"`
	Total int         `json:"total"`
}

// ListVisits lists every record, newest first. Stale marks records the
// next write will evict.
func ListVisits(ctx context.Context, deps Deps) (*ListVisitsOutput, error) {
	deps = deps.Normalize()
	if deps.Tracker == nil {
		return nil, errors.NewInternal(errMissingTracker)
	}

	now := deps.Tracker.Now()
	retention := deps.Config.Retention()
	entries := deps.Tracker.Entries(ctx)

	items := make([]VisitItem, 0, len(entries))
	for _, e := range entries {
		item := VisitItem{PageKey: e.PageKey, Raw: e.Raw}
		if !e.VisitedAt.IsZero() {
			at := e.VisitedAt
			item.VisitedAt = &at
			item.Stale = now.Sub(at) > retention
		}
		items = append(items, item)
	}
	return &ListVisitsOutput{Items: items, Total: len(items)}, nil
}

// ResetOutput is the result of Reset.
type ResetOutput struct {
	Removed int `json:"removed"`
}

// Reset drops every visit record.
func Reset(ctx context.Context, deps Deps) (*ResetOutput, error) {
	if deps.Tracker == nil {
		return nil, errors.NewInternal(errMissingTracker)
	}
	n := len(deps.Tracker.Entries(ctx))
	if err := deps.Tracker.Reset(ctx); err != nil {
		return nil, errors.NewStoreFailed(err)
	}
	deps.Log.Info().Int("removed", n).Msg("visit store reset")
	return &ResetOutput{Removed: n}, nil
}
