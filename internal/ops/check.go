package ops

import (
	"bytes"
	"context"
	"time"

	"github.com/hpungsan/ctrack/internal/comments"
	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/scrape"
)

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	URL string
	// HTML, when non-nil, is classified instead of fetching URL.
	// URL still names the page for visit tracking.
	HTML   []byte
	DryRun bool
}

// CheckOutput is the result of one page-load session.
type CheckOutput struct {
	SessionID    string             `json:"session_id"`
	URL          string             `json:"url"`
	PageKey      string             `json:"page_key"`
	FirstVisit   bool               `json:"first_visit"`
	LastVisit    *time.Time         `json:"last_visit,omitempty"`
	Comments     []comments.Comment `json:"comments"`
	NewCount     int                `json:"new_count"`
	Skipped      int                `json:"skipped"`
	Recorded     bool               `json:"recorded"`
	RecordedAt   *time.Time         `json:"recorded_at,omitempty"`
	Evicted      []string           `json:"evicted,omitempty"`
	EvictedCount int                `json:"evicted_count"`
	// RecordError is set when the visit could not be written. The
	// classification is still valid; the next session will see the
	// same comments as new.
	RecordError string `json:"record_error,omitempty"`
}

// NewComments returns the comments classified as new, in page order.
func (o *CheckOutput) NewComments() []comments.Comment {
	out := make([]comments.Comment, 0, o.NewCount)
	for _, c := range o.Comments {
		if c.IsNew {
			out = append(out, c)
		}
	}
	return out
}

// Check loads a page, classifies its comments against the page's last
// visit and then records the visit. The last visit is read before the
// record is overwritten.
func Check(ctx context.Context, deps Deps, input CheckInput) (*CheckOutput, error) {
	deps = deps.Normalize()
	if deps.Tracker == nil {
		return nil, errors.NewInternal(errMissingTracker)
	}

	pageKey, err := pageKeyFor(input.URL)
	if err != nil {
		return nil, err
	}

	out := &CheckOutput{
		SessionID: NewSessionID(),
		URL:       input.URL,
		PageKey:   pageKey,
	}
	log := deps.Log.With().Str("session_id", out.SessionID).Str("page_key", pageKey).Logger()

	html := input.HTML
	if html == nil {
		if deps.Fetcher == nil {
			return nil, errors.NewInvalidRequest("no fetcher configured and no html supplied")
		}
		start := time.Now()
		html, err = deps.Fetcher.Fetch(ctx, input.URL)
		deps.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			deps.Metrics.PagesChecked.WithLabelValues("fetch_error").Inc()
			return nil, err
		}
	}

	raws, err := scrape.Extract(bytes.NewReader(html), deps.Config.Selectors)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	lastVisit, hasLastVisit := deps.Tracker.LastVisit(ctx, pageKey)
	if hasLastVisit {
		lv := lastVisit
		out.LastVisit = &lv
	}
	out.FirstVisit = !hasLastVisit

	result := comments.Classify(raws, lastVisit, hasLastVisit, comments.Options{
		Location:     deps.Config.Location(),
		PreviewChars: deps.Config.PreviewChars,
	})
	out.Comments = result.Comments
	out.NewCount = result.NewCount
	out.Skipped = result.Skipped

	deps.Metrics.NewComments.Add(float64(result.NewCount))
	deps.Metrics.SkippedComments.Add(float64(result.Skipped))

	if input.DryRun {
		deps.Metrics.PagesChecked.WithLabelValues("ok").Inc()
		log.Info().Int("new", out.NewCount).Int("skipped", out.Skipped).Bool("dry_run", true).Msg("page checked")
		return out, nil
	}

	rec, err := deps.Tracker.RecordVisit(ctx, pageKey)
	if err != nil {
		deps.Metrics.PagesChecked.WithLabelValues("store_error").Inc()
		log.Warn().Err(err).Msg("visit not recorded")
		out.RecordError = err.Error()
		return out, nil
	}

	out.Recorded = true
	recordedAt := rec.RecordedAt
	out.RecordedAt = &recordedAt
	out.Evicted = rec.Evicted
	out.EvictedCount = len(rec.Evicted)
	deps.Metrics.VisitsEvicted.Add(float64(out.EvictedCount))
	deps.Metrics.PagesChecked.WithLabelValues("ok").Inc()

	log.Info().
		Int("comments", len(out.Comments)).
		Int("new", out.NewCount).
		Int("skipped", out.Skipped).
		Int("evicted", out.EvictedCount).
		Msg("page checked")

	return out, nil
}
