package ops

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/ctrack/internal/config"
	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/metrics"
	"github.com/hpungsan/ctrack/internal/visits"
)

// PageFetcher retrieves the HTML of a page. *fetch.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// Deps bundles what the operations need. Config, Log and Metrics may be
// left zero; Normalize fills defaults.
type Deps struct {
	Tracker *visits.Tracker
	Fetcher PageFetcher
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

// Normalize returns a copy of d with defaults applied.
func (d Deps) Normalize() Deps {
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	return d
}

// NewSessionID returns a fresh ULID identifying one page-load session.
func NewSessionID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// pageKeyFor validates a page URL and returns its key.
func pageKeyFor(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.NewInvalidRequest("url is required")
	}
	key := visits.PageKey(rawURL)
	if key == "" {
		return "", errors.NewInvalidRequest("url must not start with '#'")
	}
	return key, nil
}
