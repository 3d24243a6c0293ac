// Package fetch retrieves comment pages over HTTP or from disk.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hpungsan/ctrack/internal/errors"
)

// maxPageBytes caps how much of a response body is read.
const maxPageBytes = 8 << 20

// Fetcher loads pages. HTTP requests share one rate limiter so a run over
// many pages does not hammer the forum.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// Options configure a Fetcher.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Client            *http.Client
}

// New creates a Fetcher. RequestsPerSecond <= 0 disables pacing.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
	}
}

// Fetch returns the page body for an http(s) URL, a file:// URL or a local path.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" {
		return readFile(target)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, target)
	case "file":
		return readFile(u.Path)
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported url scheme %q", u.Scheme))
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.NewFetchFailed(target, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid url: %v", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchFailed(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewFetchFailed(target, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errors.NewFetchFailed(target, err)
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
		}
		return nil, errors.NewFetchFailed(path, err)
	}
	return data, nil
}
