package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hpungsan/ctrack/internal/blob"
	"github.com/hpungsan/ctrack/internal/config"
	"github.com/hpungsan/ctrack/internal/db"
	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/fetch"
	"github.com/hpungsan/ctrack/internal/metrics"
	"github.com/hpungsan/ctrack/internal/ops"
	"github.com/hpungsan/ctrack/internal/visits"
)

// runtime is everything a command needs, wired from config.
type runtime struct {
	deps     ops.Deps
	registry *prometheus.Registry
	closers  []func() error
}

// Close releases the storage backend.
func (r *runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openRuntime opens the configured blob backend and builds the tracker,
// fetcher and metrics around it.
func openRuntime(ctx context.Context, baseDir string, cfg *config.Config, log zerolog.Logger) (*runtime, error) {
	store, closer, err := openBlobStore(ctx, baseDir, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt := &runtime{
		deps: ops.Deps{
			Tracker: visits.NewTracker(store,
				visits.WithKey(cfg.StorageKey),
				visits.WithRetention(cfg.Retention()),
				visits.WithLogger(log),
			),
			Fetcher: fetch.New(fetch.Options{
				UserAgent:         cfg.UserAgent,
				Timeout:           cfg.RequestTimeout(),
				RequestsPerSecond: cfg.RequestsPerSecond,
			}),
			Config:  cfg,
			Log:     log,
			Metrics: metrics.New(reg),
		},
		registry: reg,
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	log.Debug().Str("backend", cfg.Backend).Str("key", cfg.StorageKey).Msg("runtime ready")
	return rt, nil
}

// openBlobStore returns the backend named by cfg.Backend and a function
// that releases it (nil when there is nothing to release).
func openBlobStore(ctx context.Context, baseDir string, cfg *config.Config) (blob.Store, func() error, error) {
	switch cfg.Backend {
	case "", config.BackendSQLite:
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, nil, errors.NewStoreFailed(fmt.Errorf("init database: %w", err))
		}
		db.ConfigurePool(database, cfg)
		return blob.NewSQLite(database), database.Close, nil

	case config.BackendFile:
		store, err := blob.NewFile(filepath.Join(baseDir, "blobs"))
		if err != nil {
			return nil, nil, errors.NewStoreFailed(err)
		}
		return store, nil, nil

	case config.BackendRedis:
		if cfg.RedisURL == "" {
			return nil, nil, errors.NewInvalidRequest("redis backend needs redis_url")
		}
		store, err := blob.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.NewStoreFailed(err)
		}
		return store, store.Close, nil

	case config.BackendMemory:
		return blob.NewMemory(), nil, nil
	}
	return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("unknown backend %q (want sqlite, file, redis or memory)", cfg.Backend))
}
