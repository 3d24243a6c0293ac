package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated by page checks.
type Metrics struct {
	PagesChecked    *prometheus.CounterVec
	NewComments     prometheus.Counter
	SkippedComments prometheus.Counter
	VisitsEvicted   prometheus.Counter
	FetchDuration   prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesChecked: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctrack_pages_checked_total",
				Help: "Pages checked for new comments.",
			},
			[]string{"result"}, // ok, fetch_error, store_error
		),
		NewComments: f.NewCounter(prometheus.CounterOpts{
			Name: "ctrack_new_comments_total",
			Help: "Comments classified as new.",
		}),
		SkippedComments: f.NewCounter(prometheus.CounterOpts{
			Name: "ctrack_comments_skipped_total",
			Help: "Comment elements skipped for lack of a parsable date.",
		}),
		VisitsEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "ctrack_visits_evicted_total",
			Help: "Visit records removed by age-based eviction.",
		}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctrack_fetch_duration_seconds",
			Help:    "Time spent retrieving a page.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
	}
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
