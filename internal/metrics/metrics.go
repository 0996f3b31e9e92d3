// Package metrics содержит prometheus-метрики движка агрегации.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rssreader/internal/domain"
)

var (
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_relay_fetches_total",
		Help: "Relay fetches by result (ok, network_error)",
	}, []string{"result"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssreader_relay_fetch_duration_seconds",
		Help:    "Duration of relay fetches",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_update_cycles_total",
		Help: "Update cycles by outcome (ok, partial, failed, skipped)",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssreader_update_cycle_duration_seconds",
		Help:    "Duration of update cycles from fan-out to merge",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	PostsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_posts_accepted_total",
		Help: "Posts accepted by merges",
	})

	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rssreader_active_requests",
		Help: "Relay requests currently in flight",
	})

	feedsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rssreader_feeds",
		Help: "Registered feeds",
	})

	postsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rssreader_posts",
		Help: "Posts in the collection",
	})
)

// StateObserver обновляет gauge-метрики по каждому снимку состояния.
type StateObserver struct{}

func (StateObserver) OnNotify(s domain.State) {
	activeRequests.Set(float64(s.ActiveRequests))
	feedsGauge.Set(float64(len(s.Feeds)))
	postsGauge.Set(float64(len(s.Posts)))
}
