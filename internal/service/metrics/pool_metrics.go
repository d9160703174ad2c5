package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coinsentry",
			Subsystem: "pool",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one evaluate-and-advance cycle",
			Buckets:   prometheus.DefBuckets,
		},
	)

	FilterResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinsentry",
			Subsystem: "pool",
			Name:      "filter_results_total",
			Help:      "Filter verdicts per rule and outcome",
		},
		[]string{"rule", "outcome"},
	)

	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinsentry",
			Subsystem: "signals",
			Name:      "emitted_total",
			Help:      "Trading signals emitted by action",
		},
		[]string{"action"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CycleDuration, FilterResults, SignalsEmitted)
	})
}
