package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    FeedLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "flipsight",
            Subsystem: "feed",
            Name:      "latency_seconds",
            Help:      "Latency of price feed endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    FeedErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "flipsight",
            Subsystem: "feed",
            Name:      "errors_total",
            Help:      "Errors by price feed endpoint",
        },
        []string{"endpoint"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(FeedLatency, FeedErrors)
    })
}
