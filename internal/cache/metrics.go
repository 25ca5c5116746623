package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poollens_cache_lookups_total",
		Help: "Cache lookups by cache name and result (hit, miss, stale, shared).",
	}, []string{"cache", "result"})

	producerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poollens_cache_producer_calls_total",
		Help: "Producer invocations by cache name and outcome.",
	}, []string{"cache", "outcome"})
)
