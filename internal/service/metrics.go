package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfstudy",
		Name:      "rating_mutations_total",
		Help:      "Counterfactual record mutations by operation and result",
	}, []string{"op", "result"})

	repairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfstudy",
		Name:      "rating_repairs_total",
		Help:      "Ratings arrays that violated the length or value invariant when read",
	}, []string{"op"})

	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfstudy",
		Name:      "revision_conflicts_total",
		Help:      "Writes rejected because the record changed since it was read",
	}, []string{"op"})

	generationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfstudy",
		Name:      "generation_requests_total",
		Help:      "Generation requests by outcome",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cfstudy",
		Name:      "generation_duration_seconds",
		Help:      "Latency of calls to the generation endpoint",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	})
)
