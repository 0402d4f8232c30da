// Package metrics registers the Prometheus surface under namespace
// "analyzer", served by each command's metrics server goroutine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "analyzer"

var (
	ActiveWorkersCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_workers_count",
		Help:      "Number of currently running worker goroutines, by worker kind.",
	}, []string{"worker"})

	ActiveHandleInstancesCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_handle_instances_count",
		Help:      "Number of live actor handle clones, by instance kind.",
	}, []string{"instance"})

	ActiveActorInstancesCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_actor_instances_count",
		Help:      "Number of live actor instances, by instance kind.",
	}, []string{"instance"})

	ErroneousTransactionsCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "erroneous_transactions_count",
		Help:      "Total transactions that failed to parse.",
	})

	TransactionParsingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transaction_parsing_time",
		Help:      "Time to parse one transaction, in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	LoopTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "loop_time",
		Help:      "Time spent in one iteration of a worker loop, in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"worker"})
)
