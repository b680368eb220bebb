package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	liveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tasks_live_subscriptions",
		Help: "Open task list subscriptions",
	})
	snapshotsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_snapshots_total",
		Help: "Snapshots produced by task subscriptions",
	})
	tasksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_created_total",
		Help: "Tasks created",
	})
	tasksDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_deleted_total",
		Help: "Task deletions accepted by the store",
	})
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_store_errors_total",
			Help: "Task store failures by operation",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(liveSubscriptions)
	prometheus.MustRegister(snapshotsSent)
	prometheus.MustRegister(tasksCreated)
	prometheus.MustRegister(tasksDeleted)
	prometheus.MustRegister(storeErrors)
}
