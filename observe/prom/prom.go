// Package prom provides a Prometheus-backed Observer for task groups.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

// Observer implements taskgroup.Observer on top of Prometheus collectors.
// One Observer may be shared by any number of groups.
type Observer struct {
	groupsCreated   prometheus.Counter
	groupsCancelled prometheus.Counter
	drainWait       prometheus.Histogram
	childrenStarted *prometheus.CounterVec
	childrenDone    *prometheus.CounterVec
	childDuration   prometheus.Histogram
	childrenActive  prometheus.Gauge
}

var _ taskgroup.Observer = (*Observer)(nil)

// New builds an Observer and registers its collectors with reg.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		groupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgroup",
			Name:      "groups_created_total",
			Help:      "Task groups created.",
		}),
		groupsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgroup",
			Name:      "groups_cancelled_total",
			Help:      "Task groups cancelled via CancelAll; parent context cancellation alone is not counted.",
		}),
		drainWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskgroup",
			Name:      "drain_wait_seconds",
			Help:      "Time spent draining a group at scope exit.",
			Buckets:   prometheus.DefBuckets,
		}),
		childrenStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskgroup",
			Name:      "children_started_total",
			Help:      "Children spawned, by priority.",
		}, []string{"priority"}),
		childrenDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskgroup",
			Name:      "children_finished_total",
			Help:      "Children finished, by outcome.",
		}, []string{"outcome"}),
		childDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskgroup",
			Name:      "child_duration_seconds",
			Help:      "Child task wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		childrenActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskgroup",
			Name:      "children_active",
			Help:      "Children currently running.",
		}),
	}
	reg.MustRegister(
		o.groupsCreated,
		o.groupsCancelled,
		o.drainWait,
		o.childrenStarted,
		o.childrenDone,
		o.childDuration,
		o.childrenActive,
	)
	return o
}

func (o *Observer) GroupCreated(_ context.Context) {
	o.groupsCreated.Inc()
}

func (o *Observer) GroupCancelled(_ context.Context) {
	o.groupsCancelled.Inc()
}

func (o *Observer) GroupDrained(_ context.Context, wait time.Duration) {
	o.drainWait.Observe(wait.Seconds())
}

func (o *Observer) TaskStarted(_ context.Context, info taskgroup.TaskInfo) {
	o.childrenActive.Inc()
	o.childrenStarted.WithLabelValues(info.Priority.String()).Inc()
}

func (o *Observer) TaskFinished(_ context.Context, _ taskgroup.TaskInfo, dur time.Duration, err error) {
	o.childrenActive.Dec()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.childrenDone.WithLabelValues(outcome).Inc()
	o.childDuration.Observe(dur.Seconds())
}
