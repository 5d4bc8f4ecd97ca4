// Package metrics exposes prometheus collectors for commands and queued tasks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termkit"

// Collector records command and queue metrics.
type Collector struct {
	registry        *prometheus.Registry
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	tasksTotal      *prometheus.CounterVec
	taskWait        *prometheus.HistogramVec
	taskRun         *prometheus.HistogramVec
}

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands run, labeled by mode and exit status.",
		}, []string{"mode", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Histogram of command durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_tasks_total",
			Help:      "Total queued tasks served, labeled by queue and outcome.",
		}, []string{"queue", "outcome"}),
		taskWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Histogram of the time tasks waited for their ticket.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
		taskRun: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_run_seconds",
			Help:      "Histogram of task run durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
	}
	c.registry.MustRegister(c.commandsTotal, c.commandDuration, c.tasksTotal, c.taskWait, c.taskRun)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records a finished command; status is -1 when it failed to run.
func (c *Collector) ObserveCommand(remote bool, status int, elapsed time.Duration, err error) {
	mode := "local"
	if remote {
		mode = "remote"
	}
	label := strconv.Itoa(status)
	if err != nil {
		label = "error"
	}
	c.commandsTotal.WithLabelValues(mode, label).Inc()
	c.commandDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveTask records a served queue ticket.
func (c *Collector) ObserveTask(queue string, wait, run time.Duration, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	c.tasksTotal.WithLabelValues(queue, outcome).Inc()
	c.taskWait.WithLabelValues(queue).Observe(wait.Seconds())
	c.taskRun.WithLabelValues(queue).Observe(run.Seconds())
}
