// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package periodic runs background tasks on a fixed period.
package periodic

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/metrics"
)

// Events reported through Metrics.Events.
const (
	EventStop    = "stop"
	EventKill    = "kill"
	EventTrigger = "triggered"
)

// Task is a function that is executed periodically.
type Task interface {
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
	// Name returns the task name, used for logging and metrics.
	Name() string
}

// Func wraps a function with a name into a Task.
type Func struct {
	Task     func(context.Context)
	TaskName string
}

// Run runs the wrapped function.
func (f Func) Run(ctx context.Context) { f.Task(ctx) }

// Name returns the task name.
func (f Func) Name() string { return f.TaskName }

// Metrics contains the metrics of a Runner. All fields are optional.
type Metrics struct {
	Events    func(event string) prometheus.Counter
	Runtime   prometheus.Gauge
	StartTime prometheus.Gauge
	Period    prometheus.Gauge
}

// NewMetrics creates metrics for the task with the given name. The name
// must be a valid prometheus metric name prefix.
func NewMetrics(prefix string, opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	prefix = strings.ReplaceAll(prefix, ".", "_")
	events := f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_periodic_events_total",
		Help: "Total number of events of the periodic task.",
	}, []string{"event_type"})
	return &Metrics{
		Events: func(event string) prometheus.Counter {
			return events.WithLabelValues(event)
		},
		Runtime: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_periodic_runtime_duration_seconds",
			Help: "Duration of the last run of the periodic task.",
		}),
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_periodic_runtime_timestamp_seconds",
			Help: "Start time of the last run of the periodic task.",
		}),
		Period: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_periodic_period_duration_seconds",
			Help: "Period of the periodic task.",
		}),
	}
}

func (m *Metrics) event(event string) {
	if m != nil && m.Events != nil {
		m.Events(event).Inc()
	}
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       *time.Ticker
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
	metrics      *Metrics
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. The timeout can be
// larger than the period.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start but reports to the given metrics.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	logger := log.New("debug_id", task.Name())
	ctx = log.CtxWith(ctx, logger)
	r := &Runner{
		task:         task,
		ticker:       time.NewTicker(period),
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
		metrics:      m,
	}
	if m != nil && m.Period != nil {
		m.Period.Set(period.Seconds())
	}
	logger.Debug("Starting periodic task", "period", period, "timeout", timeout)
	go func() {
		defer log.HandlePanic()
		r.runLoop()
	}()
	return r
}

// Stop stops the periodic execution of the Runner. If the task is currently
// running this method blocks until it is done.
func (r *Runner) Stop() {
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
	r.metrics.event(EventStop)
}

// Kill is like stop but it also cancels the context of the current running
// method.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
	r.metrics.event(EventKill)
}

// TriggerRun triggers the periodic task to run now. This does not impact the
// normal periodicity of the task. That is, if the task runs every minute and
// we call TriggerRun with 0.5 minutes to go until the next scheduled run, the
// task will run now and in 0.5 minutes.
//
// The call blocks until the triggered run has started.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	r.onTick()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	case <-r.stop:
		return
	default:
	}
	start := time.Now()
	ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
	defer cancelF()
	r.task.Run(ctx)
	if r.metrics != nil {
		if r.metrics.Runtime != nil {
			r.metrics.Runtime.Set(time.Since(start).Seconds())
		}
		if r.metrics.StartTime != nil {
			r.metrics.StartTime.Set(float64(start.Unix()))
		}
	}
}
