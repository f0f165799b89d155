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

// Package cleaner contains a periodic task that prunes rows older than a
// retention window from the node's persistent stores.
package cleaner

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/metrics"
	"github.com/gridlink/ocppnode/private/periodic"
)

// Pruner deletes everything recorded before cutoff and reports how many
// entries it removed.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Metrics of a cleaner. A nil *Metrics disables reporting.
type Metrics struct {
	Runs    func(result string) prometheus.Counter
	Deleted prometheus.Counter
}

// NewMetrics creates the metrics of the cleaner of store.
func NewMetrics(store string, opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	prefix := "ocppnode_" + store + "_cleaner_"
	runs := f.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "runs_total",
		Help: "Total number of cleaner runs, by result.",
	}, []string{"result"})
	return &Metrics{
		Runs: func(result string) prometheus.Counter {
			return runs.WithLabelValues(result)
		},
		Deleted: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "deleted_total",
			Help: "Total number of pruned entries.",
		}),
	}
}

// Run results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var _ periodic.Task = (*Cleaner)(nil)

// Cleaner prunes a store on every run.
type Cleaner struct {
	Store     string
	Pruner    Pruner
	Retention time.Duration
	Metrics   *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Cleaner) Name() string {
	return c.Store + "_cleaner"
}

// Run prunes entries older than the retention window. Failures are logged
// and retried on the next run.
func (c *Cleaner) Run(ctx context.Context) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	cutoff := now().Add(-c.Retention)
	logger := log.FromCtx(ctx)

	n, err := c.Pruner.Prune(ctx, cutoff)
	if err != nil {
		logger.Error("Pruning failed", "store", c.Store, "err", err)
		c.count(ResultError, 0)
		return
	}
	if n > 0 {
		logger.Debug("Pruned", "store", c.Store, "count", n, "cutoff", cutoff)
	}
	c.count(ResultOK, n)
}

func (c *Cleaner) count(result string, deleted int) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.Runs(result).Inc()
	c.Metrics.Deleted.Add(float64(deleted))
}
