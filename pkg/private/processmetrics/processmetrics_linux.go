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

package processmetrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

var (
	openFDs = prometheus.NewDesc(
		"ocppnode_process_open_fds",
		"Number of open file descriptors, including neighbour connections.",
		nil, nil,
	)
	fdLimit = prometheus.NewDesc(
		"ocppnode_process_fd_limit",
		"Soft limit of open file descriptors.",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"CPU time the process was denied (runnable state) since it started (all threads summed).",
		nil, nil,
	)
	goCores = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
)

type collector struct {
	proc procfs.Proc
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect reads the current values from /proc. Values that cannot be read
// are omitted.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	if n, err := c.proc.FileDescriptorsLen(); err == nil {
		ch <- prometheus.MustNewConstMetric(openFDs, prometheus.GaugeValue, float64(n))
	}
	if limits, err := c.proc.Limits(); err == nil {
		ch <- prometheus.MustNewConstMetric(fdLimit, prometheus.GaugeValue,
			float64(limits.OpenFiles))
	}
	if threads, err := procfs.AllThreads(c.proc.PID); err == nil {
		var waiting uint64
		for _, t := range threads {
			// Threads may disappear between listing and reading.
			if s, err := t.Schedstat(); err == nil {
				waiting += s.WaitingNanoseconds
			}
		}
		ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue,
			float64(waiting)/1e9)
	}
	ch <- prometheus.MustNewConstMetric(goCores, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
}

func register(reg prometheus.Registerer) error {
	proc, err := procfs.Self()
	if err != nil {
		return serrors.Wrap("opening /proc/self", err)
	}
	if err := reg.Register(&collector{proc: proc}); err != nil {
		return serrors.Wrap("registering process collector", err)
	}
	return nil
}
