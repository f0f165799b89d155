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

package node

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridlink/ocppnode/pkg/metrics"
	"github.com/gridlink/ocppnode/pkg/private/prom"
)

// Frame handling results that are not a forwarding verdict.
const (
	resultRelayed = "relayed"
	resultNoRoute = "err_no_route"
)

// Metrics are the metrics of a node. A nil *Metrics is valid.
type Metrics struct {
	Frames     *prometheus.CounterVec
	Pending    prometheus.Gauge
	Timeouts   prometheus.Counter
	SendErrors prometheus.Counter
}

// NewMetrics creates the node metrics.
func NewMetrics(opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	return &Metrics{
		Frames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ocppnode_frames_total",
			Help: "Total number of received frames by message type and result.",
		}, []string{"type", prom.LabelResult}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "ocppnode_pending_requests",
			Help: "Number of forwarded requests waiting for their response.",
		}),
		Timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "ocppnode_request_timeouts_total",
			Help: "Total number of forwarded requests that timed out.",
		}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "ocppnode_send_errors_total",
			Help: "Total number of messages that could not be sent to a peer.",
		}),
	}
}

func (m *Metrics) frame(typ, result string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(typ, result).Inc()
}

func (m *Metrics) pending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) timeout() {
	if m == nil {
		return
	}
	m.Timeouts.Inc()
}

func (m *Metrics) sendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}
