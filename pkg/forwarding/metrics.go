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

package forwarding

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridlink/ocppnode/pkg/metrics"
	"github.com/gridlink/ocppnode/pkg/private/prom"
)

// Metrics are the metrics of the forwarding core. A nil *Metrics disables
// metrics.
type Metrics struct {
	// Requests counts finalized decisions per action and result.
	Requests *prometheus.CounterVec
	// SubscriberFaults counts failing subscribers per action and event.
	SubscriberFaults *prometheus.CounterVec
	// DecisionDuration observes the time spent in the pipeline.
	DecisionDuration *prometheus.HistogramVec
}

// NewMetrics creates the forwarding metrics.
func NewMetrics(opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ocppnode_forwarding_requests_total",
			Help: "Total number of forwarding decisions.",
		}, []string{prom.LabelOperation, prom.LabelResult}),
		SubscriberFaults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ocppnode_forwarding_subscriber_faults_total",
			Help: "Total number of failing event subscribers.",
		}, []string{prom.LabelOperation, prom.LabelEvent}),
		DecisionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ocppnode_forwarding_decision_duration_seconds",
			Help:    "Time to reach a forwarding decision.",
			Buckets: prom.DefaultLatencyBuckets,
		}, []string{prom.LabelOperation, prom.LabelResult}),
	}
}

func (m *Metrics) observe(action string, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(action, result).Inc()
	m.DecisionDuration.WithLabelValues(action, result).Observe(seconds)
}

func (m *Metrics) fault(action, event string) {
	if m == nil {
		return
	}
	m.SubscriberFaults.WithLabelValues(action, event).Inc()
}
