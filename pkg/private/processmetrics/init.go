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

// Package processmetrics exports process level metrics that the default
// prometheus process collector lacks: the file descriptor headroom, which
// bounds the number of neighbour connections a node can hold, and the time
// the threads of the process spent waiting for a CPU.
//
// The collector is only available on Linux. On other platforms Init is a
// no-op.
package processmetrics

import "github.com/prometheus/client_golang/prometheus"

// Init registers the process collector with reg, or with the default
// registerer if reg is nil. Call it only once per registry. It is safe to
// ignore the error; the metrics are then missing.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return register(reg)
}
