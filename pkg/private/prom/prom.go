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

// Package prom holds the label names, result values and histogram buckets
// that the node's metrics have in common, so dashboards can rely on them.
package prom

const (
	LabelResult    = "result"
	LabelOperation = "action"
	LabelEvent     = "event"
)

// Result values. Successful outcomes are labeled by the component itself,
// e.g. with the forwarding decision; failures use one of these classes.
const (
	ErrInternal  = "err_internal"
	ErrParse     = "err_parse"
	ErrTimeout   = "err_timeout"
	ErrNetwork   = "err_network"
	ErrNotFound  = "err_not_found"
	ErrDuplicate = "err_duplicate"
)

// DefaultLatencyBuckets doubles from 1ms to 2.048s. Filter pipelines run in
// memory, so most observations fall into the lowest buckets.
var DefaultLatencyBuckets = []float64{0.001, 0.002, 0.004, 0.008, 0.016, 0.032,
	0.064, 0.128, 0.256, 0.512, 1.024, 2.048}
