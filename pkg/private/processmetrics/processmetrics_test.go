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

//go:build linux

package processmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/pkg/private/processmetrics"
)

func TestInit(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, processmetrics.Init(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Contains(t, values, "ocppnode_process_open_fds")
	assert.Contains(t, values, "go_sched_maxprocs_threads")
	assert.Positive(t, values["ocppnode_process_open_fds"])
	assert.Positive(t, values["go_sched_maxprocs_threads"])

	// Registering twice on the same registry fails.
	assert.Error(t, processmetrics.Init(reg))
}
