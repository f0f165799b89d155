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

package cleaner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/gridlink/ocppnode/pkg/metrics"
	"github.com/gridlink/ocppnode/private/storage/cleaner"
)

type result struct {
	count int
	err   error
}

type fakePruner struct {
	results []result
	cutoffs []time.Time
}

func (p *fakePruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	r := p.results[0]
	p.results = p.results[1:]
	return r.count, r.err
}

func TestCleaner(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := cleaner.NewMetrics("test", metrics.WithRegistry(prometheus.NewRegistry()))
	p := &fakePruner{results: []result{{count: 3}, {err: errors.New("locked")}, {}}}
	c := &cleaner.Cleaner{
		Store:     "test",
		Pruner:    p,
		Retention: time.Hour,
		Metrics:   m,
		Now:       func() time.Time { return now },
	}
	assert.Equal(t, "test_cleaner", c.Name())
	for i := 0; i < 3; i++ {
		c.Run(context.Background())
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs(cleaner.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs(cleaner.ResultError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Deleted))
	for _, cutoff := range p.cutoffs {
		assert.Equal(t, now.Add(-time.Hour), cutoff)
	}
}

func TestCleanerNilMetrics(t *testing.T) {
	c := &cleaner.Cleaner{
		Store:  "test",
		Pruner: &fakePruner{results: []result{{count: 1}}},
	}
	assert.NotPanics(t, func() { c.Run(context.Background()) })
}
