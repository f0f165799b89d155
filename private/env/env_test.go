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

package env_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/private/config"
	"github.com/gridlink/ocppnode/private/env"
)

func TestGeneralSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.General
	cfg.Sample(&sample, nil, config.CtxMap{config.ID: "nn-1"})
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Equal(t, "nn-1", cfg.ID)
	assert.NoError(t, cfg.Validate())
}

func TestGeneralValidate(t *testing.T) {
	testCases := map[string]struct {
		id        string
		assertErr assert.ErrorAssertionFunc
	}{
		"valid":     {id: "nn-1", assertErr: assert.NoError},
		"empty":     {id: "", assertErr: assert.Error},
		"too long":  {id: strings.Repeat("n", env.MaxIDLength+1), assertErr: assert.Error},
		"slash":     {id: "nn/1", assertErr: assert.Error},
		"max len":   {id: strings.Repeat("n", env.MaxIDLength), assertErr: assert.NoError},
		"has space": {id: "nn 1", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := env.General{ID: tc.id}
			tc.assertErr(t, cfg.Validate())
		})
	}
}

func TestMetricsSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Metrics
	cfg.Sample(&sample, nil, nil)
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Empty(t, cfg.Prometheus)
}

func TestTracingSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Tracing
	cfg.Sample(&sample, nil, nil)
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.Debug)
	assert.Equal(t, env.DefaultSampleRate, cfg.SampleRate)
	assert.Equal(t, "localhost:6831", cfg.Agent)
}

func TestTracingValidate(t *testing.T) {
	cfg := env.Tracing{SampleRate: 1.5}
	assert.Error(t, cfg.Validate())
	cfg = env.Tracing{}
	cfg.InitDefaults()
	assert.NoError(t, cfg.Validate())
}

func TestTracingDisabledTracer(t *testing.T) {
	cfg := env.Tracing{}
	cfg.InitDefaults()
	tracer, closer, err := cfg.NewTracer("nn-1")
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, closer.Close())
}

func TestAPIValidate(t *testing.T) {
	assert.NoError(t, (&env.API{}).Validate())
	assert.NoError(t, (&env.API{Addr: "127.0.0.1:8080"}).Validate())
	assert.Error(t, (&env.API{Addr: "no-port"}).Validate())
	assert.Error(t, (&env.Metrics{Prometheus: "no-port"}).Validate())
}
