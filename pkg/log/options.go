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

package log

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option customizes Setup.
type Option func(o *options)

type options struct {
	hooks []func(zapcore.Entry) error
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) zapOptions() []zap.Option {
	if len(o.hooks) == 0 {
		return nil
	}
	return []zap.Option{zap.Hooks(o.hooks...)}
}

// EntriesCounter counts emitted log entries per level. Nil counters are
// skipped.
type EntriesCounter struct {
	Debug prometheus.Counter
	Info  prometheus.Counter
	Error prometheus.Counter
}

// WithEntriesCounter increments the counter of the entry's level for every
// entry the root logger emits.
func WithEntriesCounter(m EntriesCounter) Option {
	counters := map[zapcore.Level]prometheus.Counter{
		zapcore.DebugLevel: m.Debug,
		zapcore.InfoLevel:  m.Info,
		zapcore.ErrorLevel: m.Error,
	}
	return func(o *options) {
		o.hooks = append(o.hooks, func(e zapcore.Entry) error {
			if c := counters[e.Level]; c != nil {
				c.Inc()
			}
			return nil
		})
	}
}
