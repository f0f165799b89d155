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
	"github.com/opentracing/opentracing-go"
)

// Span is a Logger that mirrors every entry into an opentracing span, so a
// request's log lines show up next to its trace.
type Span struct {
	Logger Logger
	Span   opentracing.Span
}

func (s Span) New(ctx ...any) Logger {
	return Span{Logger: s.Logger.New(ctx...), Span: s.Span}
}

func (s Span) Debug(msg string, ctx ...any) {
	s.Logger.Debug(msg, ctx...)
	s.record(DebugLevel, msg, ctx)
}

func (s Span) Info(msg string, ctx ...any) {
	s.Logger.Info(msg, ctx...)
	s.record(InfoLevel, msg, ctx)
}

func (s Span) Error(msg string, ctx ...any) {
	s.Logger.Error(msg, ctx...)
	s.record(ErrorLevel, msg, ctx)
}

func (s Span) Enabled(lvl Level) bool {
	return s.Logger.Enabled(lvl)
}

func (s Span) record(lvl Level, msg string, ctx []any) {
	if s.Span == nil {
		return
	}
	kv := make([]any, 0, len(ctx)+4)
	kv = append(kv, "level", lvl.String(), "event", msg)
	s.Span.LogKV(append(kv, ctx...)...)
}
