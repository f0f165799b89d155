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
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

type ctxKey struct{}

// CtxWith returns a copy of ctx carrying logger. FromCtx recovers it.
func CtxWith(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromCtx returns the logger carried by ctx, or the root logger. If ctx
// carries an opentracing span, the returned logger also logs to the span.
// The result is never nil.
func FromCtx(ctx context.Context) Logger {
	var logger Logger = Root()
	if ctx == nil {
		return logger
	}
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		logger = l
	}
	if _, ok := logger.(Span); ok {
		return logger
	}
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return logger
	}
	// Skip the Span wrapper when reporting the caller.
	if z, ok := logger.(*zapLogger); ok {
		logger = z.withOptions(zap.AddCallerSkip(1))
	}
	return Span{Logger: logger, Span: span}
}

// WithLabels returns a context carrying the logger of ctx extended by
// labels, and that logger.
func WithLabels(ctx context.Context, labels ...any) (context.Context, Logger) {
	logger := FromCtx(ctx).New(labels...)
	return CtxWith(ctx, logger), logger
}
