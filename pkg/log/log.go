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

// Package log provides structured key/value logging on top of zap.
//
// Log calls take a message and an even number of context arguments that are
// interpreted as key/value pairs:
//
//	log.Info("Forwarded request", "action", "GetCRL", "request_id", id)
//
// Errors created with the serrors package are logged as structured objects.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Level is the log level.
type Level zapcore.Level

// The different log levels.
const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

// ConsoleLevel is the level of the console logger. It can be changed at
// runtime, e.g. through the management API.
var ConsoleLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Setup configures the root logger according to cfg. Setup must be called
// before any goroutine starts logging.
func Setup(cfg Config, opts ...Option) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	o := applyOptions(opts)
	return setupConsole(cfg.Console, o)
}

func setupConsole(cfg ConsoleConfig, opts options) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return serrors.Wrap("unable to parse log.console.level", err, "level", cfg.Level)
	}
	stacktraceLvl := zapcore.FatalLevel + 1
	if cfg.StacktraceLevel != DefaultStacktraceLevel {
		if err := stacktraceLvl.UnmarshalText([]byte(cfg.StacktraceLevel)); err != nil {
			return serrors.Wrap("unable to parse log.console.stacktrace_level", err,
				"level", cfg.StacktraceLevel)
		}
	}
	ConsoleLevel.SetLevel(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	encoding := "json"
	if cfg.Format == "human" {
		encoding = "console"
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zCfg := zap.Config{
		Level:             ConsoleLevel,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: stacktraceLvl > zapcore.FatalLevel,
		Encoding:          encoding,
		EncoderConfig:     encCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	zOpts := append(opts.zapOptions(), zap.AddStacktrace(stacktraceLvl), zap.AddCallerSkip(1))
	l, err := zCfg.Build(zOpts...)
	if err != nil {
		return serrors.Wrap("creating logger", err)
	}
	zap.ReplaceGlobals(l)
	return nil
}

// HandlePanic catches panics and logs them. It is meant to be deferred at the
// start of every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		zap.L().Error("Panic", zap.Any("msg", msg), zap.ByteString("stack", debug.Stack()))
		zap.L().Fatal("=====================> Service panicked!")
	}
}

// Flush writes the logs to the underlying buffer.
func Flush() {
	_ = zap.L().Sync()
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	if !enabled(zapcore.DebugLevel) {
		return
	}
	zap.L().Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	zap.L().Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	zap.L().Error(msg, convertCtx(ctx)...)
}

func enabled(lvl zapcore.Level) bool {
	return zap.L().Core().Enabled(lvl)
}

type zapLogger struct {
	logger *zap.Logger
}

// New creates a logger with the given context.
func New(ctx ...any) Logger {
	return &zapLogger{logger: zap.L().With(convertCtx(ctx)...)}
}

// Root returns the root logger. It's a logger without any context.
func Root() Logger {
	return &zapLogger{logger: zap.L()}
}

// FromZap wraps l. Context values are converted like those of the root
// logger, so serrors errors are logged as structured objects.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{logger: l}
}

// Discard sets the logger up to discard all log entries. This is useful for
// testing.
func Discard() {
	zap.ReplaceGlobals(zap.NewNop())
}

func (l *zapLogger) New(ctx ...any) Logger {
	return &zapLogger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *zapLogger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *zapLogger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *zapLogger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *zapLogger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

func (l *zapLogger) withOptions(opts ...zap.Option) Logger {
	return &zapLogger{logger: l.logger.WithOptions(opts...)}
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key := fmt.Sprint(ctx[i])
		if err, ok := ctx[i+1].(error); ok {
			if m, ok := err.(zapcore.ObjectMarshaler); ok {
				fields = append(fields, zap.Object(key, m))
				continue
			}
			fields = append(fields, zap.String(key, err.Error()))
			continue
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}

// SafeNewLogger creates a logger from the given context, or from the root if
// parent is nil.
func SafeNewLogger(parent Logger, ctx ...any) Logger {
	if parent == nil {
		return New(ctx...)
	}
	return parent.New(ctx...)
}

// ParseLevel parses the textual representation of a level.
func ParseLevel(s string) (Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return DebugLevel, serrors.Wrap("parsing log level", err, "level", s)
	}
	return Level(lvl), nil
}

func (l Level) String() string {
	return zapcore.Level(l).String()
}

func init() {
	// Until Setup is called, log errors and info to stderr in a human format.
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr),
		ConsoleLevel)
	zap.ReplaceGlobals(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}
