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

// Package env contains configuration blocks and initialization code shared by
// the node binaries: the general node identity, prometheus metrics export,
// tracing and the management API address.
package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/private/config"
)

const (
	// ShutdownGraceInterval is how long the launcher waits for a clean
	// shutdown before the process exits anyway.
	ShutdownGraceInterval = 5 * time.Second

	// HandlerTimeout bounds a single scrape of the metrics endpoint.
	HandlerTimeout = time.Minute
)

// MaxIDLength is the longest node id accepted. OCPP limits identity strings
// of charging stations to 48 characters.
const MaxIDLength = 48

func init() {
	os.Setenv("TZ", "UTC")
}

var _ config.Config = (*General)(nil)

// General contains the identity of the node.
type General struct {
	// ID is the identity of this networking node. It is appended to the
	// network path of every forwarded message.
	ID string `toml:"id,omitempty"`
}

func (cfg *General) InitDefaults() {}

// Validate checks that the id is set and usable as a websocket path segment.
func (cfg *General) Validate() error {
	switch {
	case cfg.ID == "":
		return serrors.New("no node id specified")
	case len(cfg.ID) > MaxIDLength:
		return serrors.New("node id too long", "id", cfg.ID, "max", MaxIDLength)
	case strings.ContainsAny(cfg.ID, "/?# "):
		return serrors.New("node id contains reserved characters", "id", cfg.ID)
	}
	return nil
}

func (cfg *General) Sample(dst io.Writer, _ config.Path, ctx config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(generalSample, ctx[config.ID]))
}

func (cfg *General) ConfigName() string {
	return "general"
}

var _ config.Config = (*Metrics)(nil)

// Metrics contains the prometheus export configuration.
type Metrics struct {
	config.NoDefaulter
	// Prometheus is the address metrics are exported on. Empty disables
	// the export.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) Validate() error {
	return validateAddr("prometheus", cfg.Prometheus)
}

func (cfg *Metrics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// ServePrometheus serves the default registry on /metrics until ctx is done.
// It returns immediately if no address is configured.
func (cfg *Metrics) ServePrometheus(ctx context.Context) error {
	if cfg.Prometheus == "" {
		return nil
	}
	handler := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer,
			promhttp.HandlerOpts{Timeout: HandlerTimeout}))
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	log.Info("Exporting prometheus metrics", "addr", cfg.Prometheus)
	server := &http.Server{
		Addr:              cfg.Prometheus,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() { server.Close() })
	defer stop()
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving prometheus metrics", err, "addr", cfg.Prometheus)
	}
	return nil
}

var _ config.Config = (*Tracing)(nil)

// Tracing configures the jaeger tracer.
type Tracing struct {
	Enabled bool `toml:"enabled,omitempty"`
	// Debug samples every trace regardless of SampleRate.
	Debug bool `toml:"debug,omitempty"`
	// SampleRate is the fraction of traces that are reported.
	SampleRate float64 `toml:"sample_rate,omitempty"`
	// Agent is the UDP address of the jaeger agent.
	Agent string `toml:"agent,omitempty"`
}

func (cfg *Tracing) InitDefaults() {
	if cfg.Agent == "" {
		cfg.Agent = net.JoinHostPort(jaeger.DefaultUDPSpanServerHost,
			strconv.Itoa(jaeger.DefaultUDPSpanServerPort))
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
}

// DefaultSampleRate is the fraction of traces reported when tracing is
// enabled without debug mode.
const DefaultSampleRate = 0.01

func (cfg *Tracing) Validate() error {
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return serrors.New("sample_rate must be in [0, 1]", "sample_rate", cfg.SampleRate)
	}
	return nil
}

func (cfg *Tracing) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, tracingSample)
}

func (cfg *Tracing) ConfigName() string {
	return "tracing"
}

// NewTracer creates the tracer of the node with the given id. A disabled
// configuration yields a no-op tracer, so callers never need to check.
func (cfg *Tracing) NewTracer(id string) (opentracing.Tracer, io.Closer, error) {
	sampler := &jaegercfg.SamplerConfig{
		Type:  jaeger.SamplerTypeProbabilistic,
		Param: cfg.SampleRate,
	}
	if cfg.Debug {
		sampler = &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1}
	}
	tc := jaegercfg.Configuration{
		ServiceName: id,
		Disabled:    !cfg.Enabled,
		Sampler:     sampler,
		Reporter:    &jaegercfg.ReporterConfig{LocalAgentHostPort: cfg.Agent},
	}
	return tc.NewTracer()
}

var _ config.Config = (*API)(nil)

// API contains the management API configuration.
type API struct {
	config.NoDefaulter
	// Addr is the listen address of the management API. Empty disables
	// the API.
	Addr string `toml:"addr,omitempty"`
}

func (cfg *API) Validate() error {
	return validateAddr("api", cfg.Addr)
}

func (cfg *API) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, apiSample)
}

func (cfg *API) ConfigName() string {
	return "api"
}

func validateAddr(name, addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return serrors.Wrap("invalid address", err, "block", name, "addr", addr)
	}
	return nil
}
