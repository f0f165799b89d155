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

// Package config describes the configuration of the networking node.
package config

import (
	"io"
	"time"

	"github.com/gridlink/ocppnode/node"
	"github.com/gridlink/ocppnode/node/journal"
	"github.com/gridlink/ocppnode/node/policy"
	"github.com/gridlink/ocppnode/node/transport/ws"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/pkg/private/util"
	"github.com/gridlink/ocppnode/private/config"
	"github.com/gridlink/ocppnode/private/env"
)

const (
	// DefaultSweepInterval is the default interval between sweeps of the
	// pending request table.
	DefaultSweepInterval = time.Second
	// DefaultPolicy is the default forwarding policy.
	DefaultPolicy = "forward"

	idSample = "nn01"
)

var _ config.Config = (*Config)(nil)

// Config is the networking node configuration.
type Config struct {
	General    env.General    `toml:"general,omitempty"`
	Logging    log.Config     `toml:"log,omitempty"`
	Metrics    env.Metrics    `toml:"metrics,omitempty"`
	API        env.API        `toml:"api,omitempty"`
	Tracing    env.Tracing    `toml:"tracing,omitempty"`
	Forwarding Forwarding     `toml:"forwarding,omitempty"`
	Transport  ws.Config      `toml:"transport,omitempty"`
	Journal    journal.Config `toml:"journal,omitempty"`
	Policy     policy.Config  `toml:"policy,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Forwarding,
		&cfg.Transport,
		&cfg.Journal,
		&cfg.Policy,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Forwarding,
		&cfg.Transport,
		&cfg.Journal,
		&cfg.Policy,
	)
}

// Sample generates a sample config file for the networking node.
func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Tracing,
		&cfg.Forwarding,
		&cfg.Transport,
		&cfg.Journal,
		&cfg.Policy,
	)
}

// ConfigName is the toml key.
func (cfg *Config) ConfigName() string {
	return "ocppnode_config"
}

var _ config.Config = (*Forwarding)(nil)

// Forwarding configures the forwarding core.
type Forwarding struct {
	// DefaultPolicy applies to requests no filter decided on. It is either
	// "forward" or "reject".
	DefaultPolicy string `toml:"default_policy,omitempty"`
	// DedupCacheSize is the number of recently seen requests kept to detect
	// duplicates.
	DedupCacheSize int `toml:"dedup_cache_size,omitempty"`
	// DefaultTimeout applies to requests that carry no timeout.
	DefaultTimeout util.DurWrap `toml:"default_timeout,omitempty"`
	// SendTimeout bounds a single send to a neighbour.
	SendTimeout util.DurWrap `toml:"send_timeout,omitempty"`
	// SweepInterval is the interval between sweeps of expired pending
	// requests.
	SweepInterval util.DurWrap `toml:"sweep_interval,omitempty"`
}

// InitDefaults initializes the unset fields.
func (cfg *Forwarding) InitDefaults() {
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = DefaultPolicy
	}
	if cfg.DedupCacheSize == 0 {
		cfg.DedupCacheSize = node.DefaultDedupSize
	}
	if cfg.DefaultTimeout.Duration == 0 {
		cfg.DefaultTimeout.Duration = node.DefaultTimeout
	}
	if cfg.SendTimeout.Duration == 0 {
		cfg.SendTimeout.Duration = node.DefaultSendTimeout
	}
	if cfg.SweepInterval.Duration == 0 {
		cfg.SweepInterval.Duration = DefaultSweepInterval
	}
}

// Validate checks the forwarding configuration.
func (cfg *Forwarding) Validate() error {
	if _, err := cfg.Policy(); err != nil {
		return err
	}
	if cfg.DedupCacheSize < 0 {
		return serrors.New("dedup_cache_size must not be negative",
			"dedup_cache_size", cfg.DedupCacheSize)
	}
	for name, d := range map[string]time.Duration{
		"default_timeout": cfg.DefaultTimeout.Duration,
		"send_timeout":    cfg.SendTimeout.Duration,
		"sweep_interval":  cfg.SweepInterval.Duration,
	} {
		if d <= 0 {
			return serrors.New("duration must be positive", "field", name, "value", d)
		}
	}
	return nil
}

// Policy returns the parsed default policy.
func (cfg *Forwarding) Policy() (forwarding.Result, error) {
	return forwarding.ParseDefaultPolicy(cfg.DefaultPolicy)
}

func (cfg *Forwarding) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, forwardingSample)
}

func (cfg *Forwarding) ConfigName() string {
	return "forwarding"
}
