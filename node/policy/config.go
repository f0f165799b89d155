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

package policy

import (
	"io"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/private/config"
)

const policySample = `
# Rate limit per neighbouring peer in requests per second. 0 disables rate
# limiting. (default 0)
rate = 0
# Burst size of the rate limiter. (default 10)
burst = 10
# Number of peers whose token buckets are kept in memory. (default 1024)
max_tracked = 1024

# Access control rules, applied in order. The first matching rule decides.
# Patterns use shell glob syntax, an empty pattern matches everything.
#
# [[policy.acl]]
# action = "Install*"
# source = "csms-test*"
# verdict = "reject"

# Static routes rewrite the destination of requests.
#
# [[policy.routes]]
# match = "cs-legacy-01"
# target = "cs01"
# via = ["lc-hall-a"]
`

// Config configures the built-in policies.
type Config struct {
	Rate   float64 `toml:"rate,omitempty"`
	Burst  int     `toml:"burst,omitempty"`
	// MaxTracked bounds the number of token buckets kept in memory.
	MaxTracked int `toml:"max_tracked,omitempty"`
	ACL    []Rule  `toml:"acl,omitempty"`
	Routes []Route `toml:"routes,omitempty"`
}

func (cfg *Config) InitDefaults() {
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}
	if cfg.MaxTracked == 0 {
		cfg.MaxTracked = DefaultMaxTracked
	}
}

func (cfg *Config) Validate() error {
	if cfg.Rate < 0 {
		return serrors.New("rate must not be negative", "rate", cfg.Rate)
	}
	if cfg.Burst < 1 {
		return serrors.New("burst must be positive", "burst", cfg.Burst)
	}
	if cfg.MaxTracked < 1 {
		return serrors.New("max_tracked must be positive", "max_tracked", cfg.MaxTracked)
	}
	for i, r := range cfg.ACL {
		if err := r.Validate(); err != nil {
			return serrors.Wrap("invalid acl rule", err, "index", i)
		}
	}
	for i, r := range cfg.Routes {
		if err := r.Validate(); err != nil {
			return serrors.Wrap("invalid route", err, "index", i)
		}
	}
	return nil
}

func (cfg *Config) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, policySample)
}

func (cfg *Config) ConfigName() string {
	return "policy"
}

// New creates the configured policies of the node local in the order they
// are installed.
func New(cfg Config, local envelope.NodeID) ([]Policy, error) {
	policies := []Policy{LoopGuard{Local: local}}
	if len(cfg.ACL) > 0 {
		policies = append(policies, ACL{Rules: cfg.ACL})
	}
	if cfg.Rate > 0 {
		l, err := NewRateLimiter(cfg.Rate, cfg.Burst, cfg.MaxTracked)
		if err != nil {
			return nil, err
		}
		policies = append(policies, l)
	}
	if len(cfg.Routes) > 0 {
		policies = append(policies, NewRouter(cfg.Routes))
	}
	return policies, nil
}
