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

package ws

import (
	"io"
	"net"
	"net/url"
	"time"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/pkg/private/util"
	"github.com/gridlink/ocppnode/private/config"
)

const (
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultReconnectInterval = 5 * time.Second
)

const transportSample = `
# The address the OCPP WebSocket server listens on. Neighbours connect to
# ws://<addr>/ocpp/<nodeID>. (default ":8887")
listen = ":8887"
# Timeout of a single write. (default 10s)
write_timeout = "10s"
# Interval of WebSocket pings. 0 disables pings. (default 30s)
ping_interval = "30s"
`

const uplinkSample = `
# The uplink node, e.g. the CSMS. Requests without a more specific route are
# forwarded to the uplink. Leave id empty to run without uplink.
#
# The node id of the uplink. (default "")
id = ""
# The WebSocket url of the uplink. The id of this node is appended.
# (default "")
url = ""
# Interval between reconnection attempts. (default 5s)
reconnect_interval = "5s"
`

var _ config.Config = (*Config)(nil)

// Config configures the WebSocket transport.
type Config struct {
	Listen       string       `toml:"listen,omitempty"`
	WriteTimeout util.DurWrap `toml:"write_timeout,omitempty"`
	PingInterval util.DurWrap `toml:"ping_interval,omitempty"`
	Uplink       UplinkConfig `toml:"uplink,omitempty"`
}

// UplinkConfig configures the uplink connection.
type UplinkConfig struct {
	ID                string       `toml:"id,omitempty"`
	URL               string       `toml:"url,omitempty"`
	ReconnectInterval util.DurWrap `toml:"reconnect_interval,omitempty"`
}

func (cfg *Config) InitDefaults() {
	if cfg.Listen == "" {
		cfg.Listen = ":8887"
	}
	if cfg.WriteTimeout.Duration == 0 {
		cfg.WriteTimeout.Duration = DefaultWriteTimeout
	}
	if cfg.PingInterval.Duration == 0 {
		cfg.PingInterval.Duration = DefaultPingInterval
	}
	if cfg.Uplink.ReconnectInterval.Duration == 0 {
		cfg.Uplink.ReconnectInterval.Duration = DefaultReconnectInterval
	}
}

func (cfg *Config) Validate() error {
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return serrors.Wrap("invalid listen address", err, "listen", cfg.Listen)
	}
	if cfg.WriteTimeout.Duration <= 0 {
		return serrors.New("write_timeout must be positive", "write_timeout", cfg.WriteTimeout)
	}
	if cfg.PingInterval.Duration < 0 {
		return serrors.New("ping_interval must not be negative",
			"ping_interval", cfg.PingInterval)
	}
	if !cfg.HasUplink() {
		return nil
	}
	u, err := url.Parse(cfg.Uplink.URL)
	if err != nil {
		return serrors.Wrap("invalid uplink url", err, "url", cfg.Uplink.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return serrors.New("uplink url must use ws or wss", "url", cfg.Uplink.URL)
	}
	return nil
}

// HasUplink returns whether an uplink is configured.
func (cfg *Config) HasUplink() bool {
	return cfg.Uplink.ID != ""
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, transportSample)
	config.WriteSample(dst, path, ctx, &cfg.Uplink)
}

func (cfg *Config) ConfigName() string {
	return "transport"
}

func (cfg *UplinkConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, uplinkSample)
}

func (cfg *UplinkConfig) ConfigName() string {
	return "uplink"
}
