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
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridlink/ocppnode/node"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Uplink keeps a connection to the uplink node. The uplink is registered as
// uplink of the connection registry.
type Uplink struct {
	local        envelope.NodeID
	peer         envelope.NodeID
	url          string
	handler      FrameHandler
	conns        *node.Connections
	writeTimeout time.Duration
	pingInterval time.Duration
	reconnect    time.Duration
	dialer       *websocket.Dialer
	logger       log.Logger
}

// NewUplink creates the uplink of the node local. cfg.Uplink must be set.
func NewUplink(
	cfg Config,
	local envelope.NodeID,
	h FrameHandler,
	conns *node.Connections,
	logger log.Logger,
) *Uplink {

	cfg.InitDefaults()
	return &Uplink{
		local:        local,
		peer:         envelope.NodeID(cfg.Uplink.ID),
		url:          cfg.Uplink.URL,
		handler:      h,
		conns:        conns,
		writeTimeout: cfg.WriteTimeout.Duration,
		pingInterval: cfg.PingInterval.Duration,
		reconnect:    cfg.Uplink.ReconnectInterval.Duration,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{Subprotocol},
		},
		logger: log.SafeNewLogger(logger, "component", "ws_uplink", "uplink", cfg.Uplink.ID),
	}
}

// Run connects to the uplink and reconnects whenever the connection drops,
// until ctx is done.
func (u *Uplink) Run(ctx context.Context) error {
	u.conns.SetUplink(u.peer)
	ctx = log.CtxWith(ctx, u.logger)
	for {
		c, err := u.Dial(ctx)
		if err != nil {
			u.logger.Info("Connecting to uplink failed", "err", err)
		} else {
			serve(ctx, c, u.handler, u.conns, u.pingInterval)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(u.reconnect):
		}
	}
}

// Dial opens a single connection to the uplink.
func (u *Uplink) Dial(ctx context.Context) (*Conn, error) {
	target, err := url.JoinPath(u.url, string(u.local))
	if err != nil {
		return nil, serrors.Wrap("building uplink url", err, "url", u.url)
	}
	ws, resp, err := u.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, serrors.Wrap("dialing uplink", err, "url", target)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if ws.Subprotocol() != Subprotocol {
		ws.Close()
		return nil, serrors.New("uplink did not accept subprotocol", "url", target,
			"subprotocol", ws.Subprotocol())
	}
	return newConn(u.peer, ws, u.writeTimeout), nil
}
