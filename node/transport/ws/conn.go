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

// Package ws implements the OCPP-J WebSocket transport of the node.
//
// Neighbours connect to /ocpp/{nodeID} and must negotiate the ocpp2.1
// subprotocol. Text messages carry JSON frames, binary messages carry binary
// frames. The node can additionally keep a connection to an uplink node,
// which is redialed whenever it drops.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridlink/ocppnode/node"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Subprotocol is the WebSocket subprotocol spoken by the node.
const Subprotocol = "ocpp2.1"

// ErrClosed is returned when sending over a closed connection.
var ErrClosed = errors.New("connection closed")

// FrameHandler handles received frames. *node.Node implements it.
type FrameHandler interface {
	HandleFrame(ctx context.Context, conn node.Conn, kind envelope.Kind, raw []byte) error
}

var _ node.Conn = (*Conn)(nil)

// Conn is a WebSocket connection to a neighbour. Writes are serialized.
type Conn struct {
	peer         envelope.NodeID
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMtx  sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(peer envelope.NodeID, ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		peer:         peer,
		ws:           ws,
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// PeerID returns the id of the neighbour.
func (c *Conn) PeerID() envelope.NodeID {
	return c.peer
}

// Send writes msg as a text message for JSON frames and as a binary message
// for binary frames. The write deadline is the earlier of the context
// deadline and the write timeout.
func (c *Conn) Send(ctx context.Context, kind envelope.Kind, msg []byte) error {
	typ := websocket.TextMessage
	if kind == envelope.KindBinary {
		typ = websocket.BinaryMessage
	}
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	select {
	case <-c.closed:
		return serrors.JoinNoStack(ErrClosed, nil, "peer", c.peer)
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return serrors.Wrap("setting write deadline", err, "peer", c.peer)
	}
	if err := c.ws.WriteMessage(typ, msg); err != nil {
		return serrors.Wrap("writing message", err, "peer", c.peer)
	}
	return nil
}

// Close closes the connection. It is safe to call Close multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

// serve registers the connection, reads frames until the connection fails
// and hands them to h in order. Pings are sent every pingInterval; a peer
// that does not answer within two intervals is disconnected.
func serve(
	ctx context.Context,
	c *Conn,
	h FrameHandler,
	conns *node.Connections,
	pingInterval time.Duration,
) {

	logger := log.FromCtx(ctx).New("peer", c.peer)
	ctx = log.CtxWith(ctx, logger)
	if old := conns.Add(c); old != nil {
		logger.Info("Replacing existing connection")
		old.Close()
	}
	defer func() {
		conns.Remove(c)
		c.Close()
		logger.Info("Connection closed")
	}()
	logger.Info("Connection established")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer log.HandlePanic()
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.closed:
		}
	}()

	if pingInterval > 0 {
		c.ws.SetReadDeadline(time.Now().Add(2 * pingInterval))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(2 * pingInterval))
		})
		go func() {
			defer log.HandlePanic()
			ping(ctx, c, pingInterval)
		}()
	}

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Info("Read failed", "err", err)
			}
			return
		}
		kind := envelope.KindJSON
		if typ == websocket.BinaryMessage {
			kind = envelope.KindBinary
		}
		if err := h.HandleFrame(ctx, c, kind, data); err != nil {
			logger.Debug("Frame dropped", "err", err)
		}
	}
}

func ping(ctx context.Context, c *Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
