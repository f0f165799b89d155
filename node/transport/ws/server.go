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
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/gridlink/ocppnode/node"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Server accepts connections of neighbouring nodes.
type Server struct {
	handler      FrameHandler
	conns        *node.Connections
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       log.Logger
	upgrader     websocket.Upgrader

	// ctx is the parent context of all connections, cancel closes them.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server that hands received frames to h and registers
// the connections in conns.
func NewServer(cfg Config, h FrameHandler, conns *node.Connections, logger log.Logger) *Server {
	cfg.InitDefaults()
	logger = log.SafeNewLogger(logger, "component", "ws_server")
	ctx, cancel := context.WithCancel(log.CtxWith(context.Background(), logger))
	return &Server{
		handler:      h,
		conns:        conns,
		writeTimeout: cfg.WriteTimeout.Duration,
		pingInterval: cfg.PingInterval.Duration,
		logger:       logger,
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{Subprotocol},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Peers are authenticated by the TLS terminating proxy in
			// front of the node.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the HTTP handler serving /ocpp/{nodeID}.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ocpp/{nodeID}", s.accept)
	return r
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) {
	id := envelope.NodeID(chi.URLParam(r, "nodeID"))
	if !slices.Contains(websocket.Subprotocols(r), Subprotocol) {
		http.Error(w, "subprotocol "+Subprotocol+" required", http.StatusBadRequest)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("Upgrade failed", "peer", id, "err", err)
		return
	}
	s.wg.Add(1)
	go func() {
		defer log.HandlePanic()
		defer s.wg.Done()
		serve(s.ctx, newConn(id, ws, s.writeTimeout), s.handler, s.conns, s.pingInterval)
	}()
}

// ListenAndServe serves on addr until ctx is done. All connections are
// closed on return.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		defer log.HandlePanic()
		<-ctx.Done()
		server.Close()
	}()
	s.logger.Info("Accepting OCPP connections", "addr", addr)
	err := server.ListenAndServe()
	s.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving websocket", err, "addr", addr)
	}
	return nil
}

// Close closes all connections accepted by the server and waits for their
// handlers to return.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
