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

// Package mgmtapi implements the HTTP management API of the node. It exposes
// the registered operations, the pending requests, the decision journal and
// the console log level under /api/v1.
package mgmtapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/gridlink/ocppnode/node/correlation"
	"github.com/gridlink/ocppnode/node/journal"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
)

// DefaultDecisionLimit is the number of decisions returned when the request
// does not specify a limit.
const DefaultDecisionLimit = 100

// MaxDecisionLimit bounds the limit query parameter.
const MaxDecisionLimit = 10000

// Operations describes the forwarding adapter.
type Operations interface {
	Owner() envelope.NodeID
	DefaultPolicy() forwarding.Result
	Operations() []forwarding.OperationInfo
	Lookup(action string) (forwarding.OperationInfo, bool)
}

// PendingRequests lists the requests awaiting a response.
type PendingRequests interface {
	Snapshot() []correlation.Pending
}

// Peers lists the connected neighbours.
type Peers interface {
	Peers() []envelope.NodeID
}

// DecisionStore returns the most recent journal entries.
type DecisionStore interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server serves the management API. Decisions may be nil if the journal is
// disabled. Config, if set, is rendered as TOML by GET /config.
type Server struct {
	Operations Operations
	Pending    PendingRequests
	Peers      Peers
	Decisions  DecisionStore
	Config     any
	Version    string
	// Now is used to render the remaining time of pending requests.
	Now func() time.Time
}

// Handler returns the API mounted under /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
	}))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", s.info)
		r.Get("/config", s.config)
		r.Get("/operations", s.operations)
		r.Get("/operations/{action}", s.operation)
		r.Get("/pending", s.pending)
		r.Get("/decisions", s.decisions)
		r.Method(http.MethodGet, "/log/level", log.ConsoleLevel)
		r.Method(http.MethodPut, "/log/level", log.ConsoleLevel)
	})
	return r
}

// Info is the response of GET /info.
type Info struct {
	ID            string   `json:"id"`
	Version       string   `json:"version,omitempty"`
	DefaultPolicy string   `json:"default_policy"`
	Operations    int      `json:"operations"`
	Pending       int      `json:"pending"`
	Peers         []string `json:"peers"`
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	info := Info{
		ID:            string(s.Operations.Owner()),
		Version:       s.Version,
		DefaultPolicy: s.Operations.DefaultPolicy().String(),
		Operations:    len(s.Operations.Operations()),
		Peers:         []string{},
	}
	if s.Pending != nil {
		info.Pending = len(s.Pending.Snapshot())
	}
	if s.Peers != nil {
		for _, p := range s.Peers.Peers() {
			info.Peers = append(info.Peers, string(p))
		}
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) config(w http.ResponseWriter, r *http.Request) {
	if s.Config == nil {
		writeProblem(w, http.StatusNotFound, "configuration not exposed")
		return
	}
	raw, err := toml.Marshal(s.Config)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) operations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Operations.Operations())
}

func (s *Server) operation(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	info, ok := s.Operations.Lookup(action)
	if !ok {
		writeProblem(w, http.StatusNotFound, "unknown action "+action)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PendingRequest is an element of the response of GET /pending.
type PendingRequest struct {
	RequestID       string    `json:"request_id"`
	Action          string    `json:"action"`
	Origin          string    `json:"origin"`
	Upstream        string    `json:"upstream"`
	Downstream      string    `json:"downstream"`
	EventTrackingID string    `json:"event_tracking_id,omitempty"`
	Created         time.Time `json:"created"`
	Deadline        time.Time `json:"deadline"`
	Remaining       string    `json:"remaining"`
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	rep := []PendingRequest{}
	if s.Pending != nil {
		for _, p := range s.Pending.Snapshot() {
			rep = append(rep, PendingRequest{
				RequestID:       p.RequestID,
				Action:          p.Action,
				Origin:          string(p.Origin),
				Upstream:        string(p.Upstream),
				Downstream:      string(p.Downstream),
				EventTrackingID: p.EventTrackingID,
				Created:         p.Created,
				Deadline:        p.Deadline,
				Remaining:       p.Deadline.Sub(now).Round(time.Millisecond).String(),
			})
		}
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) decisions(w http.ResponseWriter, r *http.Request) {
	if s.Decisions == nil {
		writeProblem(w, http.StatusNotFound, "decision journal disabled")
		return
	}
	limit := DefaultDecisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 || l > MaxDecisionLimit {
			writeProblem(w, http.StatusBadRequest,
				"limit must be between 1 and "+strconv.Itoa(MaxDecisionLimit))
			return
		}
		limit = l
	}
	entries, err := s.Decisions.Recent(r.Context(), limit)
	if err != nil {
		log.FromCtx(r.Context()).Info("Reading decisions failed", "err", err)
		writeProblem(w, http.StatusInternalServerError, "reading decisions failed")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Problem is an RFC 7807 error response.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Type   string `json:"type"`
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.Encode(Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Type:   "about:blank",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		log.Info("Encoding response failed", "err", err)
	}
}
