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

// Package node is the forwarding runtime of an OCPP networking node.
//
// A node receives frames from its connected peers. Requests are handed to the
// forwarding adapter, which decides whether they are forwarded, rewritten or
// rejected. Forwarded requests are sent to the next hop and tracked in the
// correlation table until their response arrives or their deadline passes.
// Responses are relayed to the peer the request was received from.
//
// The node appends its own id to the network path of every request it
// receives, so the forwarding core sees the full path including this hop.
package node

import (
	"context"
	"errors"
	"time"

	"github.com/gridlink/ocppnode/node/correlation"
	"github.com/gridlink/ocppnode/node/dedup"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/prom"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

const (
	// DefaultTimeout is the budget of requests that carry no timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultSendTimeout bounds a single send to a peer.
	DefaultSendTimeout = 10 * time.Second
	// DefaultDedupSize is the number of recently seen requests remembered
	// for duplicate detection.
	DefaultDedupSize = 4096
)

// TimeoutDescription is the description of the CALLERROR sent upstream for
// requests that did not receive a response in time.
const TimeoutDescription = "Timeout"

var (
	// ErrDuplicate indicates a request that was already received.
	ErrDuplicate = errors.New("duplicate request")
	// ErrNoRoute indicates that no next hop is known for a destination.
	ErrNoRoute = errors.New("no route")
	// ErrUpstreamGone indicates that the peer a response is relayed to is
	// not connected anymore.
	ErrUpstreamGone = errors.New("upstream not connected")
)

// Config configures a node.
type Config struct {
	// Adapter is the forwarding core. Its owner is the id of the node.
	Adapter     *forwarding.Adapter
	Connections *Connections
	// DefaultTimeout is used for requests without timeout. (default 30s)
	DefaultTimeout time.Duration
	// SendTimeout bounds every send. (default 10s)
	SendTimeout time.Duration
	// DedupSize is the size of the duplicate filter. (default 4096)
	DedupSize int
	Logger    log.Logger
	Metrics   *Metrics
}

// Node is the forwarding runtime. It is safe for concurrent use; frames of
// different connections are handled concurrently.
type Node struct {
	id             envelope.NodeID
	adapter        *forwarding.Adapter
	conns          *Connections
	table          *correlation.Table
	dedup          *dedup.Filter
	defaultTimeout time.Duration
	sendTimeout    time.Duration
	logger         log.Logger
	metrics        *Metrics
}

// New creates a node.
func New(cfg Config) (*Node, error) {
	if cfg.Adapter == nil {
		return nil, serrors.New("adapter must be set")
	}
	if cfg.Connections == nil {
		cfg.Connections = NewConnections()
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.DedupSize == 0 {
		cfg.DedupSize = DefaultDedupSize
	}
	d, err := dedup.New(cfg.DedupSize)
	if err != nil {
		return nil, err
	}
	n := &Node{
		id:             cfg.Adapter.Owner(),
		adapter:        cfg.Adapter,
		conns:          cfg.Connections,
		dedup:          d,
		defaultTimeout: cfg.DefaultTimeout,
		sendTimeout:    cfg.SendTimeout,
		logger:         log.SafeNewLogger(cfg.Logger, "node", cfg.Adapter.Owner()),
		metrics:        cfg.Metrics,
	}
	n.table = correlation.New(correlation.Config{
		OnExpire: n.expire,
		Logger:   n.logger,
	})
	return n, nil
}

// ID returns the id of the node.
func (n *Node) ID() envelope.NodeID { return n.id }

// Connections returns the connection registry of the node.
func (n *Node) Connections() *Connections { return n.conns }

// Table returns the correlation table. It must be swept periodically, e.g.
// with periodic.Start.
func (n *Node) Table() *correlation.Table { return n.table }

// Adapter returns the forwarding core.
func (n *Node) Adapter() *forwarding.Adapter { return n.adapter }

// HandleFrame handles a frame received from conn. The returned error
// describes why a frame was dropped; where possible the sender was already
// answered with a CALLERROR.
func (n *Node) HandleFrame(ctx context.Context, conn Conn, kind envelope.Kind, raw []byte) error {
	ctx = log.CtxWith(ctx, n.logger.New("peer", conn.PeerID()))
	f, err := envelope.ParseFrame(kind, raw)
	if err != nil {
		n.metrics.frame("malformed", prom.ErrParse)
		if id, code, ok := envelope.RequestIDOf(err); ok {
			n.callError(ctx, conn, kind, id, conn.PeerID(), "", code, err.Error())
		}
		return serrors.Wrap("parsing frame", err, "peer", conn.PeerID())
	}
	switch f.Type {
	case envelope.Call:
		return n.handleCall(ctx, conn, f)
	default:
		return n.handleResponse(ctx, conn, f)
	}
}

func (n *Node) handleCall(ctx context.Context, conn Conn, f *envelope.Frame) error {
	typ := f.Type.String()
	path := f.Meta.NetworkPath
	if len(path) == 0 {
		path = envelope.NetworkPath{conn.PeerID()}
	}
	f.Meta.NetworkPath = path.Append(n.id)
	env, err := f.Inbound(time.Now(), n.defaultTimeout)
	if err != nil {
		return err
	}
	key := dedup.Key{Origin: env.Origin(), RequestID: env.RequestID}
	if n.dedup.Seen(key) {
		n.metrics.frame(typ, prom.ErrDuplicate)
		return serrors.JoinNoStack(ErrDuplicate, nil, "request_id", env.RequestID,
			"origin", env.Origin())
	}

	o := n.adapter.Forward(ctx, env, conn)
	if !o.Result.IsForwarding() {
		n.dedup.Forget(key)
		label := o.Result.String()
		if o.ParseError != "" {
			label = prom.ErrParse
		}
		n.metrics.frame(typ, label)
		return n.send(ctx, conn, o.Kind, o.Payload)
	}

	next, err := n.nextHop(o.Destination, o.NetworkPath, conn.PeerID())
	if err != nil {
		n.dedup.Forget(key)
		n.metrics.frame(typ, resultNoRoute)
		n.sent(ctx, o, nil, err)
		n.callError(ctx, conn, env.Kind, env.RequestID, env.Origin(), env.EventTrackingID,
			envelope.GenericError, "no route to "+o.Destination.String())
		return err
	}
	now := time.Now()
	p := correlation.Pending{
		RequestID:       env.RequestID,
		Action:          env.Action,
		Upstream:        conn.PeerID(),
		Downstream:      next.PeerID(),
		Origin:          env.Origin(),
		Kind:            env.Kind,
		EventTrackingID: env.EventTrackingID,
		Created:         now,
		Deadline:        now.Add(o.RemainingTimeout),
	}
	if err := n.table.Add(p); err != nil {
		n.dedup.Forget(key)
		desc := "request id already pending"
		label := prom.ErrDuplicate
		if errors.Is(err, correlation.ErrExpired) {
			desc, label = TimeoutDescription, prom.ErrTimeout
			n.metrics.timeout()
		}
		n.metrics.frame(typ, label)
		n.sent(ctx, o, next, err)
		n.callError(ctx, conn, env.Kind, env.RequestID, env.Origin(), env.EventTrackingID,
			envelope.GenericError, desc)
		return err
	}
	n.metrics.pending(n.table.Len())

	if err := n.send(ctx, next, o.Kind, o.Payload); err != nil {
		n.table.Cancel(next.PeerID(), env.RequestID)
		n.dedup.Forget(key)
		n.metrics.pending(n.table.Len())
		n.metrics.frame(typ, prom.ErrNetwork)
		n.sent(ctx, o, next, err)
		n.callError(ctx, conn, env.Kind, env.RequestID, env.Origin(), env.EventTrackingID,
			envelope.GenericError, "forwarding to "+next.PeerID().String()+" failed")
		return err
	}
	n.metrics.frame(typ, o.Result.String())
	n.sent(ctx, o, next, nil)
	log.FromCtx(ctx).Debug("Forwarded request", "request_id", env.RequestID,
		"action", env.Action, "next_hop", next.PeerID())
	return nil
}

// nextHop resolves the peer a request to dst is sent to: the first hop of the
// via path this request did not traverse yet, a direct connection to the
// destination, or the uplink. The uplink is never used to send a request
// back to the peer it came from.
func (n *Node) nextHop(
	dst envelope.Destination,
	path envelope.NetworkPath,
	upstream envelope.NodeID,
) (Conn, error) {

	target := dst.ID
	for _, via := range dst.Via {
		if via != n.id && !path.Contains(via) {
			target = via
			break
		}
	}
	if target != "" && target != n.id {
		if conn, ok := n.conns.Get(target); ok {
			return conn, nil
		}
	}
	if conn, ok := n.conns.Uplink(); ok && conn.PeerID() != upstream {
		return conn, nil
	}
	return nil, serrors.JoinNoStack(ErrNoRoute, nil, "destination", dst)
}

func (n *Node) handleResponse(ctx context.Context, conn Conn, f *envelope.Frame) error {
	typ := f.Type.String()
	p, err := n.table.Match(conn.PeerID(), f.RequestID)
	n.metrics.pending(n.table.Len())
	if err == nil {
		n.dedup.Forget(dedup.Key{Origin: p.Origin, RequestID: p.RequestID})
	}
	if err != nil {
		label := prom.ErrNotFound
		if errors.Is(err, correlation.ErrExpired) {
			label = prom.ErrTimeout
		}
		n.metrics.frame(typ, label)
		log.FromCtx(ctx).Debug("Dropping response", "request_id", f.RequestID, "err", err)
		return err
	}
	up, ok := n.conns.Get(p.Upstream)
	if !ok {
		n.metrics.frame(typ, prom.ErrNetwork)
		return serrors.JoinNoStack(ErrUpstreamGone, nil, "request_id", p.RequestID,
			"upstream", p.Upstream)
	}

	if f.Type == envelope.CallError {
		if f.Meta.NetworkPath.Last() != n.id {
			f.Meta.NetworkPath = f.Meta.NetworkPath.Append(n.id)
		}
		if f.Meta.Destination.IsZero() {
			f.Meta.Destination = envelope.Destination{ID: p.Origin}
		}
		raw, err := f.Marshal(f.Kind)
		if err != nil {
			n.metrics.frame(typ, prom.ErrInternal)
			return serrors.Wrap("encoding error response", err, "request_id", p.RequestID)
		}
		n.metrics.frame(typ, resultRelayed)
		return n.send(ctx, up, f.Kind, raw)
	}

	ro, err := n.adapter.ProcessResponse(ctx, p.Action, f, conn)
	if err != nil {
		n.metrics.frame(typ, prom.ErrParse)
		n.callError(ctx, up, p.Kind, p.RequestID, p.Origin, p.EventTrackingID,
			envelope.GenericError, "malformed response from "+p.Downstream.String())
		return err
	}
	err = n.send(ctx, up, ro.Kind, ro.Payload)
	if ro.SentLogger != nil {
		ro.SentLogger(ctx, up, err)
	}
	if err != nil {
		n.metrics.frame(typ, prom.ErrNetwork)
		return err
	}
	n.metrics.frame(typ, resultRelayed)
	return nil
}

// expire answers a request that timed out with a CALLERROR.
func (n *Node) expire(p correlation.Pending) {
	n.dedup.Forget(dedup.Key{Origin: p.Origin, RequestID: p.RequestID})
	n.metrics.timeout()
	n.metrics.pending(n.table.Len())
	up, ok := n.conns.Get(p.Upstream)
	if !ok {
		n.logger.Debug("Upstream of expired request gone", "request_id", p.RequestID,
			"upstream", p.Upstream)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
	defer cancel()
	n.callError(log.CtxWith(ctx, n.logger), up, p.Kind, p.RequestID, p.Origin,
		p.EventTrackingID, envelope.GenericError, TimeoutDescription)
}

// callError answers the request with id on conn. Failures are logged.
func (n *Node) callError(
	ctx context.Context,
	conn Conn,
	kind envelope.Kind,
	requestID string,
	origin envelope.NodeID,
	trackingID string,
	code envelope.ErrorCode,
	desc string,
) {

	f := envelope.NewCallError(requestID, code, desc, envelope.Meta{
		Destination:     envelope.Destination{ID: origin},
		NetworkPath:     envelope.NetworkPath{n.id},
		Timestamp:       time.Now(),
		EventTrackingID: trackingID,
	})
	raw, err := f.Marshal(kind)
	if err != nil {
		log.FromCtx(ctx).Error("Encoding CALLERROR failed", "request_id", requestID, "err", err)
		return
	}
	if err := n.send(ctx, conn, kind, raw); err != nil {
		log.FromCtx(ctx).Info("Sending CALLERROR failed", "request_id", requestID, "err", err)
	}
}

func (n *Node) send(ctx context.Context, conn Conn, kind envelope.Kind, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	if err := conn.Send(ctx, kind, msg); err != nil {
		n.metrics.sendError()
		return serrors.Wrap("sending message", err, "peer", conn.PeerID())
	}
	return nil
}

func (n *Node) sent(ctx context.Context, o forwarding.Outcome, conn Conn, err error) {
	if o.SentLogger == nil {
		return
	}
	var c forwarding.Connection
	if conn != nil {
		c = conn
	}
	o.SentLogger(ctx, c, err)
}
