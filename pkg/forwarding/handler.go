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

package forwarding

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/prom"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Event names as they appear in logs and metrics.
const (
	EventRequestReceived  = "request_received"
	EventRequestFilter    = "request_filter"
	EventRequestFiltered  = "request_filtered"
	EventRequestSent      = "request_sent"
	EventResponseReceived = "response_received"
	EventResponseSent     = "response_sent"
)

// Reasons attached to decisions the handler makes on its own.
const (
	ReasonDefaultPolicy     = "default policy"
	ReasonSerializeFailed   = "request serialization failed"
	ReasonMalformedRequest  = "malformed request"
	ReasonUnknownAction     = "unknown action"
	ReasonMalformedResponse = "malformed response"
)

// FilteredArgs are passed to the subscribers of the filtered event. Decision
// is final; subscribers must not modify it.
type FilteredArgs[Req, Resp any] struct {
	Time     time.Time
	Owner    envelope.NodeID
	Conn     Connection
	Request  *Request[Req]
	Decision *Decision[Req, Resp]
	// DecidedBy is the name of the filter subscriber that made the decision.
	// It is empty if the default policy applied.
	DecidedBy string
}

// SentArgs are passed to the subscribers of the sent event.
type SentArgs[Req any] struct {
	Time  time.Time
	Owner envelope.NodeID
	Conn  Connection
	// Request is the request as received.
	Request *Request[Req]
	// NewRequest is the request that was transmitted. It is Request unless
	// a filter replaced it.
	NewRequest *Request[Req]
	// Err is the transmission error, nil if the request left the node.
	Err error
}

// ResponseArgs are passed to the subscribers of the response events.
type ResponseArgs[Resp any] struct {
	Time     time.Time
	Owner    envelope.NodeID
	Conn     Connection
	Response *Response[Resp]
	// Err is the transmission error. It is always nil for received responses.
	Err error
}

// Relay is a downstream response that is ready to be sent upstream.
type Relay[Resp any] struct {
	Response   *Response[Resp]
	Serialized []byte
	// SentLogger is set if anyone subscribed to the response sent event.
	SentLogger SentLogger
}

// pipeline is the configuration shared by all handlers of an adapter.
type pipeline struct {
	owner   envelope.NodeID
	policy  Result
	logger  log.Logger
	metrics *Metrics
	tracer  opentracing.Tracer
	now     func() time.Time
}

// Handler forwards the requests of one operation. It is created by Register
// and is safe for concurrent use. The events are the extension points of the
// operation; subscribing and unsubscribing is allowed at any time.
type Handler[Req, Resp any] struct {
	op Operation[Req, Resp]
	p  *pipeline

	RequestReceived  *Event[RequestArgs[Req]]
	RequestFilter    *FilterChain[Req, Resp]
	RequestFiltered  *Event[FilteredArgs[Req, Resp]]
	RequestSent      *Event[SentArgs[Req]]
	ResponseReceived *Event[ResponseArgs[Resp]]
	ResponseSent     *Event[ResponseArgs[Resp]]
}

func newHandler[Req, Resp any](op Operation[Req, Resp], p *pipeline) *Handler[Req, Resp] {
	onFault := func(event, subscriber string, err error) {
		p.logger.Error("Event subscriber failed", "action", op.Action, "event", event,
			"subscriber", subscriber, "err", err)
		p.metrics.fault(op.Action, event)
	}
	return &Handler[Req, Resp]{
		op:               op,
		p:                p,
		RequestReceived:  NewEvent[RequestArgs[Req]](EventRequestReceived, onFault),
		RequestFilter:    NewFilterChain[Req, Resp](EventRequestFilter, onFault),
		RequestFiltered:  NewEvent[FilteredArgs[Req, Resp]](EventRequestFiltered, onFault),
		RequestSent:      NewEvent[SentArgs[Req]](EventRequestSent, onFault),
		ResponseReceived: NewEvent[ResponseArgs[Resp]](EventResponseReceived, onFault),
		ResponseSent:     NewEvent[ResponseArgs[Resp]](EventResponseSent, onFault),
	}
}

// Action returns the action of the operation.
func (h *Handler[Req, Resp]) Action() string {
	return h.op.Action
}

// Forward decides about the request in env, which was received on conn. The
// returned decision always has exactly one outcome: serialized bytes to send
// downstream or serialized bytes to answer upstream.
//
// The request passes the received, filter and filtered events in this order.
// Filter subscribers are consulted one after the other until one decides. If
// none decides, or if ctx is done before one did, the default policy of the
// adapter applies. A malformed request is rejected with a CALLERROR and no
// event fires for it.
func (h *Handler[Req, Resp]) Forward(
	ctx context.Context,
	env *envelope.Inbound,
	conn Connection,
) *Decision[Req, Resp] {

	start := h.p.now()
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, h.p.tracer,
		"forwarding."+h.op.Action)
	defer span.Finish()
	span.SetTag("request_id", env.RequestID)
	span.SetTag("origin", env.Origin().String())
	ctx = log.CtxWith(ctx,
		h.p.logger.New("action", h.op.Action, "request_id", env.RequestID))

	req, code, err := h.parse(env, start)
	if err != nil {
		d := &Decision[Req, Resp]{
			Result:     ResultReject,
			Reason:     ReasonMalformedRequest,
			ParseError: err.Error(),
			RejectResponseSerialized: callError(env.RequestID, code, err.Error(),
				h.replyMeta(env.Origin(), env.EventTrackingID), env.Kind),
		}
		ext.Error.Set(span, true)
		h.done(ctx, span, start, prom.ErrParse, d, "")
		return d
	}

	args := RequestArgs[Req]{Time: start, Owner: h.p.owner, Conn: conn, Request: req}
	h.RequestReceived.Dispatch(ctx, args)
	filtered, by := h.RequestFilter.Evaluate(ctx, args)
	d := h.finalize(ctx, req, filtered, by)
	h.RequestFiltered.Dispatch(ctx, FilteredArgs[Req, Resp]{
		Time:      h.p.now(),
		Owner:     h.p.owner,
		Conn:      conn,
		Request:   req,
		Decision:  d,
		DecidedBy: by,
	})
	if d.Result.IsForwarding() && h.RequestSent.Len() > 0 {
		d.SentLogger = h.sentLogger(d.Request, d.NewRequest)
	}
	h.done(ctx, span, start, d.Result.String(), d, by)
	return d
}

func (h *Handler[Req, Resp]) done(
	ctx context.Context,
	span opentracing.Span,
	start time.Time,
	label string,
	d *Decision[Req, Resp],
	by string,
) {

	span.SetTag("result", label)
	h.p.metrics.observe(h.op.Action, label, h.p.now().Sub(start).Seconds())
	logger := log.FromCtx(ctx)
	if !logger.Enabled(log.DebugLevel) {
		return
	}
	logger.Debug("Forwarding decision", "result", label,
		"reason", d.Reason, "decided_by", by, "parse_error", d.ParseError)
}

func (h *Handler[Req, Resp]) parse(
	env *envelope.Inbound,
	now time.Time,
) (*Request[Req], envelope.ErrorCode, error) {

	if env.Action != h.op.Action {
		return nil, envelope.NotImplemented, serrors.New("action mismatch",
			"expected", h.op.Action, "actual", env.Action)
	}
	if (env.Kind == envelope.KindBinary || len(env.Attachments) > 0) && !h.op.AllowBinary {
		return nil, envelope.NotSupported, serrors.New("binary requests not supported",
			"action", h.op.Action)
	}
	payload, err := h.op.ParseRequest(env.Payload)
	if err != nil {
		return nil, h.op.ErrorCode(err), err
	}
	req := &Request[Req]{
		Header: Header{
			RequestID:        env.RequestID,
			Action:           env.Action,
			Destination:      env.Destination.Clone(),
			NetworkPath:      env.NetworkPath.Clone(),
			Kind:             env.Kind,
			RequestTimestamp: env.RequestTimestamp,
			// An expired budget is no parse error, the next hop reacts to it.
			RemainingTimeout: env.RemainingTimeout(now),
			EventTrackingID:  env.EventTrackingID,
		},
		Payload: payload,
	}
	if len(env.Attachments) > 0 {
		req.Attachments = slices.Clone(env.Attachments)
	}
	if h.op.CustomParser != nil {
		if err := h.op.CustomParser(req); err != nil {
			return nil, h.op.ErrorCode(err), err
		}
	}
	return req, "", nil
}

// finalize turns the filter outcome into a decision with exactly one
// serialized outcome.
func (h *Handler[Req, Resp]) finalize(
	ctx context.Context,
	req *Request[Req],
	d *Decision[Req, Resp],
	by string,
) *Decision[Req, Resp] {

	if d != nil && d.Result == ResultUnknown {
		log.FromCtx(ctx).Info("Ignoring filter decision without result", "subscriber", by)
		d = nil
	}
	if d == nil {
		if h.p.policy == ResultReject {
			d = RejectWithReason[Resp](req, ReasonDefaultPolicy)
		} else {
			d = Forward[Resp](req)
		}
	}
	d.Request = req
	d.ParseError = ""
	if d.Reason == "" {
		d.Reason = by
	}

	if d.Result.IsForwarding() {
		newReq := h.normalizeNewRequest(req, d.NewRequest)
		if newReq != req && d.Result == ResultForward {
			d.Result = ResultReplace
		}
		raw, err := h.op.SerializeRequest(newReq)
		if err == nil {
			d.NewRequest, d.NewRequestSerialized = newReq, raw
			d.RejectResponse, d.RejectResponseSerialized = nil, nil
			return d
		}
		log.FromCtx(ctx).Error("Serializing request failed, rejecting", "err", err)
		d.Result = ResultReject
		d.Reason = ReasonSerializeFailed
		d.RejectResponse = nil
	}

	d.NewRequest, d.NewRequestSerialized = nil, nil
	if d.RejectResponse == nil {
		d.RejectResponse = &Response[Resp]{
			Header:  h.responseHeader(req),
			Payload: h.op.RejectResponse(req, d.Reason),
		}
	}
	// The rejection answers req and nothing else.
	d.RejectResponse.RequestID = req.RequestID
	d.RejectResponse.Action = req.Action
	raw, err := h.op.SerializeResponse(d.RejectResponse)
	if err != nil {
		log.FromCtx(ctx).Error("Serializing reject response failed", "err", err)
		raw = callError(req.RequestID, envelope.InternalError, "serializing response failed",
			h.replyMeta(req.Origin(), req.EventTrackingID), req.Kind)
	}
	d.RejectResponseSerialized = raw
	return d
}

// normalizeNewRequest returns the request to forward. Rewrites keep the
// request id and action of the original request.
func (h *Handler[Req, Resp]) normalizeNewRequest(req, newReq *Request[Req]) *Request[Req] {
	if newReq == nil {
		return req
	}
	if newReq.RequestID != req.RequestID || newReq.Action != req.Action {
		newReq = newReq.Clone()
		newReq.RequestID = req.RequestID
		newReq.Action = req.Action
	}
	return newReq
}

func (h *Handler[Req, Resp]) responseHeader(req *Request[Req]) Header {
	return Header{
		RequestID:        req.RequestID,
		Action:           req.Action,
		Destination:      envelope.Destination{ID: req.Origin()},
		NetworkPath:      envelope.NetworkPath{h.p.owner},
		Kind:             req.Kind,
		RequestTimestamp: h.p.now(),
		EventTrackingID:  req.EventTrackingID,
	}
}

func (h *Handler[Req, Resp]) replyMeta(origin envelope.NodeID, trackingID string) envelope.Meta {
	return envelope.Meta{
		Destination:     envelope.Destination{ID: origin},
		NetworkPath:     envelope.NetworkPath{h.p.owner},
		Timestamp:       h.p.now(),
		EventTrackingID: trackingID,
	}
}

func (h *Handler[Req, Resp]) sentLogger(req, newReq *Request[Req]) SentLogger {
	return func(ctx context.Context, conn Connection, err error) {
		h.RequestSent.Dispatch(ctx, SentArgs[Req]{
			Time:       h.p.now(),
			Owner:      h.p.owner,
			Conn:       conn,
			Request:    req,
			NewRequest: newReq,
			Err:        err,
		})
	}
}

// ProcessResponse parses the downstream response f to a request of this
// operation, fires the response received event and serializes the response
// for the upstream hop. The local node is appended to the network path of the
// response.
func (h *Handler[Req, Resp]) ProcessResponse(
	ctx context.Context,
	f *envelope.Frame,
	conn Connection,
) (*Relay[Resp], error) {

	resp, err := DecodeResponseFrame(f, h.op.ParseResponse)
	if err != nil {
		return nil, serrors.Wrap("parsing response", err, "action", h.op.Action,
			"request_id", f.RequestID)
	}
	resp.Action = h.op.Action
	if resp.NetworkPath.Last() != h.p.owner {
		resp.NetworkPath = resp.NetworkPath.Append(h.p.owner)
	}
	h.ResponseReceived.Dispatch(ctx, ResponseArgs[Resp]{
		Time:     h.p.now(),
		Owner:    h.p.owner,
		Conn:     conn,
		Response: resp,
	})
	raw, err := h.op.SerializeResponse(resp)
	if err != nil {
		return nil, serrors.Wrap("serializing response", err, "action", h.op.Action,
			"request_id", f.RequestID)
	}
	relay := &Relay[Resp]{Response: resp, Serialized: raw}
	if h.ResponseSent.Len() > 0 {
		relay.SentLogger = func(ctx context.Context, conn Connection, err error) {
			h.ResponseSent.Dispatch(ctx, ResponseArgs[Resp]{
				Time:     h.p.now(),
				Owner:    h.p.owner,
				Conn:     conn,
				Response: resp,
				Err:      err,
			})
		}
	}
	return relay, nil
}

// callError encodes a CALLERROR frame. It falls back to a JSON frame without
// metadata if the frame cannot be encoded in kind.
func callError(
	requestID string,
	code envelope.ErrorCode,
	desc string,
	meta envelope.Meta,
	kind envelope.Kind,
) []byte {

	f := envelope.NewCallError(requestID, code, desc, meta)
	if raw, err := f.Marshal(kind); err == nil {
		return raw
	}
	raw, _ := json.Marshal([]any{envelope.CallError, requestID, code, desc, struct{}{}})
	return raw
}
