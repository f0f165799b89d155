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
	"sort"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/prom"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Config configures an adapter.
type Config struct {
	// Owner is the id of the local node.
	Owner envelope.NodeID
	// DefaultPolicy applies if no filter decides. It must be ResultForward
	// or ResultReject.
	DefaultPolicy Result
	// Logger is used for subscriber faults. Defaults to the root logger.
	Logger log.Logger
	// Metrics is optional.
	Metrics *Metrics
	// Tracer defaults to the global tracer.
	Tracer opentracing.Tracer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Adapter is the registration table of the forwarding handlers, keyed by
// action. It is safe for concurrent use.
type Adapter struct {
	p pipeline

	mtx sync.RWMutex
	ops map[string]operation
}

// NewAdapter creates an adapter without operations.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Owner == "" {
		return nil, serrors.New("adapter owner must be set")
	}
	if cfg.DefaultPolicy != ResultForward && cfg.DefaultPolicy != ResultReject {
		return nil, serrors.New("default policy must be forward or reject",
			"policy", cfg.DefaultPolicy)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = opentracing.GlobalTracer()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		p: pipeline{
			owner:   cfg.Owner,
			policy:  cfg.DefaultPolicy,
			logger:  cfg.Logger,
			metrics: cfg.Metrics,
			tracer:  cfg.Tracer,
			now:     cfg.Now,
		},
		ops: make(map[string]operation),
	}, nil
}

// Owner returns the id of the local node.
func (a *Adapter) Owner() envelope.NodeID {
	return a.p.owner
}

// DefaultPolicy returns the policy applied if no filter decides.
func (a *Adapter) DefaultPolicy() Result {
	return a.p.policy
}

// Register instantiates the handler template for op and adds it to the
// adapter. Registering an action twice is an error.
func Register[Req, Resp any](a *Adapter, op Operation[Req, Resp]) (*Handler[Req, Resp], error) {
	op, err := op.withDefaults()
	if err != nil {
		return nil, err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if _, ok := a.ops[op.Action]; ok {
		return nil, serrors.New("operation already registered", "action", op.Action)
	}
	h := newHandler(op, &a.p)
	a.ops[op.Action] = h
	return h, nil
}

// HandlerFor returns the typed handler of action.
func HandlerFor[Req, Resp any](a *Adapter, action string) (*Handler[Req, Resp], bool) {
	op, ok := a.lookup(action)
	if !ok {
		return nil, false
	}
	h, ok := op.(*Handler[Req, Resp])
	return h, ok
}

func (a *Adapter) lookup(action string) (operation, bool) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	op, ok := a.ops[action]
	return op, ok
}

func (a *Adapter) operations() []operation {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	ops := make([]operation, 0, len(a.ops))
	for _, op := range a.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Action() < ops[j].Action() })
	return ops
}

// Actions returns the registered actions in lexical order.
func (a *Adapter) Actions() []string {
	ops := a.operations()
	actions := make([]string, 0, len(ops))
	for _, op := range ops {
		actions = append(actions, op.Action())
	}
	return actions
}

// OperationInfo describes a registered operation.
type OperationInfo struct {
	Action      string `json:"action"`
	AllowBinary bool   `json:"allow_binary"`
	// Subscribers maps event names to the names of their subscribers.
	Subscribers map[string][]string `json:"subscribers"`
}

// Lookup returns the description of action.
func (a *Adapter) Lookup(action string) (OperationInfo, bool) {
	op, ok := a.lookup(action)
	if !ok {
		return OperationInfo{}, false
	}
	return op.info(), true
}

// Operations describes all registered operations in lexical order.
func (a *Adapter) Operations() []OperationInfo {
	ops := a.operations()
	infos := make([]OperationInfo, 0, len(ops))
	for _, op := range ops {
		infos = append(infos, op.info())
	}
	return infos
}

// Outcome is the type independent view of a decision for the transport.
type Outcome struct {
	Action    string
	RequestID string
	Result    Result
	Reason    string
	// ParseError is set if the request was malformed or unknown. Payload is
	// then a CALLERROR frame.
	ParseError string
	// Payload is sent downstream if Result is forwarding, and upstream
	// otherwise.
	Payload []byte
	Kind    envelope.Kind
	// Destination, NetworkPath and RemainingTimeout describe the forwarded
	// request. They are only set for forwarding outcomes.
	Destination      envelope.Destination
	NetworkPath      envelope.NetworkPath
	RemainingTimeout time.Duration
	EventTrackingID  string
	// SentLogger must be invoked once a forwarded request was transmitted.
	// It may be nil.
	SentLogger SentLogger
}

// Forward dispatches env to the handler of its action. Requests for unknown
// actions are rejected with a NotImplemented CALLERROR.
func (a *Adapter) Forward(ctx context.Context, env *envelope.Inbound, conn Connection) Outcome {
	op, ok := a.lookup(env.Action)
	if !ok {
		desc := "unknown action " + env.Action
		a.p.metrics.observe("unknown", prom.ErrNotFound, 0)
		return Outcome{
			Action:     env.Action,
			RequestID:  env.RequestID,
			Result:     ResultReject,
			Reason:     ReasonUnknownAction,
			ParseError: desc,
			Payload: callError(env.RequestID, envelope.NotImplemented, desc,
				envelope.Meta{
					Destination:     envelope.Destination{ID: env.Origin()},
					NetworkPath:     envelope.NetworkPath{a.p.owner},
					Timestamp:       a.p.now(),
					EventTrackingID: env.EventTrackingID,
				}, env.Kind),
			Kind:            env.Kind,
			EventTrackingID: env.EventTrackingID,
		}
	}
	return op.forward(ctx, env, conn)
}

// ResponseOutcome is the type independent view of a relayed response.
type ResponseOutcome struct {
	Action      string
	RequestID   string
	Payload     []byte
	Kind        envelope.Kind
	Destination envelope.Destination
	NetworkPath envelope.NetworkPath
	SentLogger  SentLogger
}

// ProcessResponse hands the CALLRESULT f of a request with the given action
// to its handler.
func (a *Adapter) ProcessResponse(
	ctx context.Context,
	action string,
	f *envelope.Frame,
	conn Connection,
) (ResponseOutcome, error) {

	op, ok := a.lookup(action)
	if !ok {
		return ResponseOutcome{}, serrors.New("unknown action", "action", action)
	}
	return op.processResponse(ctx, f, conn)
}

// FilterInfo is the type independent view of a request passed to filters.
type FilterInfo struct {
	Time   time.Time
	Owner  envelope.NodeID
	Conn   Connection
	Header Header
}

// Verdict is the decision of a type independent filter. The zero value
// abstains.
type Verdict struct {
	Result Result
	Reason string
	// Destination replaces the destination of the request if Result is
	// ResultReplace.
	Destination envelope.Destination
}

// Filter is a filter subscriber that only looks at the request header. It
// suits policies that apply to every operation, e.g. access control.
type Filter func(ctx context.Context, info FilterInfo) (Verdict, error)

// FilteredInfo is the type independent view of a finalized decision.
type FilteredInfo struct {
	Time      time.Time
	Owner     envelope.NodeID
	Conn      Connection
	Header    Header
	Result    Result
	Reason    string
	DecidedBy string
	// NewDestination is the destination of the forwarded request.
	NewDestination envelope.Destination
}

// SentInfo is the type independent view of a transmission. Header is the
// header of the transmitted request.
type SentInfo struct {
	Time   time.Time
	Owner  envelope.NodeID
	Conn   Connection
	Header Header
	Err    error
}

// SubscribeFilter appends f to the filter chain of the given actions, or of
// all registered operations if no action is given.
func (a *Adapter) SubscribeFilter(name string, f Filter, actions ...string) (Subscription, error) {
	return a.subscribe(actions, func(op operation) Subscription {
		return op.subscribeFilter(name, f)
	})
}

// SubscribeFiltered subscribes fn to the filtered event of the given actions,
// or of all registered operations if no action is given.
func (a *Adapter) SubscribeFiltered(
	name string,
	fn func(context.Context, FilteredInfo) error,
	actions ...string,
) (Subscription, error) {

	return a.subscribe(actions, func(op operation) Subscription {
		return op.subscribeFiltered(name, fn)
	})
}

// SubscribeSent subscribes fn to the sent event of the given actions, or of
// all registered operations if no action is given.
func (a *Adapter) SubscribeSent(
	name string,
	fn func(context.Context, SentInfo) error,
	actions ...string,
) (Subscription, error) {

	return a.subscribe(actions, func(op operation) Subscription {
		return op.subscribeSent(name, fn)
	})
}

func (a *Adapter) subscribe(
	actions []string,
	sub func(operation) Subscription,
) (Subscription, error) {

	var ops []operation
	if len(actions) == 0 {
		ops = a.operations()
	}
	for _, action := range actions {
		op, ok := a.lookup(action)
		if !ok {
			return Subscription{}, serrors.New("unknown action", "action", action)
		}
		ops = append(ops, op)
	}
	subs := make([]Subscription, 0, len(ops))
	for _, op := range ops {
		subs = append(subs, sub(op))
	}
	return JoinSubscriptions(subs...), nil
}

// operation is the type independent part of a handler.
type operation interface {
	Action() string
	info() OperationInfo
	forward(ctx context.Context, env *envelope.Inbound, conn Connection) Outcome
	processResponse(ctx context.Context, f *envelope.Frame, conn Connection) (ResponseOutcome, error)
	subscribeFilter(name string, f Filter) Subscription
	subscribeFiltered(name string, fn func(context.Context, FilteredInfo) error) Subscription
	subscribeSent(name string, fn func(context.Context, SentInfo) error) Subscription
}

var _ operation = (*Handler[struct{}, struct{}])(nil)

func (h *Handler[Req, Resp]) info() OperationInfo {
	return OperationInfo{
		Action:      h.op.Action,
		AllowBinary: h.op.AllowBinary,
		Subscribers: map[string][]string{
			EventRequestReceived:  h.RequestReceived.Subscribers(),
			EventRequestFilter:    h.RequestFilter.Subscribers(),
			EventRequestFiltered:  h.RequestFiltered.Subscribers(),
			EventRequestSent:      h.RequestSent.Subscribers(),
			EventResponseReceived: h.ResponseReceived.Subscribers(),
			EventResponseSent:     h.ResponseSent.Subscribers(),
		},
	}
}

func (h *Handler[Req, Resp]) forward(
	ctx context.Context,
	env *envelope.Inbound,
	conn Connection,
) Outcome {

	d := h.Forward(ctx, env, conn)
	o := Outcome{
		Action:          h.op.Action,
		RequestID:       env.RequestID,
		Result:          d.Result,
		Reason:          d.Reason,
		ParseError:      d.ParseError,
		Payload:         d.Serialized(),
		Kind:            env.Kind,
		EventTrackingID: env.EventTrackingID,
		SentLogger:      d.SentLogger,
	}
	if d.Result.IsForwarding() {
		o.Destination = d.NewRequest.Destination
		o.NetworkPath = d.NewRequest.NetworkPath
		o.RemainingTimeout = d.NewRequest.RemainingTimeout
		o.Kind = d.NewRequest.Kind
	}
	return o
}

func (h *Handler[Req, Resp]) processResponse(
	ctx context.Context,
	f *envelope.Frame,
	conn Connection,
) (ResponseOutcome, error) {

	r, err := h.ProcessResponse(ctx, f, conn)
	if err != nil {
		return ResponseOutcome{}, err
	}
	return ResponseOutcome{
		Action:      h.op.Action,
		RequestID:   r.Response.RequestID,
		Payload:     r.Serialized,
		Kind:        r.Response.Kind,
		Destination: r.Response.Destination,
		NetworkPath: r.Response.NetworkPath,
		SentLogger:  r.SentLogger,
	}, nil
}

func (h *Handler[Req, Resp]) subscribeFilter(name string, f Filter) Subscription {
	return h.RequestFilter.Subscribe(name, func(
		ctx context.Context,
		args RequestArgs[Req],
	) (*Decision[Req, Resp], error) {

		v, err := f(ctx, FilterInfo{
			Time:   args.Time,
			Owner:  args.Owner,
			Conn:   args.Conn,
			Header: args.Request.Header.Clone(),
		})
		if err != nil {
			return nil, err
		}
		var d *Decision[Req, Resp]
		switch v.Result {
		case ResultUnknown:
			return nil, nil
		case ResultForward:
			d = Forward[Resp](args.Request)
		case ResultReplace:
			d = Replace[Resp](args.Request, args.Request.WithDestination(v.Destination))
		case ResultReject:
			d = Reject[Req, Resp](args.Request, nil)
		default:
			return nil, serrors.New("invalid verdict", "result", int(v.Result))
		}
		d.Reason = v.Reason
		return d, nil
	})
}

func (h *Handler[Req, Resp]) subscribeFiltered(
	name string,
	fn func(context.Context, FilteredInfo) error,
) Subscription {

	return h.RequestFiltered.Subscribe(name, func(
		ctx context.Context,
		args FilteredArgs[Req, Resp],
	) error {

		info := FilteredInfo{
			Time:      args.Time,
			Owner:     args.Owner,
			Conn:      args.Conn,
			Header:    args.Request.Header,
			Result:    args.Decision.Result,
			Reason:    args.Decision.Reason,
			DecidedBy: args.DecidedBy,
		}
		if args.Decision.NewRequest != nil {
			info.NewDestination = args.Decision.NewRequest.Destination
		}
		return fn(ctx, info)
	})
}

func (h *Handler[Req, Resp]) subscribeSent(
	name string,
	fn func(context.Context, SentInfo) error,
) Subscription {

	return h.RequestSent.Subscribe(name, func(ctx context.Context, args SentArgs[Req]) error {
		return fn(ctx, SentInfo{
			Time:   args.Time,
			Owner:  args.Owner,
			Conn:   args.Conn,
			Header: args.NewRequest.Header,
			Err:    args.Err,
		})
	})
}
