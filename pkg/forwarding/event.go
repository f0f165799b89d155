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
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// FaultHandler is notified about every failing subscriber.
type FaultHandler func(event, subscriber string, err error)

// Subscription is the handle of a subscriber.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the subscriber. Dispatches already in flight may still
// invoke it. Unsubscribe is idempotent.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// JoinSubscriptions returns a subscription that cancels all subs.
func JoinSubscriptions(subs ...Subscription) Subscription {
	return Subscription{cancel: func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}}
}

type subscriber[F any] struct {
	id   uint64
	name string
	fn   F
}

// subscribers is an ordered copy-on-write list. Readers iterate over an
// immutable snapshot and never block writers.
type subscribers[F any] struct {
	mtx  sync.Mutex
	next uint64
	list atomic.Pointer[[]subscriber[F]]
}

func (s *subscribers[F]) add(name string, fn F) Subscription {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.next++
	id := s.next
	old := s.snapshot()
	list := make([]subscriber[F], len(old), len(old)+1)
	copy(list, old)
	list = append(list, subscriber[F]{id: id, name: name, fn: fn})
	s.list.Store(&list)

	var once sync.Once
	return Subscription{cancel: func() { once.Do(func() { s.remove(id) }) }}
}

func (s *subscribers[F]) remove(id uint64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	old := s.snapshot()
	list := make([]subscriber[F], 0, len(old))
	for _, sub := range old {
		if sub.id != id {
			list = append(list, sub)
		}
	}
	s.list.Store(&list)
}

func (s *subscribers[F]) snapshot() []subscriber[F] {
	if p := s.list.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *subscribers[F]) names() []string {
	snap := s.snapshot()
	names := make([]string, 0, len(snap))
	for _, sub := range snap {
		names = append(names, sub.name)
	}
	return names
}

// Event is an observational extension point. Subscribers are invoked in
// registration order. A failing subscriber neither affects the other
// subscribers nor the caller.
type Event[A any] struct {
	name    string
	subs    subscribers[func(context.Context, A) error]
	onFault FaultHandler
}

// NewEvent creates an event with the given name. onFault may be nil.
func NewEvent[A any](name string, onFault FaultHandler) *Event[A] {
	return &Event[A]{name: name, onFault: onFault}
}

// Name returns the name of the event.
func (e *Event[A]) Name() string {
	return e.name
}

// Subscribe appends fn to the subscribers. The name identifies the subscriber
// in logs and metrics.
func (e *Event[A]) Subscribe(name string, fn func(context.Context, A) error) Subscription {
	return e.subs.add(name, fn)
}

// Len returns the number of subscribers.
func (e *Event[A]) Len() int {
	return len(e.subs.snapshot())
}

// Subscribers returns the names of the subscribers in order.
func (e *Event[A]) Subscribers() []string {
	return e.subs.names()
}

// Dispatch invokes all subscribers with args and returns the number of
// subscribers that failed, by error or panic.
func (e *Event[A]) Dispatch(ctx context.Context, args A) int {
	var faults int
	for _, sub := range e.subs.snapshot() {
		if err := safeCall(func() error { return sub.fn(ctx, args) }); err != nil {
			faults++
			if e.onFault != nil {
				e.onFault(e.name, sub.name, err)
			}
		}
	}
	return faults
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = serrors.New("subscriber panicked", "panic", r)
		}
	}()
	return fn()
}

// RequestArgs are passed to the subscribers of request events.
type RequestArgs[Req any] struct {
	Time    time.Time
	Owner   envelope.NodeID
	Conn    Connection
	Request *Request[Req]
}

// FilterFunc decides about a request. Returning a nil decision abstains.
type FilterFunc[Req, Resp any] func(
	ctx context.Context,
	args RequestArgs[Req],
) (*Decision[Req, Resp], error)

// FilterChain is the decision relevant extension point of an operation.
// Subscribers are consulted in registration order and the first decision
// wins; later subscribers are not invoked for that request.
type FilterChain[Req, Resp any] struct {
	name    string
	subs    subscribers[FilterFunc[Req, Resp]]
	onFault FaultHandler
}

// NewFilterChain creates a filter chain with the given name. onFault may be
// nil.
func NewFilterChain[Req, Resp any](name string, onFault FaultHandler) *FilterChain[Req, Resp] {
	return &FilterChain[Req, Resp]{name: name, onFault: onFault}
}

// Subscribe appends fn to the chain.
func (c *FilterChain[Req, Resp]) Subscribe(name string, fn FilterFunc[Req, Resp]) Subscription {
	return c.subs.add(name, fn)
}

// Len returns the number of subscribers.
func (c *FilterChain[Req, Resp]) Len() int {
	return len(c.subs.snapshot())
}

// Subscribers returns the names of the subscribers in order.
func (c *FilterChain[Req, Resp]) Subscribers() []string {
	return c.subs.names()
}

// Evaluate returns the first decision of the chain together with the name of
// the subscriber that made it. A subscriber that fails or panics abstains. If
// ctx is done, no further subscribers are consulted and Evaluate returns nil
// as if all of them abstained.
func (c *FilterChain[Req, Resp]) Evaluate(
	ctx context.Context,
	args RequestArgs[Req],
) (*Decision[Req, Resp], string) {

	for _, sub := range c.subs.snapshot() {
		if ctx.Err() != nil {
			return nil, ""
		}
		var d *Decision[Req, Resp]
		err := safeCall(func() error {
			var err error
			d, err = sub.fn(ctx, args)
			return err
		})
		if err != nil {
			if c.onFault != nil {
				c.onFault(c.name, sub.name, err)
			}
			continue
		}
		if d != nil {
			return d, sub.name
		}
	}
	return nil, ""
}
