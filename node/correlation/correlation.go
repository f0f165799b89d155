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

// Package correlation keeps track of forwarded requests until their response
// arrives or their deadline passes.
//
// Pending requests are keyed by the downstream peer and the request id, since
// request ids are only unique per connection. Expired requests are reported
// exactly once through the OnExpire callback, either by a sweep or by a late
// response that tries to match them.
package correlation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/gridlink/ocppnode/pkg/log"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

var (
	// ErrUnknown indicates that no request is pending for a response.
	ErrUnknown = errors.New("unknown request")
	// ErrExpired indicates that the deadline of the request passed.
	ErrExpired = errors.New("request expired")
	// ErrDuplicate indicates that the request is already pending.
	ErrDuplicate = errors.New("request already pending")
)

// tombstoneTTL is how long expired requests are remembered to tell late
// responses from unknown ones.
const tombstoneTTL = time.Minute

// Pending is a request that was forwarded downstream and waits for its
// response.
type Pending struct {
	RequestID string
	Action    string
	// Upstream is the peer the request was received from. The response is
	// relayed to it.
	Upstream envelope.NodeID
	// Downstream is the peer the request was forwarded to.
	Downstream      envelope.NodeID
	Origin          envelope.NodeID
	Kind            envelope.Kind
	EventTrackingID string
	Created         time.Time
	Deadline        time.Time
}

// Key returns the correlation key of the request.
func (p Pending) Key() string {
	return Key(p.Downstream, p.RequestID)
}

// Key returns the correlation key of a request forwarded to downstream.
func Key(downstream envelope.NodeID, requestID string) string {
	return string(downstream) + "/" + requestID
}

// Config configures a table.
type Config struct {
	// OnExpire is invoked for every request whose deadline passed before
	// its response arrived. It is invoked without holding any lock.
	OnExpire func(Pending)
	Logger   log.Logger
}

// Table is the correlation table. It is safe for concurrent use.
type Table struct {
	onExpire func(Pending)
	logger   log.Logger

	// mtx serializes all access to the caches. sweeping is only true while
	// the table deletes expired entries.
	mtx      sync.Mutex
	pending  *cache.Cache
	expired  *cache.Cache
	sweeping bool
	evicted  []Pending
}

// New creates an empty table.
func New(cfg Config) *Table {
	t := &Table{
		onExpire: cfg.OnExpire,
		logger:   log.SafeNewLogger(cfg.Logger, "component", "correlation"),
		// Every entry carries its own expiration; expired entries are only
		// removed by sweep.
		pending: cache.New(cache.NoExpiration, 0),
		expired: cache.New(tombstoneTTL, 0),
	}
	t.pending.OnEvicted(t.onEvicted)
	return t
}

func (t *Table) onEvicted(key string, v any) {
	if !t.sweeping {
		return
	}
	p := v.(Pending)
	t.evicted = append(t.evicted, p)
	t.expired.SetDefault(key, p)
}

// Add registers p. The deadline of p must be in the future.
func (t *Table) Add(p Pending) error {
	ttl := time.Until(p.Deadline)
	if ttl <= 0 {
		return serrors.JoinNoStack(ErrExpired, nil, "request_id", p.RequestID,
			"deadline", p.Deadline)
	}
	key := p.Key()
	t.mtx.Lock()
	if _, ok := t.pending.Get(key); ok {
		t.mtx.Unlock()
		return serrors.JoinNoStack(ErrDuplicate, nil, "request_id", p.RequestID,
			"downstream", p.Downstream)
	}
	// An entry that expired but was not swept yet would be replaced
	// silently. Evict it first so its expiry is still reported.
	expired := t.evictLocked(key)
	t.pending.Set(key, p, ttl)
	t.expired.Delete(key)
	t.mtx.Unlock()
	t.report(expired)
	return nil
}

// evictLocked removes the expired entry stored under key, if any, and
// returns it for reporting. The entry must not be live.
func (t *Table) evictLocked(key string) []Pending {
	t.sweeping = true
	t.pending.Delete(key)
	t.sweeping = false
	expired := t.evicted
	t.evicted = nil
	return expired
}

// Match removes and returns the request that the response with requestID
// received from downstream answers. Matching an expired request returns
// ErrExpired and reports the expiry if that did not happen yet.
func (t *Table) Match(downstream envelope.NodeID, requestID string) (Pending, error) {
	key := Key(downstream, requestID)
	t.mtx.Lock()
	if v, ok := t.pending.Get(key); ok {
		t.pending.Delete(key)
		t.mtx.Unlock()
		return v.(Pending), nil
	}
	expired := t.sweepLocked()
	v, ok := t.expired.Get(key)
	t.mtx.Unlock()
	t.report(expired)

	if ok {
		return v.(Pending), serrors.JoinNoStack(ErrExpired, nil, "request_id", requestID,
			"downstream", downstream)
	}
	return Pending{}, serrors.JoinNoStack(ErrUnknown, nil, "request_id", requestID,
		"downstream", downstream)
}

// Cancel removes the request without reporting it. It returns whether the
// request was pending.
func (t *Table) Cancel(downstream envelope.NodeID, requestID string) bool {
	key := Key(downstream, requestID)
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if _, ok := t.pending.Get(key); !ok {
		return false
	}
	t.pending.Delete(key)
	return true
}

// Len returns the number of pending requests, including expired requests
// that were not swept yet.
func (t *Table) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.pending.ItemCount()
}

// Snapshot returns the pending requests ordered by deadline.
func (t *Table) Snapshot() []Pending {
	t.mtx.Lock()
	items := t.pending.Items()
	t.mtx.Unlock()

	pending := make([]Pending, 0, len(items))
	for _, item := range items {
		pending = append(pending, item.Object.(Pending))
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Deadline.Before(pending[j].Deadline)
	})
	return pending
}

// Sweep removes all expired requests, reports them and returns how many
// expired.
func (t *Table) Sweep() int {
	t.mtx.Lock()
	expired := t.sweepLocked()
	t.mtx.Unlock()
	t.report(expired)
	return len(expired)
}

func (t *Table) sweepLocked() []Pending {
	t.sweeping = true
	t.pending.DeleteExpired()
	t.expired.DeleteExpired()
	t.sweeping = false
	expired := t.evicted
	t.evicted = nil
	return expired
}

func (t *Table) report(expired []Pending) {
	for _, p := range expired {
		t.logger.Debug("Request expired", "request_id", p.RequestID, "action", p.Action,
			"downstream", p.Downstream, "upstream", p.Upstream)
		if t.onExpire != nil {
			t.onExpire(p)
		}
	}
}

// Name returns the name of the sweeping task.
func (t *Table) Name() string {
	return "correlation_sweeper"
}

// Run sweeps the table once. It makes the table a periodic task.
func (t *Table) Run(_ context.Context) {
	t.Sweep()
}
