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

// Package dedup detects requests that reach the node more than once while
// they are in flight, e.g. because an upstream peer retransmitted after a
// reconnect. The node forgets a request as soon as it is answered, so a later
// retransmission is handled like a new request.
package dedup

import (
	"sync"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Key identifies a request network wide.
type Key struct {
	Origin    envelope.NodeID
	RequestID string
}

// Filter remembers recently seen requests in an adaptive replacement cache.
type Filter struct {
	// mtx makes test-and-set atomic; the cache is only safe per call.
	mtx   sync.Mutex
	cache *arc.ARCCache[Key, struct{}]
}

// New creates a filter that remembers up to size requests.
func New(size int) (*Filter, error) {
	cache, err := arc.NewARC[Key, struct{}](size)
	if err != nil {
		return nil, serrors.Wrap("creating dedup cache", err, "size", size)
	}
	return &Filter{cache: cache}, nil
}

// Seen records k and returns whether it was recorded before.
func (f *Filter) Seen(k Key) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.cache.Contains(k) {
		return true
	}
	f.cache.Add(k, struct{}{})
	return false
}

// Forget removes k, so that a retransmission of the request is forwarded
// again.
func (f *Filter) Forget(k Key) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.cache.Remove(k)
}

// Len returns the number of remembered requests.
func (f *Filter) Len() int {
	return f.cache.Len()
}
