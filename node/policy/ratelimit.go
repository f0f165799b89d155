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

package policy

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/arc/v2"
	"golang.org/x/time/rate"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// DefaultMaxTracked is the default number of token buckets kept in memory.
const DefaultMaxTracked = 1024

// RateLimiter limits the request rate per neighbouring peer with a token
// bucket. Buckets are keyed by the peer that delivered the request, not by
// the origin in the network path, which the peer controls. Only the buckets
// of recently active peers are kept; a peer whose bucket was evicted starts
// with a full one.
type RateLimiter struct {
	limit rate.Limit
	burst int

	// mtx makes lookup-or-create atomic.
	mtx      sync.Mutex
	limiters *arc.ARCCache[envelope.NodeID, *rate.Limiter]
}

// NewRateLimiter allows perSecond requests per peer with bursts of up to
// burst requests, tracking at most maxTracked peers.
func NewRateLimiter(perSecond float64, burst, maxTracked int) (*RateLimiter, error) {
	limiters, err := arc.NewARC[envelope.NodeID, *rate.Limiter](maxTracked)
	if err != nil {
		return nil, serrors.Wrap("creating rate limiter cache", err, "max_tracked", maxTracked)
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: limiters,
	}, nil
}

func (*RateLimiter) Name() string { return "rate_limiter" }

func (l *RateLimiter) Filter(
	_ context.Context,
	info forwarding.FilterInfo,
) (forwarding.Verdict, error) {

	if !l.limiter(sourceOf(info)).AllowN(info.Time, 1) {
		return reject("rate limit exceeded"), nil
	}
	return abstain, nil
}

// Tracked returns the number of buckets in memory.
func (l *RateLimiter) Tracked() int {
	return l.limiters.Len()
}

func (l *RateLimiter) limiter(peer envelope.NodeID) *rate.Limiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if lim, ok := l.limiters.Get(peer); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(peer, lim)
	return lim
}

// sourceOf returns the peer that delivered the request. Requests without a
// connection are attributed to their origin.
func sourceOf(info forwarding.FilterInfo) envelope.NodeID {
	if info.Conn != nil {
		return info.Conn.PeerID()
	}
	return info.Header.Origin()
}
