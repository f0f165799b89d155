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
	"slices"
	"time"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
)

// Connection is the transport connection a message was received on or sent
// over. The forwarding core only hands it to event subscribers.
type Connection interface {
	PeerID() envelope.NodeID
}

// Header is the routing information shared by typed requests and responses.
type Header struct {
	RequestID   string
	Action      string
	Destination envelope.Destination
	NetworkPath envelope.NetworkPath
	Kind        envelope.Kind
	Attachments [][]byte
	// RequestTimestamp is the creation time of the request at its origin.
	RequestTimestamp time.Time
	// RemainingTimeout is the budget left when the request was parsed. It is
	// zero or negative for requests that already expired.
	RemainingTimeout time.Duration
	EventTrackingID  string
}

// Origin returns the node that created the request.
func (h Header) Origin() envelope.NodeID {
	return h.NetworkPath.First()
}

// Clone returns a copy of h that shares no slices with h.
func (h Header) Clone() Header {
	c := h
	c.Destination = h.Destination.Clone()
	c.NetworkPath = h.NetworkPath.Clone()
	c.Attachments = slices.Clone(h.Attachments)
	return c
}

// Request is a parsed and validated request of one operation.
type Request[P any] struct {
	Header
	Payload P
}

// Clone returns a shallow copy of the request with a cloned header.
// Subscribers that rewrite a request must clone it first.
func (r *Request[P]) Clone() *Request[P] {
	c := *r
	c.Header = r.Header.Clone()
	return &c
}

// WithDestination returns a copy of the request routed to d.
func (r *Request[P]) WithDestination(d envelope.Destination) *Request[P] {
	c := r.Clone()
	c.Destination = d.Clone()
	return c
}

// Response is a typed response of one operation.
type Response[P any] struct {
	Header
	Payload P
}
