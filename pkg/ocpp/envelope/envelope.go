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

// Package envelope contains the wire level message model of OCPP networking
// nodes: the OCPP-J frames, their binary counterpart and the inbound envelope
// handed to the forwarding core.
//
// A networking node never interprets the payload of a message while routing.
// All routing relevant data travels in the frame metadata: the destination,
// the network path of nodes already traversed, the request timestamp and
// timeout, and an event tracking id used to correlate logs across nodes.
package envelope

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// NodeID identifies a charging station, networking node or CSMS.
type NodeID string

func (id NodeID) String() string { return string(id) }

// NetworkPath is the ordered list of nodes a message traversed so far.
type NetworkPath []NodeID

// Contains returns whether id is part of the path.
func (p NetworkPath) Contains(id NodeID) bool {
	return slices.Contains(p, id)
}

// Index returns the position of id in the path, or -1.
func (p NetworkPath) Index(id NodeID) int {
	return slices.Index(p, id)
}

// Append returns a new path with id appended. The receiver is not modified.
func (p NetworkPath) Append(id NodeID) NetworkPath {
	r := make(NetworkPath, len(p), len(p)+1)
	copy(r, p)
	return append(r, id)
}

// First returns the originating node of the path, or "" for an empty path.
func (p NetworkPath) First() NodeID {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Last returns the most recent hop of the path, or "" for an empty path.
func (p NetworkPath) Last() NodeID {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Clone returns a deep copy of the path.
func (p NetworkPath) Clone() NetworkPath {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

// Equal compares two paths element by element.
func (p NetworkPath) Equal(o NetworkPath) bool {
	return slices.Equal(p, o)
}

func (p NetworkPath) String() string {
	s := make([]string, 0, len(p))
	for _, id := range p {
		s = append(s, string(id))
	}
	return "[" + strings.Join(s, " > ") + "]"
}

// Destination is the routing target of a message. Via optionally lists the
// networking nodes the message must be relayed through, in order.
type Destination struct {
	ID  NodeID   `json:"id"`
	Via []NodeID `json:"via,omitempty"`
}

// IsZero returns whether no destination is set.
func (d Destination) IsZero() bool {
	return d.ID == "" && len(d.Via) == 0
}

// Clone returns a deep copy of d.
func (d Destination) Clone() Destination {
	return Destination{ID: d.ID, Via: slices.Clone(d.Via)}
}

// Equal compares two destinations.
func (d Destination) Equal(o Destination) bool {
	return d.ID == o.ID && slices.Equal(d.Via, o.Via)
}

func (d Destination) String() string {
	if len(d.Via) == 0 {
		return string(d.ID)
	}
	return NetworkPath(d.Via).String() + " > " + string(d.ID)
}

// Kind is the wire format of a message.
type Kind int

const (
	// KindJSON is an OCPP-J text frame.
	KindJSON Kind = iota
	// KindBinary is a binary frame that may carry attachments.
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Inbound is a received request before type specific parsing. It is built by
// the transport once per message and must not be modified afterwards.
type Inbound struct {
	RequestID   string
	Action      string
	Destination Destination
	// NetworkPath lists every node the request traversed, including the
	// receiving node as its last element.
	NetworkPath NetworkPath
	Payload     json.RawMessage
	// Attachments are the binary attachments of a binary frame.
	Attachments [][]byte
	Kind        Kind
	// RequestTimestamp is the time the request was created by its origin.
	RequestTimestamp time.Time
	// RequestTimeout is the absolute deadline of the request at this node.
	RequestTimeout  time.Time
	EventTrackingID string
}

// Origin returns the node that created the request.
func (e *Inbound) Origin() NodeID {
	return e.NetworkPath.First()
}

// RemainingTimeout returns the time left until the deadline of the request.
// The result is negative for requests that already expired.
func (e *Inbound) RemainingTimeout(now time.Time) time.Duration {
	return e.RequestTimeout.Sub(now)
}
