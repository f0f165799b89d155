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

import "context"

// SentLogger is invoked by the transport once a forwarded message was
// transmitted (err == nil) or failed to transmit.
type SentLogger func(ctx context.Context, conn Connection, err error)

// Decision is the outcome of forwarding one request. After the handler
// returned it, exactly one of the following holds:
//
//   - Result is forwarding, NewRequest and NewRequestSerialized are set.
//   - Result is ResultReject and RejectResponseSerialized is set.
type Decision[Req, Resp any] struct {
	// Request is the parsed request. It is nil if parsing failed.
	Request *Request[Req]
	Result  Result
	// Reason annotates the verdict, e.g. with the name of the policy that
	// rejected the request.
	Reason string

	RejectResponse           *Response[Resp]
	RejectResponseSerialized []byte

	// NewRequest is the request to forward. It equals Request unless a
	// filter rewrote it.
	NewRequest           *Request[Req]
	NewRequestSerialized []byte

	// SentLogger is set for forwarding decisions if anyone subscribed to
	// the sent event of the operation.
	SentLogger SentLogger

	// ParseError is the reason a request could not be parsed. The rejection
	// is then a CALLERROR frame.
	ParseError string
}

// Forward creates a decision to forward req unchanged.
func Forward[Resp, Req any](req *Request[Req]) *Decision[Req, Resp] {
	return &Decision[Req, Resp]{Request: req, Result: ResultForward, NewRequest: req}
}

// Replace creates a decision to forward newReq instead of req.
func Replace[Resp, Req any](req, newReq *Request[Req]) *Decision[Req, Resp] {
	return &Decision[Req, Resp]{Request: req, Result: ResultReplace, NewRequest: newReq}
}

// Reject creates a decision to answer req with resp. If resp is nil, the
// operation's default rejection response is used.
func Reject[Req, Resp any](req *Request[Req], resp *Response[Resp]) *Decision[Req, Resp] {
	return &Decision[Req, Resp]{Request: req, Result: ResultReject, RejectResponse: resp}
}

// RejectWithReason creates a decision to answer req with the operation's
// default rejection response annotated with reason.
func RejectWithReason[Resp, Req any](req *Request[Req], reason string) *Decision[Req, Resp] {
	return &Decision[Req, Resp]{Request: req, Result: ResultReject, Reason: reason}
}

// Valid returns whether the decision has exactly one outcome.
func (d *Decision[Req, Resp]) Valid() bool {
	if d == nil {
		return false
	}
	forward := d.Result.IsForwarding() && d.NewRequest != nil && d.NewRequestSerialized != nil
	reject := d.Result == ResultReject && d.RejectResponseSerialized != nil
	return forward != reject
}

// Serialized returns the bytes the transport has to send: downstream for
// forwarding decisions, upstream otherwise.
func (d *Decision[Req, Resp]) Serialized() []byte {
	if d.Result.IsForwarding() {
		return d.NewRequestSerialized
	}
	return d.RejectResponseSerialized
}
