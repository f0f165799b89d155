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
	"encoding/json"
	"errors"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Operation describes one OCPP operation. The handler template is
// instantiated once per Operation. Only Action and RejectResponse are
// mandatory; the codecs default to the OCPP-J JSON codecs.
type Operation[Req, Resp any] struct {
	// Action is the OCPP action name, e.g. "GetCRL".
	Action string
	// AllowBinary accepts requests received as binary frames.
	AllowBinary bool

	// ParseRequest decodes and validates a request payload.
	ParseRequest func(raw []byte) (Req, error)
	// CustomParser is applied after ParseRequest succeeded. It may modify
	// the request or reject it by returning an error.
	CustomParser func(req *Request[Req]) error
	// SerializeRequest encodes a request as wire frame.
	SerializeRequest func(req *Request[Req]) ([]byte, error)

	// ParseResponse decodes and validates a response payload.
	ParseResponse func(raw []byte) (Resp, error)
	// SerializeResponse encodes a response as wire frame.
	SerializeResponse func(resp *Response[Resp]) ([]byte, error)

	// RejectResponse builds the payload sent upstream when a request is
	// rejected without an explicit response. It should carry the
	// operation's rejected status and mention reason.
	RejectResponse func(req *Request[Req], reason string) Resp

	// ErrorCode classifies parse errors into CALLERROR codes.
	ErrorCode func(err error) envelope.ErrorCode
}

func (op Operation[Req, Resp]) withDefaults() (Operation[Req, Resp], error) {
	if op.Action == "" {
		return op, serrors.New("operation without action")
	}
	if op.RejectResponse == nil {
		return op, serrors.New("operation without reject response factory",
			"action", op.Action)
	}
	if op.ParseRequest == nil {
		op.ParseRequest = DecodeJSON[Req]
	}
	if op.SerializeRequest == nil {
		op.SerializeRequest = EncodeRequest[Req]
	}
	if op.ParseResponse == nil {
		op.ParseResponse = DecodeJSON[Resp]
	}
	if op.SerializeResponse == nil {
		op.SerializeResponse = EncodeResponse[Resp]
	}
	if op.ErrorCode == nil {
		op.ErrorCode = ClassifyJSONError
	}
	return op, nil
}

// DecodeJSON decodes a JSON payload into P. If *P has a Validate() error
// method, the decoded payload is validated.
func DecodeJSON[P any](raw []byte) (P, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, serrors.WrapNoStack("decoding payload", err)
	}
	if v, ok := any(&p).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// EncodeRequest encodes req as CALL frame in the wire format of the request.
// The frame carries the remaining timeout of the request as its budget.
func EncodeRequest[P any](req *Request[P]) ([]byte, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, serrors.Wrap("encoding request payload", err, "action", req.Action)
	}
	timeout := req.RemainingTimeout
	if timeout == 0 {
		// Zero means "no timeout given" on the wire.
		timeout = -1
	}
	f := &envelope.Frame{
		Type:        envelope.Call,
		RequestID:   req.RequestID,
		Action:      req.Action,
		Payload:     payload,
		Attachments: req.Attachments,
		Meta: envelope.Meta{
			Destination:     req.Destination,
			NetworkPath:     req.NetworkPath,
			Timestamp:       req.RequestTimestamp,
			Timeout:         timeout,
			EventTrackingID: req.EventTrackingID,
		},
	}
	return f.Marshal(req.Kind)
}

// EncodeResponse encodes resp as CALLRESULT frame in the wire format of the
// response.
func EncodeResponse[P any](resp *Response[P]) ([]byte, error) {
	payload, err := json.Marshal(resp.Payload)
	if err != nil {
		return nil, serrors.Wrap("encoding response payload", err, "action", resp.Action)
	}
	f := &envelope.Frame{
		Type:      envelope.CallResult,
		RequestID: resp.RequestID,
		Payload:   payload,
		Meta: envelope.Meta{
			Destination:     resp.Destination,
			NetworkPath:     resp.NetworkPath,
			Timestamp:       resp.RequestTimestamp,
			EventTrackingID: resp.EventTrackingID,
		},
	}
	return f.Marshal(resp.Kind)
}

// DecodeResponseFrame decodes the payload of a CALLRESULT frame.
func DecodeResponseFrame[P any](
	f *envelope.Frame,
	parse func([]byte) (P, error),
) (*Response[P], error) {
	if f.Type != envelope.CallResult {
		return nil, serrors.New("not a CALLRESULT", "type", f.Type)
	}
	p, err := parse(f.Payload)
	if err != nil {
		return nil, err
	}
	return &Response[P]{
		Header: Header{
			RequestID:        f.RequestID,
			Destination:      f.Meta.Destination.Clone(),
			NetworkPath:      f.Meta.NetworkPath.Clone(),
			Kind:             f.Kind,
			RequestTimestamp: f.Meta.Timestamp,
			EventTrackingID:  f.Meta.EventTrackingID,
		},
		Payload: p,
	}, nil
}

// ClassifyJSONError maps JSON decoding errors to CALLERROR codes. Errors that
// are not JSON errors are reported as FormationViolation.
func ClassifyJSONError(err error) envelope.ErrorCode {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return envelope.TypeConstraintViolation
	}
	return envelope.FormationViolation
}
