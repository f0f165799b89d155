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

package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// MessageType is the OCPP-J message type id.
type MessageType int

// OCPP-J message types.
const (
	Call       MessageType = 2
	CallResult MessageType = 3
	CallError  MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case Call:
		return "CALL"
	case CallResult:
		return "CALLRESULT"
	case CallError:
		return "CALLERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// ErrorCode is the error code of a CALLERROR.
type ErrorCode string

// OCPP-J error codes.
const (
	FormatViolation               ErrorCode = "FormatViolation"
	FormationViolation            ErrorCode = "FormationViolation"
	GenericError                  ErrorCode = "GenericError"
	InternalError                 ErrorCode = "InternalError"
	MessageTypeNotSupported       ErrorCode = "MessageTypeNotSupported"
	NotImplemented                ErrorCode = "NotImplemented"
	NotSupported                  ErrorCode = "NotSupported"
	OccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	PropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	ProtocolError                 ErrorCode = "ProtocolError"
	RPCFrameworkError             ErrorCode = "RpcFrameworkError"
	SecurityError                 ErrorCode = "SecurityError"
	TypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
)

// Meta is the routing metadata of a frame.
type Meta struct {
	Destination Destination
	NetworkPath NetworkPath
	// Timestamp is the creation time of the request at its origin.
	Timestamp time.Time
	// Timeout is the budget the request had left when the frame was sent.
	Timeout         time.Duration
	EventTrackingID string
}

// IsZero returns whether no metadata is set.
func (m Meta) IsZero() bool {
	return m.Destination.IsZero() && len(m.NetworkPath) == 0 && m.Timestamp.IsZero() &&
		m.Timeout == 0 && m.EventTrackingID == ""
}

// Frame is a decoded OCPP message of any message type.
type Frame struct {
	Type      MessageType
	RequestID string
	// Action is only set for CALL frames.
	Action string
	// Payload is set for CALL and CALLRESULT frames.
	Payload []byte
	// Error fields are only set for CALLERROR frames.
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     []byte
	// Attachments are only carried by binary frames.
	Attachments [][]byte
	Meta        Meta
	// Kind is the wire format the frame was decoded from.
	Kind Kind
}

// NewCallError creates a CALLERROR frame answering the request with the given
// id. The metadata routes the error back to the origin of the request.
func NewCallError(requestID string, code ErrorCode, description string, meta Meta) *Frame {
	return &Frame{
		Type:             CallError,
		RequestID:        requestID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     []byte("{}"),
		Meta:             meta,
	}
}

// Inbound builds the inbound envelope of a CALL frame received at now.
//
// The timeout of a frame is the budget left for the request when the frame
// was sent, so the deadline is computed relative to the time of receipt. Each
// hop forwards the budget it has left. A missing timestamp defaults to now, a
// missing timeout to defaultTimeout and a missing event tracking id to a
// fresh random id.
func (f *Frame) Inbound(now time.Time, defaultTimeout time.Duration) (*Inbound, error) {
	if f.Type != Call {
		return nil, serrors.New("inbound envelope requires a CALL frame", "type", f.Type)
	}
	ts := f.Meta.Timestamp
	if ts.IsZero() {
		ts = now
	}
	timeout := f.Meta.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	trackingID := f.Meta.EventTrackingID
	if trackingID == "" {
		trackingID = uuid.NewString()
	}
	var attachments [][]byte
	if len(f.Attachments) > 0 {
		attachments = make([][]byte, len(f.Attachments))
		copy(attachments, f.Attachments)
	}
	return &Inbound{
		RequestID:        f.RequestID,
		Action:           f.Action,
		Destination:      f.Meta.Destination.Clone(),
		NetworkPath:      f.Meta.NetworkPath.Clone(),
		Payload:          append([]byte(nil), f.Payload...),
		Attachments:      attachments,
		Kind:             f.Kind,
		RequestTimestamp: ts,
		RequestTimeout:   now.Add(timeout),
		EventTrackingID:  trackingID,
	}, nil
}

// ParseFrame decodes raw according to kind.
func ParseFrame(kind Kind, raw []byte) (*Frame, error) {
	switch kind {
	case KindJSON:
		return ParseJSONFrame(raw)
	case KindBinary:
		return ParseBinaryFrame(raw)
	default:
		return nil, serrors.New("unknown frame kind", "kind", kind)
	}
}

// Marshal encodes the frame in the given wire format.
func (f *Frame) Marshal(kind Kind) ([]byte, error) {
	switch kind {
	case KindJSON:
		if len(f.Attachments) > 0 {
			return nil, serrors.New("attachments require a binary frame",
				"request_id", f.RequestID)
		}
		return f.MarshalJSONFrame()
	case KindBinary:
		return f.MarshalBinaryFrame()
	default:
		return nil, serrors.New("unknown frame kind", "kind", kind)
	}
}

// ErrMalformedFrame indicates that a frame could not be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameError is returned by the frame parsers. RequestID is set if the
// request id could be decoded before the error was detected, in which case a
// CALLERROR with Code can be sent back.
type FrameError struct {
	RequestID string
	Code      ErrorCode
	Err       error
}

func (e *FrameError) Error() string {
	if e.RequestID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (request %s)", e.Err, e.RequestID)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func frameErr(id string, code ErrorCode, msg string, errCtx ...any) error {
	errCtx = append([]any{"reason", msg}, errCtx...)
	return &FrameError{
		RequestID: id,
		Code:      code,
		Err:       serrors.JoinNoStack(ErrMalformedFrame, nil, errCtx...),
	}
}

// RequestIDOf extracts the request id from a frame parsing error.
func RequestIDOf(err error) (string, ErrorCode, bool) {
	var fe *FrameError
	if errors.As(err, &fe) && fe.RequestID != "" {
		return fe.RequestID, fe.Code, true
	}
	return "", "", false
}
