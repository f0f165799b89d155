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
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary frame. The binary frame uses the protobuf wire
// format so that peers can decode it with any protobuf implementation.
const (
	fieldType             protowire.Number = 1
	fieldRequestID        protowire.Number = 2
	fieldAction           protowire.Number = 3
	fieldPayload          protowire.Number = 4
	fieldErrorCode        protowire.Number = 5
	fieldErrorDescription protowire.Number = 6
	fieldErrorDetails     protowire.Number = 7
	fieldDestinationID    protowire.Number = 8
	fieldDestinationVia   protowire.Number = 9
	fieldNetworkPath      protowire.Number = 10
	fieldTimestamp        protowire.Number = 11
	fieldTimeout          protowire.Number = 12
	fieldEventTrackingID  protowire.Number = 13
	fieldAttachment       protowire.Number = 14
)

// MarshalBinaryFrame encodes the frame as binary frame.
func (f *Frame) MarshalBinaryFrame() ([]byte, error) {
	switch f.Type {
	case Call, CallResult, CallError:
	default:
		return nil, frameErr(f.RequestID, MessageTypeNotSupported, "unsupported message type",
			"type", int(f.Type))
	}
	var b []byte
	b = appendVarint(b, fieldType, uint64(f.Type))
	b = appendString(b, fieldRequestID, f.RequestID)
	b = appendString(b, fieldAction, f.Action)
	if f.Type == CallError {
		b = appendString(b, fieldErrorCode, string(f.ErrorCode))
		b = appendString(b, fieldErrorDescription, f.ErrorDescription)
		b = appendBytes(b, fieldErrorDetails, object(f.ErrorDetails))
	} else {
		b = appendBytes(b, fieldPayload, object(f.Payload))
	}
	b = appendString(b, fieldDestinationID, string(f.Meta.Destination.ID))
	for _, via := range f.Meta.Destination.Via {
		b = protowire.AppendTag(b, fieldDestinationVia, protowire.BytesType)
		b = protowire.AppendString(b, string(via))
	}
	for _, hop := range f.Meta.NetworkPath {
		b = protowire.AppendTag(b, fieldNetworkPath, protowire.BytesType)
		b = protowire.AppendString(b, string(hop))
	}
	if !f.Meta.Timestamp.IsZero() {
		b = appendVarint(b, fieldTimestamp, uint64(f.Meta.Timestamp.UnixNano()))
	}
	if f.Meta.Timeout != 0 {
		b = protowire.AppendTag(b, fieldTimeout, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.Meta.Timeout)))
	}
	b = appendString(b, fieldEventTrackingID, f.Meta.EventTrackingID)
	for _, a := range f.Attachments {
		b = protowire.AppendTag(b, fieldAttachment, protowire.BytesType)
		b = protowire.AppendBytes(b, a)
	}
	return b, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// ParseBinaryFrame decodes a binary frame. Unknown fields are skipped.
func ParseBinaryFrame(raw []byte) (*Frame, error) {
	f := &Frame{Kind: KindBinary}
	var hasType bool
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, frameErr(f.RequestID, RPCFrameworkError, "invalid field tag",
				"err", protowire.ParseError(n))
		}
		raw = raw[n:]
		switch {
		case typ == protowire.VarintType && (num == fieldType || num == fieldTimestamp ||
			num == fieldTimeout):
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return nil, frameErr(f.RequestID, RPCFrameworkError, "invalid varint",
					"field", num, "err", protowire.ParseError(n))
			}
			raw = raw[n:]
			switch num {
			case fieldType:
				f.Type, hasType = MessageType(v), true
			case fieldTimestamp:
				f.Meta.Timestamp = time.Unix(0, int64(v)).UTC()
			case fieldTimeout:
				f.Meta.Timeout = time.Duration(protowire.DecodeZigZag(v))
			}
		case typ == protowire.BytesType && num >= fieldRequestID && num <= fieldAttachment:
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return nil, frameErr(f.RequestID, RPCFrameworkError, "invalid length prefix",
					"field", num, "err", protowire.ParseError(n))
			}
			raw = raw[n:]
			f.setBytesField(num, v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return nil, frameErr(f.RequestID, RPCFrameworkError, "invalid field",
					"field", num, "err", protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}
	if !hasType {
		return nil, frameErr(f.RequestID, RPCFrameworkError, "missing message type")
	}
	if f.RequestID == "" {
		return nil, frameErr("", RPCFrameworkError, "invalid message id")
	}
	switch f.Type {
	case Call:
		if f.Action == "" {
			return nil, frameErr(f.RequestID, RPCFrameworkError, "invalid action")
		}
	case CallResult, CallError:
	default:
		return nil, frameErr(f.RequestID, MessageTypeNotSupported, "unsupported message type",
			"type", int(f.Type))
	}
	if f.Type != CallError && !isObject(f.Payload) {
		return nil, frameErr(f.RequestID, FormationViolation, "payload must be an object")
	}
	return f, nil
}

func (f *Frame) setBytesField(num protowire.Number, v []byte) {
	// v aliases the input buffer.
	c := append([]byte(nil), v...)
	switch num {
	case fieldRequestID:
		f.RequestID = string(c)
	case fieldAction:
		f.Action = string(c)
	case fieldPayload:
		f.Payload = c
	case fieldErrorCode:
		f.ErrorCode = ErrorCode(c)
	case fieldErrorDescription:
		f.ErrorDescription = string(c)
	case fieldErrorDetails:
		f.ErrorDetails = c
	case fieldDestinationID:
		f.Meta.Destination.ID = NodeID(c)
	case fieldDestinationVia:
		f.Meta.Destination.Via = append(f.Meta.Destination.Via, NodeID(c))
	case fieldNetworkPath:
		f.Meta.NetworkPath = append(f.Meta.NetworkPath, NodeID(c))
	case fieldEventTrackingID:
		f.Meta.EventTrackingID = string(c)
	case fieldAttachment:
		f.Attachments = append(f.Attachments, c)
	}
}
