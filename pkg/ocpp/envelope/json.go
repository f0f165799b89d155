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
	"bytes"
	"encoding/json"
	"time"
)

type metaJSON struct {
	Destination     *Destination `json:"destination,omitempty"`
	NetworkPath     NetworkPath  `json:"networkPath,omitempty"`
	Timestamp       *time.Time   `json:"timestamp,omitempty"`
	Timeout         float64      `json:"timeout,omitempty"`
	EventTrackingID string       `json:"eventTrackingId,omitempty"`
}

func (m Meta) toJSON() metaJSON {
	j := metaJSON{
		NetworkPath:     m.NetworkPath,
		Timeout:         m.Timeout.Seconds(),
		EventTrackingID: m.EventTrackingID,
	}
	if !m.Destination.IsZero() {
		d := m.Destination
		j.Destination = &d
	}
	if !m.Timestamp.IsZero() {
		ts := m.Timestamp.UTC()
		j.Timestamp = &ts
	}
	return j
}

func (j metaJSON) meta() Meta {
	m := Meta{
		NetworkPath:     j.NetworkPath,
		Timeout:         time.Duration(j.Timeout * float64(time.Second)),
		EventTrackingID: j.EventTrackingID,
	}
	if j.Destination != nil {
		m.Destination = *j.Destination
	}
	if j.Timestamp != nil {
		m.Timestamp = *j.Timestamp
	}
	return m
}

// ParseJSONFrame decodes an OCPP-J frame:
//
//	[2, "<id>", "<action>", {payload}, {meta}]
//	[3, "<id>", {payload}, {meta}]
//	[4, "<id>", "<code>", "<description>", {details}, {meta}]
//
// The trailing meta object is optional.
func ParseJSONFrame(raw []byte) (*Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, frameErr("", RPCFrameworkError, "frame is not a JSON array")
	}
	if len(elems) < 3 {
		return nil, frameErr("", RPCFrameworkError, "too few elements", "count", len(elems))
	}
	var typ int
	if err := json.Unmarshal(elems[0], &typ); err != nil {
		return nil, frameErr("", RPCFrameworkError, "message type is not a number")
	}
	var id string
	if err := json.Unmarshal(elems[1], &id); err != nil || id == "" {
		return nil, frameErr("", RPCFrameworkError, "invalid message id")
	}
	f := &Frame{Type: MessageType(typ), RequestID: id, Kind: KindJSON}
	var rest []json.RawMessage
	switch f.Type {
	case Call:
		if len(elems) < 4 || len(elems) > 5 {
			return nil, frameErr(id, RPCFrameworkError, "invalid CALL length",
				"count", len(elems))
		}
		if err := json.Unmarshal(elems[2], &f.Action); err != nil || f.Action == "" {
			return nil, frameErr(id, RPCFrameworkError, "invalid action")
		}
		f.Payload = elems[3]
		rest = elems[4:]
	case CallResult:
		if len(elems) > 4 {
			return nil, frameErr(id, RPCFrameworkError, "invalid CALLRESULT length",
				"count", len(elems))
		}
		f.Payload = elems[2]
		rest = elems[3:]
	case CallError:
		if len(elems) < 5 || len(elems) > 6 {
			return nil, frameErr(id, RPCFrameworkError, "invalid CALLERROR length",
				"count", len(elems))
		}
		if err := json.Unmarshal(elems[2], &f.ErrorCode); err != nil {
			return nil, frameErr(id, RPCFrameworkError, "invalid error code")
		}
		if err := json.Unmarshal(elems[3], &f.ErrorDescription); err != nil {
			return nil, frameErr(id, RPCFrameworkError, "invalid error description")
		}
		if !isObject(elems[4]) {
			return nil, frameErr(id, RPCFrameworkError, "error details must be an object")
		}
		f.ErrorDetails = elems[4]
		rest = elems[5:]
	default:
		return nil, frameErr(id, MessageTypeNotSupported, "unsupported message type",
			"type", typ)
	}
	if f.Type != CallError && !isObject(f.Payload) {
		return nil, frameErr(id, FormationViolation, "payload must be an object")
	}
	if len(rest) == 1 {
		var m metaJSON
		if err := json.Unmarshal(rest[0], &m); err != nil {
			return nil, frameErr(id, FormationViolation, "invalid routing metadata",
				"err", err)
		}
		f.Meta = m.meta()
	}
	return f, nil
}

// MarshalJSONFrame encodes the frame as OCPP-J text frame. The meta object is
// only written if metadata is present.
func (f *Frame) MarshalJSONFrame() ([]byte, error) {
	var elems []any
	switch f.Type {
	case Call:
		elems = []any{int(f.Type), f.RequestID, f.Action, object(f.Payload)}
	case CallResult:
		elems = []any{int(f.Type), f.RequestID, object(f.Payload)}
	case CallError:
		elems = []any{int(f.Type), f.RequestID, f.ErrorCode, f.ErrorDescription,
			object(f.ErrorDetails)}
	default:
		return nil, frameErr(f.RequestID, MessageTypeNotSupported, "unsupported message type",
			"type", int(f.Type))
	}
	if !f.Meta.IsZero() {
		elems = append(elems, f.Meta.toJSON())
	}
	return json.Marshal(elems)
}

func object(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
