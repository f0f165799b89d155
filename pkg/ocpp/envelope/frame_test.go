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

package envelope_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
)

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testCall() *envelope.Frame {
	return &envelope.Frame{
		Type:      envelope.Call,
		RequestID: "19223201",
		Action:    "GetCRL",
		Payload:   []byte(`{"requestId":1}`),
		Meta: envelope.Meta{
			Destination:     envelope.Destination{ID: "cs01"},
			NetworkPath:     envelope.NetworkPath{"csms", "nn1"},
			Timestamp:       testTime,
			Timeout:         30 * time.Second,
			EventTrackingID: "e1",
		},
	}
}

func TestMarshalJSONFrame(t *testing.T) {
	testCases := map[string]struct {
		frame    *envelope.Frame
		expected string
	}{
		"call with meta": {
			frame: testCall(),
			expected: `[2,"19223201","GetCRL",{"requestId":1},{"destination":{"id":"cs01"},` +
				`"networkPath":["csms","nn1"],"timestamp":"2026-01-02T03:04:05Z","timeout":30,` +
				`"eventTrackingId":"e1"}]`,
		},
		"call result without meta": {
			frame: &envelope.Frame{
				Type:      envelope.CallResult,
				RequestID: "19223201",
				Payload:   []byte(`{ "status": "Accepted" }`),
			},
			expected: `[3,"19223201",{"status":"Accepted"}]`,
		},
		"call error": {
			frame: envelope.NewCallError("19223201", envelope.NotImplemented,
				"unknown action", envelope.Meta{}),
			expected: `[4,"19223201","NotImplemented","unknown action",{}]`,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			raw, err := tc.frame.MarshalJSONFrame()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(raw))
		})
	}
}

func TestParseJSONFrame(t *testing.T) {
	testCases := map[string]struct {
		raw          string
		assertErr    assert.ErrorAssertionFunc
		expectedID   string
		expectedCode envelope.ErrorCode
		check        func(t *testing.T, f *envelope.Frame)
	}{
		"call": {
			raw: `[2,"id1","GetCRL",{"requestId":1},{"destination":{"id":"cs01",` +
				`"via":["nn2"]},"networkPath":["csms"],"timeout":12.5}]`,
			assertErr: assert.NoError,
			check: func(t *testing.T, f *envelope.Frame) {
				assert.Equal(t, envelope.Call, f.Type)
				assert.Equal(t, "GetCRL", f.Action)
				assert.JSONEq(t, `{"requestId":1}`, string(f.Payload))
				assert.Equal(t, envelope.Destination{
					ID:  "cs01",
					Via: []envelope.NodeID{"nn2"},
				}, f.Meta.Destination)
				assert.Equal(t, envelope.NetworkPath{"csms"}, f.Meta.NetworkPath)
				assert.Equal(t, 12500*time.Millisecond, f.Meta.Timeout)
				assert.True(t, f.Meta.Timestamp.IsZero())
				assert.Equal(t, envelope.KindJSON, f.Kind)
			},
		},
		"call result": {
			raw:       `[3,"id1",{"status":"Accepted"}]`,
			assertErr: assert.NoError,
			check: func(t *testing.T, f *envelope.Frame) {
				assert.Equal(t, envelope.CallResult, f.Type)
				assert.True(t, f.Meta.IsZero())
			},
		},
		"call error": {
			raw:       `[4,"id1","GenericError","boom",{"k":"v"}]`,
			assertErr: assert.NoError,
			check: func(t *testing.T, f *envelope.Frame) {
				assert.Equal(t, envelope.GenericError, f.ErrorCode)
				assert.Equal(t, "boom", f.ErrorDescription)
			},
		},
		"not an array": {
			raw:          `{"a":1}`,
			assertErr:    assert.Error,
			expectedCode: envelope.RPCFrameworkError,
		},
		"too short": {
			raw:       `[2,"id1"]`,
			assertErr: assert.Error,
		},
		"empty id": {
			raw:       `[2,"","GetCRL",{}]`,
			assertErr: assert.Error,
		},
		"unknown type": {
			raw:          `[7,"id1",{}]`,
			assertErr:    assert.Error,
			expectedID:   "id1",
			expectedCode: envelope.MessageTypeNotSupported,
		},
		"payload not an object": {
			raw:          `[2,"id1","GetCRL",[1,2]]`,
			assertErr:    assert.Error,
			expectedID:   "id1",
			expectedCode: envelope.FormationViolation,
		},
		"invalid meta": {
			raw:          `[2,"id1","GetCRL",{},{"networkPath":"csms"}]`,
			assertErr:    assert.Error,
			expectedID:   "id1",
			expectedCode: envelope.FormationViolation,
		},
		"call error too long": {
			raw:          `[4,"id1","GenericError","boom",{},{},{}]`,
			assertErr:    assert.Error,
			expectedID:   "id1",
			expectedCode: envelope.RPCFrameworkError,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f, err := envelope.ParseJSONFrame([]byte(tc.raw))
			tc.assertErr(t, err)
			if err != nil {
				assert.True(t, errors.Is(err, envelope.ErrMalformedFrame))
				id, code, ok := envelope.RequestIDOf(err)
				assert.Equal(t, tc.expectedID != "", ok)
				assert.Equal(t, tc.expectedID, id)
				if ok {
					assert.Equal(t, tc.expectedCode, code)
				}
				return
			}
			tc.check(t, f)
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	for _, kind := range []envelope.Kind{envelope.KindJSON, envelope.KindBinary} {
		t.Run(kind.String(), func(t *testing.T) {
			in := testCall()
			raw, err := in.Marshal(kind)
			require.NoError(t, err)
			out, err := envelope.ParseFrame(kind, raw)
			require.NoError(t, err)
			in.Kind = kind
			assert.Equal(t, in, out)
		})
	}
}

func TestMarshalAttachmentsRequireBinary(t *testing.T) {
	f := testCall()
	f.Attachments = [][]byte{{0x01, 0x02}}
	_, err := f.Marshal(envelope.KindJSON)
	assert.Error(t, err)

	raw, err := f.Marshal(envelope.KindBinary)
	require.NoError(t, err)
	out, err := envelope.ParseBinaryFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x01, 0x02}}, out.Attachments)
}

func TestParseBinaryFrameErrors(t *testing.T) {
	testCases := map[string][]byte{
		"truncated":      {0x08},
		"missing type":   mustMarshalBinary(t, testCall())[2:],
		"garbage length": {0x12, 0xff, 0xff, 0xff, 0xff, 0x0f},
		"empty":          {},
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := envelope.ParseBinaryFrame(raw)
			assert.ErrorIs(t, err, envelope.ErrMalformedFrame)
		})
	}
}

func mustMarshalBinary(t *testing.T, f *envelope.Frame) []byte {
	raw, err := f.MarshalBinaryFrame()
	require.NoError(t, err)
	return raw
}

func TestFrameInbound(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := &envelope.Frame{
			Type:      envelope.Call,
			RequestID: "id1",
			Action:    "GetCRL",
			Payload:   []byte(`{}`),
			Kind:      envelope.KindBinary,
		}
		in, err := f.Inbound(testTime, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, testTime, in.RequestTimestamp)
		assert.Equal(t, testTime.Add(10*time.Second), in.RequestTimeout)
		assert.NotEmpty(t, in.EventTrackingID)
		assert.Equal(t, envelope.KindBinary, in.Kind)
	})
	t.Run("from meta", func(t *testing.T) {
		f := testCall()
		in, err := f.Inbound(testTime.Add(5*time.Second), 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, testTime, in.RequestTimestamp)
		// The budget is relative to the time of receipt.
		assert.Equal(t, testTime.Add(35*time.Second), in.RequestTimeout)
		assert.Equal(t, "e1", in.EventTrackingID)
		assert.Equal(t, envelope.NetworkPath{"csms", "nn1"}, in.NetworkPath)

		// The envelope does not alias the frame.
		f.Meta.NetworkPath[0] = "other"
		assert.Equal(t, envelope.NodeID("csms"), in.NetworkPath[0])
	})
	t.Run("not a call", func(t *testing.T) {
		f := &envelope.Frame{Type: envelope.CallResult, RequestID: "id1"}
		_, err := f.Inbound(testTime, time.Second)
		assert.Error(t, err)
	})
}
