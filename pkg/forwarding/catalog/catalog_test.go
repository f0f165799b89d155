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

package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/forwarding/catalog"
	"github.com/gridlink/ocppnode/pkg/log/testlog"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/ocpp/messages"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

type installDecision = forwarding.Decision[
	messages.InstallCertificateRequest,
	messages.InstallCertificateResponse,
]

type testConn envelope.NodeID

func (c testConn) PeerID() envelope.NodeID { return envelope.NodeID(c) }

const hashData = `{"hashAlgorithm":"SHA256","issuerNameHash":"a1","issuerKeyHash":"b2",` +
	`"serialNumber":"0f"}`

var operations = map[string]struct {
	payload string
	binary  bool
	reject  string
}{
	messages.ActionCertificateSigned: {
		payload: `{"certificateChain":"-----BEGIN CERTIFICATE-----"}`,
		binary:  true,
		reject:  `{"status":"Rejected","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionDeleteCertificate: {
		payload: `{"certificateHashData":` + hashData + `}`,
		reject:  `{"status":"Failed","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionGet15118EVCertificate: {
		payload: `{"iso15118SchemaVersion":"urn:iso:15118:2:2013:MsgDef","action":"Install",` +
			`"exiRequest":"gJgAAAA"}`,
		reject: `{"status":"Failed","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"},` +
			`"exiResponse":""}`,
	},
	messages.ActionGetCRL: {
		payload: `{"requestId":17,"certificateHashData":` + hashData + `}`,
		reject: `{"requestId":17,"status":"Rejected",` +
			`"statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionGetCertificateStatus: {
		payload: `{"ocspRequestData":{"hashAlgorithm":"SHA256","issuerNameHash":"a1",` +
			`"issuerKeyHash":"b2","serialNumber":"0f","responderURL":"http://ocsp.example"}}`,
		reject: `{"status":"Failed","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionGetInstalledCertificateIds: {
		payload: `{"certificateType":["V2GRootCertificate"]}`,
		reject:  `{"status":"NotFound","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionInstallCertificate: {
		payload: `{"certificateType":"CSMSRootCertificate","certificate":"MIIB"}`,
		binary:  true,
		reject:  `{"status":"Rejected","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
	messages.ActionNotifyCRL: {
		payload: `{"requestId":17,"status":"Available","location":"http://crl.example"}`,
		reject:  `{}`,
	},
	messages.ActionSignCertificate: {
		payload: `{"csr":"-----BEGIN CERTIFICATE REQUEST-----"}`,
		reject:  `{"status":"Rejected","statusInfo":{"reasonCode":"Filtered","additionalInfo":"acl"}}`,
	},
}

func newAdapter(t *testing.T, policy forwarding.Result) (*forwarding.Adapter, *catalog.Handlers) {
	t.Helper()
	a, err := forwarding.NewAdapter(forwarding.Config{
		Owner:         "n1",
		DefaultPolicy: policy,
		Logger:        testlog.NewLogger(t),
	})
	require.NoError(t, err)
	h, err := catalog.Register(a)
	require.NoError(t, err)
	return a, h
}

func inbound(action, payload string) *envelope.Inbound {
	now := time.Now()
	return &envelope.Inbound{
		RequestID:        "req-9",
		Action:           action,
		Destination:      envelope.Destination{ID: "cs01"},
		NetworkPath:      envelope.NetworkPath{"csms", "n1"},
		Payload:          json.RawMessage(payload),
		RequestTimestamp: now,
		RequestTimeout:   now.Add(30 * time.Second),
		EventTrackingID:  "trk-9",
	}
}

func TestRegister(t *testing.T) {
	a, h := newAdapter(t, forwarding.ResultForward)
	assert.Len(t, a.Actions(), len(operations))
	for _, info := range a.Operations() {
		op, ok := operations[info.Action]
		require.True(t, ok, info.Action)
		assert.Equal(t, op.binary, info.AllowBinary, info.Action)
	}
	assert.Equal(t, messages.ActionGetCRL, h.GetCRL.Action())
	assert.Equal(t, messages.ActionNotifyCRL, h.NotifyCRL.Action())

	_, err := catalog.Register(a)
	assert.Error(t, err, "registering twice")
}

func TestForwardEveryOperation(t *testing.T) {
	for action, op := range operations {
		t.Run(action, func(t *testing.T) {
			a, _ := newAdapter(t, forwarding.ResultForward)
			o := a.Forward(context.Background(), inbound(action, op.payload), testConn("csms"))
			require.Equal(t, forwarding.ResultForward, o.Result, o.ParseError)

			f, err := envelope.ParseFrame(envelope.KindJSON, o.Payload)
			require.NoError(t, err)
			assert.Equal(t, envelope.Call, f.Type)
			assert.Equal(t, action, f.Action)
			assert.JSONEq(t, op.payload, string(f.Payload))
		})
	}
}

func TestRejectEveryOperation(t *testing.T) {
	for action, op := range operations {
		t.Run(action, func(t *testing.T) {
			a, _ := newAdapter(t, forwarding.ResultForward)
			_, err := a.SubscribeFilter("acl",
				func(context.Context, forwarding.FilterInfo) (forwarding.Verdict, error) {
					return forwarding.Verdict{Result: forwarding.ResultReject, Reason: "acl"}, nil
				})
			require.NoError(t, err)

			o := a.Forward(context.Background(), inbound(action, op.payload), testConn("csms"))
			require.Equal(t, forwarding.ResultReject, o.Result)
			f, err := envelope.ParseFrame(envelope.KindJSON, o.Payload)
			require.NoError(t, err)
			assert.Equal(t, envelope.CallResult, f.Type)
			assert.Equal(t, "req-9", f.RequestID)
			assert.JSONEq(t, op.reject, string(f.Payload))
		})
	}
}

func TestDefaultPolicyRejectIsValidResponse(t *testing.T) {
	a, h := newAdapter(t, forwarding.ResultReject)
	op := operations[messages.ActionGetCRL]
	d := h.GetCRL.Forward(context.Background(), inbound(messages.ActionGetCRL, op.payload),
		testConn("csms"))
	require.Equal(t, forwarding.ResultReject, d.Result)
	require.NotNil(t, d.RejectResponse)
	assert.NoError(t, d.RejectResponse.Payload.Validate())
	assert.Equal(t, 17, d.RejectResponse.Payload.RequestID)
	assert.Equal(t, forwarding.ReasonDefaultPolicy, d.RejectResponse.Payload.StatusInfo.AdditionalInfo)
	assert.Equal(t, forwarding.ResultReject, a.DefaultPolicy())
}

func TestMalformedRequestErrorCodes(t *testing.T) {
	testCases := map[string]struct {
		action  string
		payload string
		code    envelope.ErrorCode
		field   string
	}{
		"missing field": {
			action:  messages.ActionSignCertificate,
			payload: `{"certificateType":"V2GCertificate"}`,
			code:    envelope.OccurrenceConstraintViolation,
			field:   "csr",
		},
		"invalid enum": {
			action:  messages.ActionInstallCertificate,
			payload: `{"certificateType":"SelfSigned","certificate":"MIIB"}`,
			code:    envelope.PropertyConstraintViolation,
			field:   "certificateType",
		},
		"wrong type": {
			action:  messages.ActionGetCRL,
			payload: `{"requestId":"17","certificateHashData":` + hashData + `}`,
			code:    envelope.TypeConstraintViolation,
			field:   "requestId",
		},
		"binary not allowed": {
			action:  messages.ActionGetCRL,
			payload: operations[messages.ActionGetCRL].payload,
			code:    envelope.NotSupported,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			a, _ := newAdapter(t, forwarding.ResultForward)
			env := inbound(tc.action, tc.payload)
			kind := envelope.KindJSON
			if name == "binary not allowed" {
				kind = envelope.KindBinary
				env.Kind = kind
			}
			o := a.Forward(context.Background(), env, testConn("csms"))
			require.Equal(t, forwarding.ResultReject, o.Result)
			assert.Contains(t, o.ParseError, tc.field)
			f, err := envelope.ParseFrame(kind, o.Payload)
			require.NoError(t, err)
			assert.Equal(t, envelope.CallError, f.Type)
			assert.Equal(t, tc.code, f.ErrorCode)
		})
	}
}

func TestErrorCode(t *testing.T) {
	testCases := map[string]struct {
		err  error
		code envelope.ErrorCode
	}{
		"missing": {
			err:  serrors.JoinNoStack(messages.ErrMissingField, nil, "field", "csr"),
			code: envelope.OccurrenceConstraintViolation,
		},
		"too long": {
			err:  serrors.WrapNoStack("hashRootCertificate", messages.ErrTooLong),
			code: envelope.PropertyConstraintViolation,
		},
		"other": {
			err:  errors.New("unexpected end of JSON input"),
			code: envelope.FormationViolation,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, catalog.ErrorCode(tc.err))
		})
	}
}

func TestBinaryInstallCertificate(t *testing.T) {
	a, h := newAdapter(t, forwarding.ResultForward)
	var attachments [][]byte
	h.InstallCertificate.RequestFilter.Subscribe("inspect", func(
		_ context.Context,
		args forwarding.RequestArgs[messages.InstallCertificateRequest],
	) (*installDecision, error) {

		attachments = args.Request.Attachments
		return nil, nil
	})
	env := inbound(messages.ActionInstallCertificate,
		operations[messages.ActionInstallCertificate].payload)
	env.Kind = envelope.KindBinary
	env.Attachments = [][]byte{{0x30, 0x82, 0x01}}

	o := a.Forward(context.Background(), env, testConn("csms"))
	require.Equal(t, forwarding.ResultForward, o.Result)
	assert.Equal(t, envelope.KindBinary, o.Kind)
	assert.Equal(t, [][]byte{{0x30, 0x82, 0x01}}, attachments)
	f, err := envelope.ParseFrame(envelope.KindBinary, o.Payload)
	require.NoError(t, err)
	assert.Equal(t, env.Attachments, f.Attachments)
}
