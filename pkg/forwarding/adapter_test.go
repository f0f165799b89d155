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

package forwarding_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/ocpp/messages"
)

func TestNewAdapter(t *testing.T) {
	testCases := map[string]struct {
		cfg       forwarding.Config
		assertErr assert.ErrorAssertionFunc
	}{
		"valid": {
			cfg:       forwarding.Config{Owner: "n1", DefaultPolicy: forwarding.ResultReject},
			assertErr: assert.NoError,
		},
		"no owner": {
			cfg:       forwarding.Config{DefaultPolicy: forwarding.ResultForward},
			assertErr: assert.Error,
		},
		"no policy": {
			cfg:       forwarding.Config{Owner: "n1"},
			assertErr: assert.Error,
		},
		"replace policy": {
			cfg:       forwarding.Config{Owner: "n1", DefaultPolicy: forwarding.ResultReplace},
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := forwarding.NewAdapter(tc.cfg)
			tc.assertErr(t, err)
		})
	}
}

func TestRegister(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	_, err := forwarding.Register(ta.Adapter, certificateSigned())
	assert.Error(t, err, "duplicate action")

	op := certificateSigned()
	op.RejectResponse = nil
	op.Action = "Other"
	_, err = forwarding.Register(ta.Adapter, op)
	assert.Error(t, err, "missing reject response factory")

	h, ok := forwarding.HandlerFor[signedReq, signedResp](ta.Adapter, "CertificateSigned")
	require.True(t, ok)
	assert.Same(t, ta.handler, h)
	_, ok = forwarding.HandlerFor[signedResp, signedReq](ta.Adapter, "CertificateSigned")
	assert.False(t, ok, "wrong type parameters")
	_, ok = forwarding.HandlerFor[signedReq, signedResp](ta.Adapter, "Other")
	assert.False(t, ok)
	assert.Equal(t, []string{"CertificateSigned"}, ta.Actions())
}

func TestAdapterForwardUnknownAction(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	env := inbound(validPayload)
	env.Action = "Reboot"

	o := ta.Forward(context.Background(), env, testConn("csms"))
	assert.Equal(t, forwarding.ResultReject, o.Result)
	assert.Equal(t, forwarding.ReasonUnknownAction, o.Reason)
	f, err := envelope.ParseFrame(envelope.KindJSON, o.Payload)
	require.NoError(t, err)
	assert.Equal(t, envelope.CallError, f.Type)
	assert.Equal(t, envelope.NotImplemented, f.ErrorCode)
	assert.Equal(t, "req-1", f.RequestID)
}

func TestAdapterForwardOutcome(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	ta.handler.RequestSent.Subscribe("noop", func(context.Context, forwarding.SentArgs[signedReq]) error {
		return nil
	})
	o := ta.Forward(context.Background(), inbound(validPayload), testConn("csms"))
	assert.Equal(t, forwarding.ResultForward, o.Result)
	assert.Equal(t, "CertificateSigned", o.Action)
	assert.Equal(t, envelope.Destination{ID: "cs01"}, o.Destination)
	assert.Equal(t, envelope.NetworkPath{"csms", "n1"}, o.NetworkPath)
	assert.Equal(t, 25*time.Second, o.RemainingTimeout)
	assert.Equal(t, "trk-1", o.EventTrackingID)
	assert.NotEmpty(t, o.Payload)
	assert.NotNil(t, o.SentLogger)
}

func TestAdapterTypeIndependentFilters(t *testing.T) {
	testCases := map[string]struct {
		verdict     forwarding.Verdict
		err         error
		result      forwarding.Result
		destination envelope.NodeID
	}{
		"abstain": {
			result:      forwarding.ResultForward,
			destination: "cs01",
		},
		"reject": {
			verdict: forwarding.Verdict{Result: forwarding.ResultReject, Reason: "acl"},
			result:  forwarding.ResultReject,
		},
		"replace": {
			verdict: forwarding.Verdict{
				Result:      forwarding.ResultReplace,
				Destination: envelope.Destination{ID: "cs02"},
			},
			result:      forwarding.ResultReplace,
			destination: "cs02",
		},
		"error": {
			verdict:     forwarding.Verdict{Result: forwarding.ResultReject},
			err:         errors.New("failed"),
			result:      forwarding.ResultForward,
			destination: "cs01",
		},
		"invalid verdict": {
			verdict:     forwarding.Verdict{Result: forwarding.Result(42)},
			result:      forwarding.ResultForward,
			destination: "cs01",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ta := newTestAdapter(t, forwarding.ResultForward)
			var seen forwarding.FilterInfo
			sub, err := ta.SubscribeFilter("policy",
				func(_ context.Context, info forwarding.FilterInfo) (forwarding.Verdict, error) {
					seen = info
					return tc.verdict, tc.err
				})
			require.NoError(t, err)
			var filtered forwarding.FilteredInfo
			_, err = ta.SubscribeFiltered("journal",
				func(_ context.Context, info forwarding.FilteredInfo) error {
					filtered = info
					return nil
				}, messages.ActionCertificateSigned)
			require.NoError(t, err)

			o := ta.Forward(context.Background(), inbound(validPayload), testConn("csms"))
			assert.Equal(t, tc.result, o.Result)
			assert.Equal(t, tc.result, filtered.Result)
			assert.Equal(t, "req-1", seen.Header.RequestID)
			assert.Equal(t, envelope.NodeID("n1"), seen.Owner)
			assert.Equal(t, envelope.NodeID("csms"), seen.Conn.PeerID())
			if tc.result.IsForwarding() {
				assert.Equal(t, tc.destination, o.Destination.ID)
				assert.Equal(t, tc.destination, filtered.NewDestination.ID)
			}

			sub.Unsubscribe()
			info, ok := ta.Lookup(messages.ActionCertificateSigned)
			require.True(t, ok)
			assert.Empty(t, info.Subscribers[forwarding.EventRequestFilter])
			assert.Equal(t, []string{"journal"}, info.Subscribers[forwarding.EventRequestFiltered])
		})
	}
}

func TestAdapterSubscribeUnknownAction(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	_, err := ta.SubscribeSent("journal", func(context.Context, forwarding.SentInfo) error {
		return nil
	}, "Reboot")
	assert.Error(t, err)
}

func TestAdapterSubscribeSent(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	var sent forwarding.SentInfo
	_, err := ta.SubscribeSent("journal", func(_ context.Context, info forwarding.SentInfo) error {
		sent = info
		return nil
	})
	require.NoError(t, err)
	o := ta.Forward(context.Background(), inbound(validPayload), testConn("csms"))
	require.NotNil(t, o.SentLogger)
	o.SentLogger(context.Background(), testConn("cs01"), nil)
	assert.Equal(t, "req-1", sent.Header.RequestID)
	assert.Equal(t, envelope.NodeID("cs01"), sent.Conn.PeerID())
	assert.NoError(t, sent.Err)
}

func TestAdapterOperations(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	op := certificateSigned()
	op.Action = messages.ActionSignCertificate
	op.AllowBinary = false
	_, err := forwarding.Register(ta.Adapter, op)
	require.NoError(t, err)
	ta.handler.RequestReceived.Subscribe("audit", func(context.Context, reqArgs) error {
		return nil
	})

	ops := ta.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "CertificateSigned", ops[0].Action)
	assert.True(t, ops[0].AllowBinary)
	assert.Equal(t, []string{"audit"}, ops[0].Subscribers[forwarding.EventRequestReceived])
	assert.Equal(t, "SignCertificate", ops[1].Action)
	assert.False(t, ops[1].AllowBinary)
}

func TestAdapterProcessResponse(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultForward)
	f := &envelope.Frame{
		Type:      envelope.CallResult,
		RequestID: "req-1",
		Payload:   []byte(`{"status":"Rejected"}`),
		Meta:      envelope.Meta{Destination: envelope.Destination{ID: "csms"}},
	}
	o, err := ta.ProcessResponse(context.Background(), messages.ActionCertificateSigned, f,
		testConn("cs01"))
	require.NoError(t, err)
	assert.Equal(t, "req-1", o.RequestID)
	assert.Equal(t, envelope.NetworkPath{"n1"}, o.NetworkPath)
	assert.Nil(t, o.SentLogger)

	_, err = ta.ProcessResponse(context.Background(), "Reboot", f, testConn("cs01"))
	assert.Error(t, err)
}

func TestAdapterConcurrentForward(t *testing.T) {
	ta := newTestAdapter(t, forwarding.ResultReject)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub, err := ta.SubscribeFilter("allow",
					func(context.Context, forwarding.FilterInfo) (forwarding.Verdict, error) {
						return forwarding.Verdict{Result: forwarding.ResultForward}, nil
					})
				assert.NoError(t, err)
				sub.Unsubscribe()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d := ta.handler.Forward(context.Background(), inbound(validPayload),
					testConn("csms"))
				assert.True(t, d.Valid())
			}
		}()
	}
	wg.Wait()
}
