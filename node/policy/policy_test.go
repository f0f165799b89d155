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

package policy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/node/policy"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/forwarding/catalog"
	"github.com/gridlink/ocppnode/pkg/log/testlog"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/ocpp/messages"
	"github.com/gridlink/ocppnode/private/config"
)

var testTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func info(action string, dst envelope.Destination, path ...envelope.NodeID) forwarding.FilterInfo {
	return forwarding.FilterInfo{
		Time:  testTime,
		Owner: "n1",
		Header: forwarding.Header{
			RequestID:   "1",
			Action:      action,
			Destination: dst,
			NetworkPath: path,
		},
	}
}

func TestLoopGuard(t *testing.T) {
	testCases := map[string]struct {
		info   forwarding.FilterInfo
		result forwarding.Result
	}{
		"first visit": {
			info:   info("GetCRL", envelope.Destination{ID: "cs01"}, "csms", "n1"),
			result: forwarding.ResultUnknown,
		},
		"loop": {
			info:   info("GetCRL", envelope.Destination{ID: "cs01"}, "csms", "n1", "n2", "n1"),
			result: forwarding.ResultReject,
		},
		"addressed to node": {
			info:   info("GetCRL", envelope.Destination{ID: "n1"}, "csms", "n1"),
			result: forwarding.ResultReject,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v, err := policy.LoopGuard{Local: "n1"}.Filter(context.Background(), tc.info)
			require.NoError(t, err)
			assert.Equal(t, tc.result, v.Result)
		})
	}
}

func TestACL(t *testing.T) {
	acl := policy.ACL{Rules: []policy.Rule{
		{Action: "Install*", Source: "csms-test*", Verdict: policy.Deny},
		{Destination: "cs0?", Verdict: policy.Accept},
		{Verdict: policy.Deny},
	}}
	testCases := map[string]struct {
		info   forwarding.FilterInfo
		result forwarding.Result
		reason string
	}{
		"denied source": {
			info: info("InstallCertificate", envelope.Destination{ID: "cs01"},
				"csms-test-1", "n1"),
			result: forwarding.ResultReject,
			reason: "acl rule 0",
		},
		"accepted destination": {
			info: info("InstallCertificate", envelope.Destination{ID: "cs01"},
				"csms", "n1"),
			result: forwarding.ResultUnknown,
		},
		"catch all": {
			info: info("GetCRL", envelope.Destination{ID: "cs100"},
				"csms", "n1"),
			result: forwarding.ResultReject,
			reason: "acl rule 2",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v, err := acl.Filter(context.Background(), tc.info)
			require.NoError(t, err)
			assert.Equal(t, tc.result, v.Result)
			assert.Equal(t, tc.reason, v.Reason)
		})
	}
}

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, policy.Rule{Action: "Get*", Verdict: policy.Accept}.Validate())
	assert.Error(t, policy.Rule{Action: "[", Verdict: policy.Accept}.Validate())
	assert.Error(t, policy.Rule{Verdict: "drop"}.Validate())
}

type peerConn envelope.NodeID

func (c peerConn) PeerID() envelope.NodeID { return envelope.NodeID(c) }

func TestRateLimiter(t *testing.T) {
	l, err := policy.NewRateLimiter(1, 2, 16)
	require.NoError(t, err)
	fromCSMS := info("GetCRL", envelope.Destination{ID: "cs01"}, "csms", "n1")
	fromOther := info("GetCRL", envelope.Destination{ID: "cs01"}, "csms2", "n1")

	results := func(i forwarding.FilterInfo) forwarding.Result {
		v, err := l.Filter(context.Background(), i)
		require.NoError(t, err)
		return v.Result
	}
	assert.Equal(t, forwarding.ResultUnknown, results(fromCSMS))
	assert.Equal(t, forwarding.ResultUnknown, results(fromCSMS))
	assert.Equal(t, forwarding.ResultReject, results(fromCSMS), "burst exhausted")
	assert.Equal(t, forwarding.ResultUnknown, results(fromOther), "buckets are per origin")

	fromCSMS.Time = testTime.Add(time.Second)
	assert.Equal(t, forwarding.ResultUnknown, results(fromCSMS), "bucket refilled")
}

func TestRateLimiterKeysOnPeer(t *testing.T) {
	l, err := policy.NewRateLimiter(1, 2, 16)
	require.NoError(t, err)
	verdict := func(origin envelope.NodeID) forwarding.Result {
		i := info("GetCRL", envelope.Destination{ID: "cs01"}, origin, "n1")
		i.Conn = peerConn("lc1")
		v, err := l.Filter(context.Background(), i)
		require.NoError(t, err)
		return v.Result
	}
	// Changing the origin in the network path does not yield a new bucket.
	assert.Equal(t, forwarding.ResultUnknown, verdict("cs-a"))
	assert.Equal(t, forwarding.ResultUnknown, verdict("cs-b"))
	assert.Equal(t, forwarding.ResultReject, verdict("cs-c"))
	assert.Equal(t, 1, l.Tracked())
}

func TestRateLimiterBounded(t *testing.T) {
	const maxTracked = 8
	l, err := policy.NewRateLimiter(1, 1, maxTracked)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		o := envelope.NodeID(fmt.Sprintf("cs%04d", i))
		_, err := l.Filter(context.Background(),
			info("GetCRL", envelope.Destination{ID: "cs01"}, o, "n1"))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, l.Tracked(), maxTracked)

	_, err = policy.NewRateLimiter(1, 1, 0)
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	r := policy.NewRouter([]policy.Route{
		{Match: "cs-legacy", Target: "cs01", Via: []envelope.NodeID{"lc1"}},
	})
	v, err := r.Filter(context.Background(),
		info("GetCRL", envelope.Destination{ID: "cs-legacy"}, "csms", "n1"))
	require.NoError(t, err)
	assert.Equal(t, forwarding.ResultReplace, v.Result)
	assert.Equal(t, envelope.Destination{ID: "cs01", Via: []envelope.NodeID{"lc1"}}, v.Destination)

	v, err = r.Filter(context.Background(),
		info("GetCRL", envelope.Destination{ID: "cs-legacy", Via: []envelope.NodeID{"lc2"}},
			"csms", "n1"))
	require.NoError(t, err)
	assert.Equal(t, forwarding.ResultUnknown, v.Result, "explicit via path wins")

	assert.Error(t, policy.Route{Match: "a"}.Validate())
}

func TestInstall(t *testing.T) {
	a, err := forwarding.NewAdapter(forwarding.Config{
		Owner:         "n1",
		DefaultPolicy: forwarding.ResultForward,
		Logger:        testlog.NewLogger(t),
		Now:           func() time.Time { return testTime },
	})
	require.NoError(t, err)
	_, err = catalog.Register(a)
	require.NoError(t, err)

	cfg := policy.Config{
		ACL:    []policy.Rule{{Source: "blocked", Verdict: policy.Deny}},
		Routes: []policy.Route{{Match: "old", Target: "new"}},
	}
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())
	policies, err := policy.New(cfg, "n1")
	require.NoError(t, err)
	require.Len(t, policies, 3)
	sub, err := policy.Install(a, policies...)
	require.NoError(t, err)

	info, ok := a.Lookup(messages.ActionGetCRL)
	require.True(t, ok)
	assert.Equal(t, []string{"loop_guard", "acl", "router"},
		info.Subscribers[forwarding.EventRequestFilter])

	forward := func(origin, dst envelope.NodeID) forwarding.Outcome {
		return a.Forward(context.Background(), &envelope.Inbound{
			RequestID:   "1",
			Action:      messages.ActionGetCRL,
			Destination: envelope.Destination{ID: dst},
			NetworkPath: envelope.NetworkPath{origin, "n1"},
			Payload: json.RawMessage(`{"requestId":1,"certificateHashData":{` +
				`"hashAlgorithm":"SHA256","issuerNameHash":"a","issuerKeyHash":"b",` +
				`"serialNumber":"c"}}`),
			RequestTimestamp: testTime,
			RequestTimeout:   testTime.Add(time.Minute),
		}, nil)
	}
	assert.Equal(t, forwarding.ResultReject, forward("blocked", "cs01").Result)
	o := forward("csms", "old")
	assert.Equal(t, forwarding.ResultReplace, o.Result)
	assert.Equal(t, envelope.NodeID("new"), o.Destination.ID)
	assert.Equal(t, forwarding.ResultForward, forward("csms", "cs01").Result)

	sub.Unsubscribe()
	assert.Equal(t, forwarding.ResultForward, forward("blocked", "cs01").Result)
}

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg policy.Config
	cfg.Sample(&sample, nil, nil)

	var decoded policy.Config
	require.NoError(t, config.Decode(sample.Bytes(), &decoded))
	decoded.InitDefaults()
	require.NoError(t, decoded.Validate())
	assert.Equal(t, 10, decoded.Burst)
	assert.Equal(t, policy.DefaultMaxTracked, decoded.MaxTracked)
	policies, err := policy.New(decoded, "n1")
	require.NoError(t, err)
	assert.Len(t, policies, 1)
}
