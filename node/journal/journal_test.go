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

package journal_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/node/journal"
	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/forwarding/catalog"
	"github.com/gridlink/ocppnode/pkg/log/testlog"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	"github.com/gridlink/ocppnode/pkg/ocpp/messages"
)

var testTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.New(context.Background(), filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func header(id string) forwarding.Header {
	return forwarding.Header{
		RequestID:       id,
		Action:          messages.ActionGetCRL,
		Destination:     envelope.Destination{ID: "cs01"},
		NetworkPath:     envelope.NetworkPath{"csms", "n1"},
		EventTrackingID: "trk-" + id,
	}
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
		Time:           testTime,
		Header:         header("1"),
		Result:         forwarding.ResultReplace,
		Reason:         "static route",
		DecidedBy:      "router",
		NewDestination: envelope.Destination{ID: "cs02", Via: []envelope.NodeID{"lc1"}},
	}))
	require.NoError(t, j.RecordSent(ctx, forwarding.SentInfo{
		Time:   testTime.Add(time.Second),
		Header: header("1"),
		Err:    errors.New("connection closed"),
	}))
	require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
		Time:   testTime.Add(2 * time.Second),
		Header: header("2"),
		Result: forwarding.ResultReject,
		Reason: "acl rule 0",
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "2", entries[0].RequestID)
	assert.Equal(t, "reject", entries[0].Result)
	assert.Equal(t, "cs01", entries[0].Destination)

	assert.Equal(t, journal.KindSent, entries[1].Kind)
	assert.Equal(t, "connection closed", entries[1].SendError)
	assert.Equal(t, testTime.Add(time.Second), entries[1].Time)

	assert.Equal(t, journal.KindDecision, entries[2].Kind)
	assert.Equal(t, "replace", entries[2].Result)
	assert.Equal(t, "router", entries[2].DecidedBy)
	assert.Equal(t, "csms", entries[2].Source)
	assert.Equal(t, "[lc1] > cs02", entries[2].Destination)
	assert.Equal(t, "trk-1", entries[2].EventTrackingID)

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = j.Recent(ctx, 0)
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)
	for i, age := range []time.Duration{3 * time.Hour, 2 * time.Hour, time.Minute} {
		require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
			Time:   testTime.Add(-age),
			Header: header(string(rune('a' + i))),
			Result: forwarding.ResultForward,
		}))
	}
	n, err := j.Prune(ctx, testTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCleaner(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)
	require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
		Time:   time.Now().Add(-2 * time.Hour),
		Header: header("old"),
		Result: forwarding.ResultForward,
	}))
	require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
		Time:   time.Now(),
		Header: header("new"),
		Result: forwarding.ResultForward,
	}))
	c := j.Cleaner(time.Hour, nil)
	assert.Equal(t, "journal_cleaner", c.Name())
	c.Run(ctx)
	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].RequestID)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.New(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, j.RecordDecision(ctx, forwarding.FilteredInfo{
		Time:   testTime,
		Header: header("1"),
		Result: forwarding.ResultForward,
	}))
	require.NoError(t, j.Close())

	j, err = journal.New(ctx, path, nil)
	require.NoError(t, err)
	defer j.Close()
	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type conn envelope.NodeID

func (c conn) PeerID() envelope.NodeID { return envelope.NodeID(c) }

func TestAttach(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)
	a, err := forwarding.NewAdapter(forwarding.Config{
		Owner:         "n1",
		DefaultPolicy: forwarding.ResultForward,
		Logger:        testlog.NewLogger(t),
		Now:           func() time.Time { return testTime },
	})
	require.NoError(t, err)
	_, err = catalog.Register(a)
	require.NoError(t, err)
	sub, err := j.Attach(a)
	require.NoError(t, err)

	info, ok := a.Lookup(messages.ActionSignCertificate)
	require.True(t, ok)
	assert.Equal(t, []string{"journal"}, info.Subscribers[forwarding.EventRequestFiltered])
	assert.Equal(t, []string{"journal"}, info.Subscribers[forwarding.EventRequestSent])

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	o := a.Forward(cancelled, &envelope.Inbound{
		RequestID:        "42",
		Action:           messages.ActionSignCertificate,
		Destination:      envelope.Destination{ID: "csms"},
		NetworkPath:      envelope.NetworkPath{"cs01", "n1"},
		Payload:          json.RawMessage(`{"csr":"-----BEGIN CERTIFICATE REQUEST-----"}`),
		RequestTimestamp: testTime,
		RequestTimeout:   testTime.Add(time.Minute),
	}, conn("cs01"))
	require.Equal(t, forwarding.ResultForward, o.Result, o.ParseError)
	require.NotNil(t, o.SentLogger)
	o.SentLogger(ctx, conn("csms"), nil)
	require.NoError(t, j.Flush(ctx))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, journal.KindSent, entries[0].Kind)
	assert.Empty(t, entries[0].SendError)
	assert.Equal(t, journal.KindDecision, entries[1].Kind)
	assert.Equal(t, "42", entries[1].RequestID)
	assert.Equal(t, "forward", entries[1].Result)
	assert.Equal(t, forwarding.ReasonDefaultPolicy, entries[1].Reason)

	sub.Unsubscribe()
	info, _ = a.Lookup(messages.ActionSignCertificate)
	assert.Empty(t, info.Subscribers[forwarding.EventRequestFiltered])
}

func TestCloseWritesQueued(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.New(ctx, path, nil)
	require.NoError(t, err)
	a, err := forwarding.NewAdapter(forwarding.Config{
		Owner:         "n1",
		DefaultPolicy: forwarding.ResultForward,
		Logger:        testlog.NewLogger(t),
		Now:           func() time.Time { return testTime },
	})
	require.NoError(t, err)
	_, err = catalog.Register(a)
	require.NoError(t, err)
	_, err = j.Attach(a)
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3"} {
		o := a.Forward(ctx, &envelope.Inbound{
			RequestID:        id,
			Action:           messages.ActionSignCertificate,
			Destination:      envelope.Destination{ID: "csms"},
			NetworkPath:      envelope.NetworkPath{"cs01", "n1"},
			Payload:          json.RawMessage(`{"csr":"-----BEGIN CERTIFICATE REQUEST-----"}`),
			RequestTimestamp: testTime,
			RequestTimeout:   testTime.Add(time.Minute),
		}, conn("cs01"))
		require.Equal(t, forwarding.ResultForward, o.Result, o.ParseError)
	}
	require.NoError(t, j.Close())

	j, err = journal.New(ctx, path, nil)
	require.NoError(t, err)
	defer j.Close()
	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Zero(t, j.Dropped())
}
