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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/ocppnode/pkg/forwarding"
)

func TestEventDispatch(t *testing.T) {
	var faults []string
	e := forwarding.NewEvent[int]("test", func(event, subscriber string, err error) {
		faults = append(faults, fmt.Sprintf("%s/%s: %s", event, subscriber, err))
	})
	var calls []string
	e.Subscribe("a", func(_ context.Context, v int) error {
		calls = append(calls, fmt.Sprint("a", v))
		return nil
	})
	e.Subscribe("b", func(context.Context, int) error { return errors.New("failed") })
	e.Subscribe("c", func(context.Context, int) error { panic("boom") })
	e.Subscribe("d", func(_ context.Context, v int) error {
		calls = append(calls, fmt.Sprint("d", v))
		return nil
	})

	assert.Equal(t, 2, e.Dispatch(context.Background(), 1))
	assert.Equal(t, []string{"a1", "d1"}, calls)
	require.Len(t, faults, 2)
	assert.Equal(t, "test/b: failed", faults[0])
	assert.Contains(t, faults[1], "test/c: subscriber panicked")
	assert.Equal(t, []string{"a", "b", "c", "d"}, e.Subscribers())
}

func TestEventUnsubscribe(t *testing.T) {
	e := forwarding.NewEvent[int]("test", nil)
	var calls int
	count := func(context.Context, int) error {
		calls++
		return nil
	}
	s1 := e.Subscribe("first", count)
	s2 := e.Subscribe("second", count)
	require.Equal(t, 2, e.Len())

	s1.Unsubscribe()
	s1.Unsubscribe()
	assert.Equal(t, []string{"second"}, e.Subscribers())
	e.Dispatch(context.Background(), 0)
	assert.Equal(t, 1, calls)

	forwarding.JoinSubscriptions(s1, s2).Unsubscribe()
	assert.Zero(t, e.Len())
	forwarding.Subscription{}.Unsubscribe()
}

func TestEventSubscribeDuringDispatch(t *testing.T) {
	e := forwarding.NewEvent[int]("test", nil)
	var calls int
	e.Subscribe("grow", func(context.Context, int) error {
		calls++
		e.Subscribe("late", func(context.Context, int) error {
			calls++
			return nil
		})
		return nil
	})
	e.Dispatch(context.Background(), 0)
	assert.Equal(t, 1, calls, "dispatch iterates over a snapshot")
	assert.Equal(t, 2, e.Len())
}

func TestEventConcurrentSubscribe(t *testing.T) {
	e := forwarding.NewEvent[int]("test", nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := e.Subscribe("tmp", func(context.Context, int) error { return nil })
				s.Unsubscribe()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Zero(t, e.Dispatch(context.Background(), j))
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, e.Len())
}

func TestResultText(t *testing.T) {
	testCases := map[string]struct {
		input     string
		expected  forwarding.Result
		assertErr assert.ErrorAssertionFunc
	}{
		"forward":    {input: "forward", expected: forwarding.ResultForward, assertErr: assert.NoError},
		"upper case": {input: "REJECT", expected: forwarding.ResultReject, assertErr: assert.NoError},
		"replace":    {input: "replace", expected: forwarding.ResultReplace, assertErr: assert.NoError},
		"garbage":    {input: "drop", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var r forwarding.Result
			err := r.UnmarshalText([]byte(tc.input))
			tc.assertErr(t, err)
			assert.Equal(t, tc.expected, r)
			if err == nil {
				raw, err := r.MarshalText()
				require.NoError(t, err)
				assert.Equal(t, r.String(), string(raw))
			}
		})
	}
	_, err := forwarding.ResultUnknown.MarshalText()
	assert.Error(t, err)
}

func TestParseDefaultPolicy(t *testing.T) {
	r, err := forwarding.ParseDefaultPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, forwarding.ResultReject, r)
	_, err = forwarding.ParseDefaultPolicy("replace")
	assert.Error(t, err)
}

func TestDecisionValid(t *testing.T) {
	req := &forwarding.Request[signedReq]{}
	testCases := map[string]struct {
		decision *decision
		valid    bool
	}{
		"nil": {},
		"forward without bytes": {
			decision: forwarding.Forward[signedResp](req),
		},
		"forward": {
			decision: &decision{Result: forwarding.ResultForward, NewRequest: req,
				NewRequestSerialized: []byte("[]")},
			valid: true,
		},
		"reject": {
			decision: &decision{Result: forwarding.ResultReject,
				RejectResponseSerialized: []byte("[]")},
			valid: true,
		},
		"reject ignores request": {
			decision: &decision{Result: forwarding.ResultReject, NewRequest: req,
				NewRequestSerialized: []byte("[]"), RejectResponseSerialized: []byte("[]")},
			valid: true,
		},
		"unknown": {
			decision: &decision{NewRequest: req, NewRequestSerialized: []byte("[]")},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.decision.Valid())
		})
	}
}
