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

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

type timeoutErr struct {
	timeout bool
	cause   error
}

func (e *timeoutErr) Error() string   { return "timeout error" }
func (e *timeoutErr) Timeout() bool   { return e.timeout }
func (e *timeoutErr) Temporary() bool { return e.timeout }
func (e *timeoutErr) Unwrap() error   { return e.cause }

func TestIsTimeout(t *testing.T) {
	assert.False(t, serrors.IsTimeout(serrors.New("no timeout")))
	assert.True(t, serrors.IsTimeout(serrors.Wrap("wrapped", &timeoutErr{timeout: true})))
	assert.False(t, serrors.IsTimeout(serrors.Wrap("wrapped", &timeoutErr{
		cause: &timeoutErr{timeout: true},
	})))
	assert.True(t, serrors.IsTemporary(serrors.WrapNoStack("w", &timeoutErr{timeout: true})))
}

func TestErrorString(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"new": {
			err:      serrors.New("no route", "dst", "cs01", "action", "GetCRL"),
			expected: "no route {action=GetCRL; dst=cs01}",
		},
		"wrap": {
			err:      serrors.Wrap("forwarding", errors.New("closed"), "hop", "n2"),
			expected: "forwarding {hop=n2}: closed",
		},
		"join": {
			err:      serrors.Join(errors.New("base"), errors.New("cause")),
			expected: "base: cause",
		},
		"list": {
			err:      serrors.List{errors.New("a"), errors.New("b")},
			expected: "[ a; b ]",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestIs(t *testing.T) {
	base := errors.New("base")
	cause := errors.New("cause")

	joined := serrors.Join(base, cause, "k", "v")
	assert.ErrorIs(t, joined, base)
	assert.ErrorIs(t, joined, cause)

	wrapped := serrors.Wrap("msg", joined)
	assert.ErrorIs(t, wrapped, base)
	assert.ErrorIs(t, wrapped, cause)

	assert.Nil(t, serrors.Join(nil, nil))
	assert.Nil(t, serrors.List{}.ToError())
}

func TestStackTrace(t *testing.T) {
	err := serrors.New("with stack")
	var st interface{ StackTrace() serrors.StackTrace }
	require.True(t, errors.As(err, &st))
	assert.NotEmpty(t, st.StackTrace())

	noStack := serrors.WrapNoStack("no stack", errors.New("plain"))
	require.True(t, errors.As(noStack, &st))
	assert.Empty(t, st.StackTrace())
}

func TestMarshalLogObject(t *testing.T) {
	err := serrors.Wrap("outer", serrors.New("inner", "a", 1), "b", 2)
	m, ok := err.(zapcore.ObjectMarshaler)
	require.True(t, ok)
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, m.MarshalLogObject(enc))
	assert.Equal(t, "outer", enc.Fields["msg"])
	assert.Equal(t, int64(2), enc.Fields["b"])
	assert.Contains(t, enc.Fields, "cause")
}
