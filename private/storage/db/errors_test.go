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

package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFmt(t *testing.T) {
	testCases := map[string]struct {
		expected error
		err      error
	}{
		"input": {expected: ErrInvalidInputData, err: NewInputDataError("test", nil)},
		"data":  {expected: ErrDataInvalid, err: NewDataError("test", nil)},
		"read":  {expected: ErrReadFailed, err: NewReadError("test", nil)},
		"write": {expected: ErrWriteFailed, err: NewWriteError("test", nil)},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, fmt.Sprintf("%s {detailMsg=test}", tc.expected), tc.err.Error())
			assert.ErrorIs(t, tc.err, tc.expected)
		})
	}
}

func TestErrCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewWriteError("inserting", cause, "table", "journal")
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "db: write failed {detailMsg=inserting; table=journal}: disk full", err.Error())
	assert.NotErrorIs(t, err, ErrReadFailed)
}

const testSchema = `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`

func TestSetup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSqlite(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Setup(ctx, testSchema, 2))
	_, err = db.Full.ExecContext(ctx, "INSERT INTO kv (k, v) VALUES ('a', 'b')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewSqlite(path, nil)
	require.NoError(t, err)
	defer db.Close()
	// Same version: the schema is not reapplied.
	require.NoError(t, db.Setup(ctx, testSchema, 2))
	var v string
	require.NoError(t, db.ReadOnly.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = 'a'").Scan(&v))
	assert.Equal(t, "b", v)

	err = db.Setup(ctx, testSchema, 3)
	assert.True(t, errors.Is(err, ErrDataInvalid), err)
}

func TestInMemory(t *testing.T) {
	_, err := NewSqlite(":memory:", nil)
	assert.Error(t, err)

	db, err := NewSqlite("file:inmemtest", &SqliteConfig{InMemory: true})
	require.NoError(t, err)
	_, err = NewSqlite("file:inmemtest", &SqliteConfig{InMemory: true})
	assert.Error(t, err)
	require.NoError(t, db.Close())

	db, err = NewSqlite("file:inmemtest", &SqliteConfig{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
