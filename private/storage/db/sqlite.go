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

// Package db contains the sqlite plumbing shared by the node's persistent
// stores: connection pool setup, schema versioning and error classification.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

const driverName = "sqlite"

// Reader is the read-only subset of *sql.DB.
type Reader interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Stats() sql.DBStats
}

// SqliteConfig allows configuring the sqlite database instance.
type SqliteConfig struct {
	MaxOpenReadConns int
	InMemory         bool
}

// Sqlite is a sqlite database with a single-connection write pool and a
// separate read pool.
type Sqlite struct {
	// Full is the write pool. It can be used for any operation.
	Full *sql.DB
	// ReadOnly must only be used for reads.
	ReadOnly Reader

	read   *sql.DB
	memory string
}

// NewSqlite opens the database at path. The write pool is limited to one
// open connection to avoid SQLITE_BUSY contention between writers.
func NewSqlite(path string, cfg *SqliteConfig) (*Sqlite, error) {
	var c SqliteConfig
	if cfg != nil {
		c = *cfg
	}
	// With shared cache every ":memory:" connection would see the same
	// database, so in-memory databases must be named.
	if strings.Contains(path, ":memory:") {
		return nil, serrors.New("use explicitly named memory database", "path", path)
	}
	name, hasScheme := strings.CutPrefix(path, "file:")

	params := make(url.Values)
	// Start transactions as writers so busy_timeout is honored instead of
	// failing on lock upgrade.
	params.Add("_txlock", "immediate")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(1000)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "foreign_keys(1)")
	if c.InMemory {
		if err := registerMemoryDB(name); err != nil {
			return nil, err
		}
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	}
	dsn := path + "?" + params.Encode()
	if !hasScheme {
		dsn = "file:" + dsn
	}

	write, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, serrors.Wrap("opening write database", err)
	}
	write.SetMaxOpenConns(1)
	read, err := sql.Open(driverName, dsn)
	if err != nil {
		write.Close()
		return nil, serrors.Wrap("opening read database", err)
	}
	if c.MaxOpenReadConns == 0 {
		c.MaxOpenReadConns = max(4, runtime.NumCPU())
	}
	read.SetMaxOpenConns(c.MaxOpenReadConns)

	db := &Sqlite{Full: write, ReadOnly: read, read: read}
	if c.InMemory {
		db.memory = name
	}
	return db, nil
}

// Setup applies schema if the database is new and checks that an existing
// database has the expected schema version.
func (db *Sqlite) Setup(ctx context.Context, schema string, schemaVersion int) error {
	var existing int
	if err := db.Full.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&existing); err != nil {
		return NewReadError("checking schema version", err)
	}
	switch existing {
	case 0:
		if _, err := db.Full.ExecContext(ctx, schema); err != nil {
			return NewWriteError("applying schema", err)
		}
		q := fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)
		if _, err := db.Full.ExecContext(ctx, q); err != nil {
			return NewWriteError("writing schema version", err)
		}
		return nil
	case schemaVersion:
		return nil
	default:
		return NewDataError("schema version mismatch", nil,
			"expected", schemaVersion, "actual", existing)
	}
}

// CheckpointStats are the counters sqlite reports for a WAL checkpoint.
type CheckpointStats struct {
	// Busy is the number of frames not checkpointed due to active readers.
	Busy int
	// LogFrames is the total number of frames in the WAL.
	LogFrames int
	// Checkpointed is the number of frames actually checkpointed.
	Checkpointed int
}

// Checkpoint runs a FULL WAL checkpoint on the write pool.
func (db *Sqlite) Checkpoint(ctx context.Context) (CheckpointStats, error) {
	var s CheckpointStats
	err := db.Full.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL);").
		Scan(&s.Busy, &s.LogFrames, &s.Checkpointed)
	if err != nil {
		return CheckpointStats{}, NewWriteError("performing checkpoint", err)
	}
	return s, nil
}

// Close closes both pools.
func (db *Sqlite) Close() error {
	var errs serrors.List
	if err := db.Full.Close(); err != nil {
		errs = append(errs, serrors.Wrap("closing write db", err))
	}
	if err := db.read.Close(); err != nil {
		errs = append(errs, serrors.Wrap("closing read db", err))
	}
	if db.memory != "" {
		unregisterMemoryDB(db.memory)
	}
	return errs.ToError()
}

// memoryDBs tracks the named in-memory databases that are open. Two
// databases with the same name would silently share their content.
var memoryDBs = struct {
	mtx   sync.Mutex
	names map[string]struct{}
}{
	names: make(map[string]struct{}),
}

func registerMemoryDB(name string) error {
	memoryDBs.mtx.Lock()
	defer memoryDBs.mtx.Unlock()
	if _, ok := memoryDBs.names[name]; ok {
		return serrors.New("memory database already exists", "name", name)
	}
	memoryDBs.names[name] = struct{}{}
	return nil
}

func unregisterMemoryDB(name string) {
	memoryDBs.mtx.Lock()
	defer memoryDBs.mtx.Unlock()
	delete(memoryDBs.names, name)
}
