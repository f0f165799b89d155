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

// Package journal records forwarding decisions and transmissions of the node
// in a sqlite database.
//
// The journal subscribes to the filtered and sent events of every registered
// operation. It is an audit trail only, a failing write never influences the
// forwarding of a request. Entries from subscriptions are written by a
// background writer; when its queue is full, entries are dropped and counted.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/private/serrors"
	"github.com/gridlink/ocppnode/private/storage/cleaner"
	"github.com/gridlink/ocppnode/private/storage/db"
)

// Kinds of journal entries.
const (
	KindDecision = "decision"
	KindSent     = "sent"
)

const subscriberName = "journal"

// Entry is a single journal record.
type Entry struct {
	ID              int64     `json:"id"`
	Time            time.Time `json:"time"`
	Kind            string    `json:"kind"`
	RequestID       string    `json:"request_id"`
	Action          string    `json:"action"`
	Source          string    `json:"source"`
	Destination     string    `json:"destination"`
	Result          string    `json:"result,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	DecidedBy       string    `json:"decided_by,omitempty"`
	SendError       string    `json:"send_error,omitempty"`
	EventTrackingID string    `json:"event_tracking_id,omitempty"`
}

// Journal is the sqlite backed decision journal.
type Journal struct {
	db *db.Sqlite
	w  *writer
}

// New opens the journal at path and applies the schema if necessary.
func New(ctx context.Context, path string, cfg *db.SqliteConfig) (*Journal, error) {
	sqlite, err := db.NewSqlite(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := sqlite.Setup(ctx, Schema, SchemaVersion); err != nil {
		sqlite.Close()
		return nil, err
	}
	j := &Journal{db: sqlite}
	j.w = newWriter(j, DefaultQueueSize)
	return j, nil
}

// Close writes the queued entries and closes the database.
func (j *Journal) Close() error {
	j.w.close()
	return j.db.Close()
}

// Flush blocks until all entries queued by subscriptions before the call are
// written.
func (j *Journal) Flush(ctx context.Context) error {
	return j.w.flush(ctx)
}

// Dropped returns the number of entries dropped because the write queue was
// full.
func (j *Journal) Dropped() uint64 {
	return j.w.dropped.Load()
}

// Attach subscribes the journal to all operations registered with a. The
// subscribers only queue the entries, they never wait for the database.
func (j *Journal) Attach(a *forwarding.Adapter) (forwarding.Subscription, error) {
	filtered, err := a.SubscribeFiltered(subscriberName,
		func(_ context.Context, info forwarding.FilteredInfo) error {
			j.w.enqueue(decisionEntry(info))
			return nil
		})
	if err != nil {
		return forwarding.Subscription{}, err
	}
	sent, err := a.SubscribeSent(subscriberName,
		func(_ context.Context, info forwarding.SentInfo) error {
			j.w.enqueue(sentEntry(info))
			return nil
		})
	if err != nil {
		filtered.Unsubscribe()
		return forwarding.Subscription{}, err
	}
	return forwarding.JoinSubscriptions(filtered, sent), nil
}

// RecordDecision stores a finalized forwarding decision synchronously.
func (j *Journal) RecordDecision(ctx context.Context, info forwarding.FilteredInfo) error {
	return j.insertBatch(ctx, []Entry{decisionEntry(info)})
}

// RecordSent stores the outcome of a transmission synchronously.
func (j *Journal) RecordSent(ctx context.Context, info forwarding.SentInfo) error {
	return j.insertBatch(ctx, []Entry{sentEntry(info)})
}

func decisionEntry(info forwarding.FilteredInfo) Entry {
	dst := info.Header.Destination
	if info.Result.IsForwarding() && !info.NewDestination.IsZero() {
		dst = info.NewDestination
	}
	return Entry{
		Time:            info.Time,
		Kind:            KindDecision,
		RequestID:       info.Header.RequestID,
		Action:          info.Header.Action,
		Source:          string(info.Header.NetworkPath.First()),
		Destination:     dst.String(),
		Result:          info.Result.String(),
		Reason:          info.Reason,
		DecidedBy:       info.DecidedBy,
		EventTrackingID: info.Header.EventTrackingID,
	}
}

func sentEntry(info forwarding.SentInfo) Entry {
	e := Entry{
		Time:            info.Time,
		Kind:            KindSent,
		RequestID:       info.Header.RequestID,
		Action:          info.Header.Action,
		Source:          string(info.Header.NetworkPath.First()),
		Destination:     info.Header.Destination.String(),
		EventTrackingID: info.Header.EventTrackingID,
	}
	if info.Err != nil {
		e.SendError = info.Err.Error()
	}
	return e
}

// insertBatch writes entries in a single transaction.
func (j *Journal) insertBatch(ctx context.Context, entries []Entry) error {
	tx, err := j.db.Full.BeginTx(ctx, nil)
	if err != nil {
		return db.NewWriteError("starting journal transaction", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (Time, Kind, RequestID, Action, Source,
		Destination, Result, Reason, DecidedBy, SendError, EventTrackingID)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, EntriesTable)
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query, e.Time.UnixNano(), e.Kind, e.RequestID,
			e.Action, e.Source, e.Destination, e.Result, e.Reason, e.DecidedBy, e.SendError,
			e.EventTrackingID)
		if err != nil {
			tx.Rollback()
			return db.NewWriteError("inserting journal entry", err,
				"request_id", e.RequestID, "kind", e.Kind)
		}
	}
	if err := tx.Commit(); err != nil {
		return db.NewWriteError("committing journal entries", err, "entries", len(entries))
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, db.NewInputDataError("limit must be positive", nil, "limit", limit)
	}
	query := fmt.Sprintf(`SELECT RowID, Time, Kind, RequestID, Action, Source,
		Destination, Result, Reason, DecidedBy, SendError, EventTrackingID
		FROM %s ORDER BY RowID DESC LIMIT ?`, EntriesTable)
	rows, err := j.db.ReadOnly.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, db.NewReadError("querying journal", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		err := rows.Scan(&e.ID, &ts, &e.Kind, &e.RequestID, &e.Action, &e.Source,
			&e.Destination, &e.Result, &e.Reason, &e.DecidedBy, &e.SendError,
			&e.EventTrackingID)
		if err != nil {
			return nil, db.NewReadError("scanning journal entry", err)
		}
		e.Time = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewReadError("iterating journal", err)
	}
	return entries, nil
}

// Prune deletes all entries recorded before cutoff and returns the number of
// deleted entries.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE Time < ?", EntriesTable)
	res, err := j.db.Full.ExecContext(ctx, query, cutoff.UnixNano())
	if err != nil {
		return 0, db.NewWriteError("pruning journal", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, serrors.Wrap("reading affected rows", err)
	}
	return int(n), nil
}

// Count returns the number of stored entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", EntriesTable)
	if err := j.db.ReadOnly.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, db.NewReadError("counting journal entries", err)
	}
	return n, nil
}

// Cleaner returns a periodic task that prunes entries older than retention.
func (j *Journal) Cleaner(retention time.Duration, m *cleaner.Metrics) *cleaner.Cleaner {
	return &cleaner.Cleaner{
		Store:     "journal",
		Pruner:    j,
		Retention: retention,
		Metrics:   m,
	}
}
