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

package journal

const (
	// SchemaVersion is the version of the journal schema.
	SchemaVersion = 1
	// Schema is the sqlite schema of the journal.
	Schema = `CREATE TABLE Entries(
		RowID INTEGER PRIMARY KEY AUTOINCREMENT,
		Time INTEGER NOT NULL,
		Kind TEXT NOT NULL,
		RequestID TEXT NOT NULL,
		Action TEXT NOT NULL,
		Source TEXT NOT NULL,
		Destination TEXT NOT NULL,
		Result TEXT NOT NULL DEFAULT '',
		Reason TEXT NOT NULL DEFAULT '',
		DecidedBy TEXT NOT NULL DEFAULT '',
		SendError TEXT NOT NULL DEFAULT '',
		EventTrackingID TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX EntriesTime ON Entries(Time);
	`

	// EntriesTable is the name of the journal table.
	EntriesTable = "Entries"
)
