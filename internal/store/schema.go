package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// DataRevision is the compiled-in data-format revision. Incrementing it
// wipes all stored data (database and diff artifacts) on next open instead
// of migrating; see EnsureRevision.
const DataRevision = 1

// revisionKey is the meta-table key holding the stored data revision.
const revisionKey = "data_revision"

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    content_hash  TEXT NOT NULL UNIQUE,
    filename      TEXT,
    title         TEXT NOT NULL,
    format_type   TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
    source_url    TEXT,
    version       TEXT,
    release_date  TEXT,
    tags          TEXT,
    description   TEXT,
    raw_header    BLOB
);

CREATE TABLE IF NOT EXISTS edges (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id      INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    target_id      INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    diff_path      TEXT NOT NULL,
    diff_size      INTEGER NOT NULL,
    diff_checksum  TEXT NOT NULL,
    created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
    UNIQUE(source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

CREATE TABLE IF NOT EXISTS meta (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
`

// migrate applies the schema. All statements are idempotent.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// storedRevision reads the data revision from the meta table. ok is false
// when the table or key does not exist (a pre-revision database).
func storedRevision(db *sql.DB) (revision int, ok bool) {
	var value string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, revisionKey).Scan(&value)
	if err != nil {
		return 0, false
	}
	revision, perr := strconv.Atoi(value)
	if perr != nil {
		return 0, false
	}
	return revision, true
}

// setRevision writes the current data revision to the meta table.
func setRevision(db *sql.DB, revision int) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		revisionKey, strconv.Itoa(revision))
	if err != nil {
		return fmt.Errorf("set data revision: %w", err)
	}
	return nil
}

// hasUserData reports whether the database contains a nodes table. Used to
// recognize legacy databases created before the meta table existed.
func hasUserData(db *sql.DB) bool {
	var exists int
	err := db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='nodes')`,
	).Scan(&exists)
	return err == nil && exists == 1
}
