// Package store is the durable source of truth: a SQLite-backed repository
// of nodes (file variants) and edges (binary diffs) plus the data-revision
// controller that wipes incompatible stores instead of migrating them.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding nodes, edges, and metadata.
// Single-writer access is an assumed precondition, not enforced.
type Store struct {
	db *sql.DB
}

// RevisionNotice describes the outcome of the revision check performed by
// Open. When Wiped is true the previous database and all diff artifacts
// were destroyed; callers must surface this to the user.
type RevisionNotice struct {
	// Stored is the revision found in the existing database, or -1 when
	// the database was absent or carried no revision marker.
	Stored int
	// Current is the compiled-in DataRevision.
	Current int
	// Wiped reports whether the database and diff artifacts were deleted.
	Wiped bool
}

// Open opens (creating if needed) the database at dbPath, enforcing the
// data-revision policy first: a stored revision older than DataRevision, or
// a legacy database with data but no revision marker, causes the database
// file and every file in diffsDir to be deleted before reinitializing.
// This is deliberately destructive; it never attempts a partial migration.
func Open(dbPath, diffsDir string) (*Store, *RevisionNotice, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(diffsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create diffs dir: %w", err)
	}

	notice := &RevisionNotice{Stored: -1, Current: DataRevision}

	if _, err := os.Stat(dbPath); err == nil {
		stored, hasRevision, hasData, err := inspectRevision(dbPath)
		if err != nil {
			return nil, nil, err
		}
		if hasRevision {
			notice.Stored = stored
		}
		needsWipe := (hasRevision && stored < DataRevision) || (!hasRevision && hasData)
		if needsWipe {
			if err := wipe(dbPath, diffsDir); err != nil {
				return nil, nil, err
			}
			notice.Wiped = true
		}
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := setRevision(db, DataRevision); err != nil {
		db.Close()
		return nil, nil, err
	}
	return &Store{db: db}, notice, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// openDB opens a SQLite connection with foreign keys enforced.
func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// The engine is single-caller; a second connection would only invite
	// SQLITE_BUSY on overlapping transactions.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}

// inspectRevision opens the existing database read-only to read its stored
// revision and whether it holds user tables, then closes it again.
func inspectRevision(path string) (revision int, hasRevision, hasData bool, err error) {
	db, err := openDB(path)
	if err != nil {
		return 0, false, false, err
	}
	defer db.Close()
	revision, hasRevision = storedRevision(db)
	hasData = hasUserData(db)
	return revision, hasRevision, hasData, nil
}

// wipe deletes the database file (including WAL sidecars) and every
// regular file in the diff artifact directory.
func wipe(dbPath, diffsDir string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("wipe database: %w", err)
		}
	}
	entries, err := os.ReadDir(diffsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("wipe diffs dir: %w", err)
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			if err := os.Remove(filepath.Join(diffsDir, entry.Name())); err != nil {
				return fmt.Errorf("wipe diff artifact %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}
