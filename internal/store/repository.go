package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Metadata holds the user-editable fields of a node. Content-identity
// fields (hash, format, raw header) are immutable after creation.
type Metadata struct {
	Title       string
	SourceURL   string
	Version     string
	ReleaseDate string
	Tags        []string
	Description string
}

// Node is one stored file variant.
type Node struct {
	ID        int64
	Hash      string // hex content fingerprint, unique
	Filename  string // informational, may be empty
	Format    string // e.g. "NES", "raw"
	CreatedAt string
	RawHeader []byte // exact header bytes captured at ingest, nil when headerless
	Metadata
}

// Edge is one stored directed diff between two nodes.
type Edge struct {
	ID           int64
	SourceID     int64
	TargetID     int64
	DiffPath     string // artifact file name under the diffs dir
	DiffSize     int64
	DiffChecksum string
	CreatedAt    string
}

// EdgeInsert carries the fields for one new edge row.
type EdgeInsert struct {
	SourceID     int64
	TargetID     int64
	DiffPath     string
	DiffSize     int64
	DiffChecksum string
}

const nodeColumns = `id, content_hash, filename, title, format_type, created_at,
	source_url, version, release_date, tags, description, raw_header`

const edgeColumns = `id, source_id, target_id, diff_path, diff_size, diff_checksum, created_at`

// InsertNode inserts a new node. Returns ErrDuplicate when a node with the
// same content hash already exists.
func (s *Store) InsertNode(hash, filename, format string, rawHeader []byte, meta Metadata) (int64, error) {
	tags, err := encodeTags(meta.Tags)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`
		INSERT INTO nodes (content_hash, filename, title, format_type,
			source_url, version, release_date, tags, description, raw_header)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hash, nullable(filename), meta.Title, format,
		nullable(meta.SourceURL), nullable(meta.Version), nullable(meta.ReleaseDate),
		tags, nullable(meta.Description), rawHeader)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("node %s: %w", hash, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert node: %w", err)
	}
	return id, nil
}

// InsertEdgePair inserts the forward and reverse edges of a link as one
// atomic unit. Returns ErrDuplicate when either ordered pair already
// exists; referential integrity is enforced by the schema.
func (s *Store) InsertEdgePair(forward, reverse EdgeInsert) (fwdID, revID int64, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin link transaction: %w", err)
	}
	defer tx.Rollback()

	fwdID, err = insertEdgeTx(tx, forward)
	if err != nil {
		return 0, 0, err
	}
	revID, err = insertEdgeTx(tx, reverse)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit link transaction: %w", err)
	}
	return fwdID, revID, nil
}

func insertEdgeTx(tx *sql.Tx, e EdgeInsert) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO edges (source_id, target_id, diff_path, diff_size, diff_checksum)
		VALUES (?, ?, ?, ?, ?)`,
		e.SourceID, e.TargetID, e.DiffPath, e.DiffSize, e.DiffChecksum)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("edge %d->%d: %w", e.SourceID, e.TargetID, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert edge %d->%d: %w", e.SourceID, e.TargetID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	return id, nil
}

// DeleteEdgePair removes both directed edges between two nodes as one
// atomic unit and returns the removed rows. Returns ErrNotFound when no
// edge exists in either direction.
func (s *Store) DeleteEdgePair(aID, bID int64) ([]Edge, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin unlink transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT `+edgeColumns+` FROM edges
		WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)`,
		aID, bID, bID, aID)
	if err != nil {
		return nil, fmt.Errorf("load edges for unlink: %w", err)
	}
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("edges between %d and %d: %w", aID, bID, ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM edges
		WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)`,
		aID, bID, bID, aID); err != nil {
		return nil, fmt.Errorf("delete edges: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit unlink transaction: %w", err)
	}
	return edges, nil
}

// GetNodeByHash looks up a node by its full content hash.
func (s *Store) GetNodeByHash(hash string) (*Node, error) {
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE content_hash = ?`, hash)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %s: %w", hash, ErrNotFound)
	}
	return node, err
}

// GetNodeByID looks up a node by its store-local id.
func (s *Store) GetNodeByID(id int64) (*Node, error) {
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return node, err
}

// FindByHashPrefix resolves a node from a partial content hash. It fails
// with an AmbiguousError listing every candidate when more than one node
// matches, and with ErrNotFound when none do; it never silently picks one.
func (s *Store) FindByHashPrefix(prefix string) (*Node, error) {
	p := strings.ToLower(prefix)
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+` FROM nodes WHERE content_hash LIKE ? ORDER BY content_hash`,
		p+"%")
	if err != nil {
		return nil, fmt.Errorf("find by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find by prefix: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("hash prefix %q: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.Hash
		}
		return nil, &AmbiguousError{Prefix: prefix, Candidates: candidates}
	}
}

// LoadNodes returns every node, ordered by id.
func (s *Store) LoadNodes() ([]Node, error) {
	rows, err := s.db.Query(`SELECT ` + nodeColumns + ` FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	return nodes, nil
}

// LoadEdges returns every edge, ordered by id.
func (s *Store) LoadEdges() ([]Edge, error) {
	rows, err := s.db.Query(`SELECT ` + edgeColumns + ` FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	return scanEdges(rows)
}

// EdgesForNode returns every edge where the node is source or target.
func (s *Store) EdgesForNode(id int64) ([]Edge, error) {
	rows, err := s.db.Query(
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? OR target_id = ? ORDER BY id`,
		id, id)
	if err != nil {
		return nil, fmt.Errorf("load edges for node %d: %w", id, err)
	}
	return scanEdges(rows)
}

// DeleteNode removes a node and every incident edge as one atomic unit,
// returning the removed edge rows so the caller can clean up artifacts.
func (s *Store) DeleteNode(id int64) ([]Edge, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? OR target_id = ? ORDER BY id`,
		id, id)
	if err != nil {
		return nil, fmt.Errorf("load edges for node %d: %w", id, err)
	}
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return nil, fmt.Errorf("delete edges for node %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete node %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete transaction: %w", err)
	}
	return edges, nil
}

// UpdateMetadata replaces the user-editable fields of a node.
func (s *Store) UpdateMetadata(id int64, meta Metadata) error {
	tags, err := encodeTags(meta.Tags)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE nodes SET title = ?, source_url = ?, version = ?,
			release_date = ?, tags = ?, description = ?
		WHERE id = ?`,
		meta.Title, nullable(meta.SourceURL), nullable(meta.Version),
		nullable(meta.ReleaseDate), tags, nullable(meta.Description), id)
	if err != nil {
		return fmt.Errorf("update metadata for node %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return nil
}

// Counts returns the node and edge totals plus node counts per format.
func (s *Store) Counts() (nodes, edges int64, byFormat map[string]int64, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, nil, fmt.Errorf("count nodes: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, nil, fmt.Errorf("count edges: %w", err)
	}
	rows, err := s.db.Query(`SELECT format_type, COUNT(*) FROM nodes GROUP BY format_type`)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("count formats: %w", err)
	}
	defer rows.Close()
	byFormat = make(map[string]int64)
	for rows.Next() {
		var format string
		var count int64
		if err := rows.Scan(&format, &count); err != nil {
			return 0, 0, nil, fmt.Errorf("count formats: %w", err)
		}
		byFormat[format] = count
	}
	return nodes, edges, byFormat, rows.Err()
}

// --- row scanning ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var n Node
	var filename, sourceURL, version, releaseDate, tags, description sql.NullString
	err := row.Scan(&n.ID, &n.Hash, &filename, &n.Title, &n.Format, &n.CreatedAt,
		&sourceURL, &version, &releaseDate, &tags, &description, &n.RawHeader)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan node: %w", err)
	}
	n.Filename = filename.String
	n.SourceURL = sourceURL.String
	n.Version = version.String
	n.ReleaseDate = releaseDate.String
	n.Description = description.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &n.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for node %d: %w", n.ID, err)
		}
	}
	return &n, nil
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()
	var edges []Edge
	for rows.Next() {
		var e Edge
		err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID,
			&e.DiffPath, &e.DiffSize, &e.DiffChecksum, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan edges: %w", err)
	}
	return edges, nil
}

// encodeTags serializes tags to a JSON array, NULL when empty.
func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation recognizes SQLite unique-constraint failures without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
