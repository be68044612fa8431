package storage

import (
	"github.com/dvalin-labs/romgraph/internal/diff"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// DiffBytes returns the raw bytes of an edge's diff artifact, verified
// against the edge's recorded checksum.
func (m *Manager) DiffBytes(e store.Edge) ([]byte, error) {
	data, err := m.artifacts.Read(e.DiffPath, e.DiffChecksum)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ImportNode bulk-inserts a node from an external package, mirroring it
// into the traversal graph. Duplicate hashes surface store.ErrDuplicate.
func (m *Manager) ImportNode(hash, filename, format string, rawHeader []byte, meta store.Metadata) (*store.Node, error) {
	id, err := m.store.InsertNode(hash, filename, format, rawHeader, meta)
	if err != nil {
		return nil, err
	}
	node, err := m.store.GetNodeByID(id)
	if err != nil {
		return nil, err
	}
	m.graph.AddNode(graphNode(node))
	return node, nil
}

// OverwriteMetadata replaces a node's mutable metadata during import
// conflict resolution.
func (m *Manager) OverwriteMetadata(nodeID int64, meta store.Metadata) error {
	if err := m.store.UpdateMetadata(nodeID, meta); err != nil {
		return err
	}
	updated, err := m.store.GetNodeByID(nodeID)
	if err != nil {
		return err
	}
	if h, ok := m.graph.ByID(nodeID); ok {
		m.graph.UpdateNode(h, graphNode(updated))
	}
	return nil
}

// NodeByHash looks a node up by its full content hash.
func (m *Manager) NodeByHash(hash string) (*store.Node, error) {
	return m.store.GetNodeByHash(hash)
}

// ImportEdge bulk-inserts a directed edge pair whose diff bytes came
// from an external package. Each patch is verified against its expected
// checksum before anything is written; a mismatch rejects the pair.
func (m *Manager) ImportEdge(forward, reverse store.EdgeInsert, fwdPatch, revPatch []byte) (store.Edge, store.Edge, error) {
	var none store.Edge
	if got := diff.Checksum(fwdPatch); got != forward.DiffChecksum {
		return none, none, &IntegrityError{
			Op:     "import",
			Detail: "diff " + forward.DiffPath + " does not match its declared checksum",
			Err:    diff.ErrChecksum,
		}
	}
	if got := diff.Checksum(revPatch); got != reverse.DiffChecksum {
		return none, none, &IntegrityError{
			Op:     "import",
			Detail: "diff " + reverse.DiffPath + " does not match its declared checksum",
			Err:    diff.ErrChecksum,
		}
	}

	if _, err := m.artifacts.Write(forward.DiffPath, fwdPatch); err != nil {
		return none, none, err
	}
	if _, err := m.artifacts.Write(reverse.DiffPath, revPatch); err != nil {
		return none, none, err
	}

	fwdID, revID, err := m.store.InsertEdgePair(forward, reverse)
	if err != nil {
		return none, none, err
	}
	if !m.mirrorEdge(forward.SourceID, forward.TargetID, fwdID, forward) ||
		!m.mirrorEdge(reverse.SourceID, reverse.TargetID, revID, reverse) {
		if err := m.reloadGraph(); err != nil {
			return none, none, err
		}
	}
	return edgeRecord(fwdID, forward), edgeRecord(revID, reverse), nil
}
