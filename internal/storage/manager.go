// Package storage orchestrates the durable store, the in-memory traversal
// graph, and the diff engine. Every state-changing operation goes through
// the Manager, which writes the durable store first and mirrors the change
// into the graph afterwards.
package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/dvalin-labs/romgraph/internal/diff"
	"github.com/dvalin-labs/romgraph/internal/graph"
	"github.com/dvalin-labs/romgraph/internal/rom"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// Input is one ROM file handed to Add or Link.
type Input struct {
	Data     []byte
	Filename string
	Meta     store.Metadata
}

// AddResult reports the node an Add resolved to.
type AddResult struct {
	Node    *store.Node
	Existed bool // payload hash was already stored; no new row created
}

// LinkResult reports the two endpoint nodes and the new edge pair.
type LinkResult struct {
	Source  AddResult
	Target  AddResult
	Forward store.Edge
	Reverse store.Edge
}

// Stats summarizes the store contents.
type Stats struct {
	Nodes         int64
	Edges         int64
	ByFormat      map[string]int64
	TotalDiffSize int64
}

// Manager is the single entry point for mutating the diff graph.
type Manager struct {
	store     *store.Store
	graph     *graph.Graph
	artifacts *diff.Artifacts

	lastAdded graph.Handle
	hasLast   bool
}

// Open opens the durable store at dbPath (wiping on a data-revision
// mismatch), prepares the diff artifact directory, and loads the
// traversal graph. The returned notice is non-nil when the revision
// check found anything worth reporting.
func Open(dbPath, diffsDir string) (*Manager, *store.RevisionNotice, error) {
	s, notice, err := store.Open(dbPath, diffsDir)
	if err != nil {
		return nil, nil, err
	}
	arts, err := diff.NewArtifacts(diffsDir)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	m := &Manager{store: s, artifacts: arts}
	if err := m.reloadGraph(); err != nil {
		s.Close()
		return nil, nil, err
	}
	return m, notice, nil
}

// Close releases the durable store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// reloadGraph rebuilds the traversal graph from the durable store. Handles
// issued before the reload are invalid afterwards; the last-added
// reference is carried across by hash.
func (m *Manager) reloadGraph() error {
	var lastHash string
	if m.hasLast {
		if node, ok := m.graph.Node(m.lastAdded); ok {
			lastHash = node.Hash
		}
	}

	nodes, err := m.store.LoadNodes()
	if err != nil {
		return fmt.Errorf("loading nodes: %w", err)
	}
	edges, err := m.store.LoadEdges()
	if err != nil {
		return fmt.Errorf("loading edges: %w", err)
	}

	g := graph.New()
	for i := range nodes {
		g.AddNode(graphNode(&nodes[i]))
	}
	// Edges arrive in id order; neighbor scans stay deterministic.
	for _, e := range edges {
		from, ok := g.ByID(e.SourceID)
		if !ok {
			return fmt.Errorf("edge %d references missing node %d", e.ID, e.SourceID)
		}
		to, ok := g.ByID(e.TargetID)
		if !ok {
			return fmt.Errorf("edge %d references missing node %d", e.ID, e.TargetID)
		}
		g.AddEdge(from, to, graphEdge(&e))
	}
	m.graph = g

	m.hasLast = false
	if lastHash != "" {
		if h, ok := g.ByHash(lastHash); ok {
			m.lastAdded = h
			m.hasLast = true
		}
	}
	return nil
}

// Add ingests a file: header split, fingerprint, durable insert, graph
// mirror. Adding a payload whose hash is already stored returns the
// existing node with Existed set; no duplicate row is created.
func (m *Manager) Add(in Input) (*AddResult, error) {
	id, err := rom.Identify(in.Data, in.Filename)
	if err != nil {
		return nil, err
	}
	return m.addIdentity(id, in.Meta)
}

func (m *Manager) addIdentity(id rom.Identity, meta store.Metadata) (*AddResult, error) {
	existing, err := m.store.GetNodeByHash(id.Hash)
	if err == nil {
		if h, ok := m.graph.ByHash(existing.Hash); ok {
			m.lastAdded, m.hasLast = h, true
		}
		return &AddResult{Node: existing, Existed: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	nodeID, err := m.store.InsertNode(id.Hash, id.Filename, id.Format, id.Header, meta)
	if err != nil {
		return nil, err
	}
	node, err := m.store.GetNodeByID(nodeID)
	if err != nil {
		return nil, err
	}
	h := m.graph.AddNode(graphNode(node))
	m.lastAdded, m.hasLast = h, true
	return &AddResult{Node: node}, nil
}

// Link connects two files with a diff in each direction, adding either
// endpoint first if its payload is not yet stored. The artifacts are
// written before the edge rows commit; an interrupted link can leave
// orphan artifact files but never a dangling edge row.
func (m *Manager) Link(a, b Input) (*LinkResult, error) {
	srcIdent, err := rom.Identify(a.Data, a.Filename)
	if err != nil {
		return nil, err
	}
	dstIdent, err := rom.Identify(b.Data, b.Filename)
	if err != nil {
		return nil, err
	}
	if srcIdent.Hash == dstIdent.Hash {
		return nil, fmt.Errorf("cannot link identical payloads (%s)", short(srcIdent.Hash))
	}

	src, err := m.addIdentity(srcIdent, a.Meta)
	if err != nil {
		return nil, err
	}
	dst, err := m.addIdentity(dstIdent, b.Meta)
	if err != nil {
		return nil, err
	}

	forward, err := m.writeDiff(srcIdent, dstIdent, src.Node.ID, dst.Node.ID)
	if err != nil {
		return nil, err
	}
	reverse, err := m.writeDiff(dstIdent, srcIdent, dst.Node.ID, src.Node.ID)
	if err != nil {
		return nil, err
	}

	fwdID, revID, err := m.store.InsertEdgePair(forward, reverse)
	if err != nil {
		return nil, err
	}

	if !m.mirrorEdge(src.Node.ID, dst.Node.ID, fwdID, forward) ||
		!m.mirrorEdge(dst.Node.ID, src.Node.ID, revID, reverse) {
		if err := m.reloadGraph(); err != nil {
			return nil, err
		}
	}

	res := &LinkResult{Source: *src, Target: *dst}
	res.Forward = edgeRecord(fwdID, forward)
	res.Reverse = edgeRecord(revID, reverse)
	return res, nil
}

func (m *Manager) writeDiff(src, dst rom.Identity, srcID, dstID int64) (store.EdgeInsert, error) {
	patch, err := diff.Create(src.Payload, dst.Payload)
	if err != nil {
		return store.EdgeInsert{}, fmt.Errorf("diffing %s -> %s: %w", short(src.Hash), short(dst.Hash), err)
	}
	name := diff.Name(src.Hash, dst.Hash)
	sum, err := m.artifacts.Write(name, patch)
	if err != nil {
		return store.EdgeInsert{}, err
	}
	return store.EdgeInsert{
		SourceID:     srcID,
		TargetID:     dstID,
		DiffPath:     name,
		DiffSize:     int64(len(patch)),
		DiffChecksum: sum,
	}, nil
}

func (m *Manager) mirrorEdge(srcID, dstID, edgeID int64, e store.EdgeInsert) bool {
	from, ok := m.graph.ByID(srcID)
	if !ok {
		return false
	}
	to, ok := m.graph.ByID(dstID)
	if !ok {
		return false
	}
	return m.graph.AddEdge(from, to, graph.Edge{
		ID:           edgeID,
		DiffPath:     e.DiffPath,
		DiffSize:     e.DiffSize,
		DiffChecksum: e.DiffChecksum,
	})
}

// Unlink removes both directed edges between two nodes and their diff
// artifacts.
func (m *Manager) Unlink(refA, refB string) error {
	a, err := m.Resolve(refA)
	if err != nil {
		return err
	}
	b, err := m.Resolve(refB)
	if err != nil {
		return err
	}
	removed, err := m.store.DeleteEdgePair(a.ID, b.ID)
	if err != nil {
		return err
	}
	for _, e := range removed {
		if err := m.artifacts.Remove(e.DiffPath); err != nil {
			return err
		}
	}
	ha, okA := m.graph.ByID(a.ID)
	hb, okB := m.graph.ByID(b.ID)
	if !okA || !okB {
		return m.reloadGraph()
	}
	m.graph.RemoveEdge(ha, hb)
	m.graph.RemoveEdge(hb, ha)
	return nil
}

// Remove deletes a node, every incident edge, and their diff artifacts.
// The last-added reference is cleared if it pointed at the removed node.
func (m *Manager) Remove(ref string) (*store.Node, error) {
	node, err := m.Resolve(ref)
	if err != nil {
		return nil, err
	}
	removedEdges, err := m.store.DeleteNode(node.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range removedEdges {
		if err := m.artifacts.Remove(e.DiffPath); err != nil {
			return nil, err
		}
	}
	if h, ok := m.graph.ByID(node.ID); ok {
		if m.hasLast && h == m.lastAdded {
			m.hasLast = false
		}
		m.graph.RemoveNode(h)
	}
	return node, nil
}

// EditMetadata updates the mutable fields of a node. Content-identity
// fields (hash, format, raw header) cannot be changed.
func (m *Manager) EditMetadata(ref string, meta store.Metadata) (*store.Node, error) {
	node, err := m.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateMetadata(node.ID, meta); err != nil {
		return nil, err
	}
	updated, err := m.store.GetNodeByID(node.ID)
	if err != nil {
		return nil, err
	}
	if h, ok := m.graph.ByID(node.ID); ok {
		m.graph.UpdateNode(h, graphNode(updated))
	}
	return updated, nil
}

// Resolve turns a user-supplied reference into a stored node. A full
// 64-char hex string is looked up directly; a path to an existing file
// is fingerprinted first; anything else hex-like is treated as a hash
// prefix, which fails with an ambiguity error on multiple matches.
func (m *Manager) Resolve(ref string) (*store.Node, error) {
	if rom.IsHash(ref) {
		return m.store.GetNodeByHash(ref)
	}
	if _, err := os.Stat(ref); err == nil {
		id, err := rom.IdentifyFile(ref)
		if err != nil {
			return nil, err
		}
		return m.store.GetNodeByHash(id.Hash)
	}
	if rom.IsHashPrefix(ref) {
		return m.store.FindByHashPrefix(ref)
	}
	return nil, fmt.Errorf("%q: %w", ref, store.ErrNotFound)
}

// Nodes returns every stored node.
func (m *Manager) Nodes() ([]store.Node, error) {
	return m.store.LoadNodes()
}

// Edges returns every stored edge.
func (m *Manager) Edges() ([]store.Edge, error) {
	return m.store.LoadEdges()
}

// Neighbors lists the nodes reachable from ref over one outgoing edge.
func (m *Manager) Neighbors(ref string) (*store.Node, []graph.Neighbor, error) {
	node, err := m.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	h, ok := m.graph.ByID(node.ID)
	if !ok {
		return nil, nil, fmt.Errorf("node %s: %w", short(node.Hash), store.ErrNotFound)
	}
	return node, m.graph.Neighbors(h), nil
}

// Component returns every node connected to ref, itself included,
// ignoring edge direction.
func (m *Manager) Component(ref string) ([]store.Node, error) {
	node, err := m.Resolve(ref)
	if err != nil {
		return nil, err
	}
	h, ok := m.graph.ByID(node.ID)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", short(node.Hash), store.ErrNotFound)
	}
	var nodes []store.Node
	for _, member := range m.graph.Component(h) {
		gn, ok := m.graph.Node(member)
		if !ok {
			continue
		}
		full, err := m.store.GetNodeByID(gn.ID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *full)
	}
	return nodes, nil
}

// ComponentSize returns the number of nodes connected to ref, itself
// included, ignoring edge direction.
func (m *Manager) ComponentSize(ref string) (int, error) {
	nodes, err := m.Component(ref)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// Stats returns node and edge counts plus the total artifact size.
func (m *Manager) Stats() (*Stats, error) {
	nodes, edges, byFormat, err := m.store.Counts()
	if err != nil {
		return nil, err
	}
	st := &Stats{Nodes: nodes, Edges: edges, ByFormat: byFormat}
	all, err := m.store.LoadEdges()
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		st.TotalDiffSize += e.DiffSize
	}
	return st, nil
}

// LastAdded returns the node most recently added or touched by Link,
// or false if none or it has been removed.
func (m *Manager) LastAdded() (*store.Node, bool) {
	if !m.hasLast {
		return nil, false
	}
	node, ok := m.graph.Node(m.lastAdded)
	if !ok {
		m.hasLast = false
		return nil, false
	}
	full, err := m.store.GetNodeByID(node.ID)
	if err != nil {
		return nil, false
	}
	return full, true
}

func graphNode(n *store.Node) graph.Node {
	return graph.Node{
		ID:       n.ID,
		Hash:     n.Hash,
		Filename: n.Filename,
		Title:    n.Title,
		Version:  n.Version,
		Format:   n.Format,
	}
}

func graphEdge(e *store.Edge) graph.Edge {
	return graph.Edge{
		ID:           e.ID,
		DiffPath:     e.DiffPath,
		DiffSize:     e.DiffSize,
		DiffChecksum: e.DiffChecksum,
	}
}

func edgeRecord(id int64, e store.EdgeInsert) store.Edge {
	return store.Edge{
		ID:           id,
		SourceID:     e.SourceID,
		TargetID:     e.TargetID,
		DiffPath:     e.DiffPath,
		DiffSize:     e.DiffSize,
		DiffChecksum: e.DiffChecksum,
	}
}
