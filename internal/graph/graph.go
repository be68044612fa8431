// Package graph is the in-memory traversal graph mirroring the durable
// store: a directed graph keyed by content hash with stable, generation-
// tagged node handles and deterministic shortest-path search. It is a
// derived cache: the storage manager mutates it in lockstep with the
// store and rebuilds it from the store when in doubt.
package graph

// Node is the traversal view of a stored file variant.
type Node struct {
	ID       int64 // store-local id
	Hash     string
	Filename string
	Title    string
	Version  string
	Format   string
}

// Edge is the traversal view of a stored diff.
type Edge struct {
	ID           int64
	DiffPath     string
	DiffSize     int64
	DiffChecksum string
}

// Handle is a stable reference to a node. It stays valid across removals
// of other nodes and is invalidated only when its own node is removed:
// slots are tombstoned and generation-tagged, never renumbered.
type Handle struct {
	index uint32
	gen   uint32
}

type halfEdge struct {
	other Handle // target for out-edges, source for in-edges
	edge  Edge
}

type slot struct {
	gen  uint32
	live bool
	node Node
	out  []halfEdge // insertion-ordered; BFS scan order, hence determinism
	in   []halfEdge
}

// Graph is an in-memory directed graph with O(1) lookup by hash, by store
// id, and by handle.
type Graph struct {
	slots  []slot
	free   []uint32
	byHash map[string]Handle
	byID   map[int64]Handle
	edges  int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byHash: make(map[string]Handle),
		byID:   make(map[int64]Handle),
	}
}

// AddNode inserts a node and returns its handle. A freed slot is reused
// with a bumped generation so stale handles to the old occupant miss.
func (g *Graph) AddNode(node Node) Handle {
	var h Handle
	if n := len(g.free); n > 0 {
		idx := g.free[n-1]
		g.free = g.free[:n-1]
		s := &g.slots[idx]
		s.gen++
		s.live = true
		s.node = node
		s.out = nil
		s.in = nil
		h = Handle{index: idx, gen: s.gen}
	} else {
		g.slots = append(g.slots, slot{live: true, node: node})
		h = Handle{index: uint32(len(g.slots) - 1)}
	}
	g.byHash[node.Hash] = h
	g.byID[node.ID] = h
	return h
}

// AddEdge inserts a directed edge. Both handles must be live.
func (g *Graph) AddEdge(from, to Handle, edge Edge) bool {
	fs := g.slot(from)
	ts := g.slot(to)
	if fs == nil || ts == nil {
		return false
	}
	fs.out = append(fs.out, halfEdge{other: to, edge: edge})
	ts.in = append(ts.in, halfEdge{other: from, edge: edge})
	g.edges++
	return true
}

// RemoveEdge deletes the directed edge from->to, if present.
func (g *Graph) RemoveEdge(from, to Handle) bool {
	fs := g.slot(from)
	ts := g.slot(to)
	if fs == nil || ts == nil {
		return false
	}
	before := len(fs.out)
	fs.out = dropHalfEdges(fs.out, to)
	if len(fs.out) == before {
		return false
	}
	ts.in = dropHalfEdges(ts.in, from)
	g.edges -= before - len(fs.out)
	return true
}

// RemoveNode deletes a node and all incident edges, returning the removed
// node. Handles of unrelated nodes remain valid.
func (g *Graph) RemoveNode(h Handle) (Node, bool) {
	s := g.slot(h)
	if s == nil {
		return Node{}, false
	}
	for _, he := range s.out {
		if os := g.slot(he.other); os != nil {
			os.in = dropHalfEdges(os.in, h)
		}
		g.edges--
	}
	for _, he := range s.in {
		if os := g.slot(he.other); os != nil {
			before := len(os.out)
			os.out = dropHalfEdges(os.out, h)
			g.edges -= before - len(os.out)
		}
	}
	node := s.node
	delete(g.byHash, node.Hash)
	delete(g.byID, node.ID)
	s.live = false
	s.out = nil
	s.in = nil
	s.node = Node{}
	g.free = append(g.free, h.index)
	return node, true
}

// Node returns the node behind a handle.
func (g *Graph) Node(h Handle) (Node, bool) {
	s := g.slot(h)
	if s == nil {
		return Node{}, false
	}
	return s.node, true
}

// UpdateNode replaces the node data behind a handle, rekeying the lookup
// maps if the identity fields changed.
func (g *Graph) UpdateNode(h Handle, node Node) bool {
	s := g.slot(h)
	if s == nil {
		return false
	}
	if s.node.Hash != node.Hash {
		delete(g.byHash, s.node.Hash)
		g.byHash[node.Hash] = h
	}
	if s.node.ID != node.ID {
		delete(g.byID, s.node.ID)
		g.byID[node.ID] = h
	}
	s.node = node
	return true
}

// ByHash returns the handle for a content hash.
func (g *Graph) ByHash(hash string) (Handle, bool) {
	h, ok := g.byHash[hash]
	return h, ok
}

// ByID returns the handle for a store-local id.
func (g *Graph) ByID(id int64) (Handle, bool) {
	h, ok := g.byID[id]
	return h, ok
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.byHash) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return g.edges }

// OutDegree returns the number of outgoing edges from a node.
func (g *Graph) OutDegree(h Handle) int {
	s := g.slot(h)
	if s == nil {
		return 0
	}
	return len(s.out)
}

// Neighbor pairs a reachable node with the edge that reaches it.
type Neighbor struct {
	Node Node
	Edge Edge
}

// Neighbors returns the outgoing neighbors of a node in edge-insertion order.
func (g *Graph) Neighbors(h Handle) []Neighbor {
	s := g.slot(h)
	if s == nil {
		return nil
	}
	out := make([]Neighbor, 0, len(s.out))
	for _, he := range s.out {
		if os := g.slot(he.other); os != nil {
			out = append(out, Neighbor{Node: os.node, Edge: he.edge})
		}
	}
	return out
}

// Nodes calls fn for every live node in slot order until fn returns false.
func (g *Graph) Nodes(fn func(Handle, Node) bool) {
	for i := range g.slots {
		s := &g.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{index: uint32(i), gen: s.gen}, s.node) {
			return
		}
	}
}

// Edges calls fn for every directed edge until fn returns false.
func (g *Graph) Edges(fn func(from, to Node, edge Edge) bool) {
	for i := range g.slots {
		s := &g.slots[i]
		if !s.live {
			continue
		}
		for _, he := range s.out {
			os := g.slot(he.other)
			if os == nil {
				continue
			}
			if !fn(s.node, os.node, he.edge) {
				return
			}
		}
	}
}

func (g *Graph) slot(h Handle) *slot {
	if int(h.index) >= len(g.slots) {
		return nil
	}
	s := &g.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}

func dropHalfEdges(hes []halfEdge, other Handle) []halfEdge {
	out := hes[:0]
	for _, he := range hes {
		if he.other != other {
			out = append(out, he)
		}
	}
	return out
}
