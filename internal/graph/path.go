package graph

// Step is one hop in a reconstruction path. The Edge is nil for the
// source node and set for every subsequent step.
type Step struct {
	Node Handle
	Edge *Edge
}

// FindPath returns the shortest directed path from source to target as a
// sequence of steps (fewest diff applications). Neighbors are scanned in
// edge-insertion order, which matches the repository's edge-id order after
// a rebuild, so ties between equal-length paths resolve the same way on
// every call. Returns nil when no path exists.
func (g *Graph) FindPath(source, target Handle) []Step {
	if g.slot(source) == nil || g.slot(target) == nil {
		return nil
	}
	if source == target {
		return []Step{{Node: source}}
	}

	type visit struct {
		prev Handle
		edge Edge
	}
	visited := map[Handle]visit{source: {}}
	queue := []Handle{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		s := g.slot(current)
		if s == nil {
			continue
		}
		for _, he := range s.out {
			if _, seen := visited[he.other]; seen {
				continue
			}
			visited[he.other] = visit{prev: current, edge: he.edge}
			if he.other == target {
				return g.tracePath(source, target, func(h Handle) (Handle, Edge) {
					v := visited[h]
					return v.prev, v.edge
				})
			}
			queue = append(queue, he.other)
		}
	}
	return nil
}

func (g *Graph) tracePath(source, target Handle, lookup func(Handle) (Handle, Edge)) []Step {
	var rev []Step
	for current := target; current != source; {
		prev, edge := lookup(current)
		e := edge
		rev = append(rev, Step{Node: current, Edge: &e})
		current = prev
	}
	rev = append(rev, Step{Node: source})
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// Component returns every node reachable from start treating edges as
// bidirectional. Linking always materializes both directions, so this is
// the set of nodes in the same diff family.
func (g *Graph) Component(start Handle) []Handle {
	if g.slot(start) == nil {
		return nil
	}
	seen := map[Handle]struct{}{start: {}}
	queue := []Handle{start}
	var component []Handle

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		component = append(component, current)
		s := g.slot(current)
		if s == nil {
			continue
		}
		for _, he := range s.out {
			if _, ok := seen[he.other]; !ok {
				seen[he.other] = struct{}{}
				queue = append(queue, he.other)
			}
		}
		for _, he := range s.in {
			if _, ok := seen[he.other]; !ok {
				seen[he.other] = struct{}{}
				queue = append(queue, he.other)
			}
		}
	}
	return component
}
