package storage

import (
	"errors"
	"fmt"

	"github.com/dvalin-labs/romgraph/internal/diff"
	"github.com/dvalin-labs/romgraph/internal/rom"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// Build reconstructs the target node's bytes from a source file. The
// source bytes are fingerprinted and must match a stored node; a BFS
// over the traversal graph finds the shortest diff chain to the target,
// each artifact is checksum-verified before applying, and the final
// payload's fingerprint must equal the target's stored hash. The
// target's captured header is reassembled onto the result.
func (m *Manager) Build(sourceData []byte, targetRef string) ([]byte, *store.Node, error) {
	srcIdent, err := rom.Identify(sourceData, "")
	if err != nil {
		return nil, nil, err
	}
	source, err := m.store.GetNodeByHash(srcIdent.Hash)
	if err != nil {
		return nil, nil, fmt.Errorf("source %s: %w", short(srcIdent.Hash), err)
	}
	target, err := m.Resolve(targetRef)
	if err != nil {
		return nil, nil, err
	}

	from, ok := m.graph.ByID(source.ID)
	if !ok {
		return nil, nil, fmt.Errorf("node %s: %w", short(source.Hash), store.ErrNotFound)
	}
	to, ok := m.graph.ByID(target.ID)
	if !ok {
		return nil, nil, fmt.Errorf("node %s: %w", short(target.Hash), store.ErrNotFound)
	}

	path := m.graph.FindPath(from, to)
	if path == nil {
		return nil, nil, &UnreachableError{SourceHash: source.Hash, TargetHash: target.Hash}
	}

	payload := srcIdent.Payload
	for _, step := range path {
		if step.Edge == nil {
			continue
		}
		patch, err := m.artifacts.Read(step.Edge.DiffPath, step.Edge.DiffChecksum)
		if err != nil {
			if errors.Is(err, diff.ErrChecksum) {
				return nil, nil, &IntegrityError{Op: "build", Detail: "corrupt diff artifact", Err: err}
			}
			return nil, nil, err
		}
		payload, err = diff.Apply(payload, patch)
		if err != nil {
			return nil, nil, fmt.Errorf("applying %s: %w", step.Edge.DiffPath, err)
		}
	}

	if got := rom.Fingerprint(payload); got != target.Hash {
		return nil, nil, &IntegrityError{
			Op:     "build",
			Detail: fmt.Sprintf("reconstructed payload hashed %s, expected %s", short(got), short(target.Hash)),
		}
	}
	return rom.Reassemble(target.RawHeader, payload), target, nil
}
