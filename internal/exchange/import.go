package exchange

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvalin-labs/romgraph/internal/storage"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// FieldDiff is one metadata field that differs between a stored node and
// its incoming counterpart.
type FieldDiff struct {
	Name     string
	Existing string
	Incoming string
}

// Conflict is a node present in both the store and the package with
// differing metadata.
type Conflict struct {
	Hash     string
	NodeID   int64
	Incoming ManifestNode
	Fields   []FieldDiff
}

// Plan is the result of analyzing a package against the current store.
type Plan struct {
	Manifest  *Manifest
	Dir       string
	NewFiles  []ManifestNode
	Identical int
	Conflicts []Conflict
}

// Result summarizes what an executed import changed.
type Result struct {
	NodesAdded       int
	NodesSkipped     int
	NodesOverwritten int
	EdgesAdded       int
	EdgesSkipped     int
}

// Analyze reads the package at dir and compares it against the store
// without changing anything. A package written under a different data
// revision is rejected outright.
func Analyze(m *storage.Manager, dir string) (*Plan, error) {
	man, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if man.DataRevision != store.DataRevision {
		return nil, fmt.Errorf("package data revision %d does not match current revision %d",
			man.DataRevision, store.DataRevision)
	}

	plan := &Plan{Manifest: man, Dir: dir}
	for _, f := range man.Files {
		existing, err := m.NodeByHash(f.Hash)
		if errors.Is(err, store.ErrNotFound) {
			plan.NewFiles = append(plan.NewFiles, f)
			continue
		}
		if err != nil {
			return nil, err
		}
		fields := metaDiff(existing, f)
		if len(fields) == 0 {
			plan.Identical++
			continue
		}
		plan.Conflicts = append(plan.Conflicts, Conflict{
			Hash:     f.Hash,
			NodeID:   existing.ID,
			Incoming: f,
			Fields:   fields,
		})
	}
	return plan, nil
}

// Execute applies an analyzed plan. New nodes and edges are inserted;
// conflicting metadata is overwritten only when overwrite is set. Every
// diff artifact is verified against its manifest checksum before it is
// accepted.
func Execute(m *storage.Manager, plan *Plan, overwrite bool) (*Result, error) {
	result := &Result{NodesSkipped: plan.Identical}

	for _, f := range plan.NewFiles {
		if _, err := m.ImportNode(f.Hash, f.Filename, f.Format, f.RawHeader, nodeMeta(f)); err != nil {
			return nil, fmt.Errorf("importing node %s: %w", f.Hash[:16], err)
		}
		result.NodesAdded++
	}

	for _, c := range plan.Conflicts {
		if !overwrite {
			result.NodesSkipped++
			continue
		}
		if err := m.OverwriteMetadata(c.NodeID, nodeMeta(c.Incoming)); err != nil {
			return nil, fmt.Errorf("overwriting node %s: %w", c.Hash[:16], err)
		}
		result.NodesOverwritten++
	}

	pairs, err := pairEdges(plan.Manifest.Diffs)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		added, err := importEdgePair(m, plan.Dir, p)
		if err != nil {
			return nil, err
		}
		if added {
			result.EdgesAdded += 2
		} else {
			result.EdgesSkipped += 2
		}
	}
	return result, nil
}

// edgePair holds both directions of one link.
type edgePair struct {
	forward ManifestEdge
	reverse ManifestEdge
}

func pairEdges(edges []ManifestEdge) ([]edgePair, error) {
	grouped := make(map[string][]ManifestEdge)
	var order []string
	for _, e := range edges {
		key := pairKey(e.SourceHash, e.TargetHash)
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], e)
	}

	var pairs []edgePair
	for _, key := range order {
		group := grouped[key]
		if len(group) != 2 || group[0].SourceHash != group[1].TargetHash {
			return nil, fmt.Errorf("package is missing the reverse diff for %s", group[0].DiffFile)
		}
		pairs = append(pairs, edgePair{forward: group[0], reverse: group[1]})
	}
	return pairs, nil
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func importEdgePair(m *storage.Manager, dir string, p edgePair) (bool, error) {
	fwd, err := manifestEdgeInsert(m, p.forward)
	if err != nil {
		return false, err
	}
	rev, err := manifestEdgeInsert(m, p.reverse)
	if err != nil {
		return false, err
	}
	fwdPatch, err := os.ReadFile(filepath.Join(dir, DiffsSubdir, p.forward.DiffFile))
	if err != nil {
		return false, fmt.Errorf("reading packaged diff: %w", err)
	}
	revPatch, err := os.ReadFile(filepath.Join(dir, DiffsSubdir, p.reverse.DiffFile))
	if err != nil {
		return false, fmt.Errorf("reading packaged diff: %w", err)
	}

	_, _, err = m.ImportEdge(fwd, rev, fwdPatch, revPatch)
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func manifestEdgeInsert(m *storage.Manager, e ManifestEdge) (store.EdgeInsert, error) {
	src, err := m.NodeByHash(e.SourceHash)
	if err != nil {
		return store.EdgeInsert{}, fmt.Errorf("edge source %s: %w", e.SourceHash[:16], err)
	}
	dst, err := m.NodeByHash(e.TargetHash)
	if err != nil {
		return store.EdgeInsert{}, fmt.Errorf("edge target %s: %w", e.TargetHash[:16], err)
	}
	return store.EdgeInsert{
		SourceID:     src.ID,
		TargetID:     dst.ID,
		DiffPath:     e.DiffFile,
		DiffSize:     e.DiffSize,
		DiffChecksum: e.Checksum,
	}, nil
}

func nodeMeta(f ManifestNode) store.Metadata {
	return store.Metadata{
		Title:       f.Title,
		SourceURL:   f.SourceURL,
		Version:     f.Version,
		ReleaseDate: f.ReleaseDate,
		Tags:        f.Tags,
		Description: f.Description,
	}
}

func metaDiff(existing *store.Node, in ManifestNode) []FieldDiff {
	var fields []FieldDiff
	check := func(name, have, want string) {
		if have != want {
			fields = append(fields, FieldDiff{Name: name, Existing: have, Incoming: want})
		}
	}
	check("title", existing.Title, in.Title)
	check("source_url", existing.SourceURL, in.SourceURL)
	check("version", existing.Version, in.Version)
	check("release_date", existing.ReleaseDate, in.ReleaseDate)
	check("tags", strings.Join(existing.Tags, ","), strings.Join(in.Tags, ","))
	check("description", existing.Description, in.Description)
	return fields
}
