package exchange

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvalin-labs/romgraph/internal/storage"
	"github.com/dvalin-labs/romgraph/internal/store"
)

// Export writes the store's contents into destDir as a manifest plus
// diff artifacts. When scopeRef is non-empty only the connected
// component containing that node is exported.
func Export(m *storage.Manager, destDir, scopeRef string) (*Manifest, error) {
	var nodes []store.Node
	var err error
	if scopeRef != "" {
		nodes, err = m.Component(scopeRef)
	} else {
		nodes, err = m.Nodes()
	}
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	included := make(map[int64]string, len(nodes))
	for _, n := range nodes {
		included[n.ID] = n.Hash
	}

	edges, err := m.Edges()
	if err != nil {
		return nil, err
	}

	diffsDir := filepath.Join(destDir, DiffsSubdir)
	if err := os.MkdirAll(diffsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	man := &Manifest{
		Version:      ManifestVersion,
		DataRevision: store.DataRevision,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, n := range nodes {
		man.Files = append(man.Files, ManifestNode{
			Hash:        n.Hash,
			Filename:    n.Filename,
			Format:      n.Format,
			RawHeader:   n.RawHeader,
			Title:       n.Title,
			SourceURL:   n.SourceURL,
			Version:     n.Version,
			ReleaseDate: n.ReleaseDate,
			Tags:        n.Tags,
			Description: n.Description,
		})
	}

	for _, e := range edges {
		srcHash, okSrc := included[e.SourceID]
		dstHash, okDst := included[e.TargetID]
		if !okSrc || !okDst {
			continue
		}
		data, err := m.DiffBytes(e)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(diffsDir, e.DiffPath), data, 0o644); err != nil {
			return nil, fmt.Errorf("writing diff %s: %w", e.DiffPath, err)
		}
		man.Diffs = append(man.Diffs, ManifestEdge{
			SourceHash: srcHash,
			TargetHash: dstHash,
			DiffFile:   e.DiffPath,
			DiffSize:   e.DiffSize,
			Checksum:   e.DiffChecksum,
		})
	}

	if err := writeManifest(destDir, man); err != nil {
		return nil, err
	}
	return man, nil
}
