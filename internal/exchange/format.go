// Package exchange packages diff-graph contents for transfer: an export
// writes a manifest plus the diff artifacts into a directory, and an
// import replays such a directory into another store after conflict
// analysis and checksum verification.
package exchange

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestVersion is the package layout version written on export.
const ManifestVersion = 1

// ManifestName is the index file at the root of an export directory.
const ManifestName = "index.json"

// DiffsSubdir holds the diff artifacts inside an export directory.
const DiffsSubdir = "diffs"

// Manifest is the index.json describing one exported package.
type Manifest struct {
	Version      int            `json:"version"`
	DataRevision int            `json:"data_revision"`
	ExportedAt   string         `json:"exported_at"`
	Files        []ManifestNode `json:"files"`
	Diffs        []ManifestEdge `json:"diffs"`
}

// ManifestNode carries one node's identity and metadata.
type ManifestNode struct {
	Hash        string   `json:"hash"`
	Filename    string   `json:"filename,omitempty"`
	Format      string   `json:"format"`
	RawHeader   []byte   `json:"raw_header,omitempty"`
	Title       string   `json:"title,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	Version     string   `json:"version,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ManifestEdge carries one directed diff. SourceHash and TargetHash
// reference entries in Files; DiffFile names an artifact under the
// package's diffs directory.
type ManifestEdge struct {
	SourceHash string `json:"source_hash"`
	TargetHash string `json:"target_hash"`
	DiffFile   string `json:"diff_file"`
	DiffSize   int64  `json:"diff_size"`
	Checksum   string `json:"checksum"`
}

func writeManifest(dir string, man *Manifest) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if man.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported package version %d", man.Version)
	}
	return &man, nil
}
