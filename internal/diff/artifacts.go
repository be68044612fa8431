package diff

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// ErrChecksum reports that an artifact's content does not match the
// checksum recorded when it was written.
var ErrChecksum = errors.New("diff artifact checksum mismatch")

// artifactHashLen is the number of hash characters from each endpoint
// used in an artifact filename.
const artifactHashLen = 16

// Artifacts stores patch files in a flat directory, named after the
// hashes of the payloads they connect.
type Artifacts struct {
	dir string
}

// NewArtifacts returns an artifact store rooted at dir, creating the
// directory if needed.
func NewArtifacts(dir string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating diffs directory: %w", err)
	}
	return &Artifacts{dir: dir}, nil
}

// Name returns the artifact filename for a patch from srcHash to dstHash.
func Name(srcHash, dstHash string) string {
	return fmt.Sprintf("%s_%s.bsdiff", prefix(srcHash), prefix(dstHash))
}

func prefix(hash string) string {
	if len(hash) > artifactHashLen {
		return hash[:artifactHashLen]
	}
	return hash
}

// Checksum returns the hex-encoded xxhash digest of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Dir returns the directory artifacts are stored in.
func (a *Artifacts) Dir() string { return a.dir }

// Path returns the absolute path for an artifact name.
func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.dir, name)
}

// Write stores patch under name and returns its checksum.
func (a *Artifacts) Write(name string, patch []byte) (string, error) {
	if err := os.WriteFile(a.Path(name), patch, 0o644); err != nil {
		return "", fmt.Errorf("writing diff artifact %s: %w", name, err)
	}
	return Checksum(patch), nil
}

// Read loads the artifact and verifies it against wantChecksum. An
// empty wantChecksum skips verification.
func (a *Artifacts) Read(name, wantChecksum string) ([]byte, error) {
	data, err := os.ReadFile(a.Path(name))
	if err != nil {
		return nil, fmt.Errorf("reading diff artifact %s: %w", name, err)
	}
	if wantChecksum != "" && Checksum(data) != wantChecksum {
		return nil, fmt.Errorf("%s: %w", name, ErrChecksum)
	}
	return data, nil
}

// Remove deletes the artifact. A missing file is not an error.
func (a *Artifacts) Remove(name string) error {
	err := os.Remove(a.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing diff artifact %s: %w", name, err)
	}
	return nil
}
