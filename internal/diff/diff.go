// Package diff produces and applies binary patches between ROM payloads
// and manages the on-disk patch artifacts.
package diff

import (
	"fmt"

	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
)

// Create computes a binary patch that transforms old into new.
func Create(old, new []byte) ([]byte, error) {
	patch, err := bsdiff.Bytes(old, new)
	if err != nil {
		return nil, fmt.Errorf("creating patch: %w", err)
	}
	return patch, nil
}

// Apply reconstructs the target payload by applying patch to old.
func Apply(old, patch []byte) ([]byte, error) {
	out, err := bspatch.Bytes(old, patch)
	if err != nil {
		return nil, fmt.Errorf("applying patch: %w", err)
	}
	return out, nil
}
