package rom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// HashLength is the length of a full hex-encoded content fingerprint.
const HashLength = 64

// Identity is the content identity of one file: the fingerprint of its
// payload plus everything needed to reproduce the original bytes.
type Identity struct {
	// Hash is the hex-encoded SHA-256 fingerprint of the payload.
	Hash string
	// Format is the detected format name (FormatRaw when headerless).
	Format string
	// Header holds the exact header bytes captured at ingest; nil for
	// headerless formats.
	Header []byte
	// Payload is the hashed, diffable region.
	Payload []byte
	// Filename is the base name of the source file, when known.
	Filename string
}

// Fingerprint computes the hex-encoded SHA-256 digest of a payload.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Identify splits data into header and payload and fingerprints the payload.
func Identify(data []byte, filename string) (Identity, error) {
	header, payload, format, err := Split(data)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Hash:     Fingerprint(payload),
		Format:   format,
		Header:   header,
		Payload:  payload,
		Filename: filename,
	}, nil
}

// IdentifyFile reads and identifies the file at path.
func IdentifyFile(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, fmt.Errorf("read %s: %w", path, err)
	}
	id, err := Identify(data, filepath.Base(path))
	if err != nil {
		return Identity{}, fmt.Errorf("identify %s: %w", path, err)
	}
	return id, nil
}

// IsHash reports whether s is a full hex-encoded fingerprint.
func IsHash(s string) bool {
	return len(s) == HashLength && isHex(s)
}

// IsHashPrefix reports whether s could be a partial fingerprint. Prefixes
// shorter than four characters are not accepted as identities.
func IsHashPrefix(s string) bool {
	return len(s) >= 4 && len(s) < HashLength && isHex(s)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ShortHash truncates a full hash to n characters for human display.
// Internal comparisons always use the full fingerprint.
func ShortHash(hash string, n int) string {
	if n <= 0 || n >= len(hash) {
		return hash
	}
	return hash[:n]
}
