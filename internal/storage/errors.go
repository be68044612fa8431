package storage

import "fmt"

// UnreachableError reports that no diff path connects two nodes.
type UnreachableError struct {
	SourceHash string
	TargetHash string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("no diff path from %s to %s", short(e.SourceHash), short(e.TargetHash))
}

// IntegrityError reports corrupted data: a reconstructed payload whose
// fingerprint does not match the stored hash, or a diff artifact whose
// bytes do not match their recorded checksum. The operation that hit it
// stops without returning the bad bytes.
type IntegrityError struct {
	Op     string
	Detail string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: integrity violation: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: integrity violation: %s", e.Op, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
