package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports that an identity resolved to no stored node or edge.
var ErrNotFound = errors.New("not found")

// ErrDuplicate reports that an insert collided with an existing unique
// identity or edge pair.
var ErrDuplicate = errors.New("already exists")

// AmbiguousError reports that a hash prefix matched more than one node.
// Candidates holds the full hashes of every match.
type AmbiguousError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("hash prefix %q is ambiguous: matches %s",
		e.Prefix, strings.Join(e.Candidates, ", "))
}
