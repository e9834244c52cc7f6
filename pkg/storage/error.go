package storage

import "fmt"

// NotFoundError is returned when a node doesn't exist in the store.
type NotFoundError struct {
	Hash string
}

func (e NotFoundError) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

// AmbiguousError is returned when a hash prefix matches more than one node.
type AmbiguousError struct {
	Prefix  string
	Matches int
}

func (e AmbiguousError) Error() string {
	return fmt.Sprintf("hash prefix %q is ambiguous (%d matches)", e.Prefix, e.Matches)
}
