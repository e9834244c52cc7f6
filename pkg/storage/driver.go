// Package storage defines how chat transcripts are persisted.
package storage

import (
	"context"

	"github.com/papercomputeco/vilm/pkg/merkle"
)

// Driver defines the interface for persisting and retrieving nodes in a storage backend.
type Driver interface {
	// Put stores a node. Returns true if the node was newly inserted,
	// false if it already exists. If the node already exists, this is
	// a no-op: content-addressing deduplicates identical turns.
	Put(ctx context.Context, node *merkle.Node) (bool, error)

	// Get retrieves a node by its hash.
	Get(ctx context.Context, hash string) (*merkle.Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// List returns all nodes in the store.
	List(ctx context.Context) ([]*merkle.Node, error)

	// Leaves returns all leaf nodes (conversation heads), newest first.
	Leaves(ctx context.Context) ([]*merkle.Node, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Getter is the subset of Driver needed to walk a conversation.
type Getter interface {
	Get(ctx context.Context, hash string) (*merkle.Node, error)
}

// WalkAncestry follows parent links from hash back to the root.
func WalkAncestry(ctx context.Context, g Getter, hash string) ([]*merkle.Node, error) {
	var path []*merkle.Node
	current := hash

	for {
		node, err := g.Get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}
