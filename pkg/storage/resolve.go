package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/papercomputeco/vilm/pkg/merkle"
)

// Resolve finds the node identified by ref, which is either a full hash or
// a unique hash prefix.
func Resolve(ctx context.Context, d Driver, ref string) (*merkle.Node, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, NotFoundError{}
	}

	node, err := d.Get(ctx, ref)
	if err == nil {
		return node, nil
	}
	var nf NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}

	nodes, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	var match *merkle.Node
	count := 0
	for _, n := range nodes {
		if strings.HasPrefix(n.Hash, ref) {
			match = n
			count++
		}
	}

	switch count {
	case 0:
		return nil, NotFoundError{Hash: ref}
	case 1:
		return match, nil
	default:
		return nil, AmbiguousError{Prefix: ref, Matches: count}
	}
}
