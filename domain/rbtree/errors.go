package rbtree

import "github.com/cockroachdb/errors"

var (
	// ErrAllocation is returned when a node cannot be allocated. The tree
	// is left exactly as it was before the call.
	ErrAllocation = errors.New("rbtree: node allocation failed")

	// ErrEmptyTree is returned by Min and Max on a tree with no keys.
	ErrEmptyTree = errors.New("rbtree: empty tree")

	// ErrInvalidNode is returned by Erase for a ref that is zero, was
	// issued by another tree, or whose node has already been erased.
	ErrInvalidNode = errors.New("rbtree: node not owned by tree")

	// ErrDestroyed is returned by mutations after Destroy.
	ErrDestroyed = errors.New("rbtree: tree destroyed")
)
