package rbtree

import "golang.org/x/exp/constraints"

type Color uint8

const (
	Red   Color = 0
	Black Color = 1
)

func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Black:
		return "BLACK"
	default:
		return "UNKNOWN"
	}
}

type node[K constraints.Ordered] struct {
	key    K
	color  Color
	left   *node[K]
	right  *node[K]
	parent *node[K]

	// owner and generation, checked by Erase. gen is bumped on release so
	// a ref to a recycled node no longer matches.
	tree *Tree[K]
	gen  uint64
}

// Ref is a handle to one stored key. It stays safe to hold after the key
// is erased: Erase rejects it with ErrInvalidNode instead of touching a
// recycled node.
type Ref[K constraints.Ordered] struct {
	n   *node[K]
	gen uint64
	key K
}

func (n *node[K]) ref() Ref[K] {
	return Ref[K]{n: n, gen: n.gen, key: n.key}
}

// Key is the key the ref was issued for.
func (r Ref[K]) Key() K { return r.key }

func (r Ref[K]) IsZero() bool { return r.n == nil }
