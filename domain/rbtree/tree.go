package rbtree

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"rbstore/infra/memory"
)

// Tree is a red-black tree holding an ordered multiset of keys.
// It is not safe for concurrent use.
type Tree[K constraints.Ordered] struct {
	root *node[K]
	nil  *node[K] // sentinel (black), one per tree
	pool *memory.Pool[node[K]]
}

type options struct {
	maxNodes int
}

type Option func(*options)

// WithMaxNodes caps the number of keys the tree may hold at once.
// Insert fails with ErrAllocation past the cap. Zero means no cap.
func WithMaxNodes(n int) Option {
	return func(o *options) { o.maxNodes = n }
}

// New constructs an empty tree with a black sentinel.
func New[K constraints.Ordered](opts ...Option) (*Tree[K], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxNodes < 0 {
		return nil, errors.Wrapf(ErrAllocation, "negative node budget %d", o.maxNodes)
	}

	nilNode := &node[K]{color: Black}
	return &Tree[K]{
		root: nilNode,
		nil:  nilNode,
		pool: memory.NewPool(func() *node[K] { return &node[K]{} }, o.maxNodes),
	}, nil
}

// Empty reports whether the tree holds no keys.
func (t *Tree[K]) Empty() bool {
	return t.nil == nil || t.root == t.nil
}

// Len is the number of keys currently stored, counted by the node allocator.
func (t *Tree[K]) Len() int {
	if t.nil == nil {
		return 0
	}
	return t.pool.Live()
}

// Destroy releases every node in post-order, then the sentinel. It returns
// the number of nodes released. The tree must not be used afterwards;
// mutations report ErrDestroyed and queries see an empty tree.
func (t *Tree[K]) Destroy() int {
	if t.nil == nil {
		return 0
	}

	released := 0
	stack := make([]*node[K], 0, 64)
	var last *node[K]
	n := t.root
	for n != t.nil || len(stack) > 0 {
		if n != t.nil {
			stack = append(stack, n)
			n = n.left
			continue
		}
		top := stack[len(stack)-1]
		if top.right != t.nil && top.right != last {
			n = top.right
			continue
		}
		stack = stack[:len(stack)-1]
		last = top
		t.release(top)
		released++
	}

	*t.nil = node[K]{}
	t.nil = nil
	t.root = nil
	return released
}

/******************** Allocation ********************/

func (t *Tree[K]) alloc(key K, parent *node[K]) (*node[K], error) {
	n, err := t.pool.Get()
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "rbtree: insert"), ErrAllocation)
	}
	*n = node[K]{
		key:    key,
		color:  Red,
		left:   t.nil,
		right:  t.nil,
		parent: parent,
		tree:   t,
		gen:    n.gen,
	}
	return n, nil
}

func (t *Tree[K]) release(n *node[K]) {
	*n = node[K]{gen: n.gen + 1}
	t.pool.Put(n)
}

func (t *Tree[K]) owns(r Ref[K]) bool {
	return r.n != nil && r.n != t.nil && r.n.tree == t && r.n.gen == r.gen
}
