package rbtree

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Stats describes the current shape of the tree.
type Stats struct {
	Nodes       int
	Height      int // nodes on the longest root-to-leaf path
	BlackHeight int // black nodes on any root-to-sentinel path, sentinel excluded
	Red         int
	Black       int
}

// MaxHeight is the height bound of a red-black tree holding n keys.
func MaxHeight(n int) int {
	if n <= 0 {
		return 0
	}
	return int(2 * math.Log2(float64(n+1)))
}

var (
	errRedAfterRed = errors.New("rbtree: consecutive red nodes")
	errRedRoot     = errors.New("rbtree: root is red")
	errRedSentinel = errors.New("rbtree: sentinel is red")
)

// Verify walks the whole tree and returns the first invariant violation
// found, or nil.
func (t *Tree[K]) Verify() error {
	if t.nil == nil {
		return ErrDestroyed
	}
	if t.nil.color != Black {
		return errRedSentinel
	}
	if t.root == t.nil {
		if n := t.pool.Live(); n != 0 {
			return errors.Newf("rbtree: empty tree with %d live nodes", n)
		}
		return nil
	}
	if t.root.color != Black {
		return errRedRoot
	}
	if t.root.parent != t.nil {
		return errors.New("rbtree: root parent is not the sentinel")
	}

	var st Stats
	if _, err := t.verify(t.root, nil, nil, 1, &st); err != nil {
		return err
	}
	if live := t.pool.Live(); st.Nodes != live {
		return errors.Newf("rbtree: %d reachable nodes, %d allocated", st.Nodes, live)
	}
	if st.Height > MaxHeight(st.Nodes) {
		return errors.Newf("rbtree: height %d exceeds bound %d for %d nodes",
			st.Height, MaxHeight(st.Nodes), st.Nodes)
	}
	return nil
}

// Stats computes shape statistics. It does not check invariants.
func (t *Tree[K]) Stats() Stats {
	var st Stats
	if t.nil == nil || t.root == t.nil {
		return st
	}
	t.walkStats(t.root, 1, &st)
	for n := t.root; n != t.nil; n = n.left {
		if n.color == Black {
			st.BlackHeight++
		}
	}
	return st
}

func (t *Tree[K]) walkStats(n *node[K], depth int, st *Stats) {
	if n == t.nil {
		return
	}
	st.Nodes++
	if n.color == Red {
		st.Red++
	} else {
		st.Black++
	}
	if depth > st.Height {
		st.Height = depth
	}
	t.walkStats(n.left, depth+1, st)
	t.walkStats(n.right, depth+1, st)
}

// verify returns the black height below n. lo and hi bound the keys
// allowed in n's subtree.
func (t *Tree[K]) verify(n *node[K], lo, hi *K, depth int, st *Stats) (int, error) {
	if n == t.nil {
		return 0, nil
	}
	st.Nodes++
	if depth > st.Height {
		st.Height = depth
	}

	switch n.color {
	case Red:
		st.Red++
		if n.left.color == Red || n.right.color == Red {
			return 0, errors.Wrapf(errRedAfterRed, "at key %v", n.key)
		}
	case Black:
		st.Black++
	default:
		return 0, errors.Newf("rbtree: key %v has invalid color %d", n.key, n.color)
	}

	if n.tree != t {
		return 0, errors.Newf("rbtree: key %v owned by another tree", n.key)
	}
	if n.left != t.nil && n.left.parent != n {
		return 0, errors.Newf("rbtree: left child of %v has wrong parent", n.key)
	}
	if n.right != t.nil && n.right.parent != n {
		return 0, errors.Newf("rbtree: right child of %v has wrong parent", n.key)
	}
	if lo != nil && n.key < *lo {
		return 0, errors.Newf("rbtree: key %v below lower bound %v", n.key, *lo)
	}
	if hi != nil && n.key > *hi {
		return 0, errors.Newf("rbtree: key %v above upper bound %v", n.key, *hi)
	}

	lb, err := t.verify(n.left, lo, &n.key, depth+1, st)
	if err != nil {
		return 0, err
	}
	rb, err := t.verify(n.right, &n.key, hi, depth+1, st)
	if err != nil {
		return 0, err
	}
	if lb != rb {
		return 0, errors.Newf("rbtree: unbalanced blacks {%d,%d} at key %v", lb, rb, n.key)
	}
	if n.color == Black {
		lb++
	}
	return lb, nil
}
