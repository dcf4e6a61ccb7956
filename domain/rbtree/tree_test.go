package rbtree

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t testing.TB, opts ...Option) *Tree[int64] {
	t.Helper()
	tree, err := New[int64](opts...)
	require.NoError(t, err)
	return tree
}

func insertAll(t testing.TB, tree *Tree[int64], keys ...int64) []Ref[int64] {
	t.Helper()
	refs := make([]Ref[int64], 0, len(keys))
	for _, k := range keys {
		r, err := tree.Insert(k)
		require.NoError(t, err)
		refs = append(refs, r)
	}
	return refs
}

func TestRBTreeInsertFindErase(t *testing.T) {
	tree := newTree(t)
	r1, err := tree.Insert(100)
	require.NoError(t, err)
	require.Equal(t, int64(100), r1.Key())

	r2, ok := tree.Find(100)
	require.True(t, ok)
	require.Equal(t, r1, r2)

	insertAll(t, tree, 200)
	mn, err := tree.Min()
	require.NoError(t, err)
	assert.Equal(t, int64(100), mn.Key())
	mx, err := tree.Max()
	require.NoError(t, err)
	assert.Equal(t, int64(200), mx.Key())

	require.NoError(t, tree.Erase(r1))
	_, ok = tree.Find(100)
	assert.False(t, ok)
	assert.Equal(t, 1, tree.Len())
	require.NoError(t, tree.Verify())
}

// --- Scenarios ---

func TestInsertThreeKeys(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 10, 20, 5)

	out := make([]int64, 3)
	n := tree.ToSortedArray(out)
	require.Equal(t, 3, n)
	assert.Equal(t, []int64{5, 10, 20}, out)
	assert.Equal(t, int64(10), tree.root.key)
	assert.Equal(t, Black, tree.root.color)
	require.NoError(t, tree.Verify())
}

func TestAscendingInsertStaysBalanced(t *testing.T) {
	tree := newTree(t)
	for k := int64(1); k <= 7; k++ {
		insertAll(t, tree, k)
		require.NoError(t, tree.Verify())
	}
	st := tree.Stats()
	assert.Equal(t, 7, st.Nodes)
	assert.LessOrEqual(t, st.Height, 4)
	assert.Equal(t, int64(2), tree.root.key)
}

func TestEraseRootWithTwoChildren(t *testing.T) {
	tree := newTree(t)
	refs := insertAll(t, tree, 10, 5, 20, 15, 25)
	require.Equal(t, int64(10), tree.root.key)
	require.NotSame(t, tree.nil, tree.root.left)
	require.NotSame(t, tree.nil, tree.root.right)

	require.NoError(t, tree.Erase(refs[0]))
	assert.Equal(t, int64(15), tree.root.key)
	assert.Equal(t, []int64{5, 15, 20, 25}, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestEraseSmallTreeRoot(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 10, 5, 1)
	require.Equal(t, int64(5), tree.root.key)

	require.True(t, tree.EraseKey(5))
	assert.Equal(t, int64(10), tree.root.key)
	assert.Equal(t, []int64{1, 10}, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestInsertDuplicateKeys(t *testing.T) {
	tree := newTree(t)
	refs := insertAll(t, tree, 5, 5, 5)
	assert.NotSame(t, refs[0].n, refs[1].n)
	assert.Equal(t, []int64{5, 5, 5}, tree.Keys())
	assert.Equal(t, 3, tree.Count(5))

	r, ok := tree.Find(5)
	require.True(t, ok)
	assert.Equal(t, int64(5), r.Key())
	require.NoError(t, tree.Verify())

	require.NoError(t, tree.Erase(r))
	r, ok = tree.Find(5)
	require.True(t, ok, "duplicates remain")
	assert.Equal(t, int64(5), r.Key())
	assert.Equal(t, 2, tree.Count(5))
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := newTree(t)
	_, err := tree.Min()
	assert.True(t, errors.Is(err, ErrEmptyTree))
	_, err = tree.Max()
	assert.True(t, errors.Is(err, ErrEmptyTree))
	assert.True(t, tree.Empty())
}

func TestRepeatedInsertEraseSameKey(t *testing.T) {
	tree := newTree(t)
	for i := 0; i < 100; i++ {
		r, err := tree.Insert(42)
		require.NoError(t, err)
		require.NoError(t, tree.Erase(r))
	}
	assert.True(t, tree.Empty())
	assert.Same(t, tree.nil, tree.root)
	assert.Equal(t, 0, tree.pool.Live())
	assert.Equal(t, 0, tree.Destroy())
}

// --- Edge Cases ---

func TestEraseNonExistentKey(t *testing.T) {
	tree := newTree(t)
	assert.False(t, tree.EraseKey(123))
	insertAll(t, tree, 1, 2, 3)
	assert.False(t, tree.EraseKey(123))
	assert.Equal(t, 3, tree.Len())
}

func TestEraseStaleRef(t *testing.T) {
	tree := newTree(t)
	refs := insertAll(t, tree, 1, 2, 3)
	require.NoError(t, tree.Erase(refs[1]))
	assert.True(t, errors.Is(tree.Erase(refs[1]), ErrInvalidNode))

	// the released node may be recycled for the next key
	insertAll(t, tree, 4)
	assert.True(t, errors.Is(tree.Erase(refs[1]), ErrInvalidNode))
	assert.Equal(t, []int64{1, 3, 4}, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestEraseForeignAndZeroRef(t *testing.T) {
	a := newTree(t)
	b := newTree(t)
	ra := insertAll(t, a, 7)[0]
	insertAll(t, b, 7)

	assert.True(t, errors.Is(b.Erase(ra), ErrInvalidNode))
	assert.True(t, errors.Is(b.Erase(Ref[int64]{}), ErrInvalidNode))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, a.Len())
}

func TestAllocationFailureLeavesTreeIntact(t *testing.T) {
	tree := newTree(t, WithMaxNodes(3))
	insertAll(t, tree, 3, 1, 2)

	_, err := tree.Insert(4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocation))
	assert.Equal(t, []int64{1, 2, 3}, tree.Keys())
	require.NoError(t, tree.Verify())

	require.True(t, tree.EraseKey(1))
	insertAll(t, tree, 4)
	assert.Equal(t, []int64{2, 3, 4}, tree.Keys())
}

func TestNewRejectsNegativeBudget(t *testing.T) {
	tree, err := New[int64](WithMaxNodes(-1))
	assert.Nil(t, tree)
	assert.True(t, errors.Is(err, ErrAllocation))
}

func TestDestroy(t *testing.T) {
	tree := newTree(t)
	for k := int64(0); k < 1000; k++ {
		insertAll(t, tree, k%37)
	}
	for k := int64(0); k < 10; k++ {
		require.True(t, tree.EraseKey(k))
	}
	pool := tree.pool
	assert.Equal(t, 990, tree.Destroy())
	assert.Equal(t, 0, pool.Live())

	assert.Equal(t, 0, tree.Destroy())
	assert.True(t, tree.Empty())
	assert.Equal(t, 0, tree.Len())
	_, err := tree.Insert(1)
	assert.True(t, errors.Is(err, ErrDestroyed))
	_, ok := tree.Find(1)
	assert.False(t, ok)
	_, err = tree.Min()
	assert.True(t, errors.Is(err, ErrEmptyTree))
	assert.True(t, errors.Is(tree.Verify(), ErrDestroyed))
	assert.Empty(t, tree.Keys())
}

func TestToSortedArrayCapacity(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 9, 3, 7, 1, 5)

	small := make([]int64, 2)
	assert.Equal(t, 2, tree.ToSortedArray(small))
	assert.Equal(t, []int64{1, 3}, small)

	big := make([]int64, 10)
	assert.Equal(t, 5, tree.ToSortedArray(big))
	assert.Equal(t, []int64{1, 3, 5, 7, 9}, big[:5])

	assert.Equal(t, 0, tree.ToSortedArray(nil))
}

func TestSuccessorPredecessor(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 10, 20, 20, 30)

	r, ok := tree.Successor(20)
	require.True(t, ok)
	assert.Equal(t, int64(30), r.Key())
	r, ok = tree.Successor(5)
	require.True(t, ok)
	assert.Equal(t, int64(10), r.Key())
	_, ok = tree.Successor(30)
	assert.False(t, ok)

	r, ok = tree.Predecessor(20)
	require.True(t, ok)
	assert.Equal(t, int64(10), r.Key())
	_, ok = tree.Predecessor(10)
	assert.False(t, ok)
}

func TestAscendDescendStopEarly(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 4, 2, 6, 1, 3, 5, 7)

	var up []int64
	tree.Ascend(func(k int64) bool {
		up = append(up, k)
		return k < 3
	})
	assert.Equal(t, []int64{1, 2, 3}, up)

	var down []int64
	tree.Descend(func(k int64) bool {
		down = append(down, k)
		return true
	})
	assert.Equal(t, []int64{7, 6, 5, 4, 3, 2, 1}, down)
}

func TestRotationsPreserveOrder(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 4, 2, 6, 1, 3, 5, 7)
	before := tree.Keys()

	root := tree.root
	right := root.right
	tree.rotateLeft(root)
	assert.Same(t, right, tree.root)
	assert.Same(t, root, tree.root.left)
	assert.Same(t, tree.nil, tree.root.parent)
	assert.Equal(t, before, tree.Keys())

	tree.rotateRight(tree.root)
	assert.Same(t, root, tree.root)
	assert.Equal(t, before, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestStringKeys(t *testing.T) {
	tree, err := New[string]()
	require.NoError(t, err)
	for _, k := range []string{"pear", "apple", "fig", "apple"} {
		_, err := tree.Insert(k)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"apple", "apple", "fig", "pear"}, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tree := newTree(t)
	insertAll(t, tree, 4, 2, 6, 1, 3, 5, 7)
	require.NoError(t, tree.Verify())

	tree.root.color = Red
	assert.Error(t, tree.Verify())
	tree.root.color = Black

	tree.root.left.key = 100
	assert.Error(t, tree.Verify())
}

func TestColorString(t *testing.T) {
	assert.Equal(t, "RED", Red.String())
	assert.Equal(t, "BLACK", Black.String())
	assert.Equal(t, "UNKNOWN", Color(9).String())
}
