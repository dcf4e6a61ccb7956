package rbtree

// ToSortedArray writes keys in ascending order into dst and returns how
// many were written. It stops at len(dst); a short dst truncates silently.
func (t *Tree[K]) ToSortedArray(dst []K) int {
	if t.nil == nil {
		return 0
	}
	cnt := 0
	for n := t.minNode(t.root); n != t.nil && cnt < len(dst); n = t.next(n) {
		dst[cnt] = n.key
		cnt++
	}
	return cnt
}

// Keys returns every key in ascending order.
func (t *Tree[K]) Keys() []K {
	out := make([]K, t.Len())
	return out[:t.ToSortedArray(out)]
}

// Ascend calls fn for each key in ascending order until fn returns false.
func (t *Tree[K]) Ascend(fn func(K) bool) {
	if t.nil == nil {
		return
	}
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.key) {
			return
		}
	}
}

// Descend calls fn for each key in descending order until fn returns false.
func (t *Tree[K]) Descend(fn func(K) bool) {
	if t.nil == nil {
		return
	}
	for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.key) {
			return
		}
	}
}
