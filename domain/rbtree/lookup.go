package rbtree

// Find returns a node holding key. With duplicates, which one is returned
// depends on tree shape.
func (t *Tree[K]) Find(key K) (Ref[K], bool) {
	n := t.search(key)
	if n == t.nil {
		return Ref[K]{}, false
	}
	return n.ref(), true
}

func (t *Tree[K]) Contains(key K) bool {
	return t.search(key) != t.nil
}

// Count returns how many copies of key are stored.
func (t *Tree[K]) Count(key K) int {
	if t.nil == nil {
		return 0
	}
	c := 0
	for n := t.lowerBound(key); n != t.nil && n.key == key; n = t.next(n) {
		c++
	}
	return c
}

func (t *Tree[K]) Min() (Ref[K], error) {
	if t.Empty() {
		return Ref[K]{}, ErrEmptyTree
	}
	return t.minNode(t.root).ref(), nil
}

func (t *Tree[K]) Max() (Ref[K], error) {
	if t.Empty() {
		return Ref[K]{}, ErrEmptyTree
	}
	return t.maxNode(t.root).ref(), nil
}

// Successor returns the smallest key strictly greater than key.
func (t *Tree[K]) Successor(key K) (Ref[K], bool) {
	if t.nil == nil {
		return Ref[K]{}, false
	}
	n := t.root
	succ := t.nil
	for n != t.nil {
		if key < n.key {
			succ = n
			n = n.left
		} else {
			n = n.right
		}
	}
	if succ == t.nil {
		return Ref[K]{}, false
	}
	return succ.ref(), true
}

// Predecessor returns the largest key strictly smaller than key.
func (t *Tree[K]) Predecessor(key K) (Ref[K], bool) {
	if t.nil == nil {
		return Ref[K]{}, false
	}
	n := t.root
	pred := t.nil
	for n != t.nil {
		if key > n.key {
			pred = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if pred == t.nil {
		return Ref[K]{}, false
	}
	return pred.ref(), true
}

/******************** Internal helpers ********************/

func (t *Tree[K]) search(key K) *node[K] {
	if t.nil == nil {
		return nil
	}
	n := t.root
	for n != t.nil {
		if n.key == key {
			return n
		}
		if n.key > key {
			n = n.left
		} else {
			n = n.right
		}
	}
	return t.nil
}

// lowerBound returns the first node, in order, whose key is >= key.
func (t *Tree[K]) lowerBound(key K) *node[K] {
	n := t.root
	lb := t.nil
	for n != t.nil {
		if n.key >= key {
			lb = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return lb
}

func (t *Tree[K]) minNode(n *node[K]) *node[K] {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *Tree[K]) maxNode(n *node[K]) *node[K] {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *Tree[K]) next(n *node[K]) *node[K] {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree[K]) prev(n *node[K]) *node[K] {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}
