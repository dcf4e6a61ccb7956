package rbtree

// Erase removes the node behind ref. The ref must have been issued by this
// tree and not erased since; otherwise ErrInvalidNode is returned and the
// tree is untouched.
func (t *Tree[K]) Erase(ref Ref[K]) error {
	if t.nil == nil {
		return ErrDestroyed
	}
	if !t.owns(ref) {
		return ErrInvalidNode
	}
	t.deleteNode(ref.n)
	t.release(ref.n)
	return nil
}

// EraseKey removes one copy of key. It reports whether a copy was found.
func (t *Tree[K]) EraseKey(key K) bool {
	z := t.search(key)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.release(z)
	return true
}

/******************** Internal helpers ********************/

// transplant puts v in u's slot under u's parent. v.parent is written even
// when v is the sentinel; deleteFixup reads it from there.
func (t *Tree[K]) transplant(u, v *node[K]) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *Tree[K]) deleteNode(z *node[K]) {
	y := z
	yOrigColor := y.color
	var x *node[K]

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == Black {
		t.deleteFixup(x)
	}
}

func (t *Tree[K]) deleteFixup(x *node[K]) {
	for x != t.root && x.color == Black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == Red {
				w.color = Black
				x.parent.color = Red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == Black && w.right.color == Black {
				w.color = Red
				x = x.parent
				continue
			}
			if w.right.color == Black {
				w.left.color = Black
				w.color = Red
				t.rotateRight(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = Black
			w.right.color = Black
			t.rotateLeft(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.color == Red {
				w.color = Black
				x.parent.color = Red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == Black && w.left.color == Black {
				w.color = Red
				x = x.parent
				continue
			}
			if w.left.color == Black {
				w.right.color = Black
				w.color = Red
				t.rotateLeft(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = Black
			w.left.color = Black
			t.rotateRight(x.parent)
			x = t.root
		}
	}
	x.color = Black
}
