package rbtree

// Insert adds key and returns a ref to its node. Equal keys are kept;
// a new key equal to existing ones descends to their right.
func (t *Tree[K]) Insert(key K) (Ref[K], error) {
	if t.nil == nil {
		return Ref[K]{}, ErrDestroyed
	}

	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		if x.key > key {
			x = x.left
		} else {
			x = x.right
		}
	}

	z, err := t.alloc(key, y)
	if err != nil {
		return Ref[K]{}, err
	}
	if y == t.nil {
		t.root = z
	} else if y.key > key {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	return z.ref(), nil
}

func (t *Tree[K]) insertFixup(z *node[K]) {
	for z.parent.color == Red {
		if z.parent == z.parent.parent.left {
			uncle := z.parent.parent.right
			if uncle.color == Red {
				z.parent.color = Black
				uncle.color = Black
				z.parent.parent.color = Red
				z = z.parent.parent
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = Black
			z.parent.parent.color = Red
			t.rotateRight(z.parent.parent)
		} else {
			uncle := z.parent.parent.left
			if uncle.color == Red {
				z.parent.color = Black
				uncle.color = Black
				z.parent.parent.color = Red
				z = z.parent.parent
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = Black
			z.parent.parent.color = Red
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.color = Black
}
