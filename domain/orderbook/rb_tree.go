package orderbook

type color uint8

const (
	red   color = 0
	black color = 1
)

type rbNode[K, V any] struct {
	key    K
	value  V
	color  color
	left   *rbNode[K, V]
	right  *rbNode[K, V]
	parent *rbNode[K, V]
}

// rbTree is a red-black tree with a black sentinel. Deletion relinks nodes
// instead of copying keys, so a node pointer held by a caller stays valid
// (and keeps its key) while other nodes are removed.
type rbTree[K, V any] struct {
	root *rbNode[K, V]
	nil  *rbNode[K, V]
	size int
	cmp  func(a, b K) int
}

func newRBTree[K, V any](cmp func(a, b K) int) *rbTree[K, V] {
	nilNode := &rbNode[K, V]{color: black}
	return &rbTree[K, V]{
		root: nilNode,
		nil:  nilNode,
		cmp:  cmp,
	}
}

func (t *rbTree[K, V]) len() int { return t.size }

func (t *rbTree[K, V]) get(key K) (V, bool) {
	n := t.search(key)
	if n == t.nil {
		var zero V
		return zero, false
	}
	return n.value, true
}

// upsert returns the value stored under key, creating it with mk when absent.
func (t *rbTree[K, V]) upsert(key K, mk func() V) V {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		c := t.cmp(key, x.key)
		if c < 0 {
			x = x.left
		} else if c > 0 {
			x = x.right
		} else {
			return x.value
		}
	}

	z := &rbNode[K, V]{
		key:    key,
		value:  mk(),
		color:  red,
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}
	if y == t.nil {
		t.root = z
	} else if t.cmp(z.key, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return z.value
}

func (t *rbTree[K, V]) delete(key K) bool {
	z := t.search(key)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

func (t *rbTree[K, V]) first() *rbNode[K, V] {
	n := t.minNode(t.root)
	if n == t.nil {
		return nil
	}
	return n
}

func (t *rbTree[K, V]) successor(n *rbNode[K, V]) *rbNode[K, V] {
	s := t.next(n)
	if s == t.nil {
		return nil
	}
	return s
}

func (t *rbTree[K, V]) search(key K) *rbNode[K, V] {
	n := t.root
	for n != t.nil {
		c := t.cmp(key, n.key)
		if c < 0 {
			n = n.left
		} else if c > 0 {
			n = n.right
		} else {
			return n
		}
	}
	return t.nil
}

func (t *rbTree[K, V]) minNode(n *rbNode[K, V]) *rbNode[K, V] {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *rbTree[K, V]) next(n *rbNode[K, V]) *rbNode[K, V] {
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

func (t *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree[K, V]) rightRotate(y *rbNode[K, V]) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *rbTree[K, V]) insertFixup(z *rbNode[K, V]) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *rbTree[K, V]) transplant(u, v *rbNode[K, V]) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *rbTree[K, V]) deleteNode(z *rbNode[K, V]) {
	y := z
	yOrigColor := y.color
	var x *rbNode[K, V]

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

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *rbTree[K, V]) deleteFixup(x *rbNode[K, V]) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
