package codecache

// rbColor is red or black, the standard red-black tree invariant colors.
type rbColor uint8

const (
	red rbColor = iota
	black
)

// rbNode is one entry in the PC -> method-region index, keyed by the
// region's start address. Regions never move or shrink once inserted
// (the cache is append-only, per spec.md §4.I), so this tree only ever
// grows; no delete operation is implemented.
type rbNode struct {
	region      *Region
	left, right, parent *rbNode
	color       rbColor
}

// rbTree is a standard left-leaning-free (CLRS-style) red-black tree
// keyed on Region.Start, supporting O(log n) insert and the
// less-than/greater-or-equal descent spec.md §4.I's find(pc) describes:
// "left if pc < start, right if pc >= end, else return the record."
type rbTree struct {
	root *rbNode
}

func (t *rbTree) insert(r *Region) {
	n := &rbNode{region: r, color: red}
	if t.root == nil {
		n.color = black
		t.root = n
		return
	}
	cur := t.root
	var parent *rbNode
	for cur != nil {
		parent = cur
		if r.Start < cur.region.Start {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	n.parent = parent
	if r.Start < parent.region.Start {
		parent.left = n
	} else {
		parent.right = n
	}
	t.fixupInsert(n)
}

func (t *rbTree) fixupInsert(z *rbNode) {
	for z.parent != nil && z.parent.color == red {
		gp := z.parent.parent
		if gp == nil {
			break
		}
		if z.parent == gp.left {
			uncle := gp.right
			if uncle != nil && uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = black
			gp.color = red
			t.rotateRight(gp)
		} else {
			uncle := gp.left
			if uncle != nil && uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = black
			gp.color = red
			t.rotateLeft(gp)
		}
	}
	t.root.color = black
}

func (t *rbTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rotateRight(x *rbNode) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// find descends the tree per spec.md §4.I's rule: left if pc < start,
// right if pc >= end, else this is the containing region.
func (t *rbTree) find(pc uintptr) *Region {
	cur := t.root
	for cur != nil {
		switch {
		case pc < cur.region.Start:
			cur = cur.left
		case pc >= cur.region.End:
			cur = cur.right
		default:
			return cur.region
		}
	}
	return nil
}

// blackHeight returns the number of black nodes on any root-to-leaf path
// (they are all equal in a valid red-black tree) together with whether
// the no-red-red-child invariant holds; used only by tests.
func (t *rbTree) blackHeight() (height int, valid bool) {
	if t.root != nil && t.root.color != black {
		return 0, false
	}
	h, ok := checkNode(t.root, -1)
	return h, ok
}

func checkNode(n *rbNode, _ int) (int, bool) {
	if n == nil {
		return 1, true
	}
	if n.color == red {
		if (n.left != nil && n.left.color == red) || (n.right != nil && n.right.color == red) {
			return 0, false
		}
	}
	lh, lok := checkNode(n.left, -1)
	rh, rok := checkNode(n.right, -1)
	if !lok || !rok || lh != rh {
		return 0, false
	}
	if n.color == black {
		return lh + 1, true
	}
	return lh, true
}
