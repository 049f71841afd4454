package art

// Tree is an adaptive radix trie mapping byte-string keys to
// byte-slice values. It is not safe for concurrent use; callers that
// need concurrent access must serialize their own calls, the same way
// the allocator beneath it assumes exclusive access for the duration
// of every operation.
type Tree struct {
	allocator artAllocator
	root      artNode
}

// New returns an empty Tree. The allocator's arenas are sized lazily
// on first use rather than up front, so an unused Tree carries no
// backing storage.
func New() *Tree {
	t := &Tree{root: nullArtNode}
	t.allocator.init()
	return t
}

// Get returns the value associated with key, or ErrNotFound.
func (t *Tree) Get(key []byte) ([]byte, error) {
	lf := t.search(Key(key))
	if lf == nil {
		return nil, ErrNotFound
	}
	return t.allocator.getValue(lf.vAddr), nil
}

// Set inserts or updates the value associated with key.
func (t *Tree) Set(key, value []byte) error {
	if value == nil {
		return ErrNilValue
	}
	return t.insert(Key(key), value)
}

// Delete removes key's entry, if any, restructuring the trie along
// the path to it (shrinking or collapsing nodes as needed). Deleting
// an absent key returns ErrNotFound.
func (t *Tree) Delete(key []byte) error {
	return t.remove(Key(key))
}

// Close frees every internal node reachable from the root. Leaf and
// value records stay in their arenas, which have no free list. The
// Tree is empty and reusable afterward.
func (t *Tree) Close() {
	t.deleteSubtree(t.root)
	t.root = nullArtNode
}

// --- lookup ---------------------------------------------------------

func (t *Tree) search(key Key) *leaf {
	a := &t.allocator
	current := t.root
	depth := uint32(0)
	for {
		if current.isNull() {
			return nil
		}
		if current.isLeaf() {
			lf := a.getLeaf(current.addr)
			if lf.match(key) {
				return lf
			}
			return nil
		}
		base := nodeBase(a, current)
		if base.prefixLen > 0 {
			matched := t.matchDeep(current, base, key, depth)
			if matched != uint32(base.prefixLen) {
				return nil
			}
			depth += uint32(base.prefixLen)
		}
		if !key.valid(int(depth)) {
			if !base.hasInplaceLeaf() {
				return nil
			}
			lf := a.getLeaf(base.inplaceLeaf)
			if lf.match(key) {
				return lf
			}
			return nil
		}
		current = findChild(a, current, key.charAt(int(depth)))
		depth++
	}
}

// matchDeep compares key against a node's logical prefix, recovering
// bytes beyond the physically stored maxPrefixLen window from any
// leaf under the node — every leaf in a subtree shares the same true
// prefix, so the leftmost one is as good a witness as any.
func (t *Tree) matchDeep(current artNode, base *inode, key Key, depth uint32) uint32 {
	matched := base.match(key, depth)
	if matched < maxPrefixLen || uint32(base.prefixLen) <= maxPrefixLen {
		return matched
	}
	lf, _, _, ok := leftmostLeaf(&t.allocator, current, 0)
	if !ok {
		return matched
	}
	witness := t.allocator.getLeaf(lf.addr).getKey()
	limit := depth + uint32(base.prefixLen)
	i := depth + maxPrefixLen
	for i < limit && key.valid(int(i)) && witness.valid(int(i)) && key[i] == witness[i] {
		i++
	}
	return i - depth
}

// --- insertion -------------------------------------------------------

func (t *Tree) newLeafWithValue(key Key, value []byte) artNode {
	addr, lf := t.allocator.allocLeaf(key)
	t.setValue(addr, lf, value)
	return artNode{kind: typeLeaf, addr: addr}
}

func (t *Tree) setValue(addr nodeAddr, l *leaf, value []byte) {
	if t.allocator.trySwapValue(l.vAddr, value) {
		return
	}
	l.vAddr = t.allocator.allocValue(addr, value)
}

func (t *Tree) insert(key Key, value []byte) error {
	a := &t.allocator
	if t.root.isNull() {
		t.root = t.newLeafWithValue(key, value)
		return nil
	}

	parent := nullArtNode
	var parentByte byte
	current := t.root
	depth := uint32(0)

	for {
		if current.isLeaf() {
			existing := a.getLeaf(current.addr)
			if existing.match(key) {
				t.setValue(current.addr, existing, value)
				return nil
			}
			existingKey := existing.getKey()
			lcp := longestCommonPrefix(existingKey, key, depth)
			split := t.splitLeaf(current, existingKey, key, value, depth, lcp)
			t.attach(parent, parentByte, split)
			return nil
		}

		base := nodeBase(a, current)
		if base.prefixLen > 0 {
			matched := t.matchDeep(current, base, key, depth)
			if matched != uint32(base.prefixLen) {
				split := t.splitPrefix(current, base, key, value, depth, matched)
				t.attach(parent, parentByte, split)
				return nil
			}
			depth += uint32(base.prefixLen)
		}

		if !key.valid(int(depth)) {
			if base.hasInplaceLeaf() {
				existing := a.getLeaf(base.inplaceLeaf)
				if existing.match(key) {
					t.setValue(base.inplaceLeaf, existing, value)
					return nil
				}
				contractViolation("two distinct keys cannot both terminate at the same depth")
			}
			base.inplaceLeaf = t.newLeafWithValue(key, value).addr
			return nil
		}

		b := key.charAt(int(depth))
		child := findChild(a, current, b)
		if child.isNull() {
			t.addChildGrowing(current, b, t.newLeafWithValue(key, value))
			return nil
		}
		parent, parentByte = current, b
		current = child
		depth++
	}
}

// seedNode4 places two children — at most one of which may terminate
// exactly at this depth, becoming the inplace leaf — into a freshly
// allocated, empty node4.
func seedNode4(a *artAllocator, self artNode, n4 *node4, b1 byte, ends1 bool, c1 artNode, b2 byte, ends2 bool, c2 artNode) {
	switch {
	case ends1 && ends2:
		contractViolation("two distinct keys cannot both terminate at the same split depth")
	case ends1:
		n4.inplaceLeaf = c1.addr
		n4.keys[0], n4.children[0] = b2, c2
		n4.childrenCount = 1
		reparent(a, c2, self, 0)
	case ends2:
		n4.inplaceLeaf = c2.addr
		n4.keys[0], n4.children[0] = b1, c1
		n4.childrenCount = 1
		reparent(a, c1, self, 0)
	default:
		n4.populate(a, self, b1, c1, b2, c2)
	}
}

// splitLeaf replaces a leaf that collides with a new key at depth
// with a fresh node4 holding both, path-compressing their common run
// of bytes (lcp) as the new node4's prefix.
func (t *Tree) splitLeaf(existingLeaf artNode, existingKey, newKey Key, value []byte, depth, lcp uint32) artNode {
	a := &t.allocator
	addr, n4 := a.allocNode4()
	self := artNode{kind: typeNode4, addr: addr}
	n4.setPrefix(newKey[depth:], lcp)

	nd := depth + lcp
	newLeaf := t.newLeafWithValue(newKey, value)
	b1, ends1 := existingKey.charAt(int(nd)), !existingKey.valid(int(nd))
	b2, ends2 := newKey.charAt(int(nd)), !newKey.valid(int(nd))
	seedNode4(a, self, n4, b1, ends1, existingLeaf, b2, ends2, newLeaf)
	return self
}

// splitPrefix handles a mismatch discovered partway through an
// existing internal node's compressed prefix: everything up to the
// mismatch becomes a new node4's prefix, the existing node keeps its
// remaining tail (losing the byte that now distinguishes it), and the
// new key's leaf becomes the new node4's other child.
func (t *Tree) splitPrefix(current artNode, base *inode, key Key, value []byte, depth, mismatch uint32) artNode {
	a := &t.allocator
	addr, n4 := a.allocNode4()
	self := artNode{kind: typeNode4, addr: addr}
	n4.setPrefix(key[depth:], mismatch)

	oldPrefixByte := t.byteAt(current, base, depth, depth+mismatch)

	if uint32(base.prefixLen) <= maxPrefixLen {
		tailLen := uint32(base.prefixLen) - mismatch - 1
		var tail [maxPrefixLen]byte
		copy(tail[:tailLen], base.prefix[mismatch+1:base.prefixLen])
		base.prefixLen = uint8(tailLen)
		base.prefix = tail
	} else {
		tailLen := uint32(base.prefixLen) - mismatch - 1
		var tail [maxPrefixLen]byte
		for i := uint32(0); i < tailLen && i < maxPrefixLen; i++ {
			tail[i] = t.byteAt(current, base, depth, depth+mismatch+1+i)
		}
		base.prefixLen = uint8(tailLen)
		base.prefix = tail
	}

	newLeaf := t.newLeafWithValue(key, value)
	nb, ends := key.charAt(int(depth+mismatch)), !key.valid(int(depth+mismatch))
	seedNode4(a, self, n4, oldPrefixByte, false, current, nb, ends, newLeaf)
	return self
}

// byteAt reads the byte at absolute key position pos, which lies
// somewhere inside current's logical prefix (depth is current's own
// starting depth, so pos-depth is the offset into that prefix).
// prefix[0] corresponds to absolute depth depth, same indexing as
// setPrefix/match, so the stored branch offsets by depth before
// indexing. It falls back to a witness leaf, indexed by the absolute
// pos directly, when the offset lies beyond the physically stored
// prefix window, same as matchDeep.
func (t *Tree) byteAt(current artNode, base *inode, depth, pos uint32) byte {
	off := pos - depth
	if off < maxPrefixLen {
		return base.prefix[off]
	}
	lf, _, _, ok := leftmostLeaf(&t.allocator, current, 0)
	if !ok {
		contractViolation("byteAt: no witness leaf under node with long prefix")
	}
	witness := t.allocator.getLeaf(lf.addr).getKey()
	return witness.charAt(int(pos))
}

// attach splices newSelf into the slot that used to hold whatever
// child of parent was reached via parentByte (or sets the root, if
// parent is the null tagged pointer), and updates newSelf's own back
// reference to match.
func (t *Tree) attach(parent artNode, parentByte byte, newSelf artNode) {
	a := &t.allocator
	if parent.isNull() {
		t.root = newSelf
		reparent(a, newSelf, nullArtNode, 0)
		return
	}
	pos := posInParentForByte(a, parent, parentByte)
	replaceChildAt(a, parent, pos, newSelf)
	reparent(a, newSelf, parent, pos)
}

func posInParentForByte(a *artAllocator, parent artNode, b byte) uint16 {
	switch parent.kind {
	case typeNode4:
		return uint16(a.getNode4(parent.addr).indexOf(b))
	case typeNode16:
		return uint16(a.getNode16(parent.addr).indexOf(b))
	case typeNode48, typeNode256:
		return uint16(b)
	default:
		unreachable("posInParentForByte")
		return 0
	}
}

// addChildGrowing adds child at key byte b to current, constructing
// and splicing in the next-larger variant first if current is full.
func (t *Tree) addChildGrowing(current artNode, b byte, child artNode) {
	a := &t.allocator
	if !nodeIsFull(a, current) {
		switch current.kind {
		case typeNode4:
			a.getNode4(current.addr).add(a, current, b, child)
		case typeNode16:
			a.getNode16(current.addr).add(a, current, b, child)
		case typeNode48:
			a.getNode48(current.addr).add(a, current, b, child)
		case typeNode256:
			a.getNode256(current.addr).add(a, current, b, child)
		default:
			unreachable("addChildGrowing")
		}
		return
	}

	base := nodeBase(a, current)
	parent, parentPos := base.parent, base.posInParent

	var grown artNode
	switch current.kind {
	case typeNode4:
		grown, _ = newNode16FromNode4(a, a.getNode4(current.addr), b, child)
		a.freeNode4(current.addr)
	case typeNode16:
		grown, _ = newNode48FromNode16(a, a.getNode16(current.addr), b, child)
		a.freeNode16(current.addr)
	case typeNode48:
		grown, _ = newNode256FromNode48(a, a.getNode48(current.addr), b, child)
		a.freeNode48(current.addr)
	case typeNode256:
		unreachable("node256 has no grown variant")
	default:
		unreachable("addChildGrowing")
	}

	if parent.isNull() {
		t.root = grown
	} else {
		replaceChildAt(a, parent, parentPos, grown)
	}
}

// --- removal ---------------------------------------------------------

func (t *Tree) remove(key Key) error {
	a := &t.allocator
	if t.root.isNull() {
		return ErrNotFound
	}
	if t.root.isLeaf() {
		lf := a.getLeaf(t.root.addr)
		if !lf.match(key) {
			return ErrNotFound
		}
		t.root = nullArtNode
		return nil
	}

	current := t.root
	depth := uint32(0)
	for {
		base := nodeBase(a, current)
		if base.prefixLen > 0 {
			matched := t.matchDeep(current, base, key, depth)
			if matched != uint32(base.prefixLen) {
				return ErrNotFound
			}
			depth += uint32(base.prefixLen)
		}

		if !key.valid(int(depth)) {
			if !base.hasInplaceLeaf() {
				return ErrNotFound
			}
			lf := a.getLeaf(base.inplaceLeaf)
			if !lf.match(key) {
				return ErrNotFound
			}
			base.inplaceLeaf = nullAddr
			if current.kind == typeNode4 {
				t.collapseIfOrphaned(current, a.getNode4(current.addr))
			}
			return nil
		}

		b := key.charAt(int(depth))
		child := findChild(a, current, b)
		if child.isNull() {
			return ErrNotFound
		}
		if child.isLeaf() {
			lf := a.getLeaf(child.addr)
			if !lf.match(key) {
				return ErrNotFound
			}
			t.removeChild(current, b)
			return nil
		}
		current = child
		depth++
	}
}

// removeChild removes the child reached by key byte b from parent,
// shrinking parent into the next-smaller variant (or, for node4 at
// minimum size, collapsing it entirely) if the removal would take it
// below its minimum occupancy.
func (t *Tree) removeChild(parent artNode, b byte) {
	a := &t.allocator
	switch parent.kind {
	case typeNode4:
		n4 := a.getNode4(parent.addr)
		idx := n4.indexOf(b)
		if idx < 0 {
			contractViolation("removeChild: node4 missing key byte %#x", b)
		}
		if n4.childrenCount == node4MinSize && !n4.hasInplaceLeaf() {
			survivor := n4.leaveLastChild(a, parent, idx)
			reparent(a, survivor, n4.parent, n4.posInParent)
			t.spliceNode(n4.parent, n4.posInParent, survivor)
			a.freeNode4(parent.addr)
			return
		}
		n4.remove(a, parent, idx)
		t.collapseIfOrphaned(parent, n4)

	case typeNode16:
		n16 := a.getNode16(parent.addr)
		idx := n16.indexOf(b)
		if idx < 0 {
			contractViolation("removeChild: node16 missing key byte %#x", b)
		}
		if n16.childrenCount == node16MinSize {
			newSelf, _ := newNode4FromNode16(a, n16, idx)
			t.spliceNode(n16.parent, n16.posInParent, newSelf)
			a.freeNode16(parent.addr)
			return
		}
		n16.remove(a, parent, idx)

	case typeNode48:
		n48 := a.getNode48(parent.addr)
		if n48.childrenCount == node48MinSize {
			newSelf, _ := newNode16FromNode48(a, n48, b)
			t.spliceNode(n48.parent, n48.posInParent, newSelf)
			a.freeNode48(parent.addr)
			return
		}
		n48.remove(a, b)

	case typeNode256:
		n256 := a.getNode256(parent.addr)
		if n256.childrenCount == node256MinSize {
			newSelf, _ := newNode48FromNode256(a, n256, b)
			t.spliceNode(n256.parent, n256.posInParent, newSelf)
			a.freeNode256(parent.addr)
			return
		}
		n256.remove(b)

	default:
		unreachable("removeChild")
	}
}

// collapseIfOrphaned handles the two ways a node4 can be left as pure
// path-compression overhead after a removal: holding only an inplace
// leaf and no keyed children at all (reachable when one of two keys
// sharing a split point was itself a strict prefix of the other), or
// holding exactly one keyed child and no inplace leaf (reachable when
// the inplace leaf that used to justify keeping the node around is the
// entry that got removed). Either way the node4 is spliced out in
// favor of whichever single entry it still holds.
func (t *Tree) collapseIfOrphaned(self artNode, n4 *node4) {
	a := &t.allocator
	switch {
	case n4.childrenCount == 0 && n4.hasInplaceLeaf():
		survivor := artNode{kind: typeLeaf, addr: n4.inplaceLeaf}
		t.spliceNode(n4.parent, n4.posInParent, survivor)
		a.freeNode4(self.addr)
	case n4.childrenCount == 1 && !n4.hasInplaceLeaf():
		survivor := n4.leaveOnlyChild(a, self)
		reparent(a, survivor, n4.parent, n4.posInParent)
		t.spliceNode(n4.parent, n4.posInParent, survivor)
		a.freeNode4(self.addr)
	}
}

func (t *Tree) spliceNode(oldParent artNode, oldPos uint16, newSelf artNode) {
	if oldParent.isNull() {
		t.root = newSelf
		return
	}
	replaceChildAt(&t.allocator, oldParent, oldPos, newSelf)
}

// --- teardown ---------------------------------------------------------

func (t *Tree) deleteSubtree(n artNode) {
	a := &t.allocator
	if n.isNull() {
		return
	}
	if n.isLeaf() {
		return
	}
	switch n.kind {
	case typeNode4:
		node := a.getNode4(n.addr)
		node.deleteSubtree(a, t)
		a.freeNode4(n.addr)
	case typeNode16:
		node := a.getNode16(n.addr)
		node.deleteSubtree(a, t)
		a.freeNode16(n.addr)
	case typeNode48:
		node := a.getNode48(n.addr)
		node.deleteSubtree(a, t)
		a.freeNode48(n.addr)
	case typeNode256:
		node := a.getNode256(n.addr)
		node.deleteSubtree(a, t)
		a.freeNode256(n.addr)
	default:
		unreachable("deleteSubtree")
	}
}
