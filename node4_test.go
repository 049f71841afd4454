package art

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator() *artAllocator {
	a := &artAllocator{}
	a.init()
	return a
}

func newTestLeaf(a *artAllocator, key string) artNode {
	addr, lf := a.allocLeaf(Key(key))
	_ = lf
	return artNode{kind: typeLeaf, addr: addr}
}

func allocTestNode4(a *artAllocator) (artNode, *node4) {
	addr, n4 := a.allocNode4()
	return artNode{kind: typeNode4, addr: addr}, n4
}

func TestNode4InsertOrder(t *testing.T) {
	a := newTestAllocator()
	self, n4 := allocTestNode4(a)

	order := []byte{0x20, 0x10, 0x30, 0x05}
	for _, b := range order {
		n4.add(a, self, b, newTestLeaf(a, string(rune(b))))
	}

	require.Equal(t, uint16(4), n4.childrenCount)
	assert.Equal(t, []byte{0x05, 0x10, 0x20, 0x30}, n4.keys[:4])
}

func TestNode4FindChild(t *testing.T) {
	a := newTestAllocator()
	self, n4 := allocTestNode4(a)
	n4.add(a, self, 0x10, newTestLeaf(a, "a"))
	n4.add(a, self, 0x20, newTestLeaf(a, "b"))

	found := n4.findChild(a, 0x10)
	require.False(t, found.isNull())
	assert.True(t, found.isLeaf())

	assert.True(t, n4.findChild(a, 0x99).isNull())
}

func TestNode4RemoveShiftsAndReparents(t *testing.T) {
	a := newTestAllocator()
	self, n4 := allocTestNode4(a)
	n4.add(a, self, 0x10, newTestLeaf(a, "a"))
	n4.add(a, self, 0x20, newTestLeaf(a, "b"))
	childSelf, _ := allocTestNode4(a)
	n4.add(a, self, 0x30, childSelf)

	idx := n4.indexOf(0x20)
	require.Equal(t, 1, idx)
	n4.remove(a, self, idx)

	require.Equal(t, uint16(2), n4.childrenCount)
	assert.Equal(t, byte(0x10), n4.keys[0])
	assert.Equal(t, byte(0x30), n4.keys[1])
	assert.Equal(t, uint16(1), nodeBase(a, childSelf).posInParent)
}

func TestNode4LeaveLastChildMergesPrefix(t *testing.T) {
	a := newTestAllocator()
	self, n4 := allocTestNode4(a)
	n4.setPrefix(Key{0xAA}, 1)

	childSelf, childNode := allocTestNode4(a)
	childNode.setPrefix(Key{0xBB}, 1)

	n4.populate(a, self, 0x01, childSelf, 0x02, newTestLeaf(a, "leaf"))

	survivor := n4.leaveLastChild(a, self, 1) // drop the leaf at index 1
	require.False(t, survivor.isLeaf())
	survivorBase := nodeBase(a, survivor)
	require.Equal(t, uint8(3), survivorBase.prefixLen) // parent prefix(1) + sep(1) + own prefix(1)
	assert.Equal(t, []byte{0xAA, 0x01, 0xBB}, survivorBase.prefix[:3])
	assert.True(t, survivorBase.parent.isNull())
}

func TestNode4PopulateOrdersByKeyByte(t *testing.T) {
	a := newTestAllocator()
	self, n4 := allocTestNode4(a)
	n4.populate(a, self, 0x50, newTestLeaf(a, "b"), 0x10, newTestLeaf(a, "a"))
	assert.Equal(t, byte(0x10), n4.keys[0])
	assert.Equal(t, byte(0x50), n4.keys[1])
}
