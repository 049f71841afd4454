package art

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocTestNode48(a *artAllocator) (artNode, *node48) {
	addr, n48 := a.allocNode48()
	return artNode{kind: typeNode48, addr: addr}, n48
}

func TestNode48AddUsesFirstFreeSlot(t *testing.T) {
	a := newTestAllocator()
	self, n48 := allocTestNode48(a)

	n48.add(a, self, 0x10, newTestLeaf(a, "a"))
	n48.add(a, self, 0x20, newTestLeaf(a, "b"))
	require.Equal(t, uint16(2), n48.childrenCount)
	assert.Equal(t, uint8(0), n48.keys[0x10])
	assert.Equal(t, uint8(1), n48.keys[0x20])

	found := n48.findChild(a, 0x20)
	require.False(t, found.isNull())
}

func TestNode48RemoveFreesSlot(t *testing.T) {
	a := newTestAllocator()
	self, n48 := allocTestNode48(a)
	n48.add(a, self, 0x10, newTestLeaf(a, "a"))
	n48.add(a, self, 0x20, newTestLeaf(a, "b"))

	n48.remove(a, 0x10)
	require.Equal(t, uint16(1), n48.childrenCount)
	assert.Equal(t, uint8(emptyChild), n48.keys[0x10])
	assert.True(t, n48.findChild(a, 0x10).isNull())

	// The freed slot must be reused by the next insert.
	n48.add(a, self, 0x30, newTestLeaf(a, "c"))
	assert.Equal(t, uint8(0), n48.keys[0x30])
}

func TestNode48LeftmostChildScansKeyTable(t *testing.T) {
	a := newTestAllocator()
	self, n48 := allocTestNode48(a)
	n48.add(a, self, 0x50, newTestLeaf(a, "a"))
	n48.add(a, self, 0x10, newTestLeaf(a, "b"))

	_, idx, ok := n48.leftmostChild(0)
	require.True(t, ok)
	assert.Equal(t, 0x10, idx)

	_, idx, ok = n48.leftmostChild(0x11)
	require.True(t, ok)
	assert.Equal(t, 0x50, idx)

	_, _, ok = n48.leftmostChild(0x51)
	assert.False(t, ok)
}

func TestNewNode48FromNode16Grow(t *testing.T) {
	a := newTestAllocator()
	self, n16 := allocTestNode16(a)
	for _, b := range []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0, 0xF0, 0xF5} {
		n16.add(a, self, b, newTestLeaf(a, string(rune(b))))
	}
	require.Equal(t, uint16(16), n16.childrenCount)

	grownSelf, n48 := newNode48FromNode16(a, n16, 0x01, newTestLeaf(a, "new"))
	require.Equal(t, typeNode48, grownSelf.kind)
	assert.Equal(t, uint16(17), n48.childrenCount)
	assert.False(t, n48.findChild(a, 0x01).isNull())
	assert.False(t, n48.findChild(a, 0xF5).isNull())
}

func TestNewNode48FromNode256Shrink(t *testing.T) {
	a := newTestAllocator()
	self, n256 := allocTestNode256(a)
	for _, b := range []byte{0x01, 0x02, 0x03, 0x04} {
		n256.add(a, self, b, newTestLeaf(a, string(rune(b))))
	}

	shrunkSelf, n48 := newNode48FromNode256(a, n256, 0x02)
	require.Equal(t, typeNode48, shrunkSelf.kind)
	assert.Equal(t, uint16(3), n48.childrenCount)
	assert.False(t, n48.findChild(a, 0x01).isNull())
	assert.True(t, n48.findChild(a, 0x02).isNull())
	assert.False(t, n48.findChild(a, 0x04).isNull())
}
