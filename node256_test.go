package art

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocTestNode256(a *artAllocator) (artNode, *node256) {
	addr, n256 := a.allocNode256()
	return artNode{kind: typeNode256, addr: addr}, n256
}

func TestNode256AddAndFindChild(t *testing.T) {
	a := newTestAllocator()
	self, n256 := allocTestNode256(a)
	n256.add(a, self, 0x42, newTestLeaf(a, "a"))

	found := n256.findChild(a, 0x42)
	require.False(t, found.isNull())
	assert.True(t, n256.findChild(a, 0x43).isNull())
}

func TestNode256RemoveClearsSlot(t *testing.T) {
	a := newTestAllocator()
	self, n256 := allocTestNode256(a)
	n256.add(a, self, 0x42, newTestLeaf(a, "a"))
	n256.remove(0x42)
	assert.True(t, n256.children[0x42].isNull())
	assert.Equal(t, uint16(0), n256.childrenCount)
}

func TestNode256LeftmostChildDirectIndex(t *testing.T) {
	a := newTestAllocator()
	self, n256 := allocTestNode256(a)
	n256.add(a, self, 0x80, newTestLeaf(a, "a"))
	n256.add(a, self, 0x05, newTestLeaf(a, "b"))

	_, idx, ok := n256.leftmostChild(0)
	require.True(t, ok)
	assert.Equal(t, 0x05, idx)

	_, _, ok = n256.leftmostChild(0x81)
	assert.False(t, ok)
}

func TestNewNode256FromNode48Grow(t *testing.T) {
	a := newTestAllocator()
	self, n48 := allocTestNode48(a)
	for b := 0; b < node48cap; b++ {
		n48.add(a, self, byte(b), newTestLeaf(a, string(rune(b))))
	}
	require.Equal(t, uint16(node48cap), n48.childrenCount)

	grownSelf, n256 := newNode256FromNode48(a, n48, 0xFF, newTestLeaf(a, "new"))
	require.Equal(t, typeNode256, grownSelf.kind)
	assert.Equal(t, uint16(node48cap+1), n256.childrenCount)
	assert.False(t, n256.findChild(a, 0xFF).isNull())
	assert.False(t, n256.findChild(a, 0x00).isNull())
}
