package art

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable diagnostic rendering of the trie to w,
// one line per node, indented by depth: address, variant tag, prefix
// bytes, parent address, child count, each key byte, and each child
// recursively. It exists for debugging and tests, not as a
// serialization format — nothing in this package reads a dump back in.
func (t *Tree) Dump(w io.Writer) {
	dumpNode(w, &t.allocator, t.root, 0)
}

func dumpNode(w io.Writer, a *artAllocator, n artNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.isNull() {
		fmt.Fprintf(w, "%s<nil>\n", indent)
		return
	}
	if n.isLeaf() {
		lf := a.getLeaf(n.addr)
		fmt.Fprintf(w, "%sleaf@%v key=%x value=%x\n", indent, n.addr, lf.getKey(), a.getValue(lf.vAddr))
		return
	}

	base := nodeBase(a, n)
	fmt.Fprintf(w, "%s%s@%v prefix=%x parent=%v children=%d\n",
		indent, kindName(n.kind), n.addr, base.prefix[:min8(base.prefixLen, maxPrefixLen)], base.parent.addr, base.childrenCount)

	if base.hasInplaceLeaf() {
		fmt.Fprintf(w, "%s  (inplace)\n", indent)
		dumpNode(w, a, artNode{kind: typeLeaf, addr: base.inplaceLeaf}, depth+2)
	}

	switch n.kind {
	case typeNode4:
		node := a.getNode4(n.addr)
		for i := 0; i < int(node.childrenCount); i++ {
			fmt.Fprintf(w, "%s  [%#02x]\n", indent, node.keys[i])
			dumpNode(w, a, node.children[i], depth+2)
		}
	case typeNode16:
		node := a.getNode16(n.addr)
		for i := 0; i < int(node.childrenCount); i++ {
			fmt.Fprintf(w, "%s  [%#02x]\n", indent, node.keys[i])
			dumpNode(w, a, node.children[i], depth+2)
		}
	case typeNode48:
		node := a.getNode48(n.addr)
		node.forEachChild(func(b byte, child artNode) {
			fmt.Fprintf(w, "%s  [%#02x]\n", indent, b)
			dumpNode(w, a, child, depth+2)
		})
	case typeNode256:
		node := a.getNode256(n.addr)
		node.forEachChild(func(b byte, child artNode) {
			fmt.Fprintf(w, "%s  [%#02x]\n", indent, b)
			dumpNode(w, a, child, depth+2)
		})
	default:
		unreachable("dumpNode")
	}
}

func kindName(k nodeKind) string {
	switch k {
	case typeNode4:
		return "node4"
	case typeNode16:
		return "node16"
	case typeNode48:
		return "node48"
	case typeNode256:
		return "node256"
	case typeLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}
