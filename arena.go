package art

import (
	"encoding/binary"
	"math"
	"unsafe"

	"go.uber.org/zap"
)

const (
	alignMask = 1<<32 - 8 // 29 bits of 1, 3 bits of 0.

	nullBlockOffset = math.MaxUint32
	maxBlockSize    = 128 << 20
	initBlockSize   = 4 * 1024
)

var (
	nullAddr = nodeAddr{math.MaxUint32, math.MaxUint32}
	endian   = binary.LittleEndian
)

// nodeAddr is an arena-relative address: a block index plus a byte
// offset within that block. It is this package's tagged-pointer
// payload — the Go-idiomatic analogue of a raw pointer, chosen because
// it survives the arena's block slice being reallocated and keeps GC
// pressure to the handful of block-sized buffers rather than one
// allocation per node.
type nodeAddr struct {
	idx uint32
	off uint32
}

func (addr nodeAddr) isNull() bool {
	if addr == nullAddr {
		return true
	}
	if addr.idx == math.MaxUint32 || addr.off == math.MaxUint32 {
		// Should never happen: nothing in this package sets only half
		// of an address to the sentinel value.
		logger().Warn("invalid nodeAddr", zap.Uint32("idx", addr.idx), zap.Uint32("off", addr.off))
		return true
	}
	return false
}

func (addr nodeAddr) store(dst []byte) {
	endian.PutUint32(dst, addr.idx)
	endian.PutUint32(dst[4:], addr.off)
}

func (addr *nodeAddr) load(src []byte) {
	addr.idx = endian.Uint32(src)
	addr.off = endian.Uint32(src[4:])
}

type memArenaBlock struct {
	buf    []byte
	length int
}

type memArena struct {
	initBlockSize int
	blockSize     int
	blocks        []memArenaBlock
	capacity      uint64
}

// fixedSizeArena allocates fixed-size records (internal nodes). Freed
// records are pushed onto a free list and reused on the next
// allocation of the same kind, so grow/shrink churn does not grow the
// arena's memory footprint without bound.
type fixedSizeArena struct {
	memArena
	fixedSize uint32
	freeNodes []nodeAddr
}

// leafArena allocates variable-size leaf records, each carrying its
// own key suffix inline; vlogArena does the same for value-log
// entries. Unlike fixedSizeArena neither has a free list: a leaf or
// value that is no longer reachable stays in its block until the
// whole allocator is discarded.
// Reclaiming variable-size holes would need compaction, which this
// single-threaded, in-memory core does not attempt — callers that
// churn many deletes should expect the arena's footprint to reflect
// historical occupancy, not live occupancy.
type leafArena struct {
	memArena
}

type vlogArena struct {
	memArena
}

type artAllocator struct {
	vlogAllocator    vlogArena
	node4Allocator   fixedSizeArena
	node16Allocator  fixedSizeArena
	node48Allocator  fixedSizeArena
	node256Allocator fixedSizeArena
	leafAllocator    leafArena
	capacity         uint64
}

// init sizes each fixed-size arena to its node variant's actual Go
// struct size, taken via unsafe.Sizeof rather than a hand-maintained
// constant — the arena casts its allocations straight back to typed
// pointers, so the allocated region must never be narrower than the
// struct the allocator will reinterpret it as.
func (a *artAllocator) init() {
	var n4 node4
	var n16 node16
	var n48 node48
	var n256 node256

	a.node4Allocator.fixedSize = uint32(unsafe.Sizeof(n4))
	a.node4Allocator.initBlockSize = int(a.node4Allocator.fixedSize) * 16
	a.node16Allocator.fixedSize = uint32(unsafe.Sizeof(n16))
	a.node16Allocator.initBlockSize = int(a.node16Allocator.fixedSize) * 8
	a.node48Allocator.fixedSize = uint32(unsafe.Sizeof(n48))
	a.node48Allocator.initBlockSize = int(a.node48Allocator.fixedSize) * 4
	a.node256Allocator.fixedSize = uint32(unsafe.Sizeof(n256))
	a.node256Allocator.initBlockSize = int(a.node256Allocator.fixedSize) * 2
	a.leafAllocator.initBlockSize = initBlockSize
	a.vlogAllocator.initBlockSize = initBlockSize
}

func (a *artAllocator) allocNode4() (nodeAddr, *node4) {
	addr, data := a.node4Allocator.alloc()
	n4 := (*node4)(unsafe.Pointer(&data[0]))
	*n4 = node4{inode: inode{parent: nullArtNode, inplaceLeaf: nullAddr}}
	return addr, n4
}

func (a *artAllocator) freeNode4(addr nodeAddr) { a.node4Allocator.free(addr) }

func (a *artAllocator) getNode4(addr nodeAddr) *node4 {
	if addr.isNull() {
		return nil
	}
	data := a.node4Allocator.getData(addr)
	return (*node4)(unsafe.Pointer(&data[0]))
}

func (a *artAllocator) allocNode16() (nodeAddr, *node16) {
	addr, data := a.node16Allocator.alloc()
	n16 := (*node16)(unsafe.Pointer(&data[0]))
	*n16 = node16{inode: inode{parent: nullArtNode, inplaceLeaf: nullAddr}}
	return addr, n16
}

func (a *artAllocator) freeNode16(addr nodeAddr) { a.node16Allocator.free(addr) }

func (a *artAllocator) getNode16(addr nodeAddr) *node16 {
	if addr.isNull() {
		return nil
	}
	data := a.node16Allocator.getData(addr)
	return (*node16)(unsafe.Pointer(&data[0]))
}

func (a *artAllocator) allocNode48() (nodeAddr, *node48) {
	addr, data := a.node48Allocator.alloc()
	n48 := (*node48)(unsafe.Pointer(&data[0]))
	*n48 = node48{inode: inode{parent: nullArtNode, inplaceLeaf: nullAddr}}
	for i := range n48.keys {
		n48.keys[i] = emptyChild
	}
	return addr, n48
}

func (a *artAllocator) freeNode48(addr nodeAddr) { a.node48Allocator.free(addr) }

func (a *artAllocator) getNode48(addr nodeAddr) *node48 {
	if addr.isNull() {
		return nil
	}
	data := a.node48Allocator.getData(addr)
	return (*node48)(unsafe.Pointer(&data[0]))
}

func (a *artAllocator) allocNode256() (nodeAddr, *node256) {
	addr, data := a.node256Allocator.alloc()
	n256 := (*node256)(unsafe.Pointer(&data[0]))
	*n256 = node256{inode: inode{parent: nullArtNode, inplaceLeaf: nullAddr}}
	for i := range n256.children {
		n256.children[i] = nullArtNode
	}
	return addr, n256
}

func (a *artAllocator) freeNode256(addr nodeAddr) { a.node256Allocator.free(addr) }

func (a *artAllocator) getNode256(addr nodeAddr) *node256 {
	if addr.isNull() {
		return nil
	}
	data := a.node256Allocator.getData(addr)
	return (*node256)(unsafe.Pointer(&data[0]))
}

func (a *artAllocator) allocLeaf(key Key) (nodeAddr, *leaf) {
	size := leafSize + len(key)
	addr, data := a.leafAllocator.alloc(size, true)
	lf := (*leaf)(unsafe.Pointer(&data[0]))
	lf.klen = uint16(len(key))
	lf.vAddr = nullAddr
	copy(data[leafSize:], key)
	return addr, lf
}

func (a *artAllocator) getLeaf(addr nodeAddr) *leaf {
	if addr.isNull() {
		return nil
	}
	data := a.leafAllocator.getData(addr)
	return (*leaf)(unsafe.Pointer(&data[0]))
}

func (f *fixedSizeArena) getData(addr nodeAddr) []byte {
	return f.blocks[addr.idx].buf[addr.off : addr.off+f.fixedSize]
}

func (f *fixedSizeArena) alloc() (nodeAddr, []byte) {
	if len(f.freeNodes) > 0 {
		addr := f.freeNodes[len(f.freeNodes)-1]
		f.freeNodes = f.freeNodes[:len(f.freeNodes)-1]
		return addr, f.getData(addr)
	}
	return f.memArena.alloc(int(f.fixedSize), true)
}

func (f *fixedSizeArena) free(addr nodeAddr) {
	f.freeNodes = append(f.freeNodes, addr)
}

func (a *memArena) getData(addr nodeAddr) []byte {
	return a.blocks[addr.idx].buf[addr.off:]
}

func (a *memArena) alloc(size int, align bool) (nodeAddr, []byte) {
	if size > maxBlockSize {
		contractViolation("alloc size %d exceeds max block size %d", size, maxBlockSize)
	}
	if len(a.blocks) == 0 {
		a.enlarge(size, a.initBlockSize)
	}
	addr, data := a.allocInLastBlock(size, align)
	if !addr.isNull() {
		return addr, data
	}
	a.enlarge(size, a.blockSize<<1)
	return a.allocInLastBlock(size, align)
}

func (a *memArena) enlarge(allocSize, blockSize int) {
	a.blockSize = blockSize
	for a.blockSize <= allocSize {
		a.blockSize <<= 1
	}
	if a.blockSize > maxBlockSize {
		a.blockSize = maxBlockSize
	}
	a.blocks = append(a.blocks, memArenaBlock{buf: make([]byte, a.blockSize)})
	a.capacity += uint64(a.blockSize)
}

func (a *memArena) allocInLastBlock(size int, align bool) (nodeAddr, []byte) {
	idx := len(a.blocks) - 1
	offset, data := a.blocks[idx].alloc(size, align)
	if offset == nullBlockOffset {
		return nullAddr, nil
	}
	return nodeAddr{uint32(idx), offset}, data
}

func (a *memArenaBlock) alloc(size int, align bool) (uint32, []byte) {
	offset := a.length
	if align {
		offset = (a.length + 7) & alignMask
	}
	newLen := offset + size
	if newLen > len(a.buf) {
		return nullBlockOffset, nil
	}
	a.length = newLen
	return uint32(offset), a.buf[offset:newLen]
}

const memdbVlogHdrSize = 8 + 4

type vlogHdr struct {
	leafAddr nodeAddr
	valueLen uint32
}

func (hdr *vlogHdr) store(dst []byte) {
	endian.PutUint32(dst, hdr.valueLen)
	hdr.leafAddr.store(dst[4:])
}

func (hdr *vlogHdr) load(src []byte) {
	hdr.valueLen = endian.Uint32(src)
	hdr.leafAddr.load(src[4:])
}

func (a *artAllocator) allocValue(leafAddr nodeAddr, value []byte) nodeAddr {
	addr, data := a.vlogAllocator.alloc(memdbVlogHdrSize+len(value), true)
	copy(data[memdbVlogHdrSize:], value)
	hdr := vlogHdr{leafAddr, uint32(len(value))}
	hdr.store(data[:memdbVlogHdrSize])
	return addr
}

func (a *artAllocator) getValue(valAddr nodeAddr) []byte {
	data := a.vlogAllocator.getData(valAddr)
	var hdr vlogHdr
	hdr.load(data[:memdbVlogHdrSize])
	return data[memdbVlogHdrSize : memdbVlogHdrSize+hdr.valueLen]
}

func (a *artAllocator) trySwapValue(valAddr nodeAddr, val []byte) bool {
	if valAddr.isNull() {
		return false
	}
	data := a.vlogAllocator.getData(valAddr)
	var hdr vlogHdr
	hdr.load(data[:memdbVlogHdrSize])
	if int(hdr.valueLen) < len(val) {
		return false
	}
	copy(data[memdbVlogHdrSize:], val)
	hdr.valueLen = uint32(len(val))
	hdr.store(data[:memdbVlogHdrSize])
	return true
}
