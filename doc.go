// Package art implements an adaptive radix trie: an ordered, byte-wise
// trie whose internal branching nodes change representation (Node4,
// Node16, Node48, Node256) as the number of outgoing edges grows or
// shrinks, trading memory for lookup cost the way a B-tree trades fanout
// for depth.
//
// Keys are opaque byte strings; values are opaque byte slices owned by
// the caller. The trie is not safe for concurrent use — callers that
// need concurrent access must serialize it themselves, the same
// discipline this package's own allocator assumes internally.
package art
