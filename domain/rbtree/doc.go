// Package rbtree implements an ordered multiset of keys on a red-black
// tree. Insert, Find and Erase run in O(log n).
//
// Every tree owns one black sentinel node that stands in for all absent
// children and for the root's parent, so rotations and fixups never branch
// on nil. Nodes come from a per-tree pool; Erase returns a node to the pool
// immediately and Destroy returns all of them.
//
// Equal keys are allowed. A new key equal to existing ones is placed to
// their right, and Find returns whichever copy it meets first.
//
// A Tree is single-writer: callers sharing one across goroutines must
// serialize access themselves.
package rbtree
