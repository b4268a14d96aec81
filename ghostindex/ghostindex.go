// Package ghostindex is the per-tree accumulator of incoming ghost
// elements, with hash lookups from global tree id and from sender rank
// to position (spec §4.4).
package ghostindex

import (
	"fmt"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
)

// Tree is one GhostTree: every received element for a single global
// tree id, with elements from one sender rank contiguous within it.
type Tree struct {
	GlobalID forest.GlobalTreeID
	Class    scheme.Class
	Elements []scheme.Element
}

// Offset records where a sender rank's contribution begins.
type Offset struct {
	TreeIndex    int
	ElementIndex int
}

// RunEntry is one (global id, class, elements) group within a single
// sender's run, exactly as the wire codec hands trees to AppendRun.
type RunEntry struct {
	GlobalID forest.GlobalTreeID
	Class    scheme.Class
	Elements []scheme.Element
}

// Layer is the Ghost Index: the sequence of GhostTrees plus the lookup
// tables spec §3 requires. It is built exclusively by AppendRun and,
// once constructed, is read-only.
type Layer struct {
	trees         []*Tree
	globalToIndex map[forest.GlobalTreeID]int
	offsets       map[forest.Rank]Offset
	lastRank      forest.Rank
	haveLastRank  bool
	numElements   int
}

// New returns an empty Layer.
func New() *Layer {
	return &Layer{
		globalToIndex: make(map[forest.GlobalTreeID]int),
		offsets:       make(map[forest.Rank]Offset),
	}
}

// AppendRun ingests every element rank sent for this run. Runs must be
// ingested in ascending sender rank (spec §4.4's ordering contract); a
// violation is a programming error in the caller (Exchange), not a
// recoverable condition, so it panics rather than returning an error.
func (l *Layer) AppendRun(rank forest.Rank, run []RunEntry) {
	if l.haveLastRank && rank <= l.lastRank {
		panic(fmt.Sprintf("ghostindex: runs must be ingested in ascending rank order, got rank %d after %d", rank, l.lastRank))
	}

	firstTreeIndex := -1
	firstElementIndex := 0

	for _, entry := range run {
		idx, ok := l.globalToIndex[entry.GlobalID]
		if !ok {
			idx = len(l.trees)
			l.trees = append(l.trees, &Tree{GlobalID: entry.GlobalID, Class: entry.Class})
			l.globalToIndex[entry.GlobalID] = idx
		}
		tree := l.trees[idx]
		if tree.Class != entry.Class {
			panic(fmt.Sprintf("ghostindex: global tree %d parsed with class %s, expected %s", entry.GlobalID, entry.Class, tree.Class))
		}

		if firstTreeIndex == -1 {
			firstTreeIndex = idx
			firstElementIndex = len(tree.Elements)
		}

		tree.Elements = append(tree.Elements, entry.Elements...)
		l.numElements += len(entry.Elements)
	}

	if firstTreeIndex == -1 {
		// An empty run cannot occur by construction (spec §7.3): a
		// RemoteBucket with zero elements cannot exist. Still record the
		// rank's offset as "right after everything ingested so far" so a
		// lookup for it does not fail.
		firstTreeIndex = len(l.trees)
	}

	l.offsets[rank] = Offset{TreeIndex: firstTreeIndex, ElementIndex: firstElementIndex}
	l.lastRank = rank
	l.haveLastRank = true
}

// NumTrees returns the number of GhostTrees.
func (l *Layer) NumTrees() int { return len(l.trees) }

// Tree returns the GhostTree at index i. Out-of-range i is a contract
// violation (spec §6), not an error.
func (l *Layer) Tree(i int) *Tree { return l.trees[i] }

// TreeIndexForGlobalID returns the current array index of the GhostTree
// with the given global id, in amortized O(1).
func (l *Layer) TreeIndexForGlobalID(g forest.GlobalTreeID) (int, bool) {
	idx, ok := l.globalToIndex[g]
	return idx, ok
}

// Offset returns the ingestion offset recorded for rank.
func (l *Layer) Offset(rank forest.Rank) (Offset, bool) {
	off, ok := l.offsets[rank]
	return off, ok
}

// NumElements is the total number of ghost elements across all trees.
func (l *Layer) NumElements() int { return l.numElements }
