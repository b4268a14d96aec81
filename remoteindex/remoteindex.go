// Package remoteindex is the per-rank, per-tree accumulator of outgoing
// ghost elements built by Discovery (spec §4.3).
package remoteindex

import (
	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
)

// Tree is one RemoteTree: the elements of a single local tree destined
// for a single remote rank, in strictly increasing (level, linear id)
// order with consecutive duplicates suppressed.
type Tree struct {
	GlobalID forest.GlobalTreeID
	Class    scheme.Class
	Elements []scheme.Element
}

// Bucket is one RemoteBucket: every RemoteTree destined for a single
// remote rank, in local tree order, appended only at the tail.
type Bucket struct {
	Rank  forest.Rank
	Trees []*Tree
}

// NumElements sums the element counts of every tree in the bucket.
func (b *Bucket) NumElements() int {
	n := 0
	for _, t := range b.Trees {
		n += len(t.Elements)
	}
	return n
}

// Index is the Remote Index: one Bucket per remote rank this process
// must ship elements to, plus the insertion-ordered list of those
// ranks.
type Index struct {
	order   []forest.Rank
	buckets map[forest.Rank]*Bucket
}

// New returns an empty Index.
func New() *Index {
	return &Index{buckets: make(map[forest.Rank]*Bucket)}
}

// Add records that element e of local tree (identified by gid/class)
// must be shipped to rank. It is idempotent with respect to consecutive
// duplicates per (rank, tree): a repeated emission of the same element
// immediately after itself is a no-op. Discovery relies on this to
// de-duplicate the multiple times a single element can be emitted (once
// per face, once per face child) without a per-tree set, provided it
// visits local elements in linear order.
func (idx *Index) Add(sch scheme.Scheme, rank forest.Rank, gid forest.GlobalTreeID, class scheme.Class, e scheme.Element) {
	bucket, ok := idx.buckets[rank]
	if !ok {
		bucket = &Bucket{Rank: rank}
		idx.buckets[rank] = bucket
		idx.order = append(idx.order, rank)
	}

	var tail *Tree
	if n := len(bucket.Trees); n > 0 {
		tail = bucket.Trees[n-1]
	}
	if tail == nil || tail.GlobalID != gid {
		tail = &Tree{GlobalID: gid, Class: class}
		bucket.Trees = append(bucket.Trees, tail)
	}

	if n := len(tail.Elements); n > 0 {
		last := tail.Elements[n-1]
		lastLevel := sch.Level(last)
		newLevel := sch.Level(e)
		if lastLevel == newLevel && sch.LinearID(last, lastLevel) == sch.LinearID(e, newLevel) {
			// Tail-only dedup: a repeat of the element just emitted.
			return
		}
	}

	copied := sch.New(1)[0]
	sch.Copy(e, copied)
	tail.Elements = append(tail.Elements, copied)
}

// Ranks returns the remote ranks in insertion order.
func (idx *Index) Ranks() []forest.Rank {
	return idx.order
}

// Bucket returns the RemoteBucket for rank, if any.
func (idx *Index) Bucket(rank forest.Rank) (*Bucket, bool) {
	b, ok := idx.buckets[rank]
	return b, ok
}

// NumRemoteElements sums the element counts of every bucket.
func (idx *Index) NumRemoteElements() int {
	n := 0
	for _, r := range idx.order {
		n += idx.buckets[r].NumElements()
	}
	return n
}
