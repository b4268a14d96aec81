// Package meshforest provides reference forest.Query implementations:
// a single-tree linear chain for the spec's 1-D test scenarios (used by
// ghostctl's demo command and this package's tests), and a multi-tree,
// METIS-partitioned quad forest for scenario S6's cross-tree case (used
// by this package's tests).
package meshforest

import (
	"sort"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
)

// LinearChainForest is a single ClassLine tree uniformly refined to a
// fixed level and partitioned across ranks by contiguous code ranges,
// the simplest forest that can exercise every discovery.Method and
// every ghost scenario in spec §8 except S6 (which needs more than one
// tree).
type LinearChainForest struct {
	rank    forest.Rank
	sch     *scheme.MortonScheme
	offsets []uint64 // offsets[r]..offsets[r+1] is rank r's code range
	local   []scheme.Element
}

// NewLinearChainForest builds a chain of 2^level elements split across
// len(offsets)-1 ranks by offsets, a cumulative element-count table
// exactly like a p4est/t8code partition table (offsets[0]==0,
// offsets[len-1]==2^level).
func NewLinearChainForest(rank forest.Rank, level uint8, offsets []uint64) *LinearChainForest {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	lf := &LinearChainForest{rank: rank, sch: sch, offsets: offsets}
	for code := offsets[rank]; code < offsets[rank+1]; code++ {
		lf.local = append(lf.local, sch.Encode(level, code))
	}
	return lf
}

func (lf *LinearChainForest) numCodes() uint64 { return lf.offsets[len(lf.offsets)-1] }

func (lf *LinearChainForest) ownerOf(code uint64) forest.Rank {
	// offsets is sorted ascending; find the partition whose range
	// contains code via the same binary search a real partition table
	// lookup would use.
	r := sort.Search(len(lf.offsets)-1, func(i int) bool { return lf.offsets[i+1] > code })
	return forest.Rank(r)
}

func (lf *LinearChainForest) Rank() forest.Rank                     { return lf.rank }
func (lf *LinearChainForest) NumLocalTrees() int                     { return 1 }
func (lf *LinearChainForest) TreeClass(t int) scheme.Class           { return scheme.ClassLine }
func (lf *LinearChainForest) GlobalTreeID(t int) forest.GlobalTreeID { return 0 }
func (lf *LinearChainForest) NumElements(t int) int                  { return len(lf.local) }
func (lf *LinearChainForest) Element(t int, i int) scheme.Element    { return lf.local[i] }

func (lf *LinearChainForest) NeighborClass(t int, e scheme.Element, f int) scheme.Class {
	return scheme.ClassLine
}

func (lf *LinearChainForest) neighborCode(e scheme.Element, f int) (uint64, bool) {
	_, code := lf.sch.Decode(e)
	if f == 0 {
		if code == 0 {
			return 0, false
		}
		return code - 1, true
	}
	if code == lf.numCodes()-1 {
		return 0, false
	}
	return code + 1, true
}

func (lf *LinearChainForest) FaceNeighbor(t int, e scheme.Element, f int, out scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	level, _ := lf.sch.Decode(e)
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(level, nc), out)
	return 0, scheme.ClassLine
}

func (lf *LinearChainForest) HalfFaceNeighbors(t int, e scheme.Element, f int, out []scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	level, _ := lf.sch.Decode(e)
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(level, nc), out[0])
	return 0, scheme.ClassLine
}

func (lf *LinearChainForest) FindOwner(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class) forest.Rank {
	_, code := lf.sch.Decode(e)
	return lf.ownerOf(code)
}

func (lf *LinearChainForest) OwnersAtFace(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class, f int) []forest.Rank {
	return []forest.Rank{lf.FindOwner(tree, e, class)}
}
