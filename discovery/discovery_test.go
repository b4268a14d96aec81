package discovery

import (
	"testing"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineForest is a minimal two-rank forest.Query over a single ClassLine
// tree split at its midpoint, enough to exercise S1 from the testable
// scenarios: rank 0 holds the left half, rank 1 the right half, and
// the boundary between them is the only non-domain face.
type lineForest struct {
	rank     forest.Rank
	sch      *scheme.MortonScheme
	elements []scheme.Element // this rank's local elements, in linear order
	owner    map[uint64]forest.Rank
}

func newLineForest(rank forest.Rank) *lineForest {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	lf := &lineForest{rank: rank, sch: sch, owner: make(map[uint64]forest.Rank)}
	// Level 2: codes 0..3. Rank 0 owns 0,1; rank 1 owns 2,3.
	for code := uint64(0); code < 4; code++ {
		r := forest.Rank(0)
		if code >= 2 {
			r = 1
		}
		lf.owner[code] = r
		if r == rank {
			lf.elements = append(lf.elements, sch.Encode(2, code))
		}
	}
	return lf
}

func (lf *lineForest) Rank() forest.Rank                      { return lf.rank }
func (lf *lineForest) NumLocalTrees() int                     { return 1 }
func (lf *lineForest) TreeClass(t int) scheme.Class           { return scheme.ClassLine }
func (lf *lineForest) GlobalTreeID(t int) forest.GlobalTreeID { return 0 }
func (lf *lineForest) NumElements(t int) int                  { return len(lf.elements) }
func (lf *lineForest) Element(t int, i int) scheme.Element    { return lf.elements[i] }

func (lf *lineForest) NeighborClass(t int, e scheme.Element, f int) scheme.Class {
	return scheme.ClassLine
}

func (lf *lineForest) neighborCode(e scheme.Element, f int) (uint64, bool) {
	level, code := lf.sch.Decode(e)
	_ = level
	if f == 0 { // left face
		if code == 0 {
			return 0, false
		}
		return code - 1, true
	}
	// right face
	if code == 3 {
		return 0, false
	}
	return code + 1, true
}

func (lf *lineForest) FaceNeighbor(t int, e scheme.Element, f int, out scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(2, nc), out)
	return 0, scheme.ClassLine
}

func (lf *lineForest) HalfFaceNeighbors(t int, e scheme.Element, f int, out []scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(2, nc), out[0])
	return 0, scheme.ClassLine
}

func (lf *lineForest) FindOwner(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class) forest.Rank {
	_, code := lf.sch.Decode(e)
	return lf.owner[code]
}

func (lf *lineForest) OwnersAtFace(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class, f int) []forest.Rank {
	return []forest.Rank{lf.FindOwner(tree, e, class)}
}

func TestRun_S1TwoRanksBalanced(t *testing.T) {
	reg := scheme.DefaultRegistry()

	q0 := newLineForest(0)
	ri0 := remoteindex.New()
	Run(q0, reg, ri0, MethodHalfNeighbors)

	require.Equal(t, []forest.Rank{1}, ri0.Ranks())
	bucket0, ok := ri0.Bucket(1)
	require.True(t, ok)
	assert.Equal(t, 1, bucket0.NumElements())

	q1 := newLineForest(1)
	ri1 := remoteindex.New()
	Run(q1, reg, ri1, MethodHalfNeighbors)

	require.Equal(t, []forest.Rank{0}, ri1.Ranks())
	bucket1, ok := ri1.Bucket(0)
	require.True(t, ok)
	assert.Equal(t, 1, bucket1.NumElements())
}

func TestRun_OwnersAtFaceMatchesHalfNeighbors(t *testing.T) {
	reg := scheme.DefaultRegistry()

	q0 := newLineForest(0)
	ri0 := remoteindex.New()
	Run(q0, reg, ri0, MethodOwnersAtFace)

	require.Equal(t, []forest.Rank{1}, ri0.Ranks())
	bucket0, _ := ri0.Bucket(1)
	assert.Equal(t, 1, bucket0.NumElements())
}

func TestRun_S5EmptyRemoteSetWhenAllBoundary(t *testing.T) {
	// A single-rank world: every neighbor resolves to self, so no
	// remote bucket should ever be created.
	reg := scheme.DefaultRegistry()
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	lf := &lineForest{
		rank:     0,
		sch:      sch,
		elements: []scheme.Element{sch.Encode(2, 0), sch.Encode(2, 1), sch.Encode(2, 2), sch.Encode(2, 3)},
		owner:    map[uint64]forest.Rank{0: 0, 1: 0, 2: 0, 3: 0},
	}
	ri := remoteindex.New()
	Run(lf, reg, ri, MethodHalfNeighbors)

	assert.Empty(t, ri.Ranks())
	assert.Equal(t, 0, ri.NumRemoteElements())
}
