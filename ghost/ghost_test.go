package ghost

import (
	"sync"
	"testing"

	"github.com/notargets/forestghost/discovery"
	"github.com/notargets/forestghost/exchange"
	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoRankLine is the same S1 fixture discovery_test.go uses, duplicated
// here (package-private, tiny) so this package's tests do not depend
// on discovery's internal test helpers.
type twoRankLine struct {
	rank     forest.Rank
	sch      *scheme.MortonScheme
	elements []scheme.Element
	owner    map[uint64]forest.Rank
}

func newTwoRankLine(rank forest.Rank) *twoRankLine {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	lf := &twoRankLine{rank: rank, sch: sch, owner: make(map[uint64]forest.Rank)}
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

func (lf *twoRankLine) Rank() forest.Rank                      { return lf.rank }
func (lf *twoRankLine) NumLocalTrees() int                     { return 1 }
func (lf *twoRankLine) TreeClass(t int) scheme.Class           { return scheme.ClassLine }
func (lf *twoRankLine) GlobalTreeID(t int) forest.GlobalTreeID { return 0 }
func (lf *twoRankLine) NumElements(t int) int                  { return len(lf.elements) }
func (lf *twoRankLine) Element(t int, i int) scheme.Element    { return lf.elements[i] }

func (lf *twoRankLine) NeighborClass(t int, e scheme.Element, f int) scheme.Class {
	return scheme.ClassLine
}

func (lf *twoRankLine) neighborCode(e scheme.Element, f int) (uint64, bool) {
	_, code := lf.sch.Decode(e)
	if f == 0 {
		if code == 0 {
			return 0, false
		}
		return code - 1, true
	}
	if code == 3 {
		return 0, false
	}
	return code + 1, true
}

func (lf *twoRankLine) FaceNeighbor(t int, e scheme.Element, f int, out scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(2, nc), out)
	return 0, scheme.ClassLine
}

func (lf *twoRankLine) HalfFaceNeighbors(t int, e scheme.Element, f int, out []scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	nc, ok := lf.neighborCode(e, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassLine
	}
	lf.sch.Copy(lf.sch.Encode(2, nc), out[0])
	return 0, scheme.ClassLine
}

func (lf *twoRankLine) FindOwner(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class) forest.Rank {
	_, code := lf.sch.Decode(e)
	return lf.owner[code]
}

func (lf *twoRankLine) OwnersAtFace(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class, f int) []forest.Rank {
	return []forest.Rank{lf.FindOwner(tree, e, class)}
}

func TestCreate_S1EndToEnd(t *testing.T) {
	reg := scheme.DefaultRegistry()
	nets := exchange.NewLocalNetwork(2)

	layers := make([]*Layer, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			q := newTwoRankLine(forest.Rank(r))
			layer, err := Create(q, reg, nets[r], TypeFaces, discovery.MethodHalfNeighbors, nil)
			layers[r] = layer
			errs[r] = err
		}(r)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, 1, layers[0].NumGhostElements())
	assert.Equal(t, 1, layers[0].NumRemoteElements())
	assert.Equal(t, 1, layers[1].NumGhostElements())
	assert.Equal(t, 1, layers[1].NumRemoteElements())

	assert.NotEmpty(t, layers[0].DebugString())
}

func TestCreate_TypeNoneSkipsConstruction(t *testing.T) {
	reg := scheme.DefaultRegistry()
	nets := exchange.NewLocalNetwork(1)
	q := newTwoRankLine(0)

	layer, err := Create(q, reg, nets[0], TypeNone, discovery.MethodHalfNeighbors, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, layer.NumGhostElements())
	assert.Equal(t, 0, layer.NumRemoteElements())
}

func TestLayer_DestroyPanicsWithOutstandingRef(t *testing.T) {
	reg := scheme.DefaultRegistry()
	nets := exchange.NewLocalNetwork(1)
	q := newTwoRankLine(0)

	layer, err := Create(q, reg, nets[0], TypeNone, discovery.MethodHalfNeighbors, nil)
	require.NoError(t, err)

	layer.Ref()
	assert.Panics(t, func() { layer.Destroy() })
}
