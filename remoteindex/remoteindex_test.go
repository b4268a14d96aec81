package remoteindex

import (
	"testing"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_AddDeduplicatesTailOnly(t *testing.T) {
	sch := scheme.NewMortonScheme(scheme.ClassQuad)
	idx := New()
	e := sch.Encode(3, 5)

	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e)
	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e) // duplicate, same tail
	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e) // duplicate again

	bucket, ok := idx.Bucket(1)
	require.True(t, ok)
	require.Len(t, bucket.Trees, 1)
	assert.Len(t, bucket.Trees[0].Elements, 1)
}

func TestIndex_AddDoesNotDedupeNonConsecutive(t *testing.T) {
	sch := scheme.NewMortonScheme(scheme.ClassQuad)
	idx := New()
	e1 := sch.Encode(3, 5)
	e2 := sch.Encode(3, 6)

	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e1)
	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e2)
	idx.Add(sch, 1, forest.GlobalTreeID(7), scheme.ClassQuad, e1) // not adjacent to its own prior occurrence

	bucket, _ := idx.Bucket(1)
	assert.Len(t, bucket.Trees[0].Elements, 3)
}

func TestIndex_AddAppendsNewTreeAtTailOnly(t *testing.T) {
	sch := scheme.NewMortonScheme(scheme.ClassQuad)
	idx := New()
	e := sch.Encode(1, 1)

	idx.Add(sch, 1, forest.GlobalTreeID(1), scheme.ClassQuad, e)
	idx.Add(sch, 1, forest.GlobalTreeID(2), scheme.ClassQuad, e)
	idx.Add(sch, 1, forest.GlobalTreeID(1), scheme.ClassQuad, e) // tree 1 again, but not at tail

	bucket, _ := idx.Bucket(1)
	require.Len(t, bucket.Trees, 3)
	assert.Equal(t, forest.GlobalTreeID(1), bucket.Trees[0].GlobalID)
	assert.Equal(t, forest.GlobalTreeID(2), bucket.Trees[1].GlobalID)
	assert.Equal(t, forest.GlobalTreeID(1), bucket.Trees[2].GlobalID)
}

func TestIndex_RanksInInsertionOrder(t *testing.T) {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	idx := New()
	e := sch.Encode(0, 0)

	idx.Add(sch, 3, forest.GlobalTreeID(0), scheme.ClassLine, e)
	idx.Add(sch, 1, forest.GlobalTreeID(0), scheme.ClassLine, e)
	idx.Add(sch, 2, forest.GlobalTreeID(0), scheme.ClassLine, e)

	assert.Equal(t, []forest.Rank{3, 1, 2}, idx.Ranks())
}

func TestIndex_CopiesAreIndependentOfSource(t *testing.T) {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	idx := New()
	e := sch.Encode(1, 1)

	idx.Add(sch, 1, forest.GlobalTreeID(0), scheme.ClassLine, e)
	e[0] = 9 // mutate the caller's buffer after insertion

	bucket, _ := idx.Bucket(1)
	assert.EqualValues(t, 1, bucket.Trees[0].Elements[0][0])
}
