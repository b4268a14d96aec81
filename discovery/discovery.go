// Package discovery walks local elements, enumerates face neighbors,
// resolves remote owners, and populates a Remote Index (spec §4.5).
package discovery

import (
	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
)

// Method selects how Discovery resolves the owning rank(s) of a
// constructed face neighbor.
type Method int

const (
	// MethodHalfNeighbors constructs the num_face_children(e,f)
	// child-sized neighbors (or, for a max-level element, the single
	// full-size neighbor) and resolves one owner per neighbor with
	// FindOwner. This assumes a 2:1-balanced forest and is the
	// default.
	MethodHalfNeighbors Method = iota
	// MethodOwnersAtFace constructs the single full-size face
	// neighbor and resolves the full owner set touching that face
	// with OwnersAtFace, without assuming balance.
	MethodOwnersAtFace
)

// scratch holds the half-face-neighbor buffer Run reuses across
// iterations. It is regrown only when necessary: when the required
// capacity increases or the owning element class changes. owner
// always names the scheme the buffer is currently allocated with, so
// teardown never uses a stale class's scheme even if the final
// iteration's neighbor class differs from the buffer's (the corrected
// behavior; the original frees with the loop's last class).
type scratch struct {
	buf       []scheme.Element
	capacity  int
	owner     scheme.Scheme
	haveOwner bool
}

func (s *scratch) ensure(reg *scheme.Registry, class scheme.Class, n int) []scheme.Element {
	sch := reg.For(class)
	if s.haveOwner && s.capacity >= n && s.owner.Class() == class {
		return s.buf[:n]
	}
	if s.haveOwner {
		s.owner.Destroy(s.buf)
	}
	s.buf = sch.New(n)
	s.capacity = n
	s.owner = sch
	s.haveOwner = true
	return s.buf
}

func (s *scratch) destroy() {
	if s.haveOwner {
		s.owner.Destroy(s.buf)
		s.haveOwner = false
		s.buf = nil
		s.capacity = 0
	}
}

// Run performs Discovery for every local tree, element, and face of q,
// populating ri. method selects owner resolution (step 4 of spec
// §4.5); both methods skip domain-boundary faces and self-owned
// neighbors.
func Run(q forest.Query, reg *scheme.Registry, ri *remoteindex.Index, method Method) {
	switch method {
	case MethodOwnersAtFace:
		runOwnersAtFace(q, reg, ri)
	default:
		runHalfNeighbors(q, reg, ri)
	}
}

func runHalfNeighbors(q forest.Query, reg *scheme.Registry, ri *remoteindex.Index) {
	self := q.Rank()
	var sc scratch
	defer sc.destroy()

	for t := 0; t < q.NumLocalTrees(); t++ {
		class := q.TreeClass(t)
		sch := reg.For(class)
		gid := q.GlobalTreeID(t)

		for i := 0; i < q.NumElements(t); i++ {
			e := q.Element(t, i)
			numFaces := sch.NumFaces(e)
			isAtom := sch.Level(e) == sch.MaxLevel()

			for f := 0; f < numFaces; f++ {
				neighClass := q.NeighborClass(t, e, f)

				var numChildren int
				if isAtom {
					numChildren = 1
				} else {
					numChildren = sch.NumFaceChildren(e, f)
				}
				buf := sc.ensure(reg, neighClass, numChildren)

				var neighTree forest.GlobalTreeID
				if isAtom {
					neighTree, _ = q.FaceNeighbor(t, e, f, buf[0])
				} else {
					neighTree, _ = q.HalfFaceNeighbors(t, e, f, buf)
				}
				if neighTree == forest.NoNeighbor {
					continue
				}

				for c := 0; c < numChildren; c++ {
					owner := q.FindOwner(neighTree, buf[c], neighClass)
					if owner != self {
						ri.Add(sch, owner, gid, class, e)
					}
				}
			}
		}
	}
}

func runOwnersAtFace(q forest.Query, reg *scheme.Registry, ri *remoteindex.Index) {
	self := q.Rank()

	for t := 0; t < q.NumLocalTrees(); t++ {
		class := q.TreeClass(t)
		sch := reg.For(class)
		gid := q.GlobalTreeID(t)

		for i := 0; i < q.NumElements(t); i++ {
			e := q.Element(t, i)
			numFaces := sch.NumFaces(e)

			for f := 0; f < numFaces; f++ {
				neighClass := q.NeighborClass(t, e, f)
				neighSch := reg.For(neighClass)
				faceNeighbor := neighSch.New(1)[0]

				neighTree, _ := q.FaceNeighbor(t, e, f, faceNeighbor)
				if neighTree == forest.NoNeighbor {
					neighSch.Destroy([]scheme.Element{faceNeighbor})
					continue
				}

				owners := q.OwnersAtFace(neighTree, faceNeighbor, neighClass, f)
				for _, owner := range owners {
					if owner != self {
						ri.Add(sch, owner, gid, class, e)
					}
				}
				neighSch.Destroy([]scheme.Element{faceNeighbor})
			}
		}
	}
}
