// Package forest is the forest query adapter: the capability surface
// over the enclosing forest that Discovery needs. The core never
// inspects an element's coordinate transform or the partition layout
// directly — it only calls through a Query.
package forest

import "github.com/notargets/forestghost/scheme"

// Rank identifies a process within the message-passing world.
type Rank = int

// GlobalTreeID uniquely identifies one space-tree across the whole
// forest, independent of which rank holds it locally.
type GlobalTreeID int64

// NoNeighbor is the sentinel global tree id returned by FaceNeighbor /
// HalfFaceNeighbors when a face lies on the domain boundary.
const NoNeighbor GlobalTreeID = -1

// Query is the forest query adapter described in spec §4.2.
//
// FaceNeighbor and HalfFaceNeighbors follow the teacher's half-neighbor
// buffer-reuse pattern (see discovery.Run): the caller supplies the
// output buffer and the adapter fills it, so elements already allocated
// for scratch use can be refilled without a fresh allocation per call.
type Query interface {
	// Rank is this process's identity.
	Rank() Rank

	// NumLocalTrees is the number of trees this rank owns locally.
	NumLocalTrees() int
	// TreeClass is the element class of local tree t.
	TreeClass(t int) scheme.Class
	// GlobalTreeID maps a local tree index to its global id.
	GlobalTreeID(t int) GlobalTreeID
	// NumElements is the element count of local tree t.
	NumElements(t int) int
	// Element returns the i-th element of local tree t.
	Element(t int, i int) scheme.Element

	// NeighborClass returns the element class across face f of e,
	// without constructing the neighbor itself.
	NeighborClass(t int, e scheme.Element, f int) scheme.Class

	// FaceNeighbor constructs the single full-size face neighbor of e
	// across face f into out. Discovery calls it for a max-level element
	// under MethodHalfNeighbors and for every element under
	// MethodOwnersAtFace. Returns NoNeighbor if f is a domain boundary.
	FaceNeighbor(t int, e scheme.Element, f int, out scheme.Element) (neighborTree GlobalTreeID, neighborClass scheme.Class)

	// HalfFaceNeighbors constructs the len(out) child-sized potential
	// neighbors across face f of e into out. Returns NoNeighbor if f is
	// a domain boundary.
	HalfFaceNeighbors(t int, e scheme.Element, f int, out []scheme.Element) (neighborTree GlobalTreeID, neighborClass scheme.Class)

	// FindOwner returns the single owning rank of e in tree (method A).
	FindOwner(tree GlobalTreeID, e scheme.Element, class scheme.Class) Rank

	// OwnersAtFace returns every rank owning any element touching face f
	// of e in tree (method B).
	OwnersAtFace(tree GlobalTreeID, e scheme.Element, class scheme.Class, f int) []Rank
}
