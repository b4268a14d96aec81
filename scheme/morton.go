package scheme

import "encoding/binary"

// MortonScheme is a default Scheme implementation for a uniformly
// refined space-tree element class: the element is identified by its
// refinement level and its Morton (Z-order) code at that same level
// (not at the scheme's maximum level; see LinearID). It packs (level, code) the way types.EdgeKey in the teacher
// packs two coordinates into a fixed-width integer.
//
// Geometry and the exact non-uniform refinement patterns of triangle,
// tetrahedron, prism and pyramid classes are a collaborator concern
// (§1 "explicitly out of scope"); this scheme gives every class a
// uniform 2^dim children-per-element / 2^(dim-1) children-per-face
// rule, which is what the ghost-layer core actually needs to exercise.
type MortonScheme struct {
	class    Class
	dim      uint8
	numFaces int
	maxLevel uint8
}

// mortonByClass holds the (dim, numFaces) table for the seven classes,
// mirroring the face count table in the teacher's
// DG3D/mesh.GetElementFaces (Tet:4, Hex:6, Prism:5, Pyramid:5) extended
// with the 1-D/2-D classes the spec's 1-D test scenarios use.
var mortonByClass = map[Class]struct {
	dim      uint8
	numFaces int
}{
	ClassLine:     {1, 2},
	ClassTriangle: {2, 3},
	ClassQuad:     {2, 4},
	ClassTet:      {3, 4},
	ClassHex:      {3, 6},
	ClassPrism:    {3, 5},
	ClassPyramid:  {3, 5},
}

// maxLevelForDim bounds the refinement depth so that dim*maxLevel fits
// in the 64 bits of the packed code. 21 and 29 are t8code's actual
// default-scheme maxlevels for its 3-D and 2-D classes; 62 is the
// analogous bound for the spec's 1-D test scenarios.
func maxLevelForDim(dim uint8) uint8 {
	switch dim {
	case 1:
		return 62
	case 2:
		return 29
	case 3:
		return 21
	default:
		panic("scheme: unsupported dimension")
	}
}

// NewMortonScheme builds the default scheme for class c.
func NewMortonScheme(c Class) *MortonScheme {
	info, ok := mortonByClass[c]
	if !ok {
		panic("scheme: unknown class for default morton scheme")
	}
	return &MortonScheme{
		class:    c,
		dim:      info.dim,
		numFaces: info.numFaces,
		maxLevel: maxLevelForDim(info.dim),
	}
}

const mortonElementSize = 9 // 1 level byte + 8 code bytes

func (s *MortonScheme) Class() Class    { return s.class }
func (s *MortonScheme) Size() int       { return mortonElementSize }
func (s *MortonScheme) MaxLevel() uint8 { return s.maxLevel }

func (s *MortonScheme) Level(e Element) uint8 {
	return e[0]
}

// LinearID returns the element's ancestor id at level: the code Encode
// was given, truncated to that ancestor's resolution. Encode stores the
// id relative to the element's own level, not to the scheme's MaxLevel,
// so the truncation shift is measured from the element's own level
// (e[0]), not from maxLevel. level must not be finer than the element's
// own level.
func (s *MortonScheme) LinearID(e Element, level uint8) uint64 {
	code := binary.BigEndian.Uint64(e[1:9])
	elemLevel := e[0]
	if level > elemLevel {
		panic("scheme: LinearID level is finer than the element's own level")
	}
	shift := uint(s.dim) * uint(elemLevel-level)
	if shift >= 64 {
		return 0
	}
	return code >> shift
}

func (s *MortonScheme) NumFaces(e Element) int { return s.numFaces }

// NumFaceChildren is constant (2^(dim-1)) for the uniform refinement
// rule this scheme implements; see the type doc for why per-face
// variation is out of scope here.
func (s *MortonScheme) NumFaceChildren(e Element, face int) int {
	return 1 << (s.dim - 1)
}

func (s *MortonScheme) New(n int) []Element {
	elems := make([]Element, n)
	for i := range elems {
		elems[i] = make(Element, mortonElementSize)
	}
	return elems
}

// Destroy releases scheme-allocated elements. Go's allocator and
// garbage collector own the underlying memory; this exists so callers
// (notably discovery's scratch-buffer reuse) can destroy-then-reallocate
// without caring whether the scheme is GC-backed or not.
func (s *MortonScheme) Destroy(elems []Element) {}

func (s *MortonScheme) Copy(src, dst Element) {
	copy(dst, src)
}

// Encode packs a (level, code) pair into a new element for this scheme.
func (s *MortonScheme) Encode(level uint8, code uint64) Element {
	e := make(Element, mortonElementSize)
	e[0] = level
	binary.BigEndian.PutUint64(e[1:9], code)
	return e
}

// Decode is the inverse of Encode.
func (s *MortonScheme) Decode(e Element) (level uint8, code uint64) {
	return e[0], binary.BigEndian.Uint64(e[1:9])
}

// DefaultRegistry returns a Registry with a MortonScheme registered for
// every known Class.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for c := range mortonByClass {
		r.Register(NewMortonScheme(c))
	}
	return r
}
