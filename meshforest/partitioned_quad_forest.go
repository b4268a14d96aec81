package meshforest

import (
	"fmt"
	"log"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/scheme"
)

// PartitionConfig mirrors the teacher's DG3D/mesh.PartitionConfig
// shape: the options buildElementGraph/metis.PartGraphKwayWeighted
// need to assign elements to ranks.
type PartitionConfig struct {
	NumPartitions   int32
	ImbalanceFactor float32
	Objective       string // "cut" or "vol"
}

// DefaultPartitionConfig mirrors
// DG3D/mesh.DefaultPartitionConfig's defaults.
func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:   nparts,
		ImbalanceFactor: 1.05,
		Objective:       "vol",
	}
}

// quadGrid is one tree: an M x M grid of quad elements, all encoded at
// the scheme's max level (every element is an "atom" in spec §4.5's
// sense, which keeps this reference forest's discovery path on the
// single-full-size-neighbor branch — the S2 "adjacent maxlevel atoms"
// shape). Element (row, col) gets linear code row*M+col; this is a
// row-major index, not a true Z-order code, which is fine because
// nothing outside this package ever compares codes across grids built
// a different way.
type quadGrid struct {
	m int
}

func (g *quadGrid) code(row, col int) uint64 { return uint64(row*g.m + col) }
func (g *quadGrid) rowCol(code uint64) (row, col int) {
	return int(code) / g.m, int(code) % g.m
}

// PartitionedQuadForest is a chain of treeCount quad grids, glued
// left-to-right across their column boundaries (face 0 = left, face 1
// = right), partitioned across ranks by METIS element-adjacency
// partitioning — the same buildMetisGraph / PartGraphKwayWeighted
// pattern as DG3D/mesh.MeshPartitioner.Partition, applied to the
// forest's full element-adjacency graph instead of an unstructured
// mesh's. Faces 2/3 (bottom/top) are always domain boundaries: this
// forest only glues trees in the column direction, which is enough to
// exercise S6 (cross-tree neighbor) without a 2-D tree-topology graph.
type PartitionedQuadForest struct {
	rank      forest.Rank
	sch       *scheme.MortonScheme
	treeCount int
	grid      quadGrid
	// owner[globalElementIndex] is the partition assignment METIS
	// returned; globalElementIndex = treeIdx*m*m + row*m + col.
	owner []forest.Rank
	local []localElem
}

type localElem struct {
	tree int
	code uint64
}

// NewPartitionedQuadForest builds treeCount grids of m x m elements
// each and partitions all of them across cfg.NumPartitions ranks with
// METIS, then returns rank's view of the result.
func NewPartitionedQuadForest(rank forest.Rank, treeCount, m int, cfg *PartitionConfig) *PartitionedQuadForest {
	sch := scheme.NewMortonScheme(scheme.ClassQuad)
	pf := &PartitionedQuadForest{
		rank:      rank,
		sch:       sch,
		treeCount: treeCount,
		grid:      quadGrid{m: m},
	}

	numElements := treeCount * m * m
	xadj, adjncy := pf.buildElementGraph()

	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		panic(fmt.Sprintf("meshforest: metis.SetDefaultOptions: %v", err))
	}
	if cfg.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{cfg.ImbalanceFactor}

	part, objval, err := metis.PartGraphKwayWeighted(xadj, adjncy, nil, nil, cfg.NumPartitions, nil, ubvec, opts)
	if err != nil {
		panic(fmt.Sprintf("meshforest: metis partitioning failed: %v", err))
	}
	log.Printf("meshforest: partitioned %d elements into %d parts, objective value %d", numElements, cfg.NumPartitions, objval)

	pf.owner = make([]forest.Rank, numElements)
	for i := 0; i < numElements; i++ {
		pf.owner[i] = forest.Rank(part[i])
	}

	for t := 0; t < treeCount; t++ {
		for row := 0; row < m; row++ {
			for col := 0; col < m; col++ {
				idx := pf.globalIndex(t, pf.grid.code(row, col))
				if pf.owner[idx] == rank {
					pf.local = append(pf.local, localElem{tree: t, code: pf.grid.code(row, col)})
				}
			}
		}
	}
	return pf
}

func (pf *PartitionedQuadForest) globalIndex(tree int, code uint64) int {
	return tree*pf.grid.m*pf.grid.m + int(code)
}

// buildElementGraph is this forest's analog of
// DG3D/mesh.MeshPartitioner.buildMetisGraph: it walks every element's
// face neighbors (within-tree and cross-tree) and emits a METIS
// adjacency structure with no edge/vertex weights, since every element
// here costs the same to compute or communicate.
func (pf *PartitionedQuadForest) buildElementGraph() (xadj, adjncy []int32) {
	m := pf.grid.m
	numElements := pf.treeCount * m * m
	xadj = make([]int32, numElements+1)

	for t := 0; t < pf.treeCount; t++ {
		for row := 0; row < m; row++ {
			for col := 0; col < m; col++ {
				idx := pf.globalIndex(t, pf.grid.code(row, col))
				for _, nb := range pf.neighbors(t, row, col) {
					adjncy = append(adjncy, int32(nb))
				}
				xadj[idx+1] = int32(len(adjncy))
			}
		}
	}
	for i := 1; i <= numElements; i++ {
		if xadj[i] < xadj[i-1] {
			xadj[i] = xadj[i-1]
		}
	}
	return xadj, adjncy
}

// neighbors returns the global element indices adjacent to (t, row,
// col) across all four faces, skipping domain boundaries.
func (pf *PartitionedQuadForest) neighbors(t, row, col int) []int {
	m := pf.grid.m
	var out []int
	if col > 0 {
		out = append(out, pf.globalIndex(t, pf.grid.code(row, col-1)))
	} else if t > 0 {
		out = append(out, pf.globalIndex(t-1, pf.grid.code(row, m-1)))
	}
	if col < m-1 {
		out = append(out, pf.globalIndex(t, pf.grid.code(row, col+1)))
	} else if t < pf.treeCount-1 {
		out = append(out, pf.globalIndex(t+1, pf.grid.code(row, 0)))
	}
	if row > 0 {
		out = append(out, pf.globalIndex(t, pf.grid.code(row-1, col)))
	}
	if row < m-1 {
		out = append(out, pf.globalIndex(t, pf.grid.code(row+1, col)))
	}
	return out
}

func (pf *PartitionedQuadForest) Rank() forest.Rank                     { return pf.rank }
func (pf *PartitionedQuadForest) NumLocalTrees() int                     { return pf.treeCount }
func (pf *PartitionedQuadForest) TreeClass(t int) scheme.Class           { return scheme.ClassQuad }
func (pf *PartitionedQuadForest) GlobalTreeID(t int) forest.GlobalTreeID { return forest.GlobalTreeID(t) }

// NumElements counts this rank's local elements belonging to tree t.
// Local elements live in one flat slice (tree by tree) with no per-tree
// offset table, so this scans; reference-forest performance is not a design
// goal here (spec §1 treats the forest partitioner as a collaborator).
func (pf *PartitionedQuadForest) NumElements(t int) int {
	n := 0
	for _, e := range pf.local {
		if e.tree == t {
			n++
		}
	}
	return n
}

func (pf *PartitionedQuadForest) Element(t int, i int) scheme.Element {
	n := 0
	for _, e := range pf.local {
		if e.tree == t {
			if n == i {
				return pf.sch.Encode(pf.sch.MaxLevel(), e.code)
			}
			n++
		}
	}
	panic(fmt.Sprintf("meshforest: element index %d out of range for tree %d", i, t))
}

func (pf *PartitionedQuadForest) NeighborClass(t int, e scheme.Element, f int) scheme.Class {
	return scheme.ClassQuad
}

// faceNeighbor resolves the (tree, code) of the neighbor of (t, code)
// across face f, or ok=false at a domain boundary. Face order matches
// PartitionedQuadForest's doc comment: 0=left, 1=right, 2=bottom, 3=top.
func (pf *PartitionedQuadForest) faceNeighbor(t int, code uint64, f int) (neighTree int, neighCode uint64, ok bool) {
	m := pf.grid.m
	row, col := pf.grid.rowCol(code)
	switch f {
	case 0:
		if col > 0 {
			return t, pf.grid.code(row, col-1), true
		}
		if t > 0 {
			return t - 1, pf.grid.code(row, m-1), true
		}
	case 1:
		if col < m-1 {
			return t, pf.grid.code(row, col+1), true
		}
		if t < pf.treeCount-1 {
			return t + 1, pf.grid.code(row, 0), true
		}
	case 2:
		if row > 0 {
			return t, pf.grid.code(row-1, col), true
		}
	case 3:
		if row < m-1 {
			return t, pf.grid.code(row+1, col), true
		}
	}
	return 0, 0, false
}

func (pf *PartitionedQuadForest) FaceNeighbor(t int, e scheme.Element, f int, out scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	_, code := pf.sch.Decode(e)
	neighTree, neighCode, ok := pf.faceNeighbor(t, code, f)
	if !ok {
		return forest.NoNeighbor, scheme.ClassQuad
	}
	pf.sch.Copy(pf.sch.Encode(pf.sch.MaxLevel(), neighCode), out)
	return forest.GlobalTreeID(neighTree), scheme.ClassQuad
}

// HalfFaceNeighbors is never exercised by discovery.Run for this
// forest: every element is encoded at MaxLevel, so Discovery always
// takes the is_atom branch and calls FaceNeighbor instead. It is still
// implemented, filling out[0] with the single full-size neighbor, so
// this type fully satisfies forest.Query.
func (pf *PartitionedQuadForest) HalfFaceNeighbors(t int, e scheme.Element, f int, out []scheme.Element) (forest.GlobalTreeID, scheme.Class) {
	return pf.FaceNeighbor(t, e, f, out[0])
}

func (pf *PartitionedQuadForest) FindOwner(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class) forest.Rank {
	_, code := pf.sch.Decode(e)
	return pf.owner[pf.globalIndex(int(tree), code)]
}

func (pf *PartitionedQuadForest) OwnersAtFace(tree forest.GlobalTreeID, e scheme.Element, class scheme.Class, f int) []forest.Rank {
	return []forest.Rank{pf.FindOwner(tree, e, class)}
}
