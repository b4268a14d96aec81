// Package ghost is the Orchestrator: the single entry point that
// composes Discovery and Exchange into a GhostLayer, plus the
// collaborator-facing public API and lifecycle (spec §4.8, §6).
package ghost

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/notargets/forestghost/discovery"
	"github.com/notargets/forestghost/exchange"
	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/ghostindex"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
)

// Type is the forest's declared ghost kind.
type Type int

const (
	// TypeNone disables ghost construction entirely.
	TypeNone Type = iota
	// TypeFaces builds the single face-neighbor ghost layer this core
	// implements. It is the only non-trivial type (spec §1 "exactly one
	// layer... no edge/corner ghosts").
	TypeFaces
)

// Counters are the statistics Create records for every construction
// run, whether or not profileFn is set.
type Counters struct {
	NumRemoteRanks    int
	NumGhostsReceived int
	NumGhostsShipped  int
	Elapsed           time.Duration
}

// Layer is a reference-counted ghost layer: the Remote Index built by
// Discovery plus the Ghost Index built by Exchange, wrapped with the
// lifecycle and read-query API spec §6 requires.
type Layer struct {
	remote   *remoteindex.Index
	incoming *ghostindex.Layer
	counters Counters

	refs int32
}

// Create runs the full ghost-construction pipeline for q: Discovery
// (using method), then Exchange over t. It early-outs with a warning
// on TypeNone (spec §7.3's benign no-op). When profileFn is non-nil, it
// is called before Discovery and the stop function it returns is called
// after Exchange (WithCPUProfile builds one that records a CPU profile).
// Wall-clock elapsed time is recorded regardless of whether profiling
// is active.
func Create(q forest.Query, reg *scheme.Registry, t exchange.Transport, ghostType Type, method discovery.Method, profileFn func() func()) (*Layer, error) {
	if ghostType == TypeNone {
		log.Printf("ghost: Create called with ghost type none, skipping construction")
		return &Layer{remote: remoteindex.New(), incoming: ghostindex.New(), refs: 1}, nil
	}

	var stop func()
	if profileFn != nil {
		stop = profileFn()
	}
	start := time.Now()

	ri := remoteindex.New()
	discovery.Run(q, reg, ri, method)

	layer, err := exchange.Create(t, ri, reg)
	if err != nil {
		if stop != nil {
			stop()
		}
		return nil, fmt.Errorf("ghost: create: %w", err)
	}

	elapsed := time.Since(start)
	if stop != nil {
		stop()
	}

	return &Layer{
		remote:   ri,
		incoming: layer,
		counters: Counters{
			NumRemoteRanks:    len(ri.Ranks()),
			NumGhostsReceived: layer.NumElements(),
			NumGhostsShipped:  ri.NumRemoteElements(),
			Elapsed:           elapsed,
		},
		refs: 1,
	}, nil
}

// Counters returns the published statistics from the pipeline run that
// produced l.
func (l *Layer) Counters() Counters { return l.counters }

// NumGhostTrees is the number of GhostTrees in the layer.
func (l *Layer) NumGhostTrees() int { return l.incoming.NumTrees() }

// GhostTreeNumElements is the element count of ghost tree i.
func (l *Layer) GhostTreeNumElements(i int) int { return len(l.incoming.Tree(i).Elements) }

// GhostTreeClass is the element class of ghost tree i.
func (l *Layer) GhostTreeClass(i int) scheme.Class { return l.incoming.Tree(i).Class }

// GhostTreeGlobalID is the global tree id of ghost tree i.
func (l *Layer) GhostTreeGlobalID(i int) forest.GlobalTreeID { return l.incoming.Tree(i).GlobalID }

// GhostElement returns element j of ghost tree i. Out-of-range
// indices are a contract violation (spec §6), not an error; the
// underlying slice index panics on its own.
func (l *Layer) GhostElement(i, j int) scheme.Element { return l.incoming.Tree(i).Elements[j] }

// NumGhostElements is the total element count across all ghost trees.
func (l *Layer) NumGhostElements() int { return l.incoming.NumElements() }

// NumRemoteElements is the total number of elements this rank ships
// to others.
func (l *Layer) NumRemoteElements() int { return l.remote.NumRemoteElements() }

// RemoteRanks are the ranks this process ships elements to, in
// Discovery insertion order.
func (l *Layer) RemoteRanks() []forest.Rank { return l.remote.Ranks() }

// Ref increments the reference count.
func (l *Layer) Ref() { atomic.AddInt32(&l.refs, 1) }

// Unref decrements the reference count.
func (l *Layer) Unref() { atomic.AddInt32(&l.refs, -1) }

// Destroy asserts that the caller holds the last reference and tears
// the layer down (spec §6: "destroy asserts that the caller holds the
// last reference").
func (l *Layer) Destroy() {
	if r := atomic.LoadInt32(&l.refs); r != 1 {
		panic(fmt.Sprintf("ghost: Destroy called with %d outstanding references, expected 1", r))
	}
	atomic.StoreInt32(&l.refs, 0)
}

// DebugString is a diagnostic dump of the remote and ghost structures,
// the analog of the original's t8_forest_ghost_print. It is meant for
// interactive/test use, not machine parsing.
func (l *Layer) DebugString() string {
	s := fmt.Sprintf("ghost layer: %d remote ranks, %d remote elements, %d ghost trees, %d ghost elements\n",
		len(l.remote.Ranks()), l.remote.NumRemoteElements(), l.incoming.NumTrees(), l.incoming.NumElements())
	for _, r := range l.remote.Ranks() {
		bucket, _ := l.remote.Bucket(r)
		s += fmt.Sprintf("  -> rank %d: %d trees, %d elements\n", r, len(bucket.Trees), bucket.NumElements())
	}
	for i := 0; i < l.incoming.NumTrees(); i++ {
		tree := l.incoming.Tree(i)
		s += fmt.Sprintf("  <- ghost tree %d (global id %d, class %s): %d elements\n", i, tree.GlobalID, tree.Class, len(tree.Elements))
	}
	return s
}
