// Package exchange implements the Exchange component: posting
// non-blocking sends for every remote rank, probing-and-receiving in
// arrival order, ingesting in ascending-rank order, and waiting on
// sends (spec §4.7).
package exchange

import (
	"fmt"
	"sort"

	"github.com/notargets/forestghost/ghostindex"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
	"github.com/notargets/forestghost/wire"
)

// GhostTag is the dedicated message tag reserved for ghost-forest
// traffic, the equivalent of the original's T8_MPI_GHOST_FOREST.
const GhostTag = 0x67686f73 // "ghos" in ASCII, arbitrary but stable

// Request is a handle to an outstanding send, returned by
// Transport.Send and consumed by Transport.Wait.
type Request interface{}

// Transport is the abstract point-to-point message-passing primitive
// spec §5 treats as an external collaborator: ordered per-pair
// delivery, any-source probe, non-blocking send. No repository in the
// retrieval pack depends on an MPI binding, so this module supplies
// its own minimal interface plus an in-memory implementation
// (NewLocalNetwork); a real network binding implements the same
// interface.
type Transport interface {
	// Rank is this transport's identity in the message-passing world.
	Rank() int
	// Send posts a non-blocking send of data to rank, tagged tag.
	// The returned Request is later passed to Wait.
	Send(rank, tag int, data []byte) (Request, error)
	// Probe blocks until a message tagged tag is available from any
	// source, then returns that source's rank and the message's byte
	// size without consuming it.
	Probe(tag int) (source, size int, err error)
	// Recv consumes the next message from source tagged tag, which
	// must be exactly size bytes (as reported by the Probe that
	// announced it).
	Recv(source, tag, size int) ([]byte, error)
	// Wait blocks until every request in reqs has completed.
	Wait(reqs []Request) error
}

// Create performs the full Exchange algorithm: it builds and posts one
// send per rank in ri's rank list, drains arrivals in ascending-rank
// ingestion order, and waits for every send to complete before
// returning the populated ghostindex.Layer.
func Create(t Transport, ri *remoteindex.Index, reg *scheme.Registry) (*ghostindex.Layer, error) {
	ranks := ri.Ranks()
	layer := ghostindex.New()
	if len(ranks) == 0 {
		// S5: an empty remote-rank list short-circuits Exchange
		// entirely — no sends posted, no receives expected.
		return layer, nil
	}

	reqs := make([]Request, 0, len(ranks))
	for _, r := range ranks {
		bucket, _ := ri.Bucket(r)
		buf, err := wire.Encode(bucket, reg)
		if err != nil {
			return nil, fmt.Errorf("exchange: encoding bucket for rank %d: %w", r, err)
		}
		req, err := t.Send(r, GhostTag, buf)
		if err != nil {
			return nil, fmt.Errorf("exchange: posting send to rank %d: %w", r, err)
		}
		reqs = append(reqs, req)
	}

	// By symmetry (spec §8 invariant 1), the set of ranks this process
	// expects to receive from equals the set it sends to. Sort once so
	// drain-in-ascending-order can be done with a simple index walk
	// instead of re-sorting per arrival.
	expected := append([]int(nil), ranks...)
	sort.Ints(expected)
	posInOrder := make(map[int]int, len(expected))
	for i, r := range expected {
		posInOrder[r] = i
	}

	received := make([]bool, len(expected))
	runs := make([][]ghostindex.RunEntry, len(expected))
	nextToIngest := 0

	numReceived := 0
	for numReceived < len(expected) {
		source, size, err := t.Probe(GhostTag)
		if err != nil {
			return nil, fmt.Errorf("exchange: probe: %w", err)
		}
		data, err := t.Recv(source, GhostTag, size)
		if err != nil {
			return nil, fmt.Errorf("exchange: recv from rank %d: %w", source, err)
		}
		pos, ok := posInOrder[source]
		if !ok {
			return nil, fmt.Errorf("exchange: received message from unexpected rank %d", source)
		}
		entries, err := wire.Decode(data, reg)
		if err != nil {
			return nil, fmt.Errorf("exchange: decoding message from rank %d: %w", source, err)
		}
		runs[pos] = entries
		received[pos] = true
		numReceived++

		// Drain every contiguous run of already-received, not-yet-ingested
		// slots in ascending rank order. The probe/parse split lets arrival
		// order differ from ingest order (spec §4.7 step 4).
		for nextToIngest < len(expected) && received[nextToIngest] {
			layer.AppendRun(expected[nextToIngest], runs[nextToIngest])
			runs[nextToIngest] = nil
			nextToIngest++
		}
	}

	if err := t.Wait(reqs); err != nil {
		return nil, fmt.Errorf("exchange: waiting on sends: %w", err)
	}

	return layer, nil
}
