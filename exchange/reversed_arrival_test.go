package exchange

import (
	"testing"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
	"github.com/notargets/forestghost/wire"
	"github.com/stretchr/testify/require"
)

// reversedArrivalTransport is a hand-fed Transport that ignores Send
// entirely and plays back a fixed sequence of pre-encoded messages from
// Probe/Recv in a caller-chosen order, regardless of sender rank. It
// exists only to exercise the "arrival order differs from ingest order"
// path deterministically, which a real channel-backed transport cannot
// guarantee to reproduce on demand.
type reversedArrivalTransport struct {
	queue []message
}

func newReversedArrivalTransport(t *testing.T, ri *remoteindex.Index, reg *scheme.Registry, arrivalOrder []int) *reversedArrivalTransport {
	sch := scheme.NewMortonScheme(scheme.ClassLine)
	rt := &reversedArrivalTransport{}
	for _, r := range arrivalOrder {
		idx := remoteindex.New()
		idx.Add(sch, forest.Rank(r), forest.GlobalTreeID(0), scheme.ClassLine, sch.Encode(1, uint64(r)))
		bucket, ok := idx.Bucket(forest.Rank(r))
		require.True(t, ok)

		buf, err := wire.Encode(bucket, reg)
		require.NoError(t, err)
		rt.queue = append(rt.queue, message{tag: GhostTag, source: r, data: buf})
	}
	return rt
}

func (rt *reversedArrivalTransport) Rank() int { return 0 }

func (rt *reversedArrivalTransport) Send(rank, tag int, data []byte) (Request, error) {
	req := &localRequest{done: make(chan struct{})}
	close(req.done)
	return req, nil
}

func (rt *reversedArrivalTransport) Probe(tag int) (source, size int, err error) {
	if len(rt.queue) == 0 {
		panic("reversedArrivalTransport: Probe called with no messages left")
	}
	m := rt.queue[0]
	return m.source, len(m.data), nil
}

func (rt *reversedArrivalTransport) Recv(source, tag, size int) ([]byte, error) {
	m := rt.queue[0]
	rt.queue = rt.queue[1:]
	return m.data, nil
}

func (rt *reversedArrivalTransport) Wait(reqs []Request) error { return nil }
