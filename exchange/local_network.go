package exchange

import (
	"fmt"
	"sync"
)

// message is one posted send, still in flight from the sender's
// perspective until the matching Recv drains it.
type message struct {
	tag    int
	source int
	data   []byte
}

// localTransport is an in-process Transport backed by one inbox
// channel per rank, in the teacher's goroutine/channel style (see
// model_problems/Euler2D.ParallelEdgeUpdate's sync.WaitGroup fan-out).
// It is the reference implementation spec §5's abstract message-passing
// primitive; a real cluster binding implements the same Transport
// interface over an actual network.
type localTransport struct {
	rank   int
	inbox  chan message
	peers  []chan message
	mu     sync.Mutex
	queued []message // messages probed but not yet received, FIFO per source preserved
}

// NewLocalNetwork returns n Transports wired to each other's inboxes,
// suitable for tests and the ghostctl demo command.
func NewLocalNetwork(n int) []Transport {
	inboxes := make([]chan message, n)
	for i := range inboxes {
		// Buffered generously: every rank posts all its sends before
		// entering the receive loop (spec §5 deadlock avoidance), so a
		// send must never block waiting for the receiver to drain.
		inboxes[i] = make(chan message, 4096)
	}
	out := make([]Transport, n)
	for i := 0; i < n; i++ {
		out[i] = &localTransport{rank: i, inbox: inboxes[i], peers: inboxes}
	}
	return out
}

func (lt *localTransport) Rank() int { return lt.rank }

type localRequest struct{ done chan struct{} }

func (lt *localTransport) Send(rank, tag int, data []byte) (Request, error) {
	if rank < 0 || rank >= len(lt.peers) {
		return nil, fmt.Errorf("exchange: local transport: rank %d out of range", rank)
	}
	// Copy so the caller is free to reuse/release its buffer once Send
	// returns, matching the "send buffers owned by Exchange until
	// wait-completion" resource policy (spec §5) without this
	// transport needing to track buffer lifetime itself.
	cp := make([]byte, len(data))
	copy(cp, data)

	lt.peers[rank] <- message{tag: tag, source: lt.rank, data: cp}

	// The in-memory channel send above already completed the transfer,
	// so Wait on this request is always immediately satisfied; it
	// exists only to preserve the non-blocking-send-then-wait-all shape
	// real transports require.
	req := &localRequest{done: make(chan struct{})}
	close(req.done)
	return req, nil
}

func (lt *localTransport) Probe(tag int) (source, size int, err error) {
	lt.mu.Lock()
	for _, m := range lt.queued {
		if m.tag == tag {
			lt.mu.Unlock()
			return m.source, len(m.data), nil
		}
	}
	lt.mu.Unlock()

	for {
		m, ok := <-lt.inbox
		if !ok {
			return 0, 0, fmt.Errorf("exchange: local transport: rank %d inbox closed", lt.rank)
		}
		if m.tag == tag {
			lt.mu.Lock()
			lt.queued = append(lt.queued, m)
			lt.mu.Unlock()
			return m.source, len(m.data), nil
		}
		// A message with a different tag was pulled off the channel
		// while probing for tag; queue it so a later Probe for its own
		// tag still finds it.
		lt.mu.Lock()
		lt.queued = append(lt.queued, m)
		lt.mu.Unlock()
	}
}

func (lt *localTransport) Recv(source, tag, size int) ([]byte, error) {
	lt.mu.Lock()
	for i, m := range lt.queued {
		if m.tag == tag && m.source == source {
			lt.queued = append(lt.queued[:i], lt.queued[i+1:]...)
			lt.mu.Unlock()
			if len(m.data) != size {
				return nil, fmt.Errorf("exchange: local transport: rank %d recv from %d expected %d bytes, probe announced %d", lt.rank, source, len(m.data), size)
			}
			return m.data, nil
		}
	}
	lt.mu.Unlock()
	return nil, fmt.Errorf("exchange: local transport: rank %d has no queued message from rank %d tag %d; Probe must precede Recv", lt.rank, source, tag)
}

func (lt *localTransport) Wait(reqs []Request) error {
	for _, r := range reqs {
		lr, ok := r.(*localRequest)
		if !ok {
			return fmt.Errorf("exchange: local transport: Wait given a request from a different Transport implementation")
		}
		<-lr.done
	}
	return nil
}
