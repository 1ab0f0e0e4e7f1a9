package pool

import (
	"context"
	"sync"
)

// Ticket is the future for one dispatched job. It settles exactly once,
// with either the chunk result or the job's terminal error.
type Ticket struct {
	chunk int

	once   sync.Once
	done   chan struct{}
	result ChunkResult
	err    error
}

func newTicket(chunk int) *Ticket {
	return &Ticket{chunk: chunk, done: make(chan struct{})}
}

// ChunkIndex reports which chunk this ticket tracks.
func (t *Ticket) ChunkIndex() int {
	return t.chunk
}

// Wait blocks until the job settles or ctx expires. It may be called any
// number of times; every call observes the same outcome.
func (t *Ticket) Wait(ctx context.Context) (ChunkResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return ChunkResult{}, ctx.Err()
	}
}

func (t *Ticket) settle(result ChunkResult, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}
