package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"lacquer/internal/services"
)

// stubProcessor scripts unit behavior. Gates hold Process open until the
// test releases the chunk, which makes scheduling order observable.
type stubProcessor struct {
	setupErr func(unitID int) error
	run      func(unitID int, job Job, progress func(stage, message string)) ([]byte, error)
	gates    map[int]chan struct{}

	mu     sync.Mutex
	setups []int
	starts []int
}

func (s *stubProcessor) Setup(ctx context.Context, unitID int) error {
	s.mu.Lock()
	s.setups = append(s.setups, unitID)
	s.mu.Unlock()
	if s.setupErr != nil {
		return s.setupErr(unitID)
	}
	return nil
}

func (s *stubProcessor) Process(ctx context.Context, unitID int, job Job, progress func(stage, message string)) (ChunkResult, error) {
	s.mu.Lock()
	s.starts = append(s.starts, job.ChunkIndex)
	gate := s.gates[job.ChunkIndex]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ChunkResult{}, ctx.Err()
		}
	}
	if s.run != nil {
		payload, err := s.run(unitID, job, progress)
		if err != nil {
			return ChunkResult{}, err
		}
		return ChunkResult{ChunkIndex: job.ChunkIndex, Payload: payload}, nil
	}
	return ChunkResult{
		ChunkIndex: job.ChunkIndex,
		Payload:    []byte(fmt.Sprintf("mastered-%d", job.ChunkIndex)),
		Report:     ChunkReport{InputIntegrated: -20 - float64(job.ChunkIndex)},
	}, nil
}

func (s *stubProcessor) startOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.starts...)
}

func (s *stubProcessor) setupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.setups)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestPool(t *testing.T, proc Processor, opts ...Option) *Pool {
	t.Helper()
	p, err := New(append([]Option{WithProcessor(proc)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Initialize(waitCtx(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(p.Terminate)
	return p
}

func job(chunk int) Job {
	return Job{ChunkIndex: chunk, Payload: []byte{0x52, 0x49, 0x46, 0x46}}
}

func TestNewRequiresProcessor(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without processor")
	}
}

func TestInitializeFailsFastOnSetupError(t *testing.T) {
	proc := &stubProcessor{
		setupErr: func(unitID int) error {
			if unitID == 2 {
				return errors.New("engine missing")
			}
			return nil
		},
	}
	p, err := New(WithProcessor(proc), WithSize(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = p.Initialize(waitCtx(t))
	if err == nil {
		t.Fatal("expected initialize to fail")
	}
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("error = %v, want ErrSetup", err)
	}
	if !strings.Contains(err.Error(), "failed setup") {
		t.Fatalf("error = %v, want setup detail", err)
	}

	if _, err := p.Dispatch(job(0)); err == nil {
		t.Fatal("expected dispatch to fail after setup failure")
	}
	p.Terminate()
}

func TestDispatchBeforeInitialize(t *testing.T) {
	p, err := New(WithProcessor(&stubProcessor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Dispatch(job(0)); err == nil {
		t.Fatal("expected error before initialize")
	}
	p.Terminate()
}

func TestInitializeTwice(t *testing.T) {
	p := newTestPool(t, &stubProcessor{}, WithSize(1))
	if err := p.Initialize(waitCtx(t)); err == nil {
		t.Fatal("expected second initialize to fail")
	}
}

func TestDispatchValidatesJobs(t *testing.T) {
	p := newTestPool(t, &stubProcessor{}, WithSize(1))

	if _, err := p.Dispatch(Job{ChunkIndex: -1, Payload: []byte{1}}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("negative index error = %v, want ErrValidation", err)
	}
	if _, err := p.Dispatch(Job{ChunkIndex: 0}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty payload error = %v, want ErrValidation", err)
	}
}

func TestDispatchRejectsDuplicatePendingChunk(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{0: make(chan struct{})}}
	p := newTestPool(t, proc, WithSize(1))

	first, err := p.Dispatch(job(0))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	waitFor(t, func() bool { return len(proc.startOrder()) == 1 })

	second, err := p.Dispatch(job(0))
	if err != nil {
		t.Fatalf("Dispatch duplicate: %v", err)
	}
	if _, err := second.Wait(waitCtx(t)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("duplicate error = %v, want ErrValidation", err)
	}

	close(proc.gates[0])
	res, err := first.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if string(res.Payload) != "mastered-0" {
		t.Fatalf("payload = %q", res.Payload)
	}
}

func TestTicketsSettleOutOfCompletionOrder(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{
		0: make(chan struct{}),
		1: make(chan struct{}),
		2: make(chan struct{}),
	}}
	p := newTestPool(t, proc, WithSize(3))

	tickets := make([]*Ticket, 3)
	for i := range tickets {
		ticket, err := p.Dispatch(job(i))
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		tickets[i] = ticket
	}
	waitFor(t, func() bool { return len(proc.startOrder()) == 3 })

	for _, chunk := range []int{2, 0, 1} {
		close(proc.gates[chunk])
		res, err := tickets[chunk].Wait(waitCtx(t))
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if res.ChunkIndex != chunk {
			t.Fatalf("result chunk = %d, want %d", res.ChunkIndex, chunk)
		}
		if want := fmt.Sprintf("mastered-%d", chunk); string(res.Payload) != want {
			t.Fatalf("payload = %q, want %q", res.Payload, want)
		}
		if want := -20 - float64(chunk); res.Report.InputIntegrated != want {
			t.Fatalf("report integrated = %.1f, want %.1f", res.Report.InputIntegrated, want)
		}
	}
}

func TestQueueServedInDispatchOrder(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{0: make(chan struct{})}}
	p := newTestPool(t, proc, WithSize(1))

	tickets := make([]*Ticket, 5)
	for i := range tickets {
		ticket, err := p.Dispatch(job(i))
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		tickets[i] = ticket
	}

	waitFor(t, func() bool { return len(proc.startOrder()) == 1 })
	close(proc.gates[0])
	for i, ticket := range tickets {
		if _, err := ticket.Wait(waitCtx(t)); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
	}

	got := proc.startOrder()
	want := []int{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("start order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("start order %v, want %v", got, want)
		}
	}
}

func TestSaturatedPoolQueuesOverflow(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{
		0: make(chan struct{}),
		1: make(chan struct{}),
		2: make(chan struct{}),
	}}
	p := newTestPool(t, proc, WithSize(3))

	tickets := make([]*Ticket, 5)
	for i := range tickets {
		ticket, err := p.Dispatch(job(i))
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		tickets[i] = ticket
	}

	// Chunks 0..2 hold all three units open, so chunks 3 and 4 must sit
	// in the queue without starting.
	waitFor(t, func() bool { return len(proc.startOrder()) == 3 })

	// Freeing one unit drains the queue oldest-first on that unit.
	close(proc.gates[0])
	waitFor(t, func() bool { return len(proc.startOrder()) == 5 })
	starts := proc.startOrder()
	if starts[3] != 3 || starts[4] != 4 {
		t.Fatalf("queued chunks started as %v, want 3 then 4", starts[3:])
	}
	running := map[int]bool{}
	for _, chunk := range starts[:3] {
		running[chunk] = true
	}
	for chunk := 0; chunk < 3; chunk++ {
		if !running[chunk] {
			t.Fatalf("chunks 0..2 should start before the queue drains, got %v", starts)
		}
	}

	close(proc.gates[1])
	close(proc.gates[2])
	for i, ticket := range tickets {
		if _, err := ticket.Wait(waitCtx(t)); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
	}
}

func TestCrashFailsChunkAndReplacesUnit(t *testing.T) {
	proc := &stubProcessor{
		run: func(unitID int, j Job, progress func(stage, message string)) ([]byte, error) {
			if j.ChunkIndex == 1 {
				panic("filter graph exploded")
			}
			return []byte(fmt.Sprintf("mastered-%d", j.ChunkIndex)), nil
		},
	}
	p := newTestPool(t, proc, WithSize(2))

	tickets := make(map[int]*Ticket)
	for _, chunk := range []int{0, 1, 2, 3} {
		ticket, err := p.Dispatch(job(chunk))
		if err != nil {
			t.Fatalf("Dispatch %d: %v", chunk, err)
		}
		tickets[chunk] = ticket
	}

	_, err := tickets[1].Wait(waitCtx(t))
	if err == nil {
		t.Fatal("expected crash error for chunk 1")
	}
	if !errors.Is(err, services.ErrCrash) {
		t.Fatalf("error = %v, want ErrCrash", err)
	}
	var crash *CrashError
	if !errors.As(err, &crash) {
		t.Fatalf("error = %T, want *CrashError", err)
	}
	if crash.Chunk != 1 || crash.Unit < 1 {
		t.Fatalf("crash = %+v", crash)
	}
	if !strings.Contains(crash.Reason, "filter graph exploded") {
		t.Fatalf("reason = %q", crash.Reason)
	}
	if crash.Timeout {
		t.Fatal("panic crash should not be marked as timeout")
	}

	for _, chunk := range []int{0, 2, 3} {
		res, err := tickets[chunk].Wait(waitCtx(t))
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if want := fmt.Sprintf("mastered-%d", chunk); string(res.Payload) != want {
			t.Fatalf("chunk %d payload = %q", chunk, res.Payload)
		}
	}

	// The replacement unit must be able to take new work.
	ticket, err := p.Dispatch(job(9))
	if err != nil {
		t.Fatalf("Dispatch after crash: %v", err)
	}
	if _, err := ticket.Wait(waitCtx(t)); err != nil {
		t.Fatalf("chunk 9: %v", err)
	}
	if proc.setupCount() < 3 {
		t.Fatalf("setup count = %d, want replacement setup", proc.setupCount())
	}
}

func TestJobTimeoutAbandonsUnit(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{0: make(chan struct{})}}
	p := newTestPool(t, proc, WithSize(1), WithJobTimeout(50*time.Millisecond))

	stuck, err := p.Dispatch(job(0))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	_, err = stuck.Wait(waitCtx(t))
	if err == nil {
		t.Fatal("expected timeout crash")
	}
	if !errors.Is(err, services.ErrCrash) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("error = %v, want ErrCrash and ErrTimeout", err)
	}
	var crash *CrashError
	if !errors.As(err, &crash) {
		t.Fatalf("error = %T, want *CrashError", err)
	}
	if !crash.Timeout || crash.Chunk != 0 {
		t.Fatalf("crash = %+v", crash)
	}
	if !strings.Contains(crash.Reason, "timeout") {
		t.Fatalf("reason = %q", crash.Reason)
	}

	ticket, err := p.Dispatch(job(1))
	if err != nil {
		t.Fatalf("Dispatch after timeout: %v", err)
	}
	if _, err := ticket.Wait(waitCtx(t)); err != nil {
		t.Fatalf("chunk 1: %v", err)
	}
}

func TestTerminateSettlesPendingJobs(t *testing.T) {
	proc := &stubProcessor{gates: map[int]chan struct{}{0: make(chan struct{})}}
	p := newTestPool(t, proc, WithSize(1))

	tickets := make([]*Ticket, 3)
	for i := range tickets {
		ticket, err := p.Dispatch(job(i))
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		tickets[i] = ticket
	}
	waitFor(t, func() bool { return len(proc.startOrder()) == 1 })

	p.Terminate()

	for i, ticket := range tickets {
		_, err := ticket.Wait(waitCtx(t))
		if !errors.Is(err, ErrTerminated) {
			t.Fatalf("chunk %d error = %v, want ErrTerminated", i, err)
		}
	}

	if _, err := p.Dispatch(job(9)); !errors.Is(err, ErrTerminated) {
		t.Fatalf("dispatch after terminate = %v, want ErrTerminated", err)
	}

	// A second terminate must return without blocking.
	p.Terminate()
}

func TestProgressUpdatesCarryOrigin(t *testing.T) {
	proc := &stubProcessor{
		run: func(unitID int, j Job, progress func(stage, message string)) ([]byte, error) {
			progress("analyzing_loudness", "pass 1 of 4")
			progress("encoding", "pass 4 of 4")
			return []byte("done"), nil
		},
	}

	var mu sync.Mutex
	var updates []ProgressUpdate
	record := func(update ProgressUpdate) {
		mu.Lock()
		updates = append(updates, update)
		mu.Unlock()
	}

	p := newTestPool(t, proc, WithSize(1), WithProgress(record))

	ticket, err := p.Dispatch(job(7))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := ticket.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) >= 2
	})

	mu.Lock()
	defer mu.Unlock()
	if updates[0].Stage != "analyzing_loudness" || updates[1].Stage != "encoding" {
		t.Fatalf("stages = %q, %q", updates[0].Stage, updates[1].Stage)
	}
	for _, update := range updates {
		if update.Chunk != 7 {
			t.Fatalf("chunk = %d, want 7", update.Chunk)
		}
		if update.Unit < 1 {
			t.Fatalf("unit = %d, want assigned unit id", update.Unit)
		}
	}
}
