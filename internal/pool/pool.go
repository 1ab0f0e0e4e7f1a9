// Package pool schedules chunk jobs across a bounded set of isolated
// execution units. All queue and unit-table mutation happens inside one
// coordinator goroutine; callers and units talk to it exclusively through
// tagged messages, so a completion can never race a dispatch.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lacquer/internal/logging"
	"lacquer/internal/services"
)

// ErrTerminated reports an operation against a terminated pool.
var ErrTerminated = errors.New("pool terminated")

const (
	defaultSize         = 4
	progressBuffer      = 64
	timeoutPollInterval = 250 * time.Millisecond
)

// CrashError reports a job lost to a unit panic, or to a unit abandoned
// after exceeding the job timeout.
type CrashError struct {
	Unit    int
	Chunk   int
	Reason  string
	Timeout bool
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("execution unit %d crashed processing chunk %d: %s", e.Unit, e.Chunk, e.Reason)
}

func (e *CrashError) Unwrap() []error {
	if e.Timeout {
		return []error{services.ErrCrash, services.ErrTimeout}
	}
	return []error{services.ErrCrash}
}

// Option configures a Pool.
type Option func(*Pool)

// WithSize sets the number of execution units.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithProcessor sets the processor units run jobs through. Required.
func WithProcessor(proc Processor) Option {
	return func(p *Pool) {
		p.processor = proc
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithJobTimeout bounds how long one job may run before its unit is
// treated as abandoned. Zero disables the timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.jobTimeout = d
		}
	}
}

// WithProgress registers a best-effort progress callback.
func WithProgress(fn func(ProgressUpdate)) Option {
	return func(p *Pool) {
		p.onProgress = fn
	}
}

// Pool coordinates a fixed-size set of execution units over a FIFO job
// queue.
type Pool struct {
	size       int
	processor  Processor
	logger     *slog.Logger
	jobTimeout time.Duration
	onProgress func(ProgressUpdate)

	mu          sync.Mutex
	initialized bool
	terminated  bool

	ctx    context.Context
	cancel context.CancelFunc

	commands  chan command
	responses chan unitResponse
	progress  chan ProgressUpdate

	// Coordinator-owned state. Touched only by Initialize (before the
	// coordinator starts) and by the run loop afterward.
	units      map[int]*unitState
	nextUnitID int
	pending    map[int]*pendingJob
	queue      []int
}

type unitState struct {
	id       int
	requests chan unitRequest
	ready    bool
	busy     bool
	chunk    int
}

type pendingJob struct {
	job     Job
	ticket  *Ticket
	unit    int // 0 while queued
	started time.Time
}

// New constructs a pool. Initialize must be called before Dispatch.
func New(opts ...Option) (*Pool, error) {
	p := &Pool{
		size:     defaultSize,
		logger:   logging.NewNop(),
		units:    make(map[int]*unitState),
		pending:  make(map[int]*pendingJob),
		commands: make(chan command),
		progress: make(chan ProgressUpdate, progressBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.processor == nil {
		return nil, errors.New("pool requires a processor")
	}
	p.responses = make(chan unitResponse, p.size*2)
	return p, nil
}

// Size reports the configured number of execution units.
func (p *Pool) Size() int {
	return p.size
}

// Initialize spawns every execution unit and runs its setup handshake.
// It resolves only when all units report ready; the first setup failure
// tears the pool down and fails the whole call.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return ErrTerminated
	}
	if p.initialized {
		p.mu.Unlock()
		return errors.New("pool already initialized")
	}
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(context.Background())

	for i := 0; i < p.size; i++ {
		p.spawnUnit()
	}

	ready := 0
	for ready < p.size {
		select {
		case <-ctx.Done():
			p.cancel()
			return services.Wrap(services.ErrSetup, "pool", "initialize", "unit setup interrupted", ctx.Err())
		case resp := <-p.responses:
			switch resp.kind {
			case responseReady:
				if unit := p.units[resp.unitID]; unit != nil {
					unit.ready = true
					ready++
				}
			case responseSetupFailed:
				p.cancel()
				return services.Wrap(services.ErrSetup, "pool", "initialize",
					fmt.Sprintf("execution unit %d failed setup", resp.unitID), resp.err)
			}
		}
	}

	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()

	go p.forwardProgress()
	go p.run()

	p.logger.Info("pool initialized",
		logging.Int("units", p.size),
		logging.Duration("job_timeout", p.jobTimeout))
	return nil
}

// Dispatch hands one job to the pool. An idle unit takes it immediately;
// otherwise it joins the FIFO queue. The returned ticket settles exactly
// once with the chunk result or the job's terminal error.
func (p *Pool) Dispatch(job Job) (*Ticket, error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil, ErrTerminated
	}
	if !p.initialized {
		p.mu.Unlock()
		return nil, errors.New("pool not initialized")
	}
	p.mu.Unlock()

	if job.ChunkIndex < 0 {
		return nil, services.Wrap(services.ErrValidation, "pool", "dispatch",
			fmt.Sprintf("invalid chunk index %d", job.ChunkIndex), nil)
	}
	if len(job.Payload) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pool", "dispatch",
			fmt.Sprintf("chunk %d has an empty payload", job.ChunkIndex), nil)
	}

	ticket := newTicket(job.ChunkIndex)
	select {
	case p.commands <- command{kind: commandDispatch, job: job, ticket: ticket}:
		return ticket, nil
	case <-p.ctx.Done():
		return nil, ErrTerminated
	}
}

// Terminate stops every unit and settles all pending tickets with
// ErrTerminated. It is idempotent; Dispatch is invalid afterward.
func (p *Pool) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	initialized := p.initialized
	p.mu.Unlock()

	if !initialized {
		if p.cancel != nil {
			p.cancel()
		}
		return
	}

	done := make(chan struct{})
	p.commands <- command{kind: commandTerminate, done: done}
	<-done
}

// run is the coordinator loop. It owns the queue and the unit table.
func (p *Pool) run() {
	var timeoutC <-chan time.Time
	if p.jobTimeout > 0 {
		ticker := time.NewTicker(timeoutPollInterval)
		defer ticker.Stop()
		timeoutC = ticker.C
	}

	for {
		select {
		case cmd := <-p.commands:
			switch cmd.kind {
			case commandDispatch:
				p.admit(cmd.job, cmd.ticket)
			case commandTerminate:
				p.shutdown()
				close(cmd.done)
				return
			}
		case resp := <-p.responses:
			p.handleResponse(resp)
		case <-timeoutC:
			p.expireStaleJobs(time.Now())
		}
	}
}

func (p *Pool) spawnUnit() *unitState {
	p.nextUnitID++
	unit := &unitState{id: p.nextUnitID, requests: make(chan unitRequest, 1)}
	p.units[unit.id] = unit
	go runUnit(p.ctx, unit.id, p.processor, unit.requests, p.responses)
	unit.requests <- unitRequest{kind: requestInit}
	return unit
}

func (p *Pool) admit(job Job, ticket *Ticket) {
	if _, exists := p.pending[job.ChunkIndex]; exists {
		ticket.settle(ChunkResult{}, services.Wrap(services.ErrValidation, "pool", "dispatch",
			fmt.Sprintf("chunk %d already pending", job.ChunkIndex), nil))
		return
	}
	p.pending[job.ChunkIndex] = &pendingJob{job: job, ticket: ticket}
	p.queue = append(p.queue, job.ChunkIndex)
	p.assignNext()
}

// assignNext keeps units saturated: oldest queued job first, lowest idle
// unit id first.
func (p *Pool) assignNext() {
	for len(p.queue) > 0 {
		unit := p.idleUnit()
		if unit == nil {
			return
		}
		chunk := p.queue[0]
		p.queue = p.queue[1:]
		rec := p.pending[chunk]
		if rec == nil {
			continue
		}
		rec.unit = unit.id
		rec.started = time.Now()
		unit.busy = true
		unit.chunk = chunk
		unit.requests <- unitRequest{kind: requestProcess, job: rec.job}
		p.logger.Debug("chunk assigned",
			logging.Int(logging.FieldUnit, unit.id),
			logging.Int(logging.FieldChunk, chunk),
			logging.Int("queued", len(p.queue)))
	}
}

func (p *Pool) idleUnit() *unitState {
	var pick *unitState
	for _, unit := range p.units {
		if !unit.ready || unit.busy {
			continue
		}
		if pick == nil || unit.id < pick.id {
			pick = unit
		}
	}
	return pick
}

func (p *Pool) handleResponse(resp unitResponse) {
	unit := p.units[resp.unitID]
	if unit == nil {
		p.logger.Debug("dropping stale message from abandoned unit",
			logging.Int(logging.FieldUnit, resp.unitID),
			logging.Int(logging.FieldChunk, resp.chunk))
		return
	}

	switch resp.kind {
	case responseReady:
		unit.ready = true
		p.logger.Info("replacement unit ready", logging.Int(logging.FieldUnit, resp.unitID))
		p.assignNext()
	case responseSetupFailed:
		delete(p.units, resp.unitID)
		p.logger.Error("replacement unit failed setup",
			logging.Int(logging.FieldUnit, resp.unitID),
			logging.Error(resp.err))
		if len(p.units) == 0 {
			p.failAllPending(services.Wrap(services.ErrSetup, "pool", "replace unit",
				"no execution units remain", resp.err))
		}
	case responseProgress:
		rec := p.pending[resp.chunk]
		if rec == nil || rec.unit != resp.unitID {
			return
		}
		p.publishProgress(ProgressUpdate{Unit: resp.unitID, Chunk: resp.chunk, Stage: resp.stage, Message: resp.message})
	case responseDone, responseFailed:
		rec := p.pending[resp.chunk]
		if rec == nil || rec.unit != resp.unitID {
			p.logger.Debug("dropping stale completion",
				logging.Int(logging.FieldUnit, resp.unitID),
				logging.Int(logging.FieldChunk, resp.chunk))
			return
		}
		delete(p.pending, resp.chunk)
		unit.busy = false
		unit.chunk = 0
		if resp.kind == responseDone {
			result := resp.result
			result.ChunkIndex = resp.chunk
			rec.ticket.settle(result, nil)
		} else {
			rec.ticket.settle(ChunkResult{}, resp.err)
		}
		p.assignNext()
	case responseCrashed:
		delete(p.units, resp.unitID)
		logging.WarnWithContext(p.logger, "execution unit crashed", "unit_crash",
			logging.Int(logging.FieldUnit, resp.unitID),
			logging.Int(logging.FieldChunk, resp.chunk),
			logging.String(logging.FieldErrorHint, "inspect the crash reason in the chunk error"),
			logging.String(logging.FieldImpact, "chunk fails; a replacement unit takes over"))
		p.logger.Debug("crash detail", logging.String("reason", resp.reason))
		if rec := p.pending[resp.chunk]; rec != nil && rec.unit == resp.unitID {
			delete(p.pending, resp.chunk)
			rec.ticket.settle(ChunkResult{}, &CrashError{Unit: resp.unitID, Chunk: resp.chunk, Reason: firstLine(resp.reason)})
		}
		replacement := p.spawnUnit()
		p.logger.Info("spawned replacement unit", logging.Int(logging.FieldUnit, replacement.id))
	}
}

// expireStaleJobs abandons units whose job exceeded the timeout. The stuck
// process is not interrupted; its unit id is retired so any late messages
// are recognizably stale, and a replacement takes over the queue.
func (p *Pool) expireStaleJobs(now time.Time) {
	for chunk, rec := range p.pending {
		if rec.unit == 0 || now.Sub(rec.started) <= p.jobTimeout {
			continue
		}
		unitID := rec.unit
		delete(p.pending, chunk)
		delete(p.units, unitID)
		rec.ticket.settle(ChunkResult{}, &CrashError{
			Unit:    unitID,
			Chunk:   chunk,
			Reason:  fmt.Sprintf("job exceeded %s timeout; unit abandoned", p.jobTimeout),
			Timeout: true,
		})
		logging.WarnWithContext(p.logger, "execution unit abandoned after timeout", "unit_timeout",
			logging.Int(logging.FieldUnit, unitID),
			logging.Int(logging.FieldChunk, chunk),
			logging.Duration("timeout", p.jobTimeout),
			logging.String(logging.FieldImpact, "chunk fails; a replacement unit takes over"))
		replacement := p.spawnUnit()
		p.logger.Info("spawned replacement unit", logging.Int(logging.FieldUnit, replacement.id))
	}
}

func (p *Pool) failAllPending(err error) {
	for _, rec := range p.pending {
		rec.ticket.settle(ChunkResult{}, err)
	}
	p.pending = make(map[int]*pendingJob)
	p.queue = nil
}

func (p *Pool) shutdown() {
	for chunk, rec := range p.pending {
		rec.ticket.settle(ChunkResult{}, fmt.Errorf("chunk %d: %w", chunk, ErrTerminated))
	}
	p.pending = make(map[int]*pendingJob)
	p.queue = nil
	p.cancel()
}

func (p *Pool) publishProgress(update ProgressUpdate) {
	if p.onProgress == nil {
		return
	}
	select {
	case p.progress <- update:
	default:
		// Progress is best-effort; drop rather than block the coordinator.
	}
}

func (p *Pool) forwardProgress() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case update := <-p.progress:
			if p.onProgress != nil {
				p.onProgress(update)
			}
		}
	}
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
