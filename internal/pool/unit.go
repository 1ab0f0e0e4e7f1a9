package pool

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Processor masters one chunk at a time. Implementations run inside unit
// goroutines; Setup is invoked once per unit before it accepts work.
type Processor interface {
	Setup(ctx context.Context, unitID int) error
	Process(ctx context.Context, unitID int, job Job, progress func(stage, message string)) (ChunkResult, error)
}

// runUnit is the goroutine body for one execution unit. It serves requests
// until its channel closes or the pool context is canceled. A panic during
// processing is reported as a crash and ends the unit; the coordinator
// replaces it rather than reusing possibly corrupt state.
func runUnit(ctx context.Context, id int, proc Processor, requests <-chan unitRequest, responses chan<- unitResponse) {
	send := func(resp unitResponse) {
		resp.unitID = id
		select {
		case responses <- resp:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			switch req.kind {
			case requestInit:
				if err := runSetup(ctx, proc, id); err != nil {
					send(unitResponse{kind: responseSetupFailed, err: err})
					return
				}
				send(unitResponse{kind: responseReady})
			case requestProcess:
				job := req.job
				progress := func(stage, message string) {
					send(unitResponse{kind: responseProgress, chunk: job.ChunkIndex, stage: stage, message: message})
				}
				result, crashed, reason, err := runProcess(ctx, proc, id, job, progress)
				switch {
				case crashed:
					send(unitResponse{kind: responseCrashed, chunk: job.ChunkIndex, reason: reason})
					return
				case err != nil:
					send(unitResponse{kind: responseFailed, chunk: job.ChunkIndex, err: err})
				default:
					send(unitResponse{kind: responseDone, chunk: job.ChunkIndex, result: result})
				}
			}
		}
	}
}

func runSetup(ctx context.Context, proc Processor, id int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup panic: %v", r)
		}
	}()
	return proc.Setup(ctx, id)
}

func runProcess(ctx context.Context, proc Processor, id int, job Job, progress func(stage, message string)) (result ChunkResult, crashed bool, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
			reason = fmt.Sprintf("%v\n%s", r, debug.Stack())
		}
	}()
	result, err = proc.Process(ctx, id, job, progress)
	return
}
