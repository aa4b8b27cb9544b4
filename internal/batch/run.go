package batch

import (
	"context"
	"sync"

	"github.com/aliskhannn/image-converter/internal/model"
)

// Run is the handle of a batch started with Start.
type Run struct {
	mu     sync.Mutex
	state  model.BatchState
	result Result
	done   chan struct{}
}

func newRun() *Run {
	return &Run{state: model.BatchIdle, done: make(chan struct{})}
}

// State returns the current state: idle, running, completed or cancelled.
func (r *Run) State() model.BatchState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Done is closed once the batch has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the batch finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()

		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Run) setState(s model.BatchState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Run) finish(res Result) {
	r.mu.Lock()
	r.result = res
	r.state = model.BatchCompleted
	if res.Cancelled {
		r.state = model.BatchCancelled
	}
	r.mu.Unlock()

	close(r.done)
}
