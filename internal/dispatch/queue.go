// Package dispatch runs callbacks one at a time on a single goroutine, the
// way a UI toolkit runs them on its main thread.
package dispatch

import "sync"

// Dispatcher schedules fn to run on the thread that owns the results.
type Dispatcher interface {
	Dispatch(fn func())
}

// Queue is an unbounded FIFO of callbacks drained by one goroutine.
// Callbacks may dispatch further callbacks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewQueue starts a queue.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	go q.loop()

	return q
}

// Dispatch appends fn to the queue. Callbacks dispatched after Close are dropped.
func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close runs the callbacks already queued and stops the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)

	for range q.wake {
		for {
			q.mu.Lock()
			if len(q.tasks) == 0 {
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := q.tasks[0]
			q.tasks[0] = nil
			q.tasks = q.tasks[1:]
			q.mu.Unlock()

			fn()
		}
	}
}

// Inline runs callbacks on the calling goroutine.
type Inline struct{}

// Dispatch calls fn immediately.
func (Inline) Dispatch(fn func()) { fn() }
