// Package cancel provides the cooperative cancellation flag polled by batch
// workers between units of work.
package cancel

import (
	"context"
	"sync"
)

// Token is a thread-safe cancellation flag. The zero value is ready to use.
type Token struct {
	mu        sync.Mutex
	cancelled bool
}

// New returns a fresh, not cancelled token.
func New() *Token {
	return &Token{}
}

// Cancel sets the flag. Work already in flight is not interrupted.
func (t *Token) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// IsCancelled reports whether Cancel has been called.
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// Watch cancels the token when ctx is done. The returned function stops
// watching; once it returns the token is never cancelled by ctx.
func (t *Token) Watch(ctx context.Context) (stop func()) {
	if ctx.Err() != nil {
		t.Cancel()
		return func() {}
	}

	unregister := context.AfterFunc(ctx, t.Cancel)

	return func() { unregister() }
}
