// Package ocr runs text recognition over a batch of images concurrently.
//
// Every image gets its own request. Completions are counted under a lock and
// reported as a fraction of the batch; results keep the input order no
// matter in which order the requests finish.
package ocr

import (
	"context"
	"strings"
	"sync"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/image-converter/internal/cancel"
)

// DefaultConcurrency bounds the requests in flight when none is configured.
const DefaultConcurrency = 4

// Recognizer extracts the text of one image file.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Result holds the texts of a batch in input order. Slots of files that
// were skipped or failed hold empty strings.
type Result struct {
	Texts     []string
	Cancelled bool
}

// NoTextFound reports whether a batch that ran to completion recognized no
// text in any file.
func (r Result) NoTextFound() bool {
	if r.Cancelled {
		return false
	}

	for _, t := range r.Texts {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}

	return true
}

// Engine fans recognition requests out over a bounded set of goroutines.
type Engine struct {
	rec         Recognizer
	concurrency int
}

// New creates an Engine. A concurrency below one uses DefaultConcurrency.
func New(rec Recognizer, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	return &Engine{rec: rec, concurrency: concurrency}
}

// Extract recognizes the text of every path. The token is checked before
// each request is started; requests already running are never interrupted.
// progress, if set, receives completed/total after each completion while
// the token is not cancelled, in completion order.
func (e *Engine) Extract(ctx context.Context, paths []string, token *cancel.Token, progress func(float64)) Result {
	res := Result{Texts: make([]string, len(paths))}
	if len(paths) == 0 {
		return res
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, path := range paths {
		if token != nil && token.IsCancelled() {
			break
		}

		g.Go(func() error {
			// the slot may have been waited for
			if token != nil && token.IsCancelled() {
				return nil
			}

			text, err := e.rec.Recognize(gctx, path)
			if err != nil {
				zlog.Logger.Error().Err(err).Str("file", path).Msg("failed to recognize text")
				text = ""
			}

			mu.Lock()
			defer mu.Unlock()

			res.Texts[i] = text
			completed++
			if progress != nil && (token == nil || !token.IsCancelled()) {
				progress(float64(completed) / float64(len(paths)))
			}

			return nil
		})
	}

	_ = g.Wait()

	res.Cancelled = token != nil && token.IsCancelled()

	return res
}
