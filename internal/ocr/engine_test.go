package ocr

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/cancel"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// fakeRecognizer returns texts[path], sleeping delays[path] first.
type fakeRecognizer struct {
	texts  map[string]string
	delays map[string]time.Duration
	fail   map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	time.Sleep(f.delays[path])

	if f.fail[path] {
		return "garbage", errors.New("engine failure")
	}

	return f.texts[path], nil
}

func TestExtractKeepsInputOrder(t *testing.T) {
	rec := &fakeRecognizer{
		texts:  map[string]string{"a": "first", "b": "second", "c": "third"},
		delays: map[string]time.Duration{"a": 30 * time.Millisecond, "b": 10 * time.Millisecond},
	}

	var (
		mu       sync.Mutex
		progress []float64
	)
	res := New(rec, 3).Extract(context.Background(), []string{"a", "b", "c"}, cancel.New(), func(p float64) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	assert.Equal(t, []string{"first", "second", "third"}, res.Texts)
	assert.False(t, res.Cancelled)
	assert.False(t, res.NoTextFound())

	require.Len(t, progress, 3)
	assert.InDelta(t, 1.0/3, progress[0], 1e-9)
	assert.InDelta(t, 2.0/3, progress[1], 1e-9)
	assert.InDelta(t, 1.0, progress[2], 1e-9)
}

func TestExtractNoTextFound(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"a": "  ", "b": ""}}

	res := New(rec, 0).Extract(context.Background(), []string{"a", "b"}, cancel.New(), nil)

	assert.Equal(t, []string{"  ", ""}, res.Texts)
	assert.True(t, res.NoTextFound())
	assert.False(t, res.Cancelled)
}

func TestExtractFailureLeavesEmptySlot(t *testing.T) {
	rec := &fakeRecognizer{
		texts: map[string]string{"a": "hello"},
		fail:  map[string]bool{"b": true},
	}

	res := New(rec, 2).Extract(context.Background(), []string{"a", "b"}, nil, nil)

	assert.Equal(t, []string{"hello", ""}, res.Texts)
}

func TestExtractCancelledBeforeDispatch(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"a": "x", "b": "y"}}
	tok := cancel.New()
	tok.Cancel()

	var calls int
	res := New(rec, 2).Extract(context.Background(), []string{"a", "b"}, tok, func(float64) { calls++ })

	assert.True(t, res.Cancelled)
	assert.False(t, res.NoTextFound())
	assert.Equal(t, []string{"", ""}, res.Texts)
	assert.Empty(t, rec.calls)
	assert.Zero(t, calls)
}

// With one request in flight at a time, cancelling from inside the first
// request keeps every later one from starting.
func TestExtractCancelSkipsLaterRequests(t *testing.T) {
	tok := cancel.New()
	rec := &cancellingRecognizer{token: tok}

	var progress []float64
	res := New(rec, 1).Extract(context.Background(), []string{"a", "b", "c"}, tok, func(p float64) {
		progress = append(progress, p)
	})

	assert.True(t, res.Cancelled)
	assert.Equal(t, []string{"a", "", ""}, res.Texts)
	assert.Equal(t, 1, rec.calls)
	assert.Empty(t, progress)
}

type cancellingRecognizer struct {
	token *cancel.Token
	calls int
}

func (r *cancellingRecognizer) Recognize(_ context.Context, path string) (string, error) {
	r.calls++
	r.token.Cancel()

	return path, nil
}

func TestExtractEmpty(t *testing.T) {
	res := New(&fakeRecognizer{}, 1).Extract(context.Background(), nil, cancel.New(), nil)

	assert.Empty(t, res.Texts)
	assert.True(t, res.NoTextFound())
}
