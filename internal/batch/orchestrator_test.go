package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/cancel"
	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/ocr"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// fakeEngine records the files it was called with. It fails on the names
// in fail and cancels the token while processing cancelAt.
type fakeEngine struct {
	fail     map[string]bool
	cancelAt string
	token    *cancel.Token

	mu    sync.Mutex
	calls []string
}

func (f *fakeEngine) run(src, outDir string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()

	if src == f.cancelAt {
		f.token.Cancel()
	}
	if f.fail[src] {
		return "", errors.New("decode failure")
	}

	return filepath.Join(outDir, src+".out"), nil
}

func (f *fakeEngine) Convert(src, outDir string, _ model.Tool, _ *cancel.Token) (string, error) {
	return f.run(src, outDir)
}

func (f *fakeEngine) Apply(src, outDir string, _ model.Tool, _ model.Settings) (string, error) {
	return f.run(src, outDir)
}

type fakeOCR struct {
	texts []string
}

func (f fakeOCR) Extract(_ context.Context, paths []string, token *cancel.Token, progress func(float64)) ocr.Result {
	res := ocr.Result{Texts: make([]string, len(paths))}
	for i := range paths {
		if token.IsCancelled() {
			res.Cancelled = true
			break
		}
		res.Texts[i] = f.texts[i]
		progress(float64(i+1) / float64(len(paths)))
	}

	return res
}

func files(names ...string) []model.File {
	out := make([]model.File, len(names))
	for i, n := range names {
		out[i] = model.File{Name: n, Source: n}
	}

	return out
}

func tool(t *testing.T, id string) model.Tool {
	t.Helper()

	tl, err := catalog.Lookup(id)
	require.NoError(t, err)

	return tl
}

type recorder struct {
	progress []float64
	results  []Result
}

func (r *recorder) request(req Request) Request {
	req.Progress = func(p float64) { r.progress = append(r.progress, p) }
	req.Done = func(res Result) { r.results = append(r.results, res) }

	return req
}

func TestSequentialBatch(t *testing.T) {
	eng := &fakeEngine{}
	o := New(eng, eng, fakeOCR{}, dispatch.Inline{})
	rec := &recorder{}

	res := o.Execute(context.Background(), rec.request(Request{
		Files:     files("a", "b", "c", "d"),
		Tool:      tool(t, "png-to-jpg"),
		OutputDir: "out",
		Token:     cancel.New(),
	}))

	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"a", "b", "c", "d"}, eng.calls)
	assert.Equal(t, []string{"out/a.out", "out/b.out", "out/c.out", "out/d.out"}, res.Outputs)
	assert.Equal(t, "out/c.out", res.Files[2].Result)
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, rec.progress)
	require.Len(t, rec.results, 1)
	assert.Equal(t, res, rec.results[0])
}

func TestFailedItemsAreSkipped(t *testing.T) {
	eng := &fakeEngine{fail: map[string]bool{"b": true}}
	o := New(eng, eng, fakeOCR{}, nil)
	rec := &recorder{}

	res := o.Execute(context.Background(), rec.request(Request{
		Files:    files("a", "b", "c"),
		Tool:     tool(t, "resize-image"),
		Settings: model.ResizeSettings{Width: 10, Height: 10},
	}))

	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"a.out", "c.out"}, res.Outputs)
	assert.Empty(t, res.Files[1].Result)
	assert.Len(t, rec.progress, 3)
	assert.Equal(t, 1.0, rec.progress[2])
}

func TestCancelAfterK(t *testing.T) {
	const n = 6

	names := []string{"f1", "f2", "f3", "f4", "f5", "f6"}
	for k := 1; k < n; k++ {
		tok := cancel.New()
		// cancelling during item k+1 lets k items finish
		eng := &fakeEngine{token: tok, cancelAt: names[k], fail: map[string]bool{names[k]: true}}
		o := New(eng, eng, fakeOCR{}, dispatch.Inline{})
		rec := &recorder{}

		res := o.Execute(context.Background(), rec.request(Request{
			Files: files(names...),
			Tool:  tool(t, "pdf-to-jpg"),
			Token: tok,
		}))

		assert.True(t, res.Cancelled, "k=%d", k)
		assert.Len(t, res.Outputs, k, "k=%d", k)
		assert.Len(t, eng.calls, k+1, "k=%d", k)
		for i := k; i < n; i++ {
			assert.Empty(t, res.Files[i].Result, "k=%d item %d", k, i)
		}
		require.Len(t, rec.progress, k, "k=%d", k)
		assert.InDelta(t, float64(k)/n, rec.progress[k-1], 1e-9)
		require.Len(t, rec.results, 1)
		assert.True(t, rec.results[0].Cancelled)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	eng := &fakeEngine{}
	tok := cancel.New()
	tok.Cancel()
	rec := &recorder{}

	res := New(eng, eng, fakeOCR{}, nil).Execute(context.Background(), rec.request(Request{
		Files: files("a", "b"),
		Tool:  tool(t, "png-to-jpg"),
		Token: tok,
	}))

	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Outputs)
	assert.Empty(t, eng.calls)
	assert.Empty(t, rec.progress)
	assert.Len(t, rec.results, 1)
}

func TestContextCancelsToken(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	stop()

	tok := cancel.New()
	eng := &fakeEngine{}

	res := New(eng, eng, fakeOCR{}, nil).Execute(ctx, Request{Files: files("a"), Tool: tool(t, "png-to-jpg"), Token: tok})

	assert.True(t, res.Cancelled)
	assert.True(t, tok.IsCancelled())
	assert.Empty(t, eng.calls)
}

func TestExtractTextPath(t *testing.T) {
	o := New(nil, nil, fakeOCR{texts: []string{"", "hello"}}, nil)
	rec := &recorder{}

	res := o.Execute(context.Background(), rec.request(Request{
		Files: files("a", "b"),
		Tool:  tool(t, "extract-text"),
	}))

	assert.Equal(t, []string{"", "hello"}, res.Texts)
	assert.False(t, res.NoTextFound)
	assert.False(t, res.Cancelled)
	require.NotNil(t, res.Files[1].Text)
	assert.Equal(t, "hello", *res.Files[1].Text)
	assert.Equal(t, []float64{0.5, 1}, rec.progress)
}

func TestExtractTextNothingFound(t *testing.T) {
	o := New(nil, nil, fakeOCR{texts: []string{"", ""}}, nil)

	res := o.Execute(context.Background(), Request{Files: files("a", "b"), Tool: tool(t, "extract-text")})

	assert.True(t, res.NoTextFound)
	assert.False(t, res.Cancelled)
}

func TestZipPath(t *testing.T) {
	dir := t.TempDir()
	contents := map[string][]byte{"one.jpg": []byte("first"), "two.png": []byte("second")}

	var in []model.File
	for _, name := range []string{"one.jpg", "two.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, contents[name], 0o644))
		in = append(in, model.File{Name: name, Source: p})
	}
	in = append(in, model.File{Name: "gone.jpg", Source: filepath.Join(dir, "gone.jpg")})

	rec := &recorder{}
	res := New(nil, nil, nil, nil).Execute(context.Background(), rec.request(Request{
		Files: in,
		Tool:  tool(t, "convert-to-zip"),
	}))
	require.NotEmpty(t, res.Archive)

	zr, err := zip.NewReader(bytes.NewReader(res.Archive), int64(len(res.Archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, contents[f.Name], data)
	}

	require.NotEmpty(t, rec.progress)
	assert.Equal(t, 1.0, rec.progress[len(rec.progress)-1])
	assert.IsIncreasing(t, rec.progress)
}

func TestStartAndWait(t *testing.T) {
	q := dispatch.NewQueue()
	defer q.Close()

	eng := &fakeEngine{}
	done := make(chan Result, 1)

	run := New(eng, eng, fakeOCR{}, q).Start(context.Background(), Request{
		Files: files("a", "b"),
		Tool:  tool(t, "image-to-pdf"),
		Done:  func(r Result) { done <- r },
	})

	res, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, run.State())
	assert.Len(t, res.Outputs, 2)

	select {
	case got := <-done:
		assert.Equal(t, res.Outputs, got.Outputs)
	case <-time.After(time.Second):
		t.Fatal("completion was not delivered")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	run := newRun()
	ctx, stop := context.WithCancel(context.Background())
	stop()

	_, err := run.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchIdle, run.State())
}
