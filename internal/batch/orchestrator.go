// Package batch runs one tool over a list of files.
//
// Conversions and transforms go through the files one by one on a single
// goroutine to bound peak memory; text extraction fans out through the OCR
// engine. Both paths poll the same cancellation token between units of work
// and marshal progress and completion through a dispatcher.
package batch

import (
	"context"
	"fmt"
	"os"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/archive"
	"github.com/aliskhannn/image-converter/internal/cancel"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/ocr"
)

// converter changes the format of a single file.
type converter interface {
	Convert(src, outDir string, tool model.Tool, token *cancel.Token) (string, error)
}

// transformer applies a geometric transform to a single file.
type transformer interface {
	Apply(src, outDir string, tool model.Tool, settings model.Settings) (string, error)
}

// textExtractor recognizes the text of many files at once.
type textExtractor interface {
	Extract(ctx context.Context, paths []string, token *cancel.Token, progress func(float64)) ocr.Result
}

// Request describes one batch.
type Request struct {
	Files     []model.File
	Tool      model.Tool
	Settings  model.Settings
	OutputDir string
	Token     *cancel.Token

	// Progress receives the completed fraction, 0 to 1. It is not called
	// after the token is cancelled.
	Progress func(float64)
	// Done receives the final result exactly once, also when cancelled.
	Done func(Result)
}

// Result is the outcome of a batch.
type Result struct {
	Files       []model.File // input records with results or texts filled in
	Outputs     []string     // one location per successfully processed file
	Archive     []byte       // zip tool output
	Texts       []string     // extract-text output, aligned with Files
	NoTextFound bool
	Cancelled   bool
}

// Orchestrator routes a batch to the engine its tool selects.
type Orchestrator struct {
	converter   converter
	transformer transformer
	ocr         textExtractor
	dispatcher  dispatch.Dispatcher
}

// New creates an Orchestrator. Callbacks are run through d.
func New(c converter, t transformer, e textExtractor, d dispatch.Dispatcher) *Orchestrator {
	if d == nil {
		d = dispatch.Inline{}
	}

	return &Orchestrator{converter: c, transformer: t, ocr: e, dispatcher: d}
}

// Start runs the batch on a new goroutine and returns a handle to it.
func (o *Orchestrator) Start(ctx context.Context, req Request) *Run {
	run := newRun()
	run.setState(model.BatchRunning)

	go func() {
		res := o.Execute(ctx, req)
		run.finish(res)
	}()

	return run
}

// Execute runs the batch on the calling goroutine and returns its result.
// Cancelling ctx cancels the token.
func (o *Orchestrator) Execute(ctx context.Context, req Request) Result {
	if req.Token == nil {
		req.Token = cancel.New()
	}

	stop := req.Token.Watch(ctx)
	defer stop()

	files := make([]model.File, len(req.Files))
	copy(files, req.Files)

	var res Result

	switch req.Tool.Action {
	case model.ActionZip:
		res = o.zip(files, req)
	case model.ActionExtractText:
		res = o.extractText(ctx, files, req)
	default:
		res = o.sequential(files, req)
	}

	o.dispatcher.Dispatch(func() {
		if req.Done != nil {
			req.Done(res)
		}
	})

	return res
}

func (o *Orchestrator) sequential(files []model.File, req Request) Result {
	res := Result{Files: files}
	n := len(files)

	for i := range files {
		if req.Token.IsCancelled() {
			res.Cancelled = true
			break
		}

		out, err := o.process(files[i].Source, req)
		if err != nil {
			zlog.Logger.Error().Err(err).
				Str("file", files[i].Source).
				Str("tool", req.Tool.ID).
				Msg("failed to process file")
		} else if err := files[i].SetResult(out); err != nil {
			zlog.Logger.Error().Err(err).Str("file", files[i].Source).Msg("failed to record result")
		} else {
			res.Outputs = append(res.Outputs, out)
		}

		o.report(req, float64(i+1)/float64(n))
	}

	// cancelled while the last item was in flight
	if req.Token.IsCancelled() {
		res.Cancelled = true
	}

	return res
}

func (o *Orchestrator) process(src string, req Request) (string, error) {
	switch req.Tool.Category {
	case model.CategoryImageToPDF, model.CategoryPDFToImage:
		return o.converter.Convert(src, req.OutputDir, req.Tool, req.Token)
	case model.CategoryImageToImage:
		if req.Tool.Action == model.ActionConvert {
			return o.converter.Convert(src, req.OutputDir, req.Tool, req.Token)
		}

		return o.transformer.Apply(src, req.OutputDir, req.Tool, req.Settings)
	default:
		return "", fmt.Errorf("unsupported tool category: %s", req.Tool.Category)
	}
}

// zip collects every readable file and packs them into one archive.
func (o *Orchestrator) zip(files []model.File, req Request) Result {
	res := Result{Files: files}
	n := len(files)
	paths := make([]string, 0, n)

	for i := range files {
		if req.Token.IsCancelled() {
			res.Cancelled = true
			return res
		}

		if _, err := os.Stat(files[i].Source); err != nil {
			zlog.Logger.Error().Err(err).Str("file", files[i].Source).Msg("skipping unreadable file")
		} else {
			paths = append(paths, files[i].Source)
		}

		o.report(req, float64(i+1)/float64(n+1))
	}

	if req.Token.IsCancelled() {
		res.Cancelled = true
		return res
	}

	data, err := archive.Zip(paths)
	if err != nil {
		zlog.Logger.Error().Err(err).Int("files", len(paths)).Msg("failed to create archive")
		return res
	}

	res.Archive = data
	o.report(req, 1)

	return res
}

func (o *Orchestrator) extractText(ctx context.Context, files []model.File, req Request) Result {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Source
	}

	r := o.ocr.Extract(ctx, paths, req.Token, func(p float64) {
		o.report(req, p)
	})

	for i, text := range r.Texts {
		if text != "" || !r.Cancelled {
			files[i].SetText(text)
		}
	}

	return Result{
		Files:       files,
		Texts:       r.Texts,
		NoTextFound: r.NoTextFound(),
		Cancelled:   r.Cancelled,
	}
}

// report marshals progress to the dispatcher unless the batch was cancelled.
func (o *Orchestrator) report(req Request, fraction float64) {
	if req.Progress == nil || req.Token.IsCancelled() {
		return
	}

	o.dispatcher.Dispatch(func() {
		req.Progress(fraction)
	})
}
