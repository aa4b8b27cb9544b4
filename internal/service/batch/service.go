package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/batch"
	"github.com/aliskhannn/image-converter/internal/cancel"
	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/codec"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/model"
)

var (
	// ErrBatchNotActive is returned when cancelling a batch that already finished.
	ErrBatchNotActive = errors.New("batch is not active")
	// ErrOutputNotFound is returned for an output or preview index that does not exist.
	ErrOutputNotFound = errors.New("output not found")
)

// fileStorage stores batch inputs, previews and outputs.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Upload(ctx context.Context, subdir, filename, localPath string) (string, error)
	Download(ctx context.Context, objectName, localPath string) error
	Load(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// statusRepository keeps the observable state of batches.
type statusRepository interface {
	Save(ctx context.Context, st model.BatchStatus) error
	Get(ctx context.Context, id uuid.UUID) (model.BatchStatus, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
	CancelRequested(ctx context.Context, id uuid.UUID) (bool, error)
}

// producer enqueues batches and publishes history records.
type producer interface {
	Produce(ctx context.Context, b model.Batch) error
	PublishHistory(ctx context.Context, h model.History) error
}

// checker validates a selection before a batch is accepted.
type checker interface {
	Check(paths []string, tool model.Tool) error
}

// runner executes a batch.
type runner interface {
	Execute(ctx context.Context, req batch.Request) batch.Result
}

// previewer renders file previews.
type previewer interface {
	Render(path string, size image.Point, scale float64) image.Image
}

// Upload is one file received from a client.
type Upload struct {
	Name   string
	Reader io.Reader
}

// Config holds the tunables of the Service.
type Config struct {
	WorkDir     string        // local scratch space for downloads and outputs
	PreviewSize int           // preview edge in pixels
	CancelPoll  time.Duration // how often running batches check for cancel requests
}

// Service accepts batches from clients, runs them on workers and exposes their results.
type Service struct {
	storage    fileStorage
	repo       statusRepository
	producer   producer
	checker    checker
	runner     runner
	previewer  previewer
	dispatcher dispatch.Dispatcher
	cfg        Config

	mu     sync.Mutex
	tokens map[uuid.UUID]*cancel.Token
}

// NewService creates a new Service. d must be the dispatcher the runner
// reports progress through, so status writes keep their order.
func NewService(
	fs fileStorage,
	repo statusRepository,
	p producer,
	c checker,
	r runner,
	pv previewer,
	d dispatch.Dispatcher,
	cfg Config,
) *Service {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.PreviewSize <= 0 {
		cfg.PreviewSize = 256
	}
	if cfg.CancelPoll <= 0 {
		cfg.CancelPoll = 500 * time.Millisecond
	}
	if d == nil {
		d = dispatch.Inline{}
	}

	return &Service{
		storage:    fs,
		repo:       repo,
		producer:   p,
		checker:    c,
		runner:     r,
		previewer:  pv,
		dispatcher: d,
		cfg:        cfg,
		tokens:     make(map[uuid.UUID]*cancel.Token),
	}
}

// Submit validates the uploads for the tool, stores them with their previews
// and enqueues the batch. Pre-flight problems are returned before anything
// is stored. watermark carries the overlay image of an image watermark and
// is ignored by every other tool.
func (s *Service) Submit(
	ctx context.Context,
	toolID string,
	env model.SettingsEnvelope,
	uploads []Upload,
	watermark *Upload,
) (model.BatchStatus, error) {
	tool, err := catalog.Lookup(toolID)
	if err != nil {
		return model.BatchStatus{}, err
	}

	settings, err := env.Settings()
	if err != nil {
		return model.BatchStatus{}, err
	}
	if want := model.ExpectedSettings(tool.Action); settings.Kind() != want {
		return model.BatchStatus{}, fmt.Errorf("%w: %s needs %s settings", model.ErrInvalidSettings, tool.ID, want)
	}
	if err := checkWatermark(settings, watermark); err != nil {
		return model.BatchStatus{}, err
	}

	id := uuid.New()

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "upload-*")
	if err != nil {
		return model.BatchStatus{}, fmt.Errorf("create upload dir: %w", err)
	}
	defer os.RemoveAll(dir)

	names := uniqueNames(uploads)
	paths := make([]string, len(uploads))
	for i, u := range uploads {
		paths[i] = filepath.Join(dir, names[i])
		if err := writeLocal(paths[i], u.Reader); err != nil {
			return model.BatchStatus{}, err
		}
	}

	if err := s.checker.Check(paths, tool); err != nil {
		return model.BatchStatus{}, err
	}

	prefix := id.String()
	files := make([]model.File, len(paths))

	var stored []string
	accepted := false
	defer func() {
		if !accepted {
			s.discard(stored)
		}
	}()

	for i, p := range paths {
		src, err := s.storage.Upload(ctx, path.Join(prefix, "originals"), names[i], p)
		if err != nil {
			return model.BatchStatus{}, err
		}
		stored = append(stored, src)

		files[i] = model.File{Name: names[i], Source: src}

		preview, err := s.savePreview(ctx, path.Join(prefix, "previews"), names[i], p)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("file", names[i]).Msg("failed to store preview")
			continue
		}
		files[i].Preview = preview
		stored = append(stored, preview)
	}

	if w, ok := settings.(model.WatermarkSettings); ok && w.Image != nil {
		obj, err := s.saveWatermark(ctx, dir, path.Join(prefix, "watermark"), watermark)
		if err != nil {
			return model.BatchStatus{}, err
		}
		stored = append(stored, obj)
		env = withWatermarkPath(env, obj)
	}

	now := time.Now().UTC()
	st := model.BatchStatus{
		ID:        id,
		ToolID:    tool.ID,
		State:     model.BatchIdle,
		Files:     files,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return model.BatchStatus{}, err
	}

	b := model.Batch{ID: id, ToolID: tool.ID, Settings: env, Files: files, CreatedAt: now}
	if err := s.producer.Produce(ctx, b); err != nil {
		return model.BatchStatus{}, fmt.Errorf("enqueue batch: %w", err)
	}
	accepted = true

	zlog.Logger.Info().Str("batch", id.String()).Str("tool", tool.ID).Int("files", len(files)).Msg("batch submitted")

	return st, nil
}

// checkWatermark rejects watermark settings the worker cannot apply safely:
// fonts outside the catalog and image overlays without an uploaded image.
func checkWatermark(settings model.Settings, watermark *Upload) error {
	w, ok := settings.(model.WatermarkSettings)
	if !ok {
		return nil
	}

	if w.Text != nil && w.Text.Font != "" && !catalog.IsFont(w.Text.Font) {
		return fmt.Errorf("%w: unknown font %q", model.ErrInvalidSettings, w.Text.Font)
	}
	if w.Image != nil && (watermark == nil || watermark.Reader == nil) {
		return fmt.Errorf("%w: image watermark needs an uploaded image", model.ErrInvalidSettings)
	}

	return nil
}

// saveWatermark stores the uploaded overlay image under subdir.
func (s *Service) saveWatermark(ctx context.Context, dir, subdir string, u *Upload) (string, error) {
	name := uniqueNames([]Upload{*u})[0]
	local := filepath.Join(dir, "watermark-"+name)

	if err := writeLocal(local, u.Reader); err != nil {
		return "", err
	}
	if _, err := codec.Open(local); err != nil {
		return "", fmt.Errorf("%w: watermark image: %v", model.ErrInvalidSettings, err)
	}

	return s.storage.Upload(ctx, subdir, name, local)
}

// withWatermarkPath returns a copy of env whose image overlay points at location.
func withWatermarkPath(env model.SettingsEnvelope, location string) model.SettingsEnvelope {
	w := *env.Watermark
	img := *w.Image
	img.Path = location
	w.Image = &img
	env.Watermark = &w

	return env
}

// localWatermark downloads the overlay image of the batch into dir and
// points the settings at it. Only objects stored with the batch are read.
func (s *Service) localWatermark(ctx context.Context, b model.Batch, settings model.Settings, dir string) (model.Settings, error) {
	w, ok := settings.(model.WatermarkSettings)
	if !ok || w.Image == nil {
		return settings, nil
	}

	prefix := path.Join(b.ID.String(), "watermark") + "/"
	obj := w.Image.Path
	if !strings.HasPrefix(obj, prefix) || path.Clean(obj) != obj {
		return nil, fmt.Errorf("%w: watermark image %q is not stored with the batch", model.ErrInvalidSettings, obj)
	}

	local := filepath.Join(dir, "watermark-"+path.Base(obj))
	if err := s.storage.Download(ctx, obj, local); err != nil {
		return nil, err
	}

	img := *w.Image
	img.Path = local
	w.Image = &img

	return w, nil
}

// discard removes objects of a submission that was not accepted.
func (s *Service) discard(objects []string) {
	ctx := context.Background()

	for _, obj := range objects {
		if err := s.storage.Delete(ctx, obj); err != nil {
			zlog.Logger.Warn().Err(err).Str("object", obj).Msg("failed to remove object")
		}
	}
}

func (s *Service) savePreview(ctx context.Context, subdir, name, localPath string) (string, error) {
	size := image.Pt(s.cfg.PreviewSize, s.cfg.PreviewSize)
	img := s.previewer.Render(localPath, size, 1)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, model.FormatPNG, 0); err != nil {
		return "", err
	}

	return s.storage.Save(ctx, subdir, name+".png", &buf)
}

// Process runs a queued batch: it downloads the inputs, executes the tool,
// uploads the outputs and records the final status. Failures of single
// files are absorbed; an error is returned only when the batch could not
// run at all.
func (s *Service) Process(ctx context.Context, b model.Batch) error {
	st, err := s.repo.Get(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if st.State.Terminal() {
		zlog.Logger.Warn().Str("batch", b.ID.String()).Str("state", string(st.State)).Msg("batch already finished")
		return nil
	}

	tool, err := catalog.Lookup(b.ToolID)
	if err != nil {
		return s.fail(ctx, st, err)
	}
	settings, err := b.Settings.Settings()
	if err != nil {
		return s.fail(ctx, st, err)
	}

	token := s.register(b.ID)
	defer s.unregister(b.ID)

	if requested, _ := s.repo.CancelRequested(ctx, b.ID); requested {
		token.Cancel()
	}

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "batch-*")
	if err != nil {
		return s.fail(ctx, st, fmt.Errorf("create work dir: %w", err))
	}
	defer os.RemoveAll(dir)

	inDir, outDir := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	for _, d := range []string{inDir, outDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return s.fail(ctx, st, err)
		}
	}

	settings, err = s.localWatermark(ctx, b, settings, dir)
	if err != nil {
		return s.fail(ctx, st, err)
	}

	files := make([]model.File, len(b.Files))
	for i, f := range b.Files {
		local := filepath.Join(inDir, filepath.Base(f.Name))
		if err := s.storage.Download(ctx, f.Source, local); err != nil {
			return s.fail(ctx, st, err)
		}
		files[i] = model.File{Name: f.Name, Source: local}
	}

	st.State = model.BatchRunning
	st.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, st); err != nil {
		return err
	}

	stopPoll := s.pollCancel(ctx, b.ID, token)
	progress := st
	progress.Files = slices.Clone(st.Files)
	res := s.runner.Execute(ctx, batch.Request{
		Files:     files,
		Tool:      tool,
		Settings:  settings,
		OutputDir: outDir,
		Token:     token,
		Progress: func(p float64) {
			progress.Progress = p
			progress.UpdatedAt = time.Now().UTC()
			if err := s.repo.Save(ctx, progress); err != nil {
				zlog.Logger.Err(err).Str("batch", b.ID.String()).Msg("failed to save progress")
			}
		},
	})
	stopPoll()

	// results are recorded even when the worker is shutting down
	ctx = context.WithoutCancel(ctx)
	final, size := s.collect(ctx, st, res)

	// queued behind the progress writes
	saved := make(chan error, 1)
	s.dispatcher.Dispatch(func() { saved <- s.repo.Save(ctx, final) })
	if err := <-saved; err != nil {
		return err
	}

	zlog.Logger.Info().
		Str("batch", b.ID.String()).
		Str("state", string(final.State)).
		Int("outputs", len(final.Outputs())).
		Msg("batch finished")

	if final.State == model.BatchCompleted && size > 0 {
		h := model.NewHistory(tool, size, final.UpdatedAt)
		if err := s.producer.PublishHistory(ctx, h); err != nil {
			zlog.Logger.Err(err).Str("batch", b.ID.String()).Msg("failed to publish history")
		}
	}

	return nil
}

// collect uploads the outputs of res and returns the final status with the
// total size of what was produced.
func (s *Service) collect(ctx context.Context, st model.BatchStatus, res batch.Result) (model.BatchStatus, int64) {
	prefix := path.Join(st.ID.String(), "outputs")
	var size int64

	for i, f := range res.Files {
		if i >= len(st.Files) {
			break
		}

		if f.Text != nil {
			st.Files[i].SetText(*f.Text)
			size += int64(len(*f.Text))
		}

		if f.Result == "" {
			continue
		}

		obj, err := s.storage.Upload(ctx, prefix, filepath.Base(f.Result), f.Result)
		if err != nil {
			zlog.Logger.Err(err).Str("file", f.Result).Msg("failed to upload output")
			continue
		}
		if err := st.Files[i].SetResult(obj); err != nil {
			zlog.Logger.Err(err).Str("file", f.Name).Msg("failed to record output")
			continue
		}
		if info, err := os.Stat(f.Result); err == nil {
			size += info.Size()
		}
	}

	if len(res.Archive) > 0 {
		name := fmt.Sprintf("Archive-%s.zip", uuid.New())
		obj, err := s.storage.Save(ctx, prefix, name, bytes.NewReader(res.Archive))
		if err != nil {
			zlog.Logger.Err(err).Str("batch", st.ID.String()).Msg("failed to upload archive")
		} else {
			st.Archive = obj
			size += int64(len(res.Archive))
		}
	}

	st.Texts = res.Texts
	st.NoTextFound = res.NoTextFound
	st.Cancelled = res.Cancelled
	st.State = model.BatchCompleted
	st.Progress = 1
	if res.Cancelled {
		st.State = model.BatchCancelled
	}
	st.UpdatedAt = time.Now().UTC()

	return st, size
}

func (s *Service) fail(ctx context.Context, st model.BatchStatus, cause error) error {
	st.State = model.BatchFailed
	st.Error = cause.Error()
	st.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, st); err != nil {
		zlog.Logger.Err(err).Str("batch", st.ID.String()).Msg("failed to save failed status")
	}

	return fmt.Errorf("process batch %s: %w", st.ID, cause)
}

// pollCancel cancels the token once a cancel request for the batch shows
// up in the repository.
func (s *Service) pollCancel(ctx context.Context, id uuid.UUID, token *cancel.Token) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(s.cfg.CancelPoll)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				requested, err := s.repo.CancelRequested(ctx, id)
				if err != nil {
					zlog.Logger.Warn().Err(err).Str("batch", id.String()).Msg("failed to poll cancel request")
					continue
				}
				if requested {
					token.Cancel()
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (s *Service) register(id uuid.UUID) *cancel.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := cancel.New()
	s.tokens[id] = t

	return t
}

func (s *Service) unregister(id uuid.UUID) {
	s.mu.Lock()
	delete(s.tokens, id)
	s.mu.Unlock()
}

// Status returns the current status of the batch.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (model.BatchStatus, error) {
	return s.repo.Get(ctx, id)
}

// Cancel asks the batch to stop before its next file. Work in flight is
// not interrupted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if st.State.Terminal() {
		return ErrBatchNotActive
	}

	if err := s.repo.RequestCancel(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	t, ok := s.tokens[id]
	s.mu.Unlock()
	if ok {
		t.Cancel()
	}

	zlog.Logger.Info().Str("batch", id.String()).Msg("batch cancel requested")

	return nil
}

// Output opens the index-th output of the batch and returns it with its name.
func (s *Service) Output(ctx context.Context, id uuid.UUID, index int) (io.ReadCloser, string, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	outputs := st.Outputs()
	if index < 0 || index >= len(outputs) {
		return nil, "", ErrOutputNotFound
	}

	r, err := s.storage.Load(ctx, outputs[index])
	if err != nil {
		return nil, "", err
	}

	return r, path.Base(outputs[index]), nil
}

// Preview opens the preview of the index-th input file.
func (s *Service) Preview(ctx context.Context, id uuid.UUID, index int) (io.ReadCloser, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(st.Files) || st.Files[index].Preview == "" {
		return nil, ErrOutputNotFound
	}

	return s.storage.Load(ctx, st.Files[index].Preview)
}

func writeLocal(dst string, src io.Reader) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(f, src); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	return nil
}

// uniqueNames returns safe base names for the uploads. A name whose stem is
// already taken gets the first free " (2)", " (3)" and so on, since outputs
// are named after the stem.
func uniqueNames(uploads []Upload) []string {
	used := make(map[string]bool, len(uploads))
	out := make([]string, len(uploads))

	for i, u := range uploads {
		name := filepath.Base(filepath.Clean("/" + u.Name))
		if name == "/" || name == "." {
			name = fmt.Sprintf("file-%d", i+1)
		}

		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)

		candidate := stem
		for n := 2; used[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s (%d)", stem, n)
		}
		used[strings.ToLower(candidate)] = true

		out[i] = candidate + ext
	}

	return out
}
