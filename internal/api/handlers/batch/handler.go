package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/api/respond"
	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/preflight"
	"github.com/aliskhannn/image-converter/internal/repository/status"
	batchsvc "github.com/aliskhannn/image-converter/internal/service/batch"
)

// maxMemory is the part of a multipart form kept in memory; the rest spills to disk.
const maxMemory = 32 << 20

// service defines the batch operations exposed over HTTP.
type service interface {
	Submit(ctx context.Context, toolID string, env model.SettingsEnvelope, uploads []batchsvc.Upload, watermark *batchsvc.Upload) (model.BatchStatus, error)
	Status(ctx context.Context, id uuid.UUID) (model.BatchStatus, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Output(ctx context.Context, id uuid.UUID, index int) (io.ReadCloser, string, error)
	Preview(ctx context.Context, id uuid.UUID, index int) (io.ReadCloser, error)
}

// Handler provides HTTP handlers for the tool catalog and batches.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// FileErrorResponse describes a rejected selection.
type FileErrorResponse struct {
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// Tools lists the catalog grouped by section.
func (h *Handler) Tools(c *ginext.Context) {
	respond.OK(c, catalog.Sections())
}

// Options lists the choices the settings screens offer.
func (h *Handler) Options(c *ginext.Context) {
	respond.OK(c, catalog.SettingsOptions())
}

// Submit handles a multipart upload of "files" for the "tool" with optional
// "settings" JSON, and starts the batch. An image watermark is sent as the
// "watermark" part.
func (h *Handler) Submit(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse multipart form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	toolID := c.PostForm("tool")
	if toolID == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("tool field is required"))
		return
	}

	var env model.SettingsEnvelope
	if raw := c.PostForm("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			zlog.Logger.Err(err).Msg("failed to unmarshal settings")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to unmarshal the settings"))
			return
		}
	}

	headers := c.Request.MultipartForm.File["files"]
	uploads := make([]batchsvc.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(uploads)
			zlog.Logger.Err(err).Str("file", fh.Filename).Msg("failed to open uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read %s", fh.Filename))
			return
		}
		uploads = append(uploads, batchsvc.Upload{Name: fh.Filename, Reader: f})
	}
	defer closeAll(uploads)

	var watermark *batchsvc.Upload
	if parts := c.Request.MultipartForm.File["watermark"]; len(parts) > 0 {
		f, err := parts[0].Open()
		if err != nil {
			zlog.Logger.Err(err).Str("file", parts[0].Filename).Msg("failed to open watermark image")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read %s", parts[0].Filename))
			return
		}
		defer f.Close()
		watermark = &batchsvc.Upload{Name: parts[0].Filename, Reader: f}
	}

	st, err := h.service.Submit(c.Request.Context(), toolID, env, uploads, watermark)
	if err != nil {
		var fe *preflight.FileError
		switch {
		case errors.As(err, &fe):
			zlog.Logger.Warn().Str("kind", fe.Kind.String()).Strs("files", fe.Files).Msg("selection rejected")
			respond.JSON(c, http.StatusUnprocessableEntity, FileErrorResponse{
				Kind:    fe.Kind.String(),
				Title:   fe.Title(),
				Message: fe.Message(),
				Files:   fe.Files,
			})
		case errors.Is(err, preflight.ErrNoFiles),
			errors.Is(err, catalog.ErrToolNotFound),
			errors.Is(err, model.ErrInvalidSettings):
			respond.Fail(c, http.StatusBadRequest, err)
		default:
			zlog.Logger.Err(err).Str("tool", toolID).Msg("failed to submit batch")
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to submit batch: %v", err))
		}
		return
	}

	respond.Accepted(c, st)
}

func closeAll(uploads []batchsvc.Upload) {
	for _, u := range uploads {
		if f, ok := u.Reader.(multipart.File); ok {
			_ = f.Close()
		}
	}
}

// Status returns the progress and results of a batch.
func (h *Handler) Status(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	st, err := h.service.Status(c.Request.Context(), id)
	if err != nil {
		failLookup(c, err, "failed to get batch")
		return
	}

	respond.OK(c, st)
}

// Cancel asks a running batch to stop.
func (h *Handler) Cancel(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		if errors.Is(err, batchsvc.ErrBatchNotActive) {
			respond.Fail(c, http.StatusConflict, err)
			return
		}
		failLookup(c, err, "failed to cancel batch")
		return
	}

	c.Status(http.StatusAccepted)
}

// Output downloads one output of a batch.
func (h *Handler) Output(c *ginext.Context) {
	id, index, ok := parseIndexed(c)
	if !ok {
		return
	}

	reader, name, err := h.service.Output(c.Request.Context(), id, index)
	if err != nil {
		failLookup(c, err, "failed to load output")
		return
	}
	defer reader.Close()

	respond.File(c, name, reader, true)
}

// Preview serves the PNG preview of one input.
func (h *Handler) Preview(c *ginext.Context) {
	id, index, ok := parseIndexed(c)
	if !ok {
		return
	}

	reader, err := h.service.Preview(c.Request.Context(), id, index)
	if err != nil {
		failLookup(c, err, "failed to load preview")
		return
	}
	defer reader.Close()

	respond.PNG(c, http.StatusOK, reader)
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}

	return id, true
}

func parseIndexed(c *ginext.Context) (uuid.UUID, int, bool) {
	id, ok := parseID(c)
	if !ok {
		return uuid.Nil, 0, false
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid index %q", c.Param("index")))
		return uuid.Nil, 0, false
	}

	return id, index, true
}

func failLookup(c *ginext.Context, err error, msg string) {
	if errors.Is(err, status.ErrBatchNotFound) || errors.Is(err, batchsvc.ErrOutputNotFound) {
		respond.Fail(c, http.StatusNotFound, err)
		return
	}

	zlog.Logger.Err(err).Msg(msg)
	respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("%s: %v", msg, err))
}
