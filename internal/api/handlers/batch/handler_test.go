package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/api/handlers/batch"
	"github.com/aliskhannn/image-converter/internal/api/router"
	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/preflight"
	"github.com/aliskhannn/image-converter/internal/repository/status"
	batchsvc "github.com/aliskhannn/image-converter/internal/service/batch"
)

func TestMain(m *testing.M) {
	zlog.Init()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeService struct {
	submitErr error
	toolID    string
	env       model.SettingsEnvelope
	names     []string
	contents  []string
	watermark string

	statuses  map[uuid.UUID]model.BatchStatus
	cancelErr error
	cancelled []uuid.UUID
}

func (f *fakeService) Submit(_ context.Context, toolID string, env model.SettingsEnvelope, uploads []batchsvc.Upload, watermark *batchsvc.Upload) (model.BatchStatus, error) {
	f.toolID, f.env = toolID, env
	if watermark != nil {
		data, _ := io.ReadAll(watermark.Reader)
		f.watermark = watermark.Name + ":" + string(data)
	}
	for _, u := range uploads {
		data, _ := io.ReadAll(u.Reader)
		f.names = append(f.names, u.Name)
		f.contents = append(f.contents, string(data))
	}
	if f.submitErr != nil {
		return model.BatchStatus{}, f.submitErr
	}

	return model.BatchStatus{ID: uuid.New(), ToolID: toolID, State: model.BatchIdle}, nil
}

func (f *fakeService) Status(_ context.Context, id uuid.UUID) (model.BatchStatus, error) {
	st, ok := f.statuses[id]
	if !ok {
		return model.BatchStatus{}, status.ErrBatchNotFound
	}

	return st, nil
}

func (f *fakeService) Cancel(_ context.Context, id uuid.UUID) error {
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}

func (f *fakeService) Output(_ context.Context, id uuid.UUID, index int) (io.ReadCloser, string, error) {
	if _, ok := f.statuses[id]; !ok || index != 0 {
		return nil, "", batchsvc.ErrOutputNotFound
	}

	return io.NopCloser(strings.NewReader("zipdata")), "photo_converted.pdf", nil
}

func (f *fakeService) Preview(_ context.Context, id uuid.UUID, index int) (io.ReadCloser, error) {
	if _, ok := f.statuses[id]; !ok || index != 0 {
		return nil, batchsvc.ErrOutputNotFound
	}

	return io.NopCloser(strings.NewReader("png")), nil
}

func serve(t *testing.T, svc *fakeService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	router.Setup(batch.NewHandler(svc)).ServeHTTP(w, req)

	return w
}

func submitRequest(t *testing.T, tool, settings string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("tool", tool))
	if settings != "" {
		require.NoError(t, mw.WriteField("settings", settings))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestTools(t *testing.T) {
	w := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result []catalog.Section `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Result, len(catalog.Sections()))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightRequest(t *testing.T) {
	w := serve(t, &fakeService{}, httptest.NewRequest(http.MethodOptions, "/api/batches", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubmit(t *testing.T) {
	svc := &fakeService{}
	settings := `{"kind":"rotate","rotate":{"angle":90}}`

	w := serve(t, svc, submitRequest(t, "rotate-image", settings, map[string]string{"a.png": "pixels"}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	assert.Equal(t, "rotate-image", svc.toolID)
	got, err := svc.env.Settings()
	require.NoError(t, err)
	assert.Equal(t, model.RotateSettings{Angle: 90}, got)
	assert.Equal(t, []string{"a.png"}, svc.names)
	assert.Equal(t, []string{"pixels"}, svc.contents)
}

func TestSubmitWatermarkPart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("tool", "watermark"))
	require.NoError(t, mw.WriteField("settings", `{"kind":"watermark","watermark":{"image":{"path":"/etc/passwd","opacity":50}}}`))
	fw, err := mw.CreateFormFile("files", "a.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("pixels"))
	require.NoError(t, err)
	fw, err = mw.CreateFormFile("watermark", "mark.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("logo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	svc := &fakeService{}
	w := serve(t, svc, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	assert.Equal(t, "mark.png:logo", svc.watermark)
	assert.Equal(t, []string{"a.png"}, svc.names)
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		settings string
		err      error
		code     int
	}{
		{name: "missing tool", code: http.StatusBadRequest},
		{name: "bad settings", tool: "resize-image", settings: "{", code: http.StatusBadRequest},
		{name: "unknown tool", tool: "x", err: catalog.ErrToolNotFound, code: http.StatusBadRequest},
		{name: "settings mismatch", tool: "crop-image", err: model.ErrInvalidSettings, code: http.StatusBadRequest},
		{
			name: "preflight",
			tool: "pdf-to-jpg",
			err:  &preflight.FileError{Kind: preflight.KindLocked, Files: []string{"a.png"}},
			code: http.StatusUnprocessableEntity,
		},
		{name: "storage", tool: "compress", err: io.ErrUnexpectedEOF, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{submitErr: tt.err}
			w := serve(t, svc, submitRequest(t, tt.tool, tt.settings, map[string]string{"a.png": "x"}))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestSubmitFileErrorBody(t *testing.T) {
	svc := &fakeService{submitErr: &preflight.FileError{Kind: preflight.KindTooLarge, Files: []string{"a.png"}}}

	w := serve(t, svc, submitRequest(t, "compress", "", map[string]string{"a.png": "x"}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp batch.FileErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "too_large", resp.Kind)
	assert.Equal(t, "Files Too Large", resp.Title)
	assert.Equal(t, []string{"a.png"}, resp.Files)
}

func TestStatusAndCancel(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{statuses: map[uuid.UUID]model.BatchStatus{
		id: {ID: id, State: model.BatchRunning, Progress: 0.5},
	}}

	w := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"progress":0.5`)

	w = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, svc, httptest.NewRequest(http.MethodPost, "/api/batches/"+id.String()+"/cancel", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []uuid.UUID{id}, svc.cancelled)

	svc.cancelErr = batchsvc.ErrBatchNotActive
	w = serve(t, svc, httptest.NewRequest(http.MethodPost, "/api/batches/"+id.String()+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOutputAndPreview(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{statuses: map[uuid.UUID]model.BatchStatus{id: {ID: id}}}

	w := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+id.String()+"/outputs/0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "photo_converted.pdf")
	assert.Equal(t, "zipdata", w.Body.String())

	w = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+id.String()+"/outputs/3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+id.String()+"/outputs/-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/batches/"+id.String()+"/previews/0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}
