package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeService struct {
	got []model.Batch
	err error
}

func (f *fakeService) Process(_ context.Context, b model.Batch) error {
	f.got = append(f.got, b)
	return f.err
}

func TestHandle(t *testing.T) {
	b := model.Batch{
		ID:       uuid.New(),
		ToolID:   "rotate-image",
		Settings: model.Wrap(model.RotateSettings{Angle: 90}),
		Files:    []model.File{{Name: "a.png", Source: "x/originals/a.png"}},
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)

	svc := &fakeService{}
	require.NoError(t, NewHandler(svc).Handle(context.Background(), kafka.Message{Value: data}))

	require.Len(t, svc.got, 1)
	assert.Equal(t, b.ID, svc.got[0].ID)
	settings, err := svc.got[0].Settings.Settings()
	require.NoError(t, err)
	assert.Equal(t, model.RotateSettings{Angle: 90}, settings)
}

func TestHandleErrors(t *testing.T) {
	svc := &fakeService{}
	assert.Error(t, NewHandler(svc).Handle(context.Background(), kafka.Message{Value: []byte("{")}))
	assert.Empty(t, svc.got)

	boom := errors.New("boom")
	svc.err = boom
	err := NewHandler(svc).Handle(context.Background(), kafka.Message{Value: []byte(`{"tool_id":"compress"}`)})
	assert.ErrorIs(t, err, boom)
}
