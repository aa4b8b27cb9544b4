package model

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsEnvelope(t *testing.T) {
	rotate := RotateSettings{Angle: 90, FlipHorizontal: true}

	data, err := json.Marshal(Wrap(rotate))
	require.NoError(t, err)

	var env SettingsEnvelope
	require.NoError(t, json.Unmarshal(data, &env))

	s, err := env.Settings()
	require.NoError(t, err)
	assert.Equal(t, rotate, s)
	assert.Equal(t, SettingsRotate, s.Kind())
}

func TestSettingsEnvelopeMissingPayload(t *testing.T) {
	_, err := SettingsEnvelope{Kind: SettingsResize}.Settings()
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = SettingsEnvelope{Kind: "bogus"}.Settings()
	assert.ErrorIs(t, err, ErrInvalidSettings)

	s, err := SettingsEnvelope{}.Settings()
	require.NoError(t, err)
	assert.Equal(t, NoSettings{}, s)
}

func TestResizeTargetSize(t *testing.T) {
	tests := []struct {
		name    string
		s       ResizeSettings
		want    image.Point
		wantErr bool
	}{
		{name: "by size", s: ResizeSettings{Width: 320, Height: 240}, want: image.Pt(320, 240)},
		{name: "by percentage", s: ResizeSettings{Mode: ResizeByPercentage, Percent: 50}, want: image.Pt(400, 300)},
		{name: "zero width", s: ResizeSettings{Width: 0, Height: 10}, wantErr: true},
		{name: "zero percent", s: ResizeSettings{Mode: ResizeByPercentage}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.TargetSize(image.Pt(800, 600))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSetResultOnce(t *testing.T) {
	var f File

	require.NoError(t, f.SetResult("out/a.jpg"))
	assert.ErrorIs(t, f.SetResult("out/b.jpg"), ErrResultAlreadySet)
	assert.Equal(t, "out/a.jpg", f.Result)
}

func TestHistoryTitle(t *testing.T) {
	tool := Tool{From: FormatPDF, To: FormatPNG, Category: CategoryPDFToImage, Action: ActionConvert}

	h := NewHistory(tool, 42, time.Time{})

	assert.Equal(t, "PDF-to-PNG-"+h.ID.String()+".zip", h.Title)
	assert.Equal(t, int64(42), h.Size)
	assert.Equal(t, FormatPNG, h.ToType)
}
