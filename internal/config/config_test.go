package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func TestMustLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: ":9000"
kafka:
  brokers: ["kafka:9092"]
  topic: batches
  group_id: workers
conversion:
  font_dir: /fonts
  ocr_languages: ["eng", "deu"]
`), 0o644))

	t.Setenv("REDIS_PASSWORD", "secret")

	cfg := MustLoad(path)

	assert.Equal(t, ":9000", cfg.Server.HTTPPort)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "history", cfg.Kafka.HistoryTopic)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 24*time.Hour, cfg.Redis.StatusTTL)
	assert.Equal(t, int64(100<<20), cfg.Conversion.MaxBatchBytes)
	assert.Equal(t, 100, cfg.Conversion.JPEGQuality)
	assert.Equal(t, []string{"eng", "deu"}, cfg.Conversion.OCRLanguages)
	assert.Equal(t, 500*time.Millisecond, cfg.Conversion.CancelPoll)
}
