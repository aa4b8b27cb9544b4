package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Storage    Storage    `mapstructure:"storage"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Retry      Retry      `mapstructure:"retry"`
	Redis      Redis      `mapstructure:"redis"`
	Conversion Conversion `mapstructure:"conversion"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the file storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID      string   `mapstructure:"group_id"`      // Consumer group ID
	Topic        string   `mapstructure:"topic"`         // Batch jobs topic
	HistoryTopic string   `mapstructure:"history_topic"` // Completed operations topic
	Brokers      []string `mapstructure:"brokers"`       // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Redis holds the batch status store connection.
type Redis struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	StatusTTL time.Duration `mapstructure:"status_ttl"` // how long finished batches stay visible
}

// Conversion holds the tunables of the conversion pipeline.
type Conversion struct {
	WorkDir        string        `mapstructure:"work_dir"`
	MaxBatchBytes  int64         `mapstructure:"max_batch_bytes"`
	JPEGQuality    int           `mapstructure:"jpeg_quality"`
	RenderDPI      float64       `mapstructure:"render_dpi"`
	FontDir        string        `mapstructure:"font_dir"`
	ThumbnailSize  int           `mapstructure:"thumbnail_size"`
	OCRLanguages   []string      `mapstructure:"ocr_languages"`
	OCRConcurrency int           `mapstructure:"ocr_concurrency"`
	CancelPoll     time.Duration `mapstructure:"cancel_poll"`
}

func setDefaults() {
	viper.SetDefault("server.http_port", ":8080")
	viper.SetDefault("kafka.history_topic", "history")
	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", time.Second)
	viper.SetDefault("retry.backoff", 2)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.status_ttl", 24*time.Hour)
	viper.SetDefault("conversion.max_batch_bytes", 100<<20)
	viper.SetDefault("conversion.jpeg_quality", 100)
	viper.SetDefault("conversion.render_dpi", 72)
	viper.SetDefault("conversion.thumbnail_size", 256)
	viper.SetDefault("conversion.ocr_languages", []string{"eng"})
	viper.SetDefault("conversion.ocr_concurrency", 4)
	viper.SetDefault("conversion.cancel_poll", 500*time.Millisecond)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ROOT_USER",
		"storage.secret_key": "MINIO_ROOT_PASSWORD",
		"redis.password":     "REDIS_PASSWORD",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
