package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	batchhandler "github.com/aliskhannn/image-converter/internal/api/handlers/batch"
	"github.com/aliskhannn/image-converter/internal/api/router"
	"github.com/aliskhannn/image-converter/internal/api/server"
	"github.com/aliskhannn/image-converter/internal/batch"
	"github.com/aliskhannn/image-converter/internal/config"
	"github.com/aliskhannn/image-converter/internal/convert"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/infra/kafka/consumer"
	"github.com/aliskhannn/image-converter/internal/infra/kafka/producer"
	batchmsg "github.com/aliskhannn/image-converter/internal/kafka/handlers/batch"
	"github.com/aliskhannn/image-converter/internal/ocr"
	"github.com/aliskhannn/image-converter/internal/ocr/tesseract"
	"github.com/aliskhannn/image-converter/internal/preflight"
	"github.com/aliskhannn/image-converter/internal/processor"
	"github.com/aliskhannn/image-converter/internal/repository/status"
	batchsvc "github.com/aliskhannn/image-converter/internal/service/batch"
	"github.com/aliskhannn/image-converter/internal/storage/file"
	"github.com/aliskhannn/image-converter/internal/thumbnail"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	conv := cfg.Conversion
	if err := os.MkdirAll(conv.WorkDir, 0o755); err != nil {
		zlog.Logger.Fatal().Err(err).Str("dir", conv.WorkDir).Msg("failed to create work dir")
	}

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Batch status lives in Redis so any instance can report and cancel it.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Initialize file storage (MinIO).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Conversion pipeline. Progress and final status writes share one queue.
	queue := dispatch.NewQueue()
	converter := convert.New(convert.Options{
		JPEGQuality: conv.JPEGQuality,
		RenderDPI:   conv.RenderDPI,
		TempDir:     conv.WorkDir,
	})
	transformer := processor.New(processor.Options{
		FontDir:     conv.FontDir,
		JPEGQuality: conv.JPEGQuality,
	})
	extractor := ocr.New(tesseract.New(conv.OCRLanguages...), conv.OCRConcurrency)
	orchestrator := batch.New(converter, transformer, extractor, queue)

	// Initialize repository, producer, and service layer.
	repo := status.NewRepository(rdb, cfg.Redis.StatusTTL)
	p := producer.New(&cfg.Kafka, strategy)
	service := batchsvc.NewService(
		storage,
		repo,
		p,
		preflight.New(conv.MaxBatchBytes),
		orchestrator,
		thumbnail.New(queue),
		queue,
		batchsvc.Config{
			WorkDir:     conv.WorkDir,
			PreviewSize: conv.ThumbnailSize,
			CancelPoll:  conv.CancelPoll,
		},
	)

	// Kafka consumer running queued batches.
	c := consumer.New(&cfg.Kafka, strategy, batchmsg.NewHandler(service))

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(batchhandler.NewHandler(service))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("image converter started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for the batch in flight to stop, then drain pending status writes.
	wg.Wait()
	queue.Close()

	if err := p.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer clients")
	}
	if err := c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
	if err := rdb.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close redis client")
	}
}
