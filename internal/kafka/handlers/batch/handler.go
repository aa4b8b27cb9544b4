package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

// service runs queued batches.
type service interface {
	Process(ctx context.Context, b model.Batch) error
}

// Handler handles Kafka messages carrying queued batches.
type Handler struct {
	service service
}

// NewHandler creates a new handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Handle unmarshals the batch and runs it.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var b model.Batch
	if err := json.Unmarshal(msg.Value, &b); err != nil {
		return fmt.Errorf("unmarshal batch: %w", err)
	}

	if err := h.service.Process(ctx, b); err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	zlog.Logger.Info().Str("batch", b.ID.String()).Msg("batch processed")

	return nil
}
