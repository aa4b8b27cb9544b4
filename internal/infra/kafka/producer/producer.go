package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-converter/internal/config"
	"github.com/aliskhannn/image-converter/internal/model"
)

// Producer publishes batch jobs and history records.
type Producer struct {
	Client   *wbfkafka.Producer // batch jobs
	History  *wbfkafka.Producer // completed operations
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.Topic),
		History:  wbfkafka.NewProducer(cfg.Brokers, cfg.HistoryTopic),
		cfg:      cfg,
		strategy: s,
	}
}

// Produce serializes the batch to JSON and sends it to the jobs topic.
// The batch ID is used as the message key for partitioning and ordering.
func (p *Producer) Produce(ctx context.Context, b model.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, []byte(b.ID.String()), data); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

// PublishHistory sends the record to the history topic.
func (p *Producer) PublishHistory(ctx context.Context, h model.History) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err = p.History.SendWithRetry(ctx, p.strategy, []byte(h.ID.String()), data); err != nil {
		return fmt.Errorf("failed to send history: %w", err)
	}

	return nil
}

// Close closes both underlying writers.
func (p *Producer) Close() error {
	if err := p.Client.Close(); err != nil {
		return err
	}

	return p.History.Close()
}
