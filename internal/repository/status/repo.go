package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/image-converter/internal/model"
)

// ErrBatchNotFound is returned when no status is stored for the batch.
var ErrBatchNotFound = errors.New("batch not found")

// DefaultTTL is how long a batch status is kept after its last update.
const DefaultTTL = 24 * time.Hour

// Repository keeps batch statuses and cancel requests in Redis.
type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRepository creates a new Repository with the given Redis client.
func NewRepository(client *redis.Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Repository{client: client, ttl: ttl}
}

func statusKey(id uuid.UUID) string { return "batch:" + id.String() }
func cancelKey(id uuid.UUID) string { return "batch:" + id.String() + ":cancel" }

// Save stores the status, replacing the previous one.
func (r *Repository) Save(ctx context.Context, st model.BatchStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := r.client.Set(ctx, statusKey(st.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save: failed to save status: %w", err)
	}

	return nil
}

// Get returns the status of the batch.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (model.BatchStatus, error) {
	data, err := r.client.Get(ctx, statusKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.BatchStatus{}, ErrBatchNotFound
	}
	if err != nil {
		return model.BatchStatus{}, fmt.Errorf("get: failed to get status: %w", err)
	}

	var st model.BatchStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return model.BatchStatus{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return st, nil
}

// Delete removes the status and any pending cancel request.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, statusKey(id), cancelKey(id)).Err()
}

// RequestCancel flags the batch for cancellation by whichever worker runs it.
func (r *Repository) RequestCancel(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Set(ctx, cancelKey(id), 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to request cancel: %w", err)
	}

	return nil
}

// CancelRequested reports whether RequestCancel was called for the batch.
func (r *Repository) CancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, cancelKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cancel request: %w", err)
	}

	return n > 0, nil
}
