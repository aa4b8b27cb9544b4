package status

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-converter/internal/model"
)

func newRepo(t *testing.T, ttl time.Duration) (*Repository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRepository(client, ttl), mr
}

func TestSaveAndGet(t *testing.T) {
	repo, mr := newRepo(t, time.Hour)
	ctx := context.Background()

	st := model.BatchStatus{
		ID:       uuid.New(),
		ToolID:   "png-to-jpg",
		State:    model.BatchRunning,
		Progress: 0.5,
		Files:    []model.File{{Name: "a.png", Source: "x/originals/a.png"}},
	}
	require.NoError(t, repo.Save(ctx, st))

	got, err := repo.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, model.BatchRunning, got.State)
	assert.Equal(t, 0.5, got.Progress)
	assert.Equal(t, st.Files, got.Files)

	assert.Equal(t, time.Hour, mr.TTL(statusKey(st.ID)))
}

func TestGetMissing(t *testing.T) {
	repo, _ := newRepo(t, 0)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestStatusExpires(t *testing.T) {
	repo, mr := newRepo(t, time.Minute)
	ctx := context.Background()

	st := model.BatchStatus{ID: uuid.New(), State: model.BatchCompleted}
	require.NoError(t, repo.Save(ctx, st))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, st.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestDefaultTTL(t *testing.T) {
	repo, mr := newRepo(t, 0)

	id := uuid.New()
	require.NoError(t, repo.Save(context.Background(), model.BatchStatus{ID: id}))
	assert.Equal(t, DefaultTTL, mr.TTL(statusKey(id)))
}

func TestCancelRequest(t *testing.T) {
	repo, mr := newRepo(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	requested, err := repo.CancelRequested(ctx, id)
	require.NoError(t, err)
	assert.False(t, requested)

	require.NoError(t, repo.RequestCancel(ctx, id))

	requested, err = repo.CancelRequested(ctx, id)
	require.NoError(t, err)
	assert.True(t, requested)
	assert.Equal(t, time.Hour, mr.TTL(cancelKey(id)))

	requested, err = repo.CancelRequested(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestDelete(t *testing.T) {
	repo, _ := newRepo(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.Save(ctx, model.BatchStatus{ID: id}))
	require.NoError(t, repo.RequestCancel(ctx, id))
	require.NoError(t, repo.Delete(ctx, id))

	_, err := repo.Get(ctx, id)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	requested, err := repo.CancelRequested(ctx, id)
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestUnreachableRedis(t *testing.T) {
	repo, mr := newRepo(t, time.Hour)
	mr.Close()

	_, err := repo.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBatchNotFound)
}
