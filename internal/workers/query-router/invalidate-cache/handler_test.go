package invalidatecache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientatech-agent/internal/common/cache"
	"clientatech-agent/internal/common/database"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

func newStore(t *testing.T) *cache.SQLiteStore {
	t.Helper()
	client, err := database.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store, err := cache.NewSQLiteStore(client.DB, 0)
	require.NoError(t, err)
	return store
}

func putAnswer(t *testing.T, store cache.Store, question string) {
	t.Helper()
	q := models.NewQuery(question, time.Now())
	entry, err := models.NewCacheEntry(q, models.IntentGreeting, nil, nil,
		&models.Response{Text: "Olá!", Intent: models.IntentGreeting, Presentation: models.PresentationGreeting}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), entry))
}

func TestExecute_PurgesEveryEntry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	putAnswer(t, store, "Oi")
	putAnswer(t, store, "Olá")

	h := NewHandler(&Config{Timeout: time.Second}, store, logger.NewTestLogger(t))
	out, err := h.Execute(ctx, &Input{Reason: "contracts imported"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Purged)
	assert.NotEmpty(t, out.InvalidatedAt)

	_, err = store.Get(ctx, models.NewQuery("Oi", time.Now()).Fingerprint())
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	out, err = h.Execute(ctx, &Input{})
	require.NoError(t, err)
	assert.Zero(t, out.Purged)
}

type brokenStore struct{ cache.Store }

func (brokenStore) Purge(context.Context) (int, error) {
	return 0, assert.AnError
}

func TestExecute_StoreFailureIsACacheFault(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, brokenStore{}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.Equal(t, apperrors.ErrCodeCacheFault, apperrors.CodeOf(err))
}

func TestExecute_DisabledStoreIsACacheFault(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.Equal(t, apperrors.ErrCodeCacheFault, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, ErrCacheDisabled)
}
