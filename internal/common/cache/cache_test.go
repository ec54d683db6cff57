package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clientatech-agent/internal/common/database"
	"clientatech-agent/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(t *testing.T, question string, createdAt time.Time) *models.CacheEntry {
	t.Helper()
	q := models.NewQuery(question, createdAt)
	entry, err := models.NewCacheEntry(q, models.IntentRisk,
		&models.SQLStatement{Text: "SELECT nome FROM clientes", Validated: true},
		&models.ResultSet{Columns: []string{"nome"}, Rows: []models.Row{{"nome": "Supermercado Silva"}}},
		&models.Response{Text: "⚠️ Supermercado Silva", Intent: models.IntentRisk, Presentation: models.PresentationRiskAlert},
		createdAt)
	require.NoError(t, err)
	return entry
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	store := NewRedisStore(client, "clientatech:cache", time.Hour)

	entry := sampleEntry(t, "Quem está em risco?", time.Now())

	_, err := store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Put(ctx, entry))
	assert.True(t, mr.Exists("clientatech:cache:"+entry.Fingerprint))
	assert.Equal(t, time.Hour, mr.TTL("clientatech:cache:"+entry.Fingerprint))

	got, err := store.Get(ctx, entry.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, entry.Answer, got.Answer)
	assert.Equal(t, entry.SQL, got.SQL)
	assert.Equal(t, models.IntentRisk, got.Intent)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Supermercado Silva", got.Result.Rows[0]["nome"])

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	store := NewRedisStore(client, "clientatech:cache", 0)

	entry := sampleEntry(t, "Quem está em risco?", time.Now())
	require.NoError(t, store.Put(ctx, entry))

	mr.FastForward(365 * 24 * time.Hour)
	_, err := store.Get(ctx, entry.Fingerprint)
	assert.NoError(t, err)
}

func TestRedisStore_PurgeOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	store := NewRedisStore(client, "clientatech:cache", 0)

	require.NoError(t, store.Put(ctx, sampleEntry(t, "pergunta um", time.Now())))
	require.NoError(t, store.Put(ctx, sampleEntry(t, "pergunta dois", time.Now())))
	require.NoError(t, mr.Set("other:key", "keep"))

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisStore_Faults(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "clientatech:cache", time.Minute)

	mock.ExpectGet("clientatech:cache:abc").SetErr(errors.New("connection refused"))
	_, err := store.Get(ctx, "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	mock.ExpectGet("clientatech:cache:def").RedisNil()
	_, err = store.Get(ctx, "def")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mock.ExpectGet("clientatech:cache:bad").SetVal("{not json")
	_, err = store.Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func newSQLiteStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	client, err := database.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store, err := NewSQLiteStore(client.DB, ttl)
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_RoundTripAndReplace(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, 0)

	entry := sampleEntry(t, "Quem está em risco?", time.Now())
	_, err := store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Put(ctx, entry))

	replacement := *entry
	replacement.Answer = "resposta atualizada"
	require.NoError(t, store.Put(ctx, &replacement))

	got, err := store.Get(ctx, entry.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "resposta atualizada", got.Answer)

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSQLiteStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, time.Hour)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entry := sampleEntry(t, "Quem está em risco?", created)
	require.NoError(t, store.Put(ctx, entry))

	store.now = func() time.Time { return created.Add(30 * time.Minute) }
	_, err := store.Get(ctx, entry.Fingerprint)
	assert.NoError(t, err)

	store.now = func() time.Time { return created.Add(2 * time.Hour) }
	_, err = store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSQLiteStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, 0)
	entry := sampleEntry(t, "Quem está em risco?", time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, entry))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, entry.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, entry.Answer, got.Answer)
}

type countingStore struct {
	Store
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.Get(ctx, fingerprint)
}

func TestLayeredStore(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	backing := &countingStore{Store: NewRedisStore(client, "clientatech:cache", 0)}
	store := NewLayeredStore(backing, 16, time.Minute)

	entry := sampleEntry(t, "Quem está em risco?", time.Now())

	_, err := store.Get(ctx, entry.Fingerprint)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, backing.gets)

	require.NoError(t, store.Put(ctx, entry))
	for i := 0; i < 3; i++ {
		got, err := store.Get(ctx, entry.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, entry.Answer, got.Answer)
	}
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, 1, store.Len())

	// a fresh process only has the backing copy
	cold := NewLayeredStore(backing, 16, time.Minute)
	_, err = cold.Get(ctx, entry.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, store.Len())
}
