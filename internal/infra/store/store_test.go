package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/store"
	"github.com/boddenberg/datapay-bfa-go/internal/port"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stores(t *testing.T) map[string]port.SessionStore {
	t.Helper()

	fileStore, err := store.NewFile(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]port.SessionStore{
		"memory": store.NewMemory(),
		"file":   fileStore,
		"redis":  store.NewRedis(rdb, time.Hour, zap.NewNop()),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			h := &domain.SessionHandle{SessionID: "s-1", CalculationID: "c-1"}
			require.NoError(t, s.Save(ctx, domain.DefaultSessionKey, h))

			got, err := s.Load(ctx, domain.DefaultSessionKey)
			require.NoError(t, err)
			assert.Equal(t, h, got)

			require.NoError(t, s.Delete(ctx, domain.DefaultSessionKey))
			got, err = s.Load(ctx, domain.DefaultSessionKey)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStores_MissingKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Load(ctx, "datapay_session:nobody")
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.NoError(t, s.Delete(ctx, "datapay_session:nobody"))
		})
	}
}

func TestStores_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "datapay_session:a", &domain.SessionHandle{CalculationID: "a"}))
			require.NoError(t, s.Save(ctx, "datapay_session:b", &domain.SessionHandle{CalculationID: "b"}))
			require.NoError(t, s.Delete(ctx, "datapay_session:a"))

			got, err := s.Load(ctx, "datapay_session:b")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "b", got.CalculationID)
		})
	}
}

func TestMemory_MalformedIsNoSession(t *testing.T) {
	m := store.NewMemory()
	m.Put(domain.DefaultSessionKey, []byte("{not json"))

	got, err := m.Load(context.Background(), domain.DefaultSessionKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_HandleWithoutCalculationIsNoSession(t *testing.T) {
	m := store.NewMemory()
	m.Put(domain.DefaultSessionKey, []byte(`{"sessionId":"s-1"}`))

	got, err := m.Load(context.Background(), domain.DefaultSessionKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	m := store.NewMemoryWithTTL(50 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, "k", &domain.SessionHandle{CalculationID: "c"}))
	got, err := m.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)

	time.Sleep(80 * time.Millisecond)
	got, err = m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, m.Has("k"))

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemory_SaveRenewsTTL(t *testing.T) {
	m := store.NewMemoryWithTTL(150 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, m.Save(ctx, "k", &domain.SessionHandle{CalculationID: "c"}))
		time.Sleep(60 * time.Millisecond)
	}

	assert.True(t, m.Has("k"))
}

func TestFile_MalformedIsNoSession(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFile(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.DefaultSessionKey+".json"), []byte("garbage"), 0o600))

	got, err := s.Load(context.Background(), domain.DefaultSessionKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_SanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFile(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "datapay_session:abc", &domain.SessionHandle{CalculationID: "c"}))
	_, err = os.Stat(filepath.Join(dir, "datapay_session_abc.json"))
	assert.NoError(t, err)
}

func TestRedis_TTLAndMalformed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := store.NewRedis(rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", &domain.SessionHandle{CalculationID: "c"}))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mr.Set("k", "oops"))
	got, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := store.Open(ctx, store.Options{TTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s)
	assert.NoError(t, closeFn())
	assert.NoError(t, closeFn())

	s, _, err = store.Open(ctx, store.Options{Kind: store.KindFile, Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &store.File{}, s)

	mr := miniredis.RunT(t)
	s, closeFn, err = store.Open(ctx, store.Options{Kind: store.KindRedis, RedisURL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &store.Redis{}, s)
	assert.NoError(t, closeFn())

	_, _, err = store.Open(ctx, store.Options{Kind: "etcd"}, zap.NewNop())
	assert.Error(t, err)
}
