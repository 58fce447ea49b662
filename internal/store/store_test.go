package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// exerciseKV runs the shared KV contract against any implementation.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	key := "test-" + time.Now().Format("150405.000000000")

	if _, ok, err := kv.Get(ctx, key); err != nil || ok {
		t.Fatalf("missing key: expected (false, nil), got (%v, %v)", ok, err)
	}

	if err := kv.Set(ctx, key, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after Set: (%v, %v)", ok, err)
	}
	if string(v) != `{"a":1}` {
		t.Errorf("expected stored value, got %s", v)
	}

	if err := kv.Set(ctx, key, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, _ = kv.Get(ctx, key)
	if string(v) != `{"a":2}` {
		t.Errorf("expected overwritten value, got %s", v)
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, key); ok {
		t.Error("key should be gone after Delete")
	}
	if err := kv.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseKV(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	in := []byte("abc")
	ms.Set(ctx, "k", in)
	in[0] = 'z'

	out, _, _ := ms.Get(ctx, "k")
	if string(out) != "abc" {
		t.Errorf("store must copy on Set, got %s", out)
	}
	out[1] = 'z'
	again, _, _ := ms.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("store must copy on Get, got %s", again)
	}
}

func TestGetOr(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	v, err := GetOr(ctx, ms, KeyPortfolio, []byte("{}"))
	if err != nil || string(v) != "{}" {
		t.Fatalf("expected default, got %s, %v", v, err)
	}
	ms.Set(ctx, KeyPortfolio, []byte(`{"MOON":{}}`))
	v, _ = GetOr(ctx, ms, KeyPortfolio, []byte("{}"))
	if string(v) != `{"MOON":{}}` {
		t.Errorf("expected stored value, got %s", v)
	}
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	cs := NewCredentialStore(ms)

	key, err := cs.APIKey(ctx)
	if err != nil || key != "" {
		t.Fatalf("expected empty key, got %q, %v", key, err)
	}

	if err := cs.SetAPIKey(ctx, "  rp_secret  "); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	key, _ = cs.APIKey(ctx)
	if key != "rp_secret" {
		t.Errorf("expected trimmed key, got %q", key)
	}

	if err := cs.SetAPIKey(ctx, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ms.Len() != 0 {
		t.Error("empty key should remove the record")
	}
}

func TestFileStore(t *testing.T) {
	exerciseKV(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "store.json")))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	if err := NewFileStore(path).Set(ctx, KeyCredential, []byte("rp_key")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := NewFileStore(path).Get(ctx, KeyCredential)
	if err != nil || !ok || string(v) != "rp_key" {
		t.Fatalf("expected persisted value, got %q, %v, %v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("store file holds the api key and should be 0600, got %o", perm)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	os.WriteFile(path, []byte("{"), 0o600)
	if _, _, err := NewFileStore(path).Get(context.Background(), "k"); err == nil {
		t.Error("expected decode error")
	}
}

func TestOpen_Fallbacks(t *testing.T) {
	ctx := context.Background()

	kv, closeFn, err := Open(ctx, Backend{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	closeFn()
	if _, ok := kv.(*MemoryStore); !ok {
		t.Errorf("expected MemoryStore, got %T", kv)
	}

	kv, closeFn, err = Open(ctx, Backend{File: filepath.Join(t.TempDir(), "s.json")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	closeFn()
	if _, ok := kv.(*FileStore); !ok {
		t.Errorf("expected FileStore, got %T", kv)
	}

	if _, _, err := Open(ctx, Backend{RedisURL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid REDIS_URL")
	}
}

// --- Integration (skipped without infrastructure) ---

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	ps := NewPostgresStore(pool)
	if err := ps.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	exerciseKV(t, ps)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisStore(t *testing.T) {
	exerciseKV(t, NewRedisStore(redisClient(t), "rugscope-test"))
}

func TestCachedStore(t *testing.T) {
	rdb := redisClient(t)
	primary := NewMemoryStore()
	cs := NewCachedStore(primary, rdb, time.Minute)
	exerciseKV(t, cs)

	// A write must invalidate a previously cached read.
	ctx := context.Background()
	cs.Set(ctx, "cached-key", []byte("v1"))
	cs.Get(ctx, "cached-key")
	cs.Set(ctx, "cached-key", []byte("v2"))
	v, _, _ := cs.Get(ctx, "cached-key")
	if string(v) != "v2" {
		t.Errorf("expected v2 after invalidation, got %s", v)
	}
	cs.Delete(ctx, "cached-key")
}
