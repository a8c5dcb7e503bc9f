package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/pipeline"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("empty store error = %v, want ErrMiss", err)
	}

	value := []byte("v1")
	if err := store.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatal(err)
	}
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get() = %q, %v; stored value must be a copy", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expired entry error = %v, want ErrMiss", err)
	}
	if store.Len() != 0 {
		t.Error("expired entry should be evicted on read")
	}

	store.Set(ctx, "forever", []byte("x"), 0)
	now = now.Add(24 * time.Hour)
	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Errorf("ttl 0 should never expire, got %v", err)
	}

	store.Delete(ctx, "forever")
	if _, err := store.Get(ctx, "forever"); !errors.Is(err, ErrMiss) {
		t.Errorf("deleted entry error = %v", err)
	}
}

func TestMemoryStoreEvictionKeepsNewerSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.Set(ctx, "k", []byte("old"), time.Minute)

	now = now.Add(time.Hour)
	replaced := false
	store.now = func() time.Time {
		// another writer lands between the read and the eviction
		if !replaced {
			replaced = true
			store.Set(ctx, "k", []byte("new"), 0)
		}
		return now
	}

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("stale read error = %v, want ErrMiss", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "new" {
		t.Errorf("Get() = %q, %v; the newer entry must survive eviction", got, err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"", BackendMemory, BackendNone} {
		if _, err := New(ctx, backend, RedisOptions{}); err != nil {
			t.Errorf("New(%q) error = %v", backend, err)
		}
	}
	if _, err := New(ctx, "memcached", RedisOptions{}); err == nil {
		t.Error("unknown backend should fail")
	}
}

const listingsCSV = `raw_address,postal_code,sq_ft,bedrooms,listing_price
"1 Main St",62704,1500,3,300000
`

const demographicsCSV = `zip_code,median_income,school_rating,crime_index
62704,61000,6.5,Medium
`

func writeInputs(t *testing.T) loader.DataFiles {
	t.Helper()
	dir := t.TempDir()
	files := loader.DataFiles{
		ListingsPath:     filepath.Join(dir, "listings.csv"),
		DemographicsPath: filepath.Join(dir, "demographics.csv"),
	}
	os.WriteFile(files.ListingsPath, []byte(listingsCSV), 0o644)
	os.WriteFile(files.DemographicsPath, []byte(demographicsCSV), 0o644)
	return files
}

func TestKey(t *testing.T) {
	files := writeInputs(t)
	opts := pipeline.DefaultOptions()

	a, err := Key(files, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Key(files, opts)
	if a != b {
		t.Error("same content and options should give the same key")
	}

	opts.Threshold = 80
	if c, _ := Key(files, opts); c == a {
		t.Error("different options should change the key")
	}

	os.WriteFile(files.ListingsPath, []byte(listingsCSV+"\"2 Elm St\",62704,1000,2,100000\n"), 0o644)
	if d, _ := Key(files, pipeline.DefaultOptions()); d == a {
		t.Error("different content should change the key")
	}

	if _, err := Key(loader.DataFiles{ListingsPath: "/nonexistent"}, opts); err == nil {
		t.Error("missing file should fail")
	}
}

func TestMemoExecute(t *testing.T) {
	ctx := context.Background()
	files := writeInputs(t)
	memo := NewMemo(NewMemoryStore(), time.Minute)

	first, hit, err := memo.Execute(ctx, files, pipeline.DefaultOptions())
	if err != nil || hit {
		t.Fatalf("first Execute() hit=%v err=%v", hit, err)
	}

	second, hit, err := memo.Execute(ctx, files, pipeline.DefaultOptions())
	if err != nil || !hit {
		t.Fatalf("second Execute() hit=%v err=%v", hit, err)
	}
	if second.RunID != first.RunID || len(second.Properties) != 1 {
		t.Errorf("cached result = %+v", second)
	}
	if *second.Properties[0].PricePerSqFt != 200 {
		t.Errorf("cached property = %+v", second.Properties[0])
	}

	opts := pipeline.DefaultOptions()
	opts.Geocode.Salt = 9
	third, hit, err := memo.Execute(ctx, files, opts)
	if err != nil || hit {
		t.Fatalf("different options should recompute, hit=%v err=%v", hit, err)
	}
	if third.RunID == first.RunID {
		t.Error("recomputed result should be a new run")
	}
	if first.SourceKey == "" || second.SourceKey != first.SourceKey || third.SourceKey == first.SourceKey {
		t.Errorf("source keys = %q, %q, %q", first.SourceKey, second.SourceKey, third.SourceKey)
	}

	hits, misses := memo.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestMemoMissingSource(t *testing.T) {
	memo := NewMemo(NewMemoryStore(), time.Minute)
	_, _, err := memo.Execute(context.Background(), loader.DataFiles{
		ListingsPath:     "/nonexistent/listings.csv",
		DemographicsPath: "/nonexistent/demographics.csv",
	}, pipeline.DefaultOptions())

	if !errors.Is(err, loader.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, NewCacheError("get", errors.New("connection refused"), true)
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return NewCacheError("set", errors.New("connection refused"), true)
}

func (brokenStore) Delete(context.Context, string) error { return nil }

func (brokenStore) Close() error { return nil }

func TestMemoStoreFailureFallsThrough(t *testing.T) {
	memo := NewMemo(brokenStore{}, time.Minute)
	result, hit, err := memo.GetOrCompute(context.Background(), "k", func() (*pipeline.Result, error) {
		return &pipeline.Result{RunID: "fresh"}, nil
	})
	if err != nil || hit || result.RunID != "fresh" {
		t.Errorf("GetOrCompute() = %+v, %v, %v", result, hit, err)
	}
}

func TestMemoComputeError(t *testing.T) {
	store := NewMemoryStore()
	memo := NewMemo(store, time.Minute)
	boom := errors.New("boom")

	_, _, err := memo.GetOrCompute(context.Background(), "k", func() (*pipeline.Result, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v", err)
	}
	if store.Len() != 0 {
		t.Error("failures must not be cached")
	}
}

// fakeRedis answers from a map
type fakeRedis struct {
	data map[string]string
	fail error
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.fail)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.fail != nil {
		return redis.NewStatusResult("", f.fail)
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), f.fail)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}}
	store := NewRedisStoreWithClient(fake, "test:")

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("missing key error = %v, want ErrMiss", err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.data["test:k"]; !ok {
		t.Error("keys should carry the prefix")
	}
	if got, err := store.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	fake.fail = errors.New("connection reset")
	_, err := store.Get(ctx, "k")
	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) || cacheErr.Operation != "get" || !cacheErr.Retryable {
		t.Errorf("error = %v, want retryable get CacheError", err)
	}
}

func TestRedisStoreLive(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: "insights-test:"})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "live", []byte("ok"), time.Minute); err != nil {
		t.Fatal(err)
	}
	defer store.Delete(ctx, "live")

	if got, err := store.Get(ctx, "live"); err != nil || string(got) != "ok" {
		t.Errorf("Get() = %q, %v", got, err)
	}
}
