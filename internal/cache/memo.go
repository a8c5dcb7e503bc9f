package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/pipeline"
)

// Memo caches pipeline results keyed by source content and options.
// Store failures are logged and fall through to recomputation.
type Memo struct {
	store  Store
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemo creates a memo over store
func NewMemo(store Store, ttl time.Duration) *Memo {
	return &Memo{store: store, ttl: ttl}
}

// Stats returns the hit and miss counts so far
func (m *Memo) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Key is derived from the SHA-256 of both files' bytes and the options fingerprint
func Key(files loader.DataFiles, opts pipeline.Options) (string, error) {
	listings, err := digestFile(files.ListingsPath)
	if err != nil {
		return "", err
	}
	demographics, err := digestFile(files.DemographicsPath)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(listings + "|" + demographics + "|" + opts.Fingerprint()))
	return "insights:run:" + hex.EncodeToString(sum[:]), nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetOrCompute returns the cached result under key, or runs compute and
// caches its result. The bool reports a cache hit.
func (m *Memo) GetOrCompute(ctx context.Context, key string, compute func() (*pipeline.Result, error)) (*pipeline.Result, bool, error) {
	localDebug := debug.Enabled()

	data, err := m.store.Get(ctx, key)
	switch {
	case err == nil:
		var result pipeline.Result
		if err := json.Unmarshal(data, &result); err == nil {
			m.hits.Add(1)
			debug.DebugOutput(localDebug, "Cache hit for %s", key)
			return &result, true, nil
		}
		debug.Warnf("discarding undecodable cache entry %s", key)
	case !errors.Is(err, ErrMiss):
		debug.Warnf("cache get %s: %v", key, err)
	}

	m.misses.Add(1)
	result, err := compute()
	if err != nil {
		return nil, false, err
	}

	data, err = json.Marshal(result)
	if err != nil {
		debug.Warnf("cache encode %s: %v", key, NewCacheError("marshal", err, false))
		return result, false, nil
	}
	if err := m.store.Set(ctx, key, data, m.ttl); err != nil {
		debug.Warnf("cache set %s: %v", key, err)
	}
	return result, false, nil
}

// Execute is pipeline.Execute behind the memo. The result carries the memo
// key as its SourceKey, so equal inputs compare equal across recomputations.
func (m *Memo) Execute(ctx context.Context, files loader.DataFiles, opts pipeline.Options) (*pipeline.Result, bool, error) {
	key, err := Key(files, opts)
	if err != nil {
		// unreadable sources: let the pipeline report them properly
		result, err := pipeline.Execute(files, opts)
		return result, false, err
	}
	result, hit, err := m.GetOrCompute(ctx, key, func() (*pipeline.Result, error) {
		result, err := pipeline.Execute(files, opts)
		if err != nil {
			return nil, err
		}
		result.SourceKey = key
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	result.SourceKey = key
	return result, hit, nil
}

// Invalidate drops a cached entry
func (m *Memo) Invalidate(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}
