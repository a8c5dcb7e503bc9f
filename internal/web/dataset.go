package web

import (
	"context"
	"sync"

	"github.com/property-insights/internal/cache"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/metrics"
	"github.com/property-insights/internal/pipeline"
	"github.com/property-insights/internal/web/handlers"
)

// Dataset serves the pipeline result for the configured sources. Runs are
// memoized by source content, so an edited file yields a new run on the
// next request.
type Dataset struct {
	memo    *cache.Memo
	files   loader.DataFiles
	opts    pipeline.Options
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *handlers.Snapshot
}

// NewDataset creates a dataset; m may be nil
func NewDataset(memo *cache.Memo, files loader.DataFiles, opts pipeline.Options, m *metrics.Metrics) *Dataset {
	return &Dataset{memo: memo, files: files, opts: opts, metrics: m}
}

// Snapshot returns the current run, rebuilding the indexes only when the
// sources or options changed. A recomputation over the same sources keeps
// the served run, so its RunID stays stable across cache expiry.
func (d *Dataset) Snapshot(ctx context.Context) (*handlers.Snapshot, error) {
	result, hit, err := d.memo.Execute(ctx, d.files, d.opts)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.ObserveReport(result.Report, hit)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && sameRun(d.current.Result, result) {
		return d.current, nil
	}
	snap, err := handlers.NewSnapshot(result)
	if err != nil {
		return nil, err
	}
	d.current = snap
	return snap, nil
}

func sameRun(a, b *pipeline.Result) bool {
	if a.SourceKey != "" || b.SourceKey != "" {
		return a.SourceKey == b.SourceKey
	}
	return a.RunID == b.RunID
}
