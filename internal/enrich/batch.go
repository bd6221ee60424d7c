package enrich

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"retail-insights/internal/models"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 4
)

type BatchOptions struct {
	Workers          int
	BatchSize        int
	Logger           *slog.Logger
	ProgressInterval time.Duration
}

// Batch enriches rows in fixed-size batches on a bounded worker pool. The
// output keeps input order and the merged Stats do not depend on
// scheduling.
func Batch(ctx context.Context, e *Enricher, rows []models.TransactionRow, opts BatchOptions) ([]models.TransactionRow, Stats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	out := make([]models.TransactionRow, len(rows))

	var (
		mu        sync.Mutex
		total     Stats
		processed atomic.Int64
		progress  *rate.Sometimes
	)
	if opts.Logger != nil && opts.ProgressInterval > 0 {
		progress = &rate.Sometimes{Interval: opts.ProgressInterval}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < len(rows); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(rows))

		g.Go(func() error {
			var local Stats
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				enriched, fills := e.Enrich(rows[i])
				local.Observe(rows[i], enriched, fills)
				out[i] = enriched
			}

			mu.Lock()
			total.Merge(local)
			mu.Unlock()

			done := processed.Add(int64(end - start))
			if progress != nil {
				progress.Do(func() {
					opts.Logger.Info("enriching", "rows", done, "total", len(rows))
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}
	return out, total, nil
}

// All enriches rows sequentially.
func All(e *Enricher, rows []models.TransactionRow) ([]models.TransactionRow, Stats) {
	out := make([]models.TransactionRow, len(rows))
	var stats Stats
	for i, row := range rows {
		enriched, fills := e.Enrich(row)
		stats.Observe(row, enriched, fills)
		out[i] = enriched
	}
	return out, stats
}
