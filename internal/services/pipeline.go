// Package services wires the pipeline stages into one run.
package services

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"retail-insights/internal/aggregate"
	"retail-insights/internal/config"
	"retail-insights/internal/enrich"
	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/ingest"
	"retail-insights/internal/lookup"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/reference"
	"retail-insights/internal/report"
	"retail-insights/internal/segment"
)

// Result is everything one run produced.
type Result struct {
	Rows       []models.TransactionRow
	Customers  []*models.CustomerAggregate
	Document   *models.Document
	Enrichment enrich.Stats
	Ingest     ingest.ParseStats
	References reference.LoadReport
	CacheHit   bool
}

type Pipeline struct {
	cfg    *config.Config
	tables *lookup.Tables
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline prepares a run. A nil tables value loads the lookup tables
// from cfg when the run starts.
func NewPipeline(cfg *config.Config, tables *lookup.Tables, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		tables: tables,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes every stage in order. A missing reference table degrades
// enrichment; an unreadable transaction export aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, timeline := observability.WithTimeline(ctx)
	ctx, span := observability.StartSpan(ctx, "pipeline")

	res, err := p.run(ctx)
	if err != nil {
		span.SetError(err)
	} else {
		span.SetTag("customers", strconv.Itoa(len(res.Customers)))
	}
	span.FinishAndLog(p.logger)
	if err != nil {
		return nil, err
	}

	for _, st := range timeline.Stages() {
		res.Document.Stages = append(res.Document.Stages, models.StageTiming{
			Stage:      st.Stage,
			Parent:     st.Parent,
			DurationMS: float64(st.Duration.Microseconds()) / 1000,
			Status:     string(st.Status),
		})
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	res := &Result{}
	opts := ingest.Options{
		Delimiter:        p.cfg.Inputs.Delimiter,
		Logger:           p.logger,
		ProgressInterval: p.cfg.Processing.ProgressInterval,
	}

	tables := p.tables
	if err := p.stage(ctx, "lookup", func(ctx context.Context, span *observability.Span) error {
		if tables != nil {
			span.SetTag("source", "provided")
			return nil
		}
		t, err := lookup.Load(p.cfg.Inputs.LookupFile)
		if err != nil {
			return apperrors.InvalidConfig(err)
		}
		tables = t
		return nil
	}); err != nil {
		return nil, err
	}

	var idx *reference.Indexes
	if err := p.stage(ctx, "references", func(ctx context.Context, span *observability.Span) error {
		var err error
		idx, res.References, res.CacheHit, err = p.loadReferences(ctx, opts)
		span.SetTag("cache_hit", strconv.FormatBool(res.CacheHit))
		span.SetTag("retailers", strconv.Itoa(len(idx.Retailers)))
		span.SetTag("products", strconv.Itoa(len(idx.Products)))
		return err
	}); err != nil {
		return nil, err
	}

	var rows []models.TransactionRow
	if err := p.stage(ctx, "read", func(ctx context.Context, span *observability.Span) error {
		var err error
		rows, res.Ingest, err = ingest.ReadTransactions(ctx, p.cfg.Inputs.TransactionsFile, opts)
		span.SetTag("rows", strconv.Itoa(res.Ingest.Rows))
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, "enrich", func(ctx context.Context, span *observability.Span) error {
		var err error
		res.Rows, res.Enrichment, err = enrich.Batch(ctx, enrich.New(idx, tables), rows, enrich.BatchOptions{
			Workers:          p.cfg.Processing.Workers,
			BatchSize:        p.cfg.Processing.BatchSize,
			Logger:           p.logger,
			ProgressInterval: p.cfg.Processing.ProgressInterval,
		})
		return err
	}); err != nil {
		return nil, err
	}
	for _, f := range res.Enrichment.Report() {
		p.logger.Info("field enrichment",
			"field", f.Field,
			"missing_before", f.MissingBefore,
			"filled", f.Filled,
			"missing_after", f.MissingAfter)
	}

	if err := p.stage(ctx, "aggregate", func(ctx context.Context, span *observability.Span) error {
		var err error
		res.Customers, err = aggregate.Partitioned(ctx, res.Rows, p.cfg.Processing.Workers)
		span.SetTag("customers", strconv.Itoa(len(res.Customers)))
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, "segment", func(ctx context.Context, _ *observability.Span) error {
		segment.Assign(res.Customers)
		return ctx.Err()
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, "document", func(ctx context.Context, _ *observability.Span) error {
		res.Document = report.Build(report.Input{
			RunID:       observability.GetRunID(ctx),
			GeneratedAt: p.now(),
			Customers:   res.Customers,
			Enrichment:  res.Enrichment.Report(),
			Ingest: models.IngestSummary{
				Rows:         res.Ingest.Rows,
				CoercedCells: res.Ingest.CoercedCells,
				SkippedLines: res.Ingest.SkippedLines,
			},
			MissingReferences: res.References.Missing,
		}, tables, report.Options{
			CityTopCustomers: p.cfg.Processing.CityTopCustomers,
			AreaTopCustomers: p.cfg.Processing.AreaTopCustomers,
		})
		return ctx.Err()
	}); err != nil {
		return nil, err
	}

	return res, nil
}

// stage runs fn inside a span named after the stage and logs its outcome.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context, *observability.Span) error) error {
	ctx, span := observability.StartSpan(ctx, name)
	err := fn(ctx, span)
	if err != nil {
		span.SetError(err)
	}
	span.FinishAndLog(p.logger)
	return err
}

func (p *Pipeline) loadReferences(ctx context.Context, opts ingest.Options) (*reference.Indexes, reference.LoadReport, bool, error) {
	src := reference.Sources{
		Directory: p.cfg.Inputs.RetailersFile,
		Catalog:   p.cfg.Inputs.CatalogFile,
		Overall:   p.cfg.Inputs.OverallFile,
		Options:   opts,
	}

	var cache *indexCache
	if p.cfg.Cache.Enabled {
		cache = &indexCache{dir: p.cfg.Cache.Dir}
		cached, err := cache.load(src.Paths(), opts.Delimiter)
		if err == nil {
			p.logger.Info("reference indexes loaded from cache", "built_at", cached.BuiltAt)
			return &cached.Indexes, reference.LoadReport{Stats: cached.Stats}, true, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("reference cache unusable", "error", err)
		}
	}

	idx, rep, err := reference.Load(ctx, src, p.logger)
	if err != nil {
		return reference.EmptyIndexes(), rep, false, err
	}

	// Incomplete indexes are not cached so a table that appears later is
	// picked up on the next run.
	if cache != nil && len(rep.Missing) == 0 {
		if err := cache.save(src.Paths(), opts.Delimiter, idx, rep.Stats); err != nil {
			p.logger.Warn("failed to save reference cache", "error", err)
		}
	}
	return idx, rep, false, nil
}
