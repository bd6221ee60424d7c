package reference

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/ingest"
	"retail-insights/internal/models"
)

const (
	TableDirectory = "directory"
	TableCatalog   = "catalog"
	TableOverall   = "overall"
)

// Sources names the reference files. An empty path counts as unavailable.
type Sources struct {
	Directory string
	Catalog   string
	Overall   string
	Options   ingest.Options
}

func (s Sources) Paths() []string {
	return []string{s.Directory, s.Catalog, s.Overall}
}

// Indexes is built once per run and only read afterwards.
type Indexes struct {
	Retailers RetailerIndex
	Products  ProductIndex
	History   HistoryIndex
}

func EmptyIndexes() *Indexes {
	return &Indexes{
		Retailers: RetailerIndex{},
		Products:  ProductIndex{},
		History:   HistoryIndex{},
	}
}

// LoadReport lists the tables that were substituted with empty ones and the
// parse statistics of those that loaded.
type LoadReport struct {
	Missing []string
	Stats   map[string]ingest.ParseStats
}

// Load reads the three reference tables concurrently and builds the
// indexes. A table that cannot be read is replaced by an empty one and
// logged; only cancellation of ctx is returned as an error.
func Load(ctx context.Context, src Sources, logger *slog.Logger) (*Indexes, LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := LoadReport{Stats: make(map[string]ingest.ParseStats)}

	var (
		mu        sync.Mutex
		directory []models.DirectoryRow
		catalog   []models.CatalogRow
		overall   []models.HistoryRecord
	)

	record := func(table, path string, stats ingest.ParseStats, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Missing = append(report.Missing, table)
			logger.Warn("reference table unavailable, continuing without it",
				"table", table,
				"path", path,
				"code", apperrors.CodeMissingReferenceFile,
				"error", err)
			return
		}
		report.Stats[table] = stats
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, stats, err := readOrSkip(gctx, TableDirectory, src.Directory, src.Options, ingest.ReadDirectory)
		if gctx.Err() != nil {
			return gctx.Err()
		}
		record(TableDirectory, src.Directory, stats, err)
		directory = rows
		return nil
	})
	g.Go(func() error {
		rows, stats, err := readOrSkip(gctx, TableCatalog, src.Catalog, src.Options, ingest.ReadCatalog)
		if gctx.Err() != nil {
			return gctx.Err()
		}
		record(TableCatalog, src.Catalog, stats, err)
		catalog = rows
		return nil
	})
	g.Go(func() error {
		rows, stats, err := readOrSkip(gctx, TableOverall, src.Overall, src.Options, ingest.ReadHistory)
		if gctx.Err() != nil {
			return gctx.Err()
		}
		record(TableOverall, src.Overall, stats, err)
		overall = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, report, err
	}
	slices.Sort(report.Missing)

	idx := &Indexes{
		Retailers: BuildRetailerIndex(directory),
		Products:  BuildProductIndex(catalog, overall),
		History:   BuildHistoryIndex(overall),
	}

	logger.Info("reference indexes built",
		"retailers", len(idx.Retailers),
		"products", len(idx.Products),
		"history_phones", len(idx.History),
		"missing", report.Missing)

	return idx, report, nil
}

func readOrSkip[T any](
	ctx context.Context,
	table, path string,
	opts ingest.Options,
	read func(context.Context, string, ingest.Options) ([]T, ingest.ParseStats, error),
) ([]T, ingest.ParseStats, error) {
	if path == "" {
		return nil, ingest.ParseStats{}, apperrors.MissingReferenceFile(table, path, fmt.Errorf("no path configured"))
	}
	return read(ctx, path, opts)
}
