package ingest

import (
	"context"
	stderrors "errors"
	"strings"

	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/models"
)

// ReadTransactions reads the primary export in file order. Any failure to
// open or parse it is fatal for the run.
func ReadTransactions(ctx context.Context, path string, opts Options) ([]models.TransactionRow, ParseStats, error) {
	var stats ParseStats

	t, err := openTable(path, opts)
	if err != nil {
		if stderrors.Is(err, errEmpty) {
			return nil, stats, apperrors.InvalidInput(path, err.Error())
		}
		return nil, stats, apperrors.MissingPrimaryFile(path, err)
	}
	defer t.Close()

	if !t.has("order_id") {
		return nil, stats, apperrors.InvalidInput(path, "missing column order_id")
	}
	if !t.has("phone") && !t.has("name") {
		return nil, stats, apperrors.InvalidInput(path, "needs a phone or name column")
	}

	var rows []models.TransactionRow
	err = t.each(ctx, &stats, func(rec record) error {
		row := models.TransactionRow{
			OrderID:      rec.get("order_id"),
			Phone:        rec.get("phone"),
			CustomerName: rec.get("name"),
			Address:      rec.get("address"),
			Area:         rec.get("area"),
			City:         rec.get("city"),
			CustomerType: rec.get("type"),
			ProductName:  rec.get("product"),
			Brand:        rec.get("brand"),
			Category:     rec.get("category"),
			Date:         rec.get("date"),
			RawID:        rec.get("id"),
			RawBaseID:    rec.get("base_id"),
		}

		var coerced bool
		row.ProductID, row.HasProductID, coerced = parseID(row.RawBaseID)
		if coerced {
			stats.CoercedCells++
		}
		if row.Quantity, coerced = parseAmount(rec.get("amount")); coerced {
			stats.CoercedCells++
		}
		if row.UnitPrice, coerced = parseAmount(rec.get("price_gross")); coerced {
			stats.CoercedCells++
		}

		rows = append(rows, row)
		stats.Rows++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, stats, err
		}
		return nil, stats, apperrors.MissingPrimaryFile(path, err)
	}

	if opts.Logger != nil {
		opts.Logger.Info("transactions read",
			"file", path,
			"rows", stats.Rows,
			"coerced_cells", stats.CoercedCells,
			"skipped_lines", stats.SkippedLines)
	}
	return rows, stats, nil
}

func openReference(name, path string, opts Options, required ...string) (*table, error) {
	t, err := openTable(path, opts)
	if err != nil {
		return nil, apperrors.MissingReferenceFile(name, path, err)
	}
	if missing := t.missing(required...); len(missing) > 0 {
		t.Close()
		cause := apperrors.InvalidInput(path, "missing columns "+strings.Join(missing, ", "))
		return nil, apperrors.MissingReferenceFile(name, path, cause)
	}
	return t, nil
}

// ReadDirectory reads the retailer directory. Rows without a phone are kept;
// the index builder decides what to drop.
func ReadDirectory(ctx context.Context, path string, opts Options) ([]models.DirectoryRow, ParseStats, error) {
	var stats ParseStats

	t, err := openReference("directory", path, opts, "phone")
	if err != nil {
		return nil, stats, err
	}
	defer t.Close()

	var rows []models.DirectoryRow
	err = t.each(ctx, &stats, func(rec record) error {
		rows = append(rows, models.DirectoryRow{
			Phone:             rec.get("phone"),
			RetailerName:      rec.get("retailer_name"),
			RetailerType:      rec.get("retailer_type"),
			Area:              rec.get("area"),
			City:              rec.get("city"),
			DistributionRoute: rec.get("distribution_route"),
		})
		stats.Rows++
		return nil
	})
	if err != nil {
		return nil, stats, apperrors.MissingReferenceFile("directory", path, err)
	}
	return rows, stats, nil
}

// ReadCatalog reads the product catalog. Rows whose id cannot be read are
// skipped.
func ReadCatalog(ctx context.Context, path string, opts Options) ([]models.CatalogRow, ParseStats, error) {
	var stats ParseStats

	t, err := openReference("catalog", path, opts, "id")
	if err != nil {
		return nil, stats, err
	}
	defer t.Close()

	var rows []models.CatalogRow
	err = t.each(ctx, &stats, func(rec record) error {
		id, ok, coerced := parseID(rec.get("id"))
		if coerced {
			stats.CoercedCells++
		}
		if !ok {
			stats.SkippedLines++
			return nil
		}
		rows = append(rows, models.CatalogRow{ID: id, Name: rec.get("name")})
		stats.Rows++
		return nil
	})
	if err != nil {
		return nil, stats, apperrors.MissingReferenceFile("catalog", path, err)
	}
	return rows, stats, nil
}

// ReadHistory reads the historical "overall" extract.
func ReadHistory(ctx context.Context, path string, opts Options) ([]models.HistoryRecord, ParseStats, error) {
	var stats ParseStats

	t, err := openReference("overall", path, opts, "phone")
	if err != nil {
		return nil, stats, err
	}
	defer t.Close()

	var rows []models.HistoryRecord
	err = t.each(ctx, &stats, func(rec record) error {
		h := models.HistoryRecord{
			Phone:    rec.get("phone"),
			Name:     rec.get("name"),
			Brand:    rec.get("brand"),
			Category: rec.get("category"),
			Product:  rec.get("product"),
		}
		var coerced bool
		if h.BaseID, h.HasBaseID, coerced = parseID(rec.get("base_id")); coerced {
			stats.CoercedCells++
		}
		rows = append(rows, h)
		stats.Rows++
		return nil
	})
	if err != nil {
		return nil, stats, apperrors.MissingReferenceFile("overall", path, err)
	}
	return rows, stats, nil
}
