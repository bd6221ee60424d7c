package report

import (
	"bufio"
	"context"
	"log/slog"

	"retail-insights/internal/config"
	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/models"
)

// Emit writes every configured output for one run. The first failing
// output aborts with a REPORT_WRITE_FAILED error naming its path.
func Emit(ctx context.Context, cfg *config.Config, doc *models.Document, rows []models.TransactionRow, logger *slog.Logger) error {
	outputs := []struct {
		kind  string
		path  string
		write func(path string) error
	}{
		{"json", cfg.OutputPath(cfg.Outputs.JSONFile), func(p string) error {
			return WriteJSON(p, doc)
		}},
		{"html", cfg.OutputPath(cfg.Outputs.HTMLFile), func(p string) error {
			return writeFile(p, func(w *bufio.Writer) error {
				return Page(doc, cfg.Processing.HTMLMaxCustomers).Render(ctx, w)
			})
		}},
		{"enriched", cfg.OutputPath(cfg.Outputs.EnrichedFile), func(p string) error {
			return WriteEnrichedRows(p, rows)
		}},
		{"sqlite", cfg.OutputPath(cfg.Outputs.SQLiteFile), func(p string) error {
			return WriteSQLite(ctx, p, doc)
		}},
	}

	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := out.write(out.path); err != nil {
			return apperrors.ReportWrite(out.path, err)
		}
		logger.Info("report output written", "kind", out.kind, "file", out.path)
	}
	return nil
}
