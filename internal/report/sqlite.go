package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"retail-insights/internal/models"
)

const (
	createCustomers = `CREATE TABLE customers (
		customer_id TEXT PRIMARY KEY,
		name TEXT,
		phone TEXT,
		area TEXT,
		city TEXT,
		type TEXT,
		total_gmv REAL,
		order_count INTEGER,
		unique_orders INTEGER,
		item_count REAL,
		avg_order_value REAL,
		unique_products INTEGER,
		unique_brands INTEGER,
		unique_dates INTEGER,
		segment TEXT,
		segment_name TEXT
	)`
	insertCustomer = `INSERT INTO customers VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	createSegments = `CREATE TABLE segments (
		key TEXT PRIMARY KEY,
		name TEXT,
		color TEXT,
		count INTEGER,
		gmv REAL
	)`
	insertSegment = `INSERT INTO segments VALUES (?,?,?,?,?)`
)

// WriteSQLite replaces the database at path with the customer and segment
// tables of doc.
func WriteSQLite(ctx context.Context, path string, doc *models.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, stmt := range []string{createCustomers, createSegments} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertCustomers(ctx, tx, doc.Customers); err != nil {
		return err
	}
	if err := insertSegments(ctx, tx, doc.Segments); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_customers_segment ON customers(segment)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_city ON customers(city)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone)`,
	} {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func insertCustomers(ctx context.Context, tx *sql.Tx, customers []models.CustomerRecord) error {
	stmt, err := tx.PrepareContext(ctx, insertCustomer)
	if err != nil {
		return fmt.Errorf("prepare customers: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx,
			c.CustomerID, c.Name, c.Phone, c.Area, c.City, c.Type,
			c.TotalGMV, c.OrderCount, c.UniqueOrders, c.ItemCount, c.AvgOrderValue,
			c.UniqueProducts, c.UniqueBrands, c.UniqueDates,
			string(c.Segment), c.SegmentName,
		); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.CustomerID, err)
		}
	}
	return nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, segments []models.SegmentSummary) error {
	stmt, err := tx.PrepareContext(ctx, insertSegment)
	if err != nil {
		return fmt.Errorf("prepare segments: %w", err)
	}
	defer stmt.Close()

	for _, s := range segments {
		if _, err := stmt.ExecContext(ctx, string(s.Key), s.Name, s.Color, s.Count, s.GMV); err != nil {
			return fmt.Errorf("insert segment %s: %w", s.Key, err)
		}
	}
	return nil
}
