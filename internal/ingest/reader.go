// Package ingest reads the tab- or comma-delimited exports the pipeline
// consumes.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	readBufferSize = 1 << 20
	bom            = "\ufeff"
)

type Options struct {
	Delimiter        rune // 0 detects from the header line
	Logger           *slog.Logger
	ProgressInterval time.Duration
}

type ParseStats struct {
	Rows         int `json:"rows"`
	CoercedCells int `json:"coerced_cells"`
	SkippedLines int `json:"skipped_lines"`
}

// Cells the exports use for a missing value.
var nullMarkers = map[string]struct{}{
	"nan":  {},
	"null": {},
	"none": {},
	"n/a":  {},
	"#n/a": {},
}

type record struct {
	cells []string
	cols  map[string]int
}

func (r record) get(column string) string {
	i, ok := r.cols[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	v := strings.TrimSpace(r.cells[i])
	if _, null := nullMarkers[strings.ToLower(v)]; null {
		return ""
	}
	return v
}

func (r record) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type table struct {
	path     string
	file     *os.File
	reader   *csv.Reader
	cols     map[string]int
	opts     Options
	progress *rate.Sometimes
}

// openTable opens path and consumes its header line. Open failures are
// returned unwrapped so callers can attach the right error code.
func openTable(path string, opts Options) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(f, readBufferSize)
	delimiter := opts.Delimiter
	if delimiter == 0 {
		head, _ := br.Peek(readBufferSize)
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			head = head[:i]
		}
		delimiter = detectDelimiter(head)
	}

	r := csv.NewReader(br)
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		if stderrors.Is(err, io.EOF) {
			return nil, errEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}

	t := &table{path: path, file: f, reader: r, cols: cols, opts: opts}
	if opts.Logger != nil && opts.ProgressInterval > 0 {
		t.progress = &rate.Sometimes{Interval: opts.ProgressInterval}
	}
	return t, nil
}

var errEmpty = stderrors.New("file has no header line")

func detectDelimiter(line []byte) rune {
	tabs := bytes.Count(line, []byte{'\t'})
	commas := bytes.Count(line, []byte{','})
	if tabs > 0 && tabs >= commas {
		return '\t'
	}
	return ','
}

func (t *table) Close() error {
	return t.file.Close()
}

func (t *table) has(column string) bool {
	_, ok := t.cols[column]
	return ok
}

func (t *table) missing(columns ...string) []string {
	var out []string
	for _, c := range columns {
		if !t.has(c) {
			out = append(out, c)
		}
	}
	return out
}

// each calls fn for every non-blank data line in file order.
func (t *table) each(ctx context.Context, stats *ParseStats, fn func(record) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cells, err := t.reader.Read()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				stats.SkippedLines++
				continue
			}
			return fmt.Errorf("read %s: %w", t.path, err)
		}

		rec := record{cells: cells, cols: t.cols}
		if rec.blank() {
			stats.SkippedLines++
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}

		if t.progress != nil {
			t.progress.Do(func() {
				t.opts.Logger.Info("reading", "file", t.path, "rows", stats.Rows)
			})
		}
	}
}

// parseAmount reads a non-negative decimal. Blank cells are 0; unparsable,
// non-finite and negative values are coerced to 0 and reported.
func parseAmount(s string) (v float64, coerced bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, true
	}
	return f, false
}

// parseID reads an id through float truncation, so "5.0" is 5. Unusable
// values are absent and reported when the cell was not blank.
func parseID(s string) (id int64, ok bool, coerced bool) {
	if s == "" {
		return 0, false, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false, true
	}
	return int64(f), true, false
}
