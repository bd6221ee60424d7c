package report

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"retail-insights/internal/aggregate"
	"retail-insights/internal/config"
	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/lookup"
	"retail-insights/internal/models"
)

func fixtureRows() []models.TransactionRow {
	return []models.TransactionRow{
		{OrderID: "o1", Phone: "0100", CustomerName: "Joe's Cafe", Area: "Maadi", City: "Cairo", CustomerType: "Cafe",
			ProductName: "Pepsi Can", Brand: "Pepsi", Quantity: 2, UnitPrice: 100, Date: "2024-01-01"},
		{OrderID: "o2", Phone: "0100", CustomerName: "Joe's Cafe", Area: "Maadi", City: "Cairo",
			ProductName: "Chipsy", Brand: "Chipsy", Quantity: 4, UnitPrice: 25, Date: "2024-01-03"},
		{OrderID: "o3", Phone: "0200", CustomerName: "Nile Market", City: "القاهرة 11511",
			ProductName: "Water", Quantity: 10, UnitPrice: 5, Date: "2024-01-02"},
		{OrderID: "o4", Phone: "0300", CustomerName: "<b>Bold</b>",
			ProductName: "Water", Quantity: 1, UnitPrice: 10, Date: "2024-01-02"},
	}
}

func fixtureCustomers() []*models.CustomerAggregate {
	customers := aggregate.Aggregate(fixtureRows())
	for _, c := range customers {
		c.Segment = "inactive"
	}
	customers[0].Segment = "growing"
	return customers
}

func fixtureDocument() *models.Document {
	return Build(Input{
		RunID:             "run-1",
		GeneratedAt:       time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		Customers:         fixtureCustomers(),
		Enrichment:        []models.FieldFill{{Field: "name", MissingBefore: 2, Filled: 1, MissingAfter: 1}},
		Ingest:            models.IngestSummary{Rows: 4},
		MissingReferences: []string{"overall"},
	}, lookup.Default(), Options{CityTopCustomers: 1, AreaTopCustomers: 5})
}

func TestBuild_SummaryAndOrdering(t *testing.T) {
	doc := fixtureDocument()

	if doc.Summary.TotalCustomers != 3 {
		t.Errorf("TotalCustomers = %d, want 3", doc.Summary.TotalCustomers)
	}
	if doc.Summary.TotalOrders != 4 || doc.Summary.TotalUniqueOrders != 4 {
		t.Errorf("orders = %d/%d, want 4/4", doc.Summary.TotalOrders, doc.Summary.TotalUniqueOrders)
	}
	if doc.Summary.TotalGMV != 360 {
		t.Errorf("TotalGMV = %v, want 360", doc.Summary.TotalGMV)
	}
	if doc.Summary.AvgGMVPerCustomer != 120 {
		t.Errorf("AvgGMVPerCustomer = %v, want 120", doc.Summary.AvgGMVPerCustomer)
	}

	if got := doc.Customers[0].Name; got != "Joe's Cafe" {
		t.Fatalf("first customer = %q, want the highest GMV", got)
	}
	joe := doc.Customers[0]
	if joe.City != "Cairo Governorate" || joe.Type != "كافيه" {
		t.Errorf("joe city/type = %q/%q", joe.City, joe.Type)
	}
	if joe.SegmentName == "" || joe.SegmentColor == "" {
		t.Error("segment display should be attached")
	}
	if len(joe.RecentOrders) != 2 || joe.RecentOrders[0].OrderID != "o2" {
		t.Errorf("recent orders = %+v, want o2 first", joe.RecentOrders)
	}
	if doc.Customers[2].Area != lookup.Default().Unspecified {
		t.Errorf("blank area = %q, want unspecified label", doc.Customers[2].Area)
	}

	if len(doc.Segments) != 2 || doc.Segments[0].Key != "inactive" || doc.Segments[0].Count != 2 {
		t.Errorf("segments = %+v, want inactive(2) first", doc.Segments)
	}
	if doc.MissingReferences[0] != "overall" || doc.Ingest.Rows != 4 {
		t.Error("side statistics should pass through")
	}
}

func TestBuild_LocationGroups(t *testing.T) {
	doc := fixtureDocument()

	// Both Cairo spellings fold into one canonical group.
	cairo := doc.CityGroups[0]
	if cairo.Name != "Cairo Governorate" || cairo.Count != 2 || cairo.GMV != 350 {
		t.Errorf("first city group = %+v", cairo)
	}
	if len(cairo.Customers) != 1 {
		t.Errorf("city group customers = %d, want top 1", len(cairo.Customers))
	}
	if cairo.Customers[0].Products != nil || cairo.Customers[0].RecentOrders != nil {
		t.Error("grouped customers should be compact")
	}
	if doc.CityGroups[1].Name != lookup.Default().Unspecified {
		t.Errorf("second city group = %q, want unspecified", doc.CityGroups[1].Name)
	}

	for i := 1; i < len(doc.AreaGroups); i++ {
		if doc.AreaGroups[i-1].GMV < doc.AreaGroups[i].GMV {
			t.Fatalf("area groups not sorted by GMV: %+v", doc.AreaGroups)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	doc := Build(Input{RunID: "r"}, nil, Options{})
	if doc.Summary.TotalCustomers != 0 || doc.Summary.AvgGMVPerCustomer != 0 {
		t.Errorf("summary = %+v", doc.Summary)
	}
	if doc.Customers == nil || doc.MissingReferences == nil {
		t.Error("empty document should serialize lists as [] not null")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	if err := WriteJSON(path, fixtureDocument()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("غير محدد")) {
		t.Error("Arabic text should be written unescaped")
	}
	if !bytes.Contains(data, []byte("<b>Bold</b>")) {
		t.Error("HTML characters should not be escaped in JSON")
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.RunID != "run-1" || len(doc.Customers) != 3 {
		t.Errorf("decoded run %q with %d customers", doc.RunID, len(doc.Customers))
	}
}

func TestPage(t *testing.T) {
	var buf bytes.Buffer
	if err := Page(fixtureDocument(), 2).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{`dir="rtl"`, `charset="utf-8"`, "Joe&#39;s Cafe", "&lt;b&gt;Bold&lt;/b&gt;", "showing 2 of 3", "overall"} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, "<b>Bold</b>") {
		t.Error("customer names must be escaped")
	}
	if !strings.Contains(out, "360.00") {
		t.Error("total GMV should be formatted with two decimals")
	}
	for _, section := range []string{"<h2>Segments</h2>", "<h2>Customers</h2>", "<h2>Cities</h2>", "<h2>Areas</h2>", "<h2>Enrichment</h2>"} {
		if !strings.Contains(out, section) {
			t.Errorf("page missing section %q", section)
		}
	}
	if !strings.Contains(out, `<svg class="dot"`) {
		t.Error("segments should carry a color swatch")
	}
}

func TestSafeColor(t *testing.T) {
	tests := map[string]string{
		"#fff":           "#fff",
		"#16A34A":        "#16A34A",
		"red":            fallbackColor,
		"#12345":         fallbackColor,
		`red;"><script>`: fallbackColor,
		"":               fallbackColor,
	}
	for in, want := range tests {
		if got := safeColor(in); got != want {
			t.Errorf("safeColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSwatch_RejectsMarkupInColor(t *testing.T) {
	var buf bytes.Buffer
	if err := swatch(`red"><script>`).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(buf.String(), "script") || !strings.Contains(buf.String(), `fill="`+fallbackColor+`"`) {
		t.Errorf("swatch = %s", buf.String())
	}
}

func TestPage_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Page(fixtureDocument(), 0).Render(ctx, io.Discard); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestWriteEnrichedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	rows := fixtureRows()
	rows[0].Address = "12 Road 9, Maadi"
	rows[0].RawBaseID = "5"

	if err := WriteEnrichedRows(path, rows); err != nil {
		t.Fatalf("WriteEnrichedRows() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != len(rows)+1 {
		t.Fatalf("records = %d, want header plus %d", len(records), len(rows))
	}
	if strings.Join(records[0], ",") != strings.Join(enrichedColumns, ",") {
		t.Errorf("header = %v", records[0])
	}
	first := records[1]
	if first[2] != "5" || first[5] != "12 Road 9, Maadi" || first[12] != "2" || first[13] != "100" {
		t.Errorf("first row = %v", first)
	}
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	doc := fixtureDocument()

	// A second write replaces the first rather than appending.
	for range 2 {
		if err := WriteSQLite(context.Background(), path, doc); err != nil {
			t.Fatalf("WriteSQLite() error = %v", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var customers int
	var gmv float64
	if err := db.QueryRow(`SELECT COUNT(*), SUM(total_gmv) FROM customers`).Scan(&customers, &gmv); err != nil {
		t.Fatal(err)
	}
	if customers != 3 || gmv != 360 {
		t.Errorf("customers = %d gmv = %v, want 3 and 360", customers, gmv)
	}

	var count int
	if err := db.QueryRow(`SELECT count FROM segments WHERE key = 'inactive'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("inactive count = %d, want 2", count)
	}
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Outputs: config.OutputConfig{
			Dir:          dir,
			JSONFile:     "report.json",
			HTMLFile:     "report.html",
			EnrichedFile: "enriched.csv",
		},
		Processing: config.ProcessingConfig{HTMLMaxCustomers: 10},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Emit(context.Background(), cfg, fixtureDocument(), fixtureRows(), logger); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	for _, name := range []string{"report.json", "report.html", "enriched.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "report.db")); !os.IsNotExist(err) {
		t.Error("sqlite export should be skipped when unconfigured")
	}
}

func TestEmit_WriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Outputs: config.OutputConfig{Dir: blocker, JSONFile: "report.json"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := Emit(context.Background(), cfg, fixtureDocument(), nil, logger)
	if !apperrors.HasCode(err, apperrors.CodeReportWrite) {
		t.Fatalf("Emit() error = %v, want REPORT_WRITE_FAILED", err)
	}
	if apperrors.ExitCode(err) != 4 {
		t.Errorf("ExitCode = %d, want 4", apperrors.ExitCode(err))
	}
}

func BenchmarkBuild(b *testing.B) {
	customers := fixtureCustomers()
	tables := lookup.Default()
	for b.Loop() {
		Build(Input{Customers: customers}, tables, Options{CityTopCustomers: 50, AreaTopCustomers: 10})
	}
}
