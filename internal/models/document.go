package models

import "time"

// CustomerRecord is the serialized form of one customer in the report.
type CustomerRecord struct {
	CustomerID     string             `json:"customer_id"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Area           string             `json:"area"`
	City           string             `json:"city"`
	Type           string             `json:"type"`
	TotalGMV       float64            `json:"total_gmv"`
	OrderCount     int                `json:"order_count"`
	UniqueOrders   int                `json:"unique_orders"`
	ItemCount      float64            `json:"item_count"`
	AvgOrderValue  float64            `json:"avg_order_value"`
	UniqueProducts int                `json:"unique_products"`
	UniqueBrands   int                `json:"unique_brands"`
	UniqueDates    int                `json:"unique_dates"`
	Products       map[string]float64 `json:"products"`
	Brands         map[string]float64 `json:"brands"`
	RecentOrders   []OrderRecord      `json:"recent_orders"`
	Segment        Segment            `json:"segment"`
	SegmentName    string             `json:"segment_name"`
	SegmentColor   string             `json:"segment_color"`
	SegmentReason  string             `json:"segment_reason"`
}

type OrderRecord struct {
	OrderID string  `json:"order_id"`
	Date    string  `json:"date"`
	Lines   int     `json:"lines"`
	Items   float64 `json:"items"`
	GMV     float64 `json:"gmv"`
}

type Summary struct {
	TotalCustomers       int     `json:"total_customers"`
	TotalOrders          int     `json:"total_orders"`
	TotalUniqueOrders    int     `json:"total_unique_orders"`
	TotalItems           float64 `json:"total_items"`
	TotalGMV             float64 `json:"total_gmv"`
	AvgGMVPerCustomer    float64 `json:"avg_gmv_per_customer"`
	AvgOrdersPerCustomer float64 `json:"avg_orders_per_customer"`
}

type SegmentSummary struct {
	Key   Segment `json:"key"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Count int     `json:"count"`
	GMV   float64 `json:"gmv"`
}

// LocationGroup rolls customers up by city or area.
type LocationGroup struct {
	Name      string           `json:"name"`
	Count     int              `json:"count"`
	GMV       float64          `json:"gmv"`
	Customers []CustomerRecord `json:"customers"`
}

type FieldFill struct {
	Field         string `json:"field"`
	MissingBefore int    `json:"missing_before"`
	Filled        int    `json:"filled"`
	MissingAfter  int    `json:"missing_after"`
}

type IngestSummary struct {
	Rows         int `json:"rows"`
	CoercedCells int `json:"coerced_cells"`
	SkippedLines int `json:"skipped_lines"`
}

// StageTiming is how long one pipeline stage took.
type StageTiming struct {
	Stage      string  `json:"stage"`
	Parent     string  `json:"parent,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Status     string  `json:"status"`
}

// Document is the structured report written once per run.
type Document struct {
	RunID             string           `json:"run_id"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Summary           Summary          `json:"summary"`
	Customers         []CustomerRecord `json:"customers"`
	Segments          []SegmentSummary `json:"segments"`
	CityGroups        []LocationGroup  `json:"city_groups"`
	AreaGroups        []LocationGroup  `json:"area_groups"`
	Enrichment        []FieldFill      `json:"enrichment"`
	Ingest            IngestSummary    `json:"ingest"`
	MissingReferences []string         `json:"missing_references"`
	Stages            []StageTiming    `json:"stages"`
}
