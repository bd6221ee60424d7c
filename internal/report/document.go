// Package report turns finalized customers into the run's output files.
package report

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"retail-insights/internal/aggregate"
	"retail-insights/internal/lookup"
	"retail-insights/internal/models"
)

type Input struct {
	RunID             string
	GeneratedAt       time.Time
	Customers         []*models.CustomerAggregate
	Enrichment        []models.FieldFill
	Ingest            models.IngestSummary
	MissingReferences []string
}

type Options struct {
	CityTopCustomers int
	AreaTopCustomers int
	RecentOrders     int
}

const defaultRecentOrders = 30

// Build assembles the report document. Customers must already be sorted
// and segmented; Build preserves their order.
func Build(in Input, tables *lookup.Tables, opts Options) *models.Document {
	if tables == nil {
		tables = lookup.Default()
	}
	if opts.RecentOrders == 0 {
		opts.RecentOrders = defaultRecentOrders
	}

	records := make([]models.CustomerRecord, 0, len(in.Customers))
	for _, c := range in.Customers {
		records = append(records, customerRecord(c, tables, opts.RecentOrders))
	}

	missing := slices.Clone(in.MissingReferences)
	if missing == nil {
		missing = []string{}
	}

	return &models.Document{
		RunID:             in.RunID,
		GeneratedAt:       in.GeneratedAt.UTC(),
		Summary:           summarize(in.Customers),
		Customers:         records,
		Segments:          segmentSummaries(records),
		CityGroups:        groupBy(records, func(r models.CustomerRecord) string { return r.City }, opts.CityTopCustomers),
		AreaGroups:        groupBy(records, func(r models.CustomerRecord) string { return r.Area }, opts.AreaTopCustomers),
		Enrichment:        in.Enrichment,
		Ingest:            in.Ingest,
		MissingReferences: missing,
		Stages:            []models.StageTiming{},
	}
}

func customerRecord(c *models.CustomerAggregate, tables *lookup.Tables, recent int) models.CustomerRecord {
	display := tables.Segment(c.Segment)
	return models.CustomerRecord{
		CustomerID:     c.CustomerID,
		Name:           c.Name,
		Phone:          c.Phone,
		Area:           tables.OrUnspecified(c.Area),
		City:           tables.OrUnspecified(tables.CanonicalCity(c.City)),
		Type:           tables.TypeLabel(c.Type),
		TotalGMV:       aggregate.Round2(c.TotalGMV),
		OrderCount:     c.OrderCount,
		UniqueOrders:   c.UniqueOrderCount,
		ItemCount:      c.ItemCount,
		AvgOrderValue:  c.AvgOrderValue,
		UniqueProducts: c.UniqueProductCount,
		UniqueBrands:   c.UniqueBrandCount,
		UniqueDates:    c.UniqueDateCount,
		Products:       maps.Clone(c.ProductFrequency),
		Brands:         maps.Clone(c.BrandFrequency),
		RecentOrders:   aggregate.RecentOrders(c, recent),
		Segment:        c.Segment,
		SegmentName:    display.Name,
		SegmentColor:   display.Color,
		SegmentReason:  display.Reason,
	}
}

func summarize(customers []*models.CustomerAggregate) models.Summary {
	var (
		s          models.Summary
		gmv, items models.Micros
	)
	s.TotalCustomers = len(customers)
	for _, c := range customers {
		s.TotalOrders += c.OrderCount
		s.TotalUniqueOrders += c.UniqueOrderCount
		items += c.ItemMicros
		gmv += c.GMVMicros
	}
	s.TotalItems = items.Float()
	s.TotalGMV = aggregate.Round2(gmv.Float())
	if s.TotalCustomers > 0 {
		s.AvgGMVPerCustomer = aggregate.Round2(s.TotalGMV / float64(s.TotalCustomers))
		s.AvgOrdersPerCustomer = aggregate.Round2(float64(s.TotalUniqueOrders) / float64(s.TotalCustomers))
	}
	return s
}

func segmentSummaries(records []models.CustomerRecord) []models.SegmentSummary {
	bySegment := make(map[models.Segment]*models.SegmentSummary)
	for _, r := range records {
		s, ok := bySegment[r.Segment]
		if !ok {
			s = &models.SegmentSummary{Key: r.Segment, Name: r.SegmentName, Color: r.SegmentColor}
			bySegment[r.Segment] = s
		}
		s.Count++
		s.GMV += r.TotalGMV
	}

	out := make([]models.SegmentSummary, 0, len(bySegment))
	for _, s := range bySegment {
		s.GMV = aggregate.Round2(s.GMV)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b models.SegmentSummary) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// groupBy rolls records up by a location key. Records arrive sorted by GMV,
// so the first top records seen for a group are its top customers.
func groupBy(records []models.CustomerRecord, key func(models.CustomerRecord) string, top int) []models.LocationGroup {
	groups := make(map[string]*models.LocationGroup)
	for _, r := range records {
		name := key(r)
		g, ok := groups[name]
		if !ok {
			g = &models.LocationGroup{Name: name, Customers: []models.CustomerRecord{}}
			groups[name] = g
		}
		g.Count++
		g.GMV += r.TotalGMV
		if len(g.Customers) < top {
			g.Customers = append(g.Customers, compact(r))
		}
	}

	out := make([]models.LocationGroup, 0, len(groups))
	for _, g := range groups {
		g.GMV = aggregate.Round2(g.GMV)
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b models.LocationGroup) int {
		if c := cmp.Compare(b.GMV, a.GMV); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// compact drops the per-customer detail maps from records nested in groups.
func compact(r models.CustomerRecord) models.CustomerRecord {
	r.Products = nil
	r.Brands = nil
	r.RecentOrders = nil
	return r
}
