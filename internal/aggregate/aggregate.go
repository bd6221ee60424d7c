// Package aggregate folds enriched rows into per-customer rollups.
package aggregate

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"retail-insights/internal/models"
	"retail-insights/internal/normalize"
)

const unknownName = "Unknown"

var customerNamespace = uuid.MustParse("3f0c6a52-8d5e-4c1b-9a47-2b1e6d90c4f1")

// Key is the customer identity: the trimmed name and the phone's integer
// value. Different spellings of a name stay different customers.
func Key(name, phone string) string {
	return displayName(name) + "_" + strconv.FormatInt(normalize.PhoneValue(phone), 10)
}

// CustomerID derives a stable identifier from a customer key.
func CustomerID(key string) string {
	return uuid.NewSHA1(customerNamespace, []byte(key)).String()
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return unknownName
	}
	return name
}

// Aggregator is a fold over rows. It is not safe for concurrent use; fold
// partitions in separate Aggregators and Merge them.
type Aggregator struct {
	customers map[string]*models.CustomerAggregate
}

func New() *Aggregator {
	return &Aggregator{customers: make(map[string]*models.CustomerAggregate)}
}

// Add folds one row. seq is the row's position in the original input and
// decides which row supplies the first-seen area, city and type.
func (a *Aggregator) Add(seq int64, row models.TransactionRow) {
	key := Key(row.CustomerName, row.Phone)
	c, ok := a.customers[key]
	if !ok {
		c = models.NewCustomerAggregate(key)
		c.CustomerID = CustomerID(key)
		c.FirstSeen = seq
		snapshot(c, row)
		a.customers[key] = c
	} else if seq < c.FirstSeen {
		c.FirstSeen = seq
		snapshot(c, row)
	}

	gmv := models.ToMicros(row.GMV())
	items := models.ToMicros(row.Quantity)
	c.OrderCount++
	c.GMVMicros += gmv
	c.ItemMicros += items
	c.Dates[row.Date] = struct{}{}

	order, ok := c.Orders[row.OrderID]
	if !ok {
		order = &models.OrderSummary{FirstSeq: seq, Date: row.Date}
		c.Orders[row.OrderID] = order
	} else if seq < order.FirstSeq {
		order.FirstSeq = seq
		order.Date = row.Date
	}
	order.Lines++
	order.Items += items
	order.GMV += gmv

	if product := strings.TrimSpace(row.ProductName); product != "" {
		c.ProductMicros[product] += items
	}
	if brand := strings.TrimSpace(row.Brand); brand != "" {
		c.BrandMicros[brand] += items
	}
}

func snapshot(c *models.CustomerAggregate, row models.TransactionRow) {
	c.Name = displayName(row.CustomerName)
	c.Phone, _ = normalize.Phone(row.Phone)
	c.PhoneValue = normalize.PhoneValue(row.Phone)
	c.Area = strings.TrimSpace(row.Area)
	c.City = strings.TrimSpace(row.City)
	c.Type = strings.TrimSpace(row.CustomerType)
}

// Merge folds other into a. Scalars add, sets and frequency maps union, and
// the snapshot with the earlier input sequence wins. other must not be used
// afterwards.
func (a *Aggregator) Merge(other *Aggregator) {
	for key, oc := range other.customers {
		c, ok := a.customers[key]
		if !ok {
			a.customers[key] = oc
			continue
		}

		if oc.FirstSeen < c.FirstSeen {
			c.FirstSeen = oc.FirstSeen
			c.Name, c.Phone, c.PhoneValue = oc.Name, oc.Phone, oc.PhoneValue
			c.Area, c.City, c.Type = oc.Area, oc.City, oc.Type
		}

		c.OrderCount += oc.OrderCount
		c.GMVMicros += oc.GMVMicros
		c.ItemMicros += oc.ItemMicros

		for d := range oc.Dates {
			c.Dates[d] = struct{}{}
		}
		for id, oo := range oc.Orders {
			order, ok := c.Orders[id]
			if !ok {
				c.Orders[id] = oo
				continue
			}
			if oo.FirstSeq < order.FirstSeq {
				order.FirstSeq = oo.FirstSeq
				order.Date = oo.Date
			}
			order.Lines += oo.Lines
			order.Items += oo.Items
			order.GMV += oo.GMV
		}
		for p, q := range oc.ProductMicros {
			c.ProductMicros[p] += q
		}
		for b, q := range oc.BrandMicros {
			c.BrandMicros[b] += q
		}
	}
	other.customers = nil
}

// Finalize computes the derived counts and returns the customers ordered
// by GMV, highest first, ties in first-seen order.
func (a *Aggregator) Finalize() []*models.CustomerAggregate {
	out := make([]*models.CustomerAggregate, 0, len(a.customers))
	for _, c := range a.customers {
		c.TotalGMV = c.GMVMicros.Float()
		c.ItemCount = c.ItemMicros.Float()
		c.ProductFrequency = floats(c.ProductMicros)
		c.BrandFrequency = floats(c.BrandMicros)
		c.UniqueOrderCount = len(c.Orders)
		c.UniqueProductCount = len(c.ProductMicros)
		c.UniqueBrandCount = len(c.BrandMicros)
		c.UniqueDateCount = len(c.Dates)
		c.AvgOrderValue = Round2(c.TotalGMV / float64(max(1, c.UniqueOrderCount)))
		out = append(out, c)
	}

	slices.SortFunc(out, func(x, y *models.CustomerAggregate) int {
		if c := cmp.Compare(y.GMVMicros, x.GMVMicros); c != 0 {
			return c
		}
		return cmp.Compare(x.FirstSeen, y.FirstSeen)
	})
	return out
}

func floats(m map[string]models.Micros) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v.Float()
	}
	return out
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate folds rows sequentially.
func Aggregate(rows []models.TransactionRow) []*models.CustomerAggregate {
	a := New()
	for i, row := range rows {
		a.Add(int64(i), row)
	}
	return a.Finalize()
}

// Partitioned folds contiguous partitions of rows concurrently and merges
// them. The result equals Aggregate(rows).
func Partitioned(ctx context.Context, rows []models.TransactionRow, parts int) ([]*models.CustomerAggregate, error) {
	if parts <= 1 || len(rows) < 2*parts {
		return Aggregate(rows), nil
	}

	size := (len(rows) + parts - 1) / parts
	partials := make([]*Aggregator, 0, parts)

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		part := New()
		partials = append(partials, part)

		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				part.Add(int64(i), rows[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := partials[0]
	for _, p := range partials[1:] {
		total.Merge(p)
	}
	return total.Finalize(), nil
}

// RecentOrders lists a customer's orders, latest date first, ties by order
// id, capped at limit when limit is positive.
func RecentOrders(c *models.CustomerAggregate, limit int) []models.OrderRecord {
	out := make([]models.OrderRecord, 0, len(c.Orders))
	for id, o := range c.Orders {
		out = append(out, models.OrderRecord{
			OrderID: id,
			Date:    o.Date,
			Lines:   o.Lines,
			Items:   o.Items.Float(),
			GMV:     Round2(o.GMV.Float()),
		})
	}
	slices.SortFunc(out, func(x, y models.OrderRecord) int {
		if c := cmp.Compare(y.Date, x.Date); c != 0 {
			return c
		}
		return cmp.Compare(x.OrderID, y.OrderID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
