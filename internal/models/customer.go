package models

import "math"

// Segment is the label the classifier assigns to a finalized customer.
type Segment string

// Micros is an amount in millionths of a unit. Integer sums do not depend
// on the order they are added in, so partial folds merge exactly.
type Micros int64

const microsPerUnit = 1_000_000

// ToMicros rounds v to the nearest millionth.
func ToMicros(v float64) Micros {
	return Micros(math.Round(v * microsPerUnit))
}

func (m Micros) Float() float64 {
	return float64(m) / microsPerUnit
}

// CustomerAggregate is one customer's rollup. Amounts accumulate in the
// Micros fields; the float views, counts and the average are filled by
// Finalize and are meaningful only after it.
type CustomerAggregate struct {
	Key        string
	CustomerID string
	Name       string
	Phone      string
	PhoneValue int64

	// Snapshot of the first row seen for the customer, by input sequence.
	FirstSeen int64
	Area      string
	City      string
	Type      string

	OrderCount    int
	GMVMicros     Micros
	ItemMicros    Micros
	Orders        map[string]*OrderSummary
	Dates         map[string]struct{}
	ProductMicros map[string]Micros
	BrandMicros   map[string]Micros

	TotalGMV         float64
	ItemCount        float64
	ProductFrequency map[string]float64
	BrandFrequency   map[string]float64

	UniqueOrderCount   int
	UniqueProductCount int
	UniqueBrandCount   int
	UniqueDateCount    int
	AvgOrderValue      float64

	Segment Segment
}

func NewCustomerAggregate(key string) *CustomerAggregate {
	return &CustomerAggregate{
		Key:           key,
		Orders:        make(map[string]*OrderSummary),
		Dates:         make(map[string]struct{}),
		ProductMicros: make(map[string]Micros),
		BrandMicros:   make(map[string]Micros),
	}
}

// OrderSummary accumulates the line items of one order for one customer.
// Date comes from the order's earliest line by input sequence.
type OrderSummary struct {
	FirstSeq int64
	Date     string
	Lines    int
	Items    Micros
	GMV      Micros
}

// SegmentDisplay is the static presentation attached to a segment label.
type SegmentDisplay struct {
	Name   string `yaml:"name" json:"name"`
	Color  string `yaml:"color" json:"color"`
	Reason string `yaml:"reason" json:"reason"`
}
