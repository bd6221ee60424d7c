// Package enrich fills missing transaction fields from the reference
// indexes. It never replaces a value that is already present.
package enrich

import (
	"strings"

	"retail-insights/internal/lookup"
	"retail-insights/internal/models"
	"retail-insights/internal/reference"
)

type Field uint8

const (
	FieldName Field = iota
	FieldType
	FieldArea
	FieldCity
	FieldProduct
	FieldBrand
	FieldCategory
	numFields
)

var fieldNames = [numFields]string{
	FieldName:     "name",
	FieldType:     "type",
	FieldArea:     "area",
	FieldCity:     "city",
	FieldProduct:  "product",
	FieldBrand:    "brand",
	FieldCategory: "category",
}

func (f Field) String() string {
	if f < numFields {
		return fieldNames[f]
	}
	return "unknown"
}

// Fills records which fields a single Enrich call filled.
type Fills uint16

func (f Fills) Has(field Field) bool {
	return f&(1<<field) != 0
}

func (f Fills) Count() int {
	n := 0
	for field := range numFields {
		if f.Has(field) {
			n++
		}
	}
	return n
}

// Enricher applies the fill rules against one set of indexes. It holds no
// mutable state and is safe for concurrent use.
type Enricher struct {
	idx    *reference.Indexes
	tables *lookup.Tables
}

// New returns an Enricher. A nil tables disables the address fallback.
func New(idx *reference.Indexes, tables *lookup.Tables) *Enricher {
	if idx == nil {
		idx = reference.EmptyIndexes()
	}
	return &Enricher{idx: idx, tables: tables}
}

// Enrich returns a copy of row with missing fields filled, in this order:
// retailer directory, product index, historical extract, then the row's own
// address. Each step only touches fields that are still missing.
func (e *Enricher) Enrich(row models.TransactionRow) (models.TransactionRow, Fills) {
	var fills Fills
	fill := func(field Field, dst *string, value string, missing bool) {
		if !missing || models.IsMissing(value) {
			return
		}
		*dst = strings.TrimSpace(value)
		fills |= 1 << field
	}

	if profile, ok := e.idx.Retailers.Lookup(row.Phone); ok {
		if models.NameState(profile.Name) == models.FieldValue {
			fill(FieldName, &row.CustomerName, profile.Name, models.IsNameMissing(row.CustomerName))
		}
		fill(FieldType, &row.CustomerType, profile.Type, models.IsMissing(row.CustomerType))
		fill(FieldArea, &row.Area, profile.Area, models.IsMissing(row.Area))
		fill(FieldCity, &row.City, profile.City, models.IsMissing(row.City))
	}

	if row.HasProductID {
		if info, ok := e.idx.Products[row.ProductID]; ok {
			fill(FieldProduct, &row.ProductName, info.Name, models.IsMissing(row.ProductName))
			fill(FieldBrand, &row.Brand, info.Brand, models.IsMissing(row.Brand))
			fill(FieldCategory, &row.Category, info.Category, models.IsMissing(row.Category))
		}
	}

	if rec, ok := e.idx.History.Match(row.Phone, row.ProductID, row.HasProductID); ok {
		if models.NameState(rec.Name) == models.FieldValue {
			fill(FieldName, &row.CustomerName, rec.Name, models.IsNameMissing(row.CustomerName))
		}
		fill(FieldBrand, &row.Brand, rec.Brand, models.IsMissing(row.Brand))
		fill(FieldCategory, &row.Category, rec.Category, models.IsMissing(row.Category))
		fill(FieldProduct, &row.ProductName, rec.Product, models.IsMissing(row.ProductName))
	}

	if e.tables != nil && !models.IsMissing(row.Address) {
		if models.IsMissing(row.City) {
			city, _ := e.tables.CityInAddress(row.Address)
			fill(FieldCity, &row.City, city, true)
		}
		if models.IsMissing(row.Area) {
			area, _ := e.tables.AreaFromAddress(row.Address)
			fill(FieldArea, &row.Area, area, true)
		}
	}

	return row, fills
}

func missing(row models.TransactionRow, field Field) bool {
	switch field {
	case FieldName:
		return models.IsNameMissing(row.CustomerName)
	case FieldType:
		return models.IsMissing(row.CustomerType)
	case FieldArea:
		return models.IsMissing(row.Area)
	case FieldCity:
		return models.IsMissing(row.City)
	case FieldProduct:
		return models.IsMissing(row.ProductName)
	case FieldBrand:
		return models.IsMissing(row.Brand)
	case FieldCategory:
		return models.IsMissing(row.Category)
	}
	return false
}
