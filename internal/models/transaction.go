package models

import "strings"

// LocationSentinel is the placeholder the export writes when the real
// customer name is unknown.
const LocationSentinel = "Location"

// TransactionRow is one purchased line item of the transaction export.
type TransactionRow struct {
	OrderID      string
	Phone        string
	CustomerName string
	Address      string
	Area         string
	City         string
	CustomerType string
	ProductID    int64
	HasProductID bool
	ProductName  string
	Brand        string
	Category     string
	Quantity     float64
	UnitPrice    float64
	Date         string

	// RawID and RawBaseID keep the original id cells so the enriched export
	// writes them back unchanged.
	RawID     string
	RawBaseID string
}

// GMV is the line value, quantity times unit price.
func (r TransactionRow) GMV() float64 {
	return r.Quantity * r.UnitPrice
}

// FieldState classifies a free-text cell.
type FieldState int

const (
	FieldEmpty FieldState = iota
	FieldSentinel
	FieldValue
)

func (s FieldState) String() string {
	switch s {
	case FieldEmpty:
		return "empty"
	case FieldSentinel:
		return "sentinel"
	default:
		return "value"
	}
}

// NameState reports the state of a customer-name cell. Absent cells read as
// empty strings, so absent and empty share FieldEmpty.
func NameState(s string) FieldState {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return FieldEmpty
	case t == LocationSentinel:
		return FieldSentinel
	default:
		return FieldValue
	}
}

// IsMissing reports whether a plain field carries no value.
func IsMissing(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsNameMissing is IsMissing extended with the "Location" placeholder.
func IsNameMissing(s string) bool {
	return NameState(s) != FieldValue
}
