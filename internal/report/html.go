package report

//go:generate templ generate -f page.templ

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"retail-insights/internal/models"
)

const (
	timeLayout    = "2006-01-02 15:04 MST"
	fallbackColor = "#9ca3af"
)

func visibleCustomers(customers []models.CustomerRecord, limit int) []models.CustomerRecord {
	if limit > 0 && len(customers) > limit {
		return customers[:limit]
	}
	return customers
}

func topCustomer(g models.LocationGroup) string {
	if len(g.Customers) == 0 {
		return ""
	}
	return g.Customers[0].Name
}

// formatCount and formatMoney group thousands the English way.
func formatCount(v int) string {
	return message.NewPrinter(language.English).Sprintf("%d", v)
}

func formatMoney(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// safeColor passes plain hex colors through and maps anything else to gray.
func safeColor(color string) string {
	if !isHexColor(color) {
		return fallbackColor
	}
	return color
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
