package reference

import (
	"strings"
	"unicode/utf8"

	"retail-insights/internal/models"
)

// ProductIndex maps a product id to its merged catalog entry.
type ProductIndex map[int64]models.ProductInfo

const (
	maxBrandRunes    = 15
	shortLeadingWord = 5
)

// BuildProductIndex merges the catalog with the historical extract. Catalog
// names win; the extract only fills what the catalog leaves empty, and
// among several extract names for one id the longest wins. A brand still
// empty after both passes is derived from the resolved name.
func BuildProductIndex(catalog []models.CatalogRow, overall []models.HistoryRecord) ProductIndex {
	index := make(ProductIndex, len(catalog))
	fromCatalog := make(map[int64]bool, len(catalog))

	for _, row := range catalog {
		index[row.ID] = models.ProductInfo{Name: strings.TrimSpace(row.Name)}
		fromCatalog[row.ID] = !models.IsMissing(row.Name)
	}

	for _, rec := range overall {
		if !rec.HasBaseID {
			continue
		}
		info, exists := index[rec.BaseID]
		if !exists {
			index[rec.BaseID] = models.ProductInfo{
				Name:     rec.Product,
				Brand:    rec.Brand,
				Category: rec.Category,
			}
			continue
		}

		if !fromCatalog[rec.BaseID] && utf8.RuneCountInString(rec.Product) > utf8.RuneCountInString(info.Name) {
			info.Name = rec.Product
		}
		if models.IsMissing(info.Brand) {
			info.Brand = rec.Brand
		}
		if models.IsMissing(info.Category) {
			info.Category = rec.Category
		}
		index[rec.BaseID] = info
	}

	for id, info := range index {
		if models.IsMissing(info.Brand) {
			info.Brand = DeriveBrand(info.Name)
			index[id] = info
		}
	}
	return index
}

// DeriveBrand guesses a brand from the leading words of a product name.
// Two words are used when the first is a short prefix (under five
// characters, as in "7 UP" or "Al Ahram") and both fit in fifteen
// characters; otherwise the first word alone.
func DeriveBrand(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	first := words[0]
	pair := first + " " + words[1]
	if utf8.RuneCountInString(first) < shortLeadingWord && utf8.RuneCountInString(pair) <= maxBrandRunes {
		return pair
	}
	return first
}
