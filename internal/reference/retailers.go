// Package reference builds the immutable lookup indexes the enricher reads:
// retailers by phone, products by id and the historical extract by phone.
package reference

import (
	"retail-insights/internal/models"
	"retail-insights/internal/normalize"
)

// RetailerIndex maps a normalized phone to its best directory entry.
type RetailerIndex map[string]models.RetailerProfile

// BuildRetailerIndex keeps, for every normalized phone, the directory row
// with the highest completeness. On a tie the earlier row stays. Rows
// without a usable phone contribute nothing.
func BuildRetailerIndex(rows []models.DirectoryRow) RetailerIndex {
	index := make(RetailerIndex)
	scores := make(map[string]int)

	for _, row := range rows {
		phone, ok := normalize.Phone(row.Phone)
		if !ok {
			continue
		}
		profile := row.Profile()
		score := profile.Completeness()
		if best, seen := scores[phone]; seen && score <= best {
			continue
		}
		index[phone] = profile
		scores[phone] = score
	}
	return index
}

// Lookup normalizes raw before searching.
func (idx RetailerIndex) Lookup(raw string) (models.RetailerProfile, bool) {
	phone, ok := normalize.Phone(raw)
	if !ok {
		return models.RetailerProfile{}, false
	}
	p, ok := idx[phone]
	return p, ok
}
