package reference

import (
	"retail-insights/internal/models"
	"retail-insights/internal/normalize"
)

// HistoryIndex groups historical extract rows by normalized phone, keeping
// file order within each phone.
type HistoryIndex map[string][]models.HistoryRecord

func BuildHistoryIndex(records []models.HistoryRecord) HistoryIndex {
	index := make(HistoryIndex)
	for _, rec := range records {
		phone, ok := normalize.Phone(rec.Phone)
		if !ok {
			continue
		}
		index[phone] = append(index[phone], rec)
	}
	return index
}

// Match returns the first record for the phone that carries the same
// product id, or the phone's first record when none does.
func (idx HistoryIndex) Match(rawPhone string, productID int64, hasProductID bool) (models.HistoryRecord, bool) {
	phone, ok := normalize.Phone(rawPhone)
	if !ok {
		return models.HistoryRecord{}, false
	}
	records := idx[phone]
	if len(records) == 0 {
		return models.HistoryRecord{}, false
	}
	if hasProductID {
		for _, rec := range records {
			if rec.HasBaseID && rec.BaseID == productID {
				return rec, true
			}
		}
	}
	return records[0], true
}
