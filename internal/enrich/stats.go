package enrich

import "retail-insights/internal/models"

type FieldStats struct {
	MissingBefore int
	Filled        int
	MissingAfter  int
}

// Stats counts per-field fills over a set of rows. The zero value is ready
// to use and partial Stats from concurrent batches can be merged.
type Stats struct {
	Rows   int
	Fields [numFields]FieldStats
}

func (s *Stats) Observe(before, after models.TransactionRow, fills Fills) {
	s.Rows++
	for field := range numFields {
		fs := &s.Fields[field]
		if missing(before, field) {
			fs.MissingBefore++
		}
		if fills.Has(field) {
			fs.Filled++
		}
		if missing(after, field) {
			fs.MissingAfter++
		}
	}
}

func (s *Stats) Merge(other Stats) {
	s.Rows += other.Rows
	for i := range s.Fields {
		s.Fields[i].MissingBefore += other.Fields[i].MissingBefore
		s.Fields[i].Filled += other.Fields[i].Filled
		s.Fields[i].MissingAfter += other.Fields[i].MissingAfter
	}
}

func (s Stats) Field(f Field) FieldStats {
	return s.Fields[f]
}

func (s Stats) Report() []models.FieldFill {
	out := make([]models.FieldFill, 0, numFields)
	for field := range numFields {
		fs := s.Fields[field]
		out = append(out, models.FieldFill{
			Field:         field.String(),
			MissingBefore: fs.MissingBefore,
			Filled:        fs.Filled,
			MissingAfter:  fs.MissingAfter,
		})
	}
	return out
}
