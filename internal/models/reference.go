package models

// DirectoryRow is one raw row of the retailer directory.
type DirectoryRow struct {
	Phone             string
	RetailerName      string
	RetailerType      string
	Area              string
	City              string
	DistributionRoute string
}

// RetailerProfile is the resolved directory entry for one normalized phone.
type RetailerProfile struct {
	Name  string
	Type  string
	Area  string
	City  string
	Route string
}

// Completeness weighs the name twice and every other field once.
func (p RetailerProfile) Completeness() int {
	score := 0
	if !IsMissing(p.Name) {
		score += 2
	}
	for _, v := range []string{p.Area, p.City, p.Route, p.Type} {
		if !IsMissing(v) {
			score++
		}
	}
	return score
}

func (r DirectoryRow) Profile() RetailerProfile {
	return RetailerProfile{
		Name:  r.RetailerName,
		Type:  r.RetailerType,
		Area:  r.Area,
		City:  r.City,
		Route: r.DistributionRoute,
	}
}

// CatalogRow is one row of the authoritative product catalog.
type CatalogRow struct {
	ID   int64
	Name string
}

// HistoryRecord is one row of the historical "overall" extract.
type HistoryRecord struct {
	Phone     string
	Name      string
	BaseID    int64
	HasBaseID bool
	Brand     string
	Category  string
	Product   string
}

// ProductInfo is the resolved catalog entry for one product id.
type ProductInfo struct {
	Name     string
	Brand    string
	Category string
}
