// Package segment labels finalized customers with one of ten segments.
package segment

import (
	"math"

	"retail-insights/internal/models"
)

const (
	Premium    models.Segment = "premium"
	HighValue  models.Segment = "high_value"
	Loyal      models.Segment = "loyal"
	Growing    models.Segment = "growing"
	Potential  models.Segment = "potential"
	Active     models.Segment = "active"
	Occasional models.Segment = "occasional"
	Inactive   models.Segment = "inactive"
	Lost       models.Segment = "lost"
	Regular    models.Segment = "regular"
)

// Metrics are the inputs a rule may look at.
type Metrics struct {
	GMV        float64
	Orders     int
	AvgValue   float64
	ActiveDays int
}

func MetricsOf(c *models.CustomerAggregate) Metrics {
	m := Metrics{
		GMV:        c.TotalGMV,
		Orders:     c.UniqueOrderCount,
		AvgValue:   c.AvgOrderValue,
		ActiveDays: c.UniqueDateCount,
	}
	if m.AvgValue == 0 && m.Orders > 0 {
		m.AvgValue = m.GMV / float64(m.Orders)
	}
	return m
}

// FrequencyScore scales active days to 0..100, saturating at 30 days.
func FrequencyScore(activeDays int) float64 {
	return math.Min(float64(activeDays)/30, 1) * 100
}

type Rule struct {
	Segment models.Segment
	Match   func(Metrics) bool
}

// Rules are evaluated in order and the first match wins. Later rules are
// shadowed by earlier broader ones; the order is part of the contract.
var Rules = []Rule{
	{Premium, func(m Metrics) bool { return m.GMV > 1_000_000 }},
	{HighValue, func(m Metrics) bool { return m.GMV > 500_000 }},
	{Loyal, func(m Metrics) bool { return m.Orders > 200 && FrequencyScore(m.ActiveDays) > 70 }},
	{Growing, func(m Metrics) bool { return m.Orders > 50 && m.GMV > 100_000 && m.AvgValue > 1000 }},
	{Potential, func(m Metrics) bool { return m.AvgValue > 500 && m.Orders > 10 }},
	{Active, func(m Metrics) bool { return m.Orders > 50 }},
	{Occasional, func(m Metrics) bool { return m.Orders > 10 && m.GMV > 10_000 }},
	{Inactive, func(m Metrics) bool { return m.Orders <= 5 || m.ActiveDays == 0 }},
	{Lost, func(m Metrics) bool { return m.Orders <= 10 && m.GMV < 10_000 }},
}

// Fallback is the label when no rule matches.
const Fallback = Regular

func ClassifyMetrics(m Metrics) models.Segment {
	for _, r := range Rules {
		if r.Match(m) {
			return r.Segment
		}
	}
	return Fallback
}

func Classify(c *models.CustomerAggregate) models.Segment {
	return ClassifyMetrics(MetricsOf(c))
}

// Assign labels every customer in place.
func Assign(customers []*models.CustomerAggregate) {
	for _, c := range customers {
		c.Segment = Classify(c)
	}
}

// All lists every label in rule order, fallback last.
func All() []models.Segment {
	out := make([]models.Segment, 0, len(Rules)+1)
	for _, r := range Rules {
		out = append(out, r.Segment)
	}
	return append(out, Fallback)
}
