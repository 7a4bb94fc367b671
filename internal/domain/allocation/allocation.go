// Package allocation distributes a declared number of hours across subjects.
//
// Every path (structured, live extraction, heuristic) ends in Reconcile, so
// the allocated hours always sum to the declared total rounded to 0.1.
package allocation

import (
	"math"
	"strings"

	"github.com/okian/invoy/internal/domain/model"
)

const (
	// DefaultBillingPeriod labels allocations without an explicit period.
	DefaultBillingPeriod = "Monthly"

	// StructuredJustification is attached to proportionally allocated items.
	StructuredJustification = "Proportional allocation based on subject complexity proxy."

	// StructuredConfidence is reported for proportional allocations.
	StructuredConfidence = 0.4
)

// Allocate splits totalHours across subjects in proportion to their word
// count (minimum weight 1). Shares are rounded to 0.1 and the last item
// absorbs the rounding drift. The result depends on subject order.
func Allocate(totalHours float64, subjects []string) []model.AllocatedItem {
	if len(subjects) == 0 {
		return []model.AllocatedItem{}
	}

	weights := make([]int, len(subjects))
	sum := 0
	for i, s := range subjects {
		weights[i] = max(1, len(strings.Fields(s)))
		sum += weights[i]
	}

	items := make([]model.AllocatedItem, len(subjects))
	for i, s := range subjects {
		items[i] = model.AllocatedItem{
			Subject:        strings.TrimSpace(s),
			EstimatedHours: totalHours * float64(weights[i]) / float64(sum),
			Justification:  StructuredJustification,
		}
	}
	return Reconcile(items, totalHours)
}

// Reconcile rounds every item to 0.1 hours and corrects only the last item
// so that the sequence sums to totalHours rounded to 0.1. The last item
// goes negative when the rounded shares already exceed the total. The input
// slice is not modified.
func Reconcile(items []model.AllocatedItem, totalHours float64) []model.AllocatedItem {
	out := make([]model.AllocatedItem, len(items))
	copy(out, items)
	if len(out) == 0 {
		return out
	}

	// Work in integer tenths so the correction is exact.
	tenths := make([]int64, len(out))
	var sum int64
	for i, it := range out {
		tenths[i] = toTenths(it.EstimatedHours)
		sum += tenths[i]
	}
	tenths[len(tenths)-1] += toTenths(totalHours) - sum

	for i := range out {
		out[i].EstimatedHours = float64(tenths[i]) / 10
	}
	return out
}

// Round1 rounds h to one decimal place, halves away from zero.
func Round1(h float64) float64 {
	return float64(toTenths(h)) / 10
}

func toTenths(h float64) int64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return int64(math.Round(h * 10))
}

// Sum returns the total estimated hours of items.
func Sum(items []model.AllocatedItem) float64 {
	var s float64
	for _, it := range items {
		s += it.EstimatedHours
	}
	return s
}
