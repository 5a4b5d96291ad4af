package aggregator

import (
	"sort"

	"github.com/joyvchen/birdride/internal/route"
)

// annotateRoute fills the path-relative fields on every summary: the minimum
// distance from the primary sighting to the route and the mile marker of the
// nearest point on the route.
func annotateRoute(summaries []SpeciesSummary, r route.Route) {
	for i := range summaries {
		summaries[i].DistanceMiles = r.DistanceMiles(summaries[i].Location)
		summaries[i].RouteMile = r.PositionAlongMiles(summaries[i].Location)
	}
}

// FilterByProximity keeps summaries whose primary sighting lies within
// maxMiles of the route. Summaries must already be annotated via the
// aggregation call; standalone use recomputes the distance.
func FilterByProximity(summaries []SpeciesSummary, r route.Route, maxMiles float64) []SpeciesSummary {
	out := make([]SpeciesSummary, 0, len(summaries))
	for i := range summaries {
		if r.DistanceMiles(summaries[i].Location) <= maxMiles {
			out = append(out, summaries[i])
		}
	}
	return out
}

// FilterRare keeps only summaries classified as rare. It composes freely with
// FilterByProximity; the two predicates are independent.
func FilterRare(summaries []SpeciesSummary) []SpeciesSummary {
	out := make([]SpeciesSummary, 0, len(summaries))
	for i := range summaries {
		if summaries[i].Rarity == RarityRare {
			out = append(out, summaries[i])
		}
	}
	return out
}

// SortByRecency orders summaries by primary timestamp, newest first. A zero
// timestamp sorts as earliest possible.
func SortByRecency(summaries []SpeciesSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Observed.After(summaries[j].Observed)
	})
}

// SortByRarity orders rare summaries before common ones, preserving prior
// relative order within each tier.
func SortByRarity(summaries []SpeciesSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Rarity == RarityRare && summaries[j].Rarity != RarityRare
	})
}
