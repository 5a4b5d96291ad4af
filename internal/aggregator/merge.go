package aggregator

import "sort"

// sightingKey is the sole deduplication identity: two raw observations sharing
// a species code and report token describe the same real-world report.
type sightingKey struct {
	species   string
	checklist string
}

// merger folds raw observations into per-species summaries. It is owned by a
// single call frame and never shared across goroutines; the fold runs strictly
// single-threaded after all queries have settled.
type merger struct {
	summaries map[string]*SpeciesSummary
	seen      map[sightingKey]struct{}
	order     []string // species codes in first-seen order, for stable output
}

func newMerger() *merger {
	return &merger{
		summaries: make(map[string]*SpeciesSummary),
		seen:      make(map[sightingKey]struct{}),
	}
}

// add folds one observation into the accumulating summaries. Observations
// without a species code are dropped. notable holds every species code seen in
// any notable-mode response; membership forces the rare tier no matter in
// which order observations arrive.
func (m *merger) add(o *Observation, notable map[string]struct{}) {
	if o.SpeciesCode == "" {
		return
	}

	key := sightingKey{species: o.SpeciesCode, checklist: o.ChecklistID}
	if _, dup := m.seen[key]; dup {
		// Same report reached us through overlapping sample point radii
		return
	}
	m.seen[key] = struct{}{}

	_, isNotable := notable[o.SpeciesCode]

	sighting := Sighting{
		Observed:     o.Observed,
		Count:        o.Count,
		LocationName: o.LocationName,
		ChecklistID:  o.ChecklistID,
		Location:     o.Location,
	}

	summary, exists := m.summaries[o.SpeciesCode]
	if !exists {
		rarity := RarityCommon
		if isNotable || o.Reviewed {
			rarity = RarityRare
		}
		m.summaries[o.SpeciesCode] = &SpeciesSummary{
			SpeciesCode:    o.SpeciesCode,
			CommonName:     o.CommonName,
			ScientificName: o.ScientificName,
			Rarity:         rarity,
			Observed:       o.Observed,
			Count:          o.Count,
			LocationName:   o.LocationName,
			Location:       o.Location,
			Sightings:      []Sighting{sighting},
		}
		m.order = append(m.order, o.SpeciesCode)
		return
	}

	summary.Sightings = append(summary.Sightings, sighting)

	// Notable status is monotonic: the rare bird alert feed is authoritative
	// over individual report review flags.
	if isNotable || o.Reviewed {
		summary.Rarity = RarityRare
	}

	// The summary always surfaces its most recent sighting as primary,
	// independent of which sample point or feed produced it.
	if o.Observed.After(summary.Observed) {
		summary.Observed = o.Observed
		summary.Count = o.Count
		summary.LocationName = o.LocationName
		summary.Location = o.Location
	}
}

// finalize sorts each summary's sightings most recent first (stable, so equal
// timestamps keep arrival order) and returns the summaries in first-seen
// species order.
func (m *merger) finalize() []SpeciesSummary {
	out := make([]SpeciesSummary, 0, len(m.order))
	for _, code := range m.order {
		summary := m.summaries[code]
		sort.SliceStable(summary.Sightings, func(i, j int) bool {
			return summary.Sightings[i].Observed.After(summary.Sightings[j].Observed)
		})
		out = append(out, *summary)
	}
	return out
}
