// ABOUTME: Pure pipeline aggregation over a collection of deals
// ABOUTME: Produces per-stage counts and values plus pipeline-wide metrics
package pipeline

import (
	"sort"

	"github.com/harperreed/salescrm/models"
)

// StageTotals is the count and summed amount of one bucket.
type StageTotals struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

// StageSummary is one row of an ordered snapshot.
type StageSummary struct {
	models.StageInfo
	StageTotals
}

// Snapshot is a derived, read-only view of a deal collection. It is rebuilt
// from scratch on every call to Summarize.
type Snapshot struct {
	Stages             map[models.Stage]StageTotals `json:"stages"`
	Unrecognized       StageTotals                  `json:"unrecognized"`
	UnrecognizedStages []string                     `json:"unrecognized_stages,omitempty"`
	TotalDeals         int                          `json:"total_deals"`
	TotalPipelineValue float64                      `json:"total_pipeline_value"`
	WonValue           float64                      `json:"won_value"`
	ConversionRate     float64                      `json:"conversion_rate"`
	AverageDealSize    float64                      `json:"average_deal_size"`
}

// Summarize aggregates deals. It never mutates its input and never fails:
// deals carrying a stage outside the registry land in the Unrecognized bucket.
func Summarize(deals []models.Deal) Snapshot {
	buckets := make(map[models.Stage]StageTotals)
	for _, deal := range deals {
		totals := buckets[deal.Stage]
		totals.Count++
		totals.TotalValue += deal.AmountValue()
		buckets[deal.Stage] = totals
	}
	return FromTotals(buckets)
}

// FromTotals derives a snapshot from per-stage totals keyed by raw stage
// value. The store's GROUP BY summary goes through here so both placements
// of the aggregation compute metrics the same way.
func FromTotals(buckets map[models.Stage]StageTotals) Snapshot {
	snap := Snapshot{
		Stages: make(map[models.Stage]StageTotals, len(models.ListStages())),
	}
	for _, info := range models.ListStages() {
		snap.Stages[info.ID] = StageTotals{}
	}

	// fixed key order keeps float sums reproducible
	keys := make([]string, 0, len(buckets))
	for stage := range buckets {
		keys = append(keys, string(stage))
	}
	sort.Strings(keys)

	for _, key := range keys {
		stage := models.Stage(key)
		totals := buckets[stage]
		snap.TotalDeals += totals.Count

		if !models.IsValidStage(stage) {
			snap.Unrecognized.Count += totals.Count
			snap.Unrecognized.TotalValue += totals.TotalValue
			snap.UnrecognizedStages = append(snap.UnrecognizedStages, key)
			continue
		}

		snap.Stages[stage] = totals
		if stage.IsOpen() {
			snap.TotalPipelineValue += totals.TotalValue
		}
	}

	won := snap.Stages[models.StageWon]
	snap.WonValue = won.TotalValue

	if snap.TotalDeals > 0 {
		snap.ConversionRate = 100 * float64(won.Count) / float64(snap.TotalDeals)
	}
	if won.Count > 0 {
		snap.AverageDealSize = snap.WonValue / float64(won.Count)
	}

	return snap
}

// Ordered returns the six stages in registry order with their totals.
func (s Snapshot) Ordered() []StageSummary {
	stages := models.ListStages()
	out := make([]StageSummary, 0, len(stages))
	for _, info := range stages {
		out = append(out, StageSummary{StageInfo: info, StageTotals: s.Stages[info.ID]})
	}
	return out
}

// CountTotal sums every bucket including Unrecognized.
func (s Snapshot) CountTotal() int {
	total := s.Unrecognized.Count
	for _, t := range s.Stages {
		total += t.Count
	}
	return total
}
