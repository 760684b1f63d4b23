package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// Backends store samples and results as flat rows: one row per time step plus
// one row per body zone or segment at that step.

// SampleRow is the scalar part of one simulator record
type SampleRow struct {
	Step     int     `gorm:"column:step;primaryKey"`
	Time     float64 `gorm:"column:time;not null"`
	MeanSkin float64 `gorm:"column:mean_skin;not null"`
}

// ZoneRow holds one body zone's temperatures within a record
type ZoneRow struct {
	Step int     `gorm:"column:step;primaryKey"`
	Zone string  `gorm:"column:zone;primaryKey"`
	Skin float64 `gorm:"column:skin;not null"`
	Core float64 `gorm:"column:core;not null"`
}

// ResultRow is the whole-body part of one step result
type ResultRow struct {
	Step             int     `gorm:"column:step;primaryKey"`
	Time             float64 `gorm:"column:time;not null"`
	OverallSensation float64 `gorm:"column:overall_sensation;not null"`
	OverallComfort   float64 `gorm:"column:overall_comfort;not null"`
	Regime           string  `gorm:"column:regime;not null"`
	// Selected is the comma-separated list of driving segments
	Selected   string `gorm:"column:selected;not null"`
	Degenerate bool   `gorm:"column:degenerate;not null"`
}

// SegmentRow holds one segment's local sensation and comfort within a result
type SegmentRow struct {
	Step      int     `gorm:"column:step;primaryKey"`
	Segment   string  `gorm:"column:segment;primaryKey"`
	Sensation float64 `gorm:"column:sensation;not null"`
	Comfort   float64 `gorm:"column:comfort;not null"`
}

// FlattenSamples splits records into rows. Zone rows come out in zone order.
func FlattenSamples(records []jos3.Record) ([]SampleRow, []ZoneRow) {
	samples := make([]SampleRow, 0, len(records))
	var zones []ZoneRow

	for i, r := range records {
		samples = append(samples, SampleRow{Step: i, Time: r.Time, MeanSkin: r.MeanSkin})
		for _, z := range jos3.Zones() {
			skin, hasSkin := r.Skin[z]
			core, hasCore := r.Core[z]
			if !hasSkin && !hasCore {
				continue
			}
			zones = append(zones, ZoneRow{Step: i, Zone: string(z), Skin: skin, Core: core})
		}
	}
	return samples, zones
}

// AssembleSamples is the inverse of FlattenSamples
func AssembleSamples(samples []SampleRow, zones []ZoneRow) ([]jos3.Record, error) {
	sort.Slice(samples, func(i, j int) bool { return samples[i].Step < samples[j].Step })

	index := make(map[int]int, len(samples))
	records := make([]jos3.Record, len(samples))
	for i, s := range samples {
		index[s.Step] = i
		records[i] = jos3.Record{
			Time:     s.Time,
			MeanSkin: s.MeanSkin,
			Skin:     make(map[jos3.Zone]float64),
			Core:     make(map[jos3.Zone]float64),
		}
	}

	for _, z := range zones {
		i, ok := index[z.Step]
		if !ok {
			return nil, fmt.Errorf("zone row %q references unknown step %d", z.Zone, z.Step)
		}
		zone, err := jos3.ParseZone(z.Zone)
		if err != nil {
			return nil, err
		}
		records[i].Skin[zone] = z.Skin
		records[i].Core[zone] = z.Core
	}
	return records, nil
}

// FlattenResults splits step results into rows. A result is evaluated at the
// later record of each consecutive pair, so result i is stored under step i+1,
// the step of the sample taken at the same time.
func FlattenResults(results []evaluator.StepResult) ([]ResultRow, []SegmentRow) {
	rows := make([]ResultRow, 0, len(results))
	var segments []SegmentRow

	for idx, r := range results {
		i := idx + 1
		selected := make([]string, len(r.Selected))
		for j, s := range r.Selected {
			selected[j] = string(s)
		}
		rows = append(rows, ResultRow{
			Step:             i,
			Time:             r.Time,
			OverallSensation: r.OverallSensation,
			OverallComfort:   r.OverallComfort,
			Regime:           r.Regime.String(),
			Selected:         strings.Join(selected, ","),
			Degenerate:       r.Degenerate,
		})

		for _, seg := range comfort.Segments() {
			sensation, ok := r.LocalSensation[seg]
			if !ok {
				continue
			}
			segments = append(segments, SegmentRow{
				Step:      i,
				Segment:   string(seg),
				Sensation: sensation,
				Comfort:   r.LocalComfort[seg],
			})
		}
	}
	return rows, segments
}

// AssembleResults is the inverse of FlattenResults
func AssembleResults(rows []ResultRow, segments []SegmentRow) ([]evaluator.StepResult, error) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Step < rows[j].Step })

	index := make(map[int]int, len(rows))
	results := make([]evaluator.StepResult, len(rows))
	for i, row := range rows {
		index[row.Step] = i

		var regime comfort.Regime
		if err := regime.UnmarshalText([]byte(row.Regime)); err != nil {
			return nil, fmt.Errorf("step %d: %w", row.Step, err)
		}

		var selected []comfort.Segment
		if row.Selected != "" {
			for _, s := range strings.Split(row.Selected, ",") {
				selected = append(selected, comfort.Segment(s))
			}
		}

		results[i] = evaluator.StepResult{
			Time: row.Time,
			Result: &comfort.Result{
				OverallSensation: row.OverallSensation,
				OverallComfort:   row.OverallComfort,
				LocalSensation:   make(map[comfort.Segment]float64),
				LocalComfort:     make(map[comfort.Segment]float64),
				Regime:           regime,
				Selected:         selected,
				Degenerate:       row.Degenerate,
			},
		}
	}

	for _, s := range segments {
		i, ok := index[s.Step]
		if !ok {
			return nil, fmt.Errorf("segment row %q references unknown step %d", s.Segment, s.Step)
		}
		seg := comfort.Segment(s.Segment)
		results[i].LocalSensation[seg] = s.Sensation
		results[i].LocalComfort[seg] = s.Comfort
	}
	return results, nil
}
