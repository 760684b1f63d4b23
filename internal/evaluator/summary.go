package evaluator

import (
	"gonum.org/v1/gonum/floats"

	"github.com/chrissnell/thermalcomfort/pkg/comfort"
)

// Summary condenses a run into time-weighted figures
type Summary struct {
	Steps    int     `json:"steps"`
	Duration float64 `json:"duration"`

	MeanSensation     float64 `json:"mean_sensation"`
	IntegralSensation float64 `json:"integral_sensation"`
	MeanComfort       float64 `json:"mean_comfort"`
	IntegralComfort   float64 `json:"integral_comfort"`

	MinComfort float64 `json:"min_comfort"`
	MaxComfort float64 `json:"max_comfort"`

	DegenerateSteps int `json:"degenerate_steps"`
	TransientSteps  int `json:"transient_steps"`
}

// Summarize integrates overall sensation and comfort over time. Each value
// after the first is weighted by the interval since the previous step; the
// means divide the integral by the last step's time, so a run that starts at
// t=0 averages over its whole length.
func Summarize(results []StepResult) Summary {
	s := Summary{Steps: len(results)}
	if len(results) == 0 {
		return s
	}

	sensation := make([]float64, len(results))
	comfortValues := make([]float64, len(results))
	for i, r := range results {
		sensation[i] = r.OverallSensation
		comfortValues[i] = r.OverallComfort
		if r.Degenerate {
			s.DegenerateSteps++
		}
		if r.Regime == comfort.Transient {
			s.TransientSteps++
		}
	}

	s.MinComfort = floats.Min(comfortValues)
	s.MaxComfort = floats.Max(comfortValues)

	last := results[len(results)-1].Time
	s.Duration = last - results[0].Time
	if len(results) < 2 {
		return s
	}

	dt := make([]float64, len(results)-1)
	for i := 1; i < len(results); i++ {
		dt[i-1] = results[i].Time - results[i-1].Time
	}

	s.IntegralSensation = floats.Dot(sensation[1:], dt)
	s.IntegralComfort = floats.Dot(comfortValues[1:], dt)
	if last != 0 {
		s.MeanSensation = s.IntegralSensation / last
		s.MeanComfort = s.IntegralComfort / last
	}
	return s
}
