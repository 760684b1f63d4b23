package comfort

import (
	"errors"
	"fmt"
	"math"
)

// Input is one snapshot of the body's thermal state. Skin, SkinRate and CoreRate
// must share the same segments. When CoreRate is nil, CoreRateUniform applies to
// every segment.
type Input struct {
	Skin            map[Segment]float64 `json:"skin"`
	MeanSkin        float64             `json:"mean_skin"`
	SkinRate        map[Segment]float64 `json:"skin_rate"`
	CoreRate        map[Segment]float64 `json:"core_rate,omitempty"`
	CoreRateUniform float64             `json:"core_rate_uniform,omitempty"`
}

func (in *Input) coreRate(seg Segment) float64 {
	if in.CoreRate == nil {
		return in.CoreRateUniform
	}
	return in.CoreRate[seg]
}

// Validate checks that every segment-keyed collection has the same key set and
// that every value is finite.
func (in *Input) Validate() error {
	if len(in.Skin) == 0 {
		return fmt.Errorf("no skin temperatures: %w", ErrShapeMismatch)
	}
	if err := sameKeys("skin_rate", in.Skin, in.SkinRate); err != nil {
		return err
	}
	if in.CoreRate != nil {
		if err := sameKeys("core_rate", in.Skin, in.CoreRate); err != nil {
			return err
		}
	}

	if !isFinite(in.MeanSkin) {
		return fmt.Errorf("mean_skin is %g: %w", in.MeanSkin, ErrNonFinite)
	}
	if !isFinite(in.CoreRateUniform) {
		return fmt.Errorf("core_rate_uniform is %g: %w", in.CoreRateUniform, ErrNonFinite)
	}
	for name, m := range map[string]map[Segment]float64{"skin": in.Skin, "skin_rate": in.SkinRate, "core_rate": in.CoreRate} {
		for _, seg := range ordered(m) {
			if !isFinite(m[seg]) {
				return fmt.Errorf("%s of %q is %g: %w", name, seg, m[seg], ErrNonFinite)
			}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sameKeys(name string, want, got map[Segment]float64) error {
	if len(want) != len(got) {
		return fmt.Errorf("%s has %d segments, skin has %d: %w", name, len(got), len(want), ErrShapeMismatch)
	}
	for seg := range want {
		if _, ok := got[seg]; !ok {
			return fmt.Errorf("%s lacks segment %q: %w", name, seg, ErrShapeMismatch)
		}
	}
	return nil
}

// Result is the sensation and comfort derived from one Input
type Result struct {
	OverallSensation float64             `json:"overall_sensation"`
	OverallComfort   float64             `json:"overall_comfort"`
	LocalSensation   map[Segment]float64 `json:"local_sensation"`
	LocalComfort     map[Segment]float64 `json:"local_comfort"`
	Regime           Regime              `json:"regime"`
	// Selected are the segments whose comfort drove OverallComfort
	Selected []Segment `json:"selected"`
	// Degenerate is set when every overall-sensation weight was zero and
	// OverallSensation fell back to the unweighted mean.
	Degenerate bool `json:"degenerate"`
}

// Evaluate runs the full pipeline for one snapshot: local sensation, overall
// sensation, local comfort and overall comfort. Tables are only read.
func Evaluate(t *Tables, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	local, err := t.localSensation(&in)
	if err != nil {
		return nil, err
	}

	res := &Result{LocalSensation: local}

	res.OverallSensation, err = t.overallSensation(local)
	if err != nil {
		if !errors.Is(err, ErrDegenerateAggregation) {
			return nil, err
		}
		res.Degenerate = true
	}

	res.LocalComfort, err = t.localComfort(local, res.OverallSensation)
	if err != nil {
		return nil, err
	}

	var selected []Ranked
	res.OverallComfort, res.Regime, selected = overallComfort(res.LocalComfort, in.SkinRate)
	for _, r := range selected {
		res.Selected = append(res.Selected, r.Segment)
	}

	return res, nil
}

// Model evaluates a single snapshot lazily, exposing each stage on its own.
// A Model is meant to be built per time step and discarded.
type Model struct {
	tables *Tables
	input  Input

	local   map[Segment]float64
	overall *float64
}

// NewModel validates the input and returns a Model bound to the tables
func NewModel(t *Tables, in Input) (*Model, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Model{tables: t, input: in}, nil
}

// LocalSensation returns the clamped sensation of every input segment
func (m *Model) LocalSensation() (map[Segment]float64, error) {
	if m.local == nil {
		local, err := m.tables.localSensation(&m.input)
		if err != nil {
			return nil, err
		}
		m.local = local
	}
	return copyValues(m.local), nil
}

// OverallSensation returns the whole-body sensation. See ErrDegenerateAggregation
// for the zero-weight case, where the returned value is still usable.
func (m *Model) OverallSensation() (float64, error) {
	if _, err := m.LocalSensation(); err != nil {
		return 0, err
	}
	overall, err := m.tables.overallSensation(m.local)
	if err == nil || errors.Is(err, ErrDegenerateAggregation) {
		m.overall = &overall
	}
	return overall, err
}

// LocalComfort returns the comfort of every input segment
func (m *Model) LocalComfort() (map[Segment]float64, error) {
	if m.overall == nil {
		if _, err := m.OverallSensation(); err != nil && !errors.Is(err, ErrDegenerateAggregation) {
			return nil, err
		}
	}
	return m.tables.localComfort(m.local, *m.overall)
}

// OverallComfort returns the whole-body comfort and the regime that produced it
func (m *Model) OverallComfort() (float64, Regime, error) {
	local, err := m.LocalComfort()
	if err != nil {
		return 0, Steady, err
	}
	v, regime, _ := overallComfort(local, m.input.SkinRate)
	return v, regime, nil
}

func copyValues(m map[Segment]float64) map[Segment]float64 {
	out := make(map[Segment]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
