package jos3

import (
	"errors"
	"fmt"

	"github.com/chrissnell/thermalcomfort/pkg/comfort"
)

var (
	// ErrMissingZone is returned when a record lacks a zone the comfort model needs
	ErrMissingZone = errors.New("record is missing a body zone")

	// ErrTimeOrder is returned when consecutive records do not advance in time
	ErrTimeOrder = errors.New("records must be strictly increasing in time")

	// ErrTooFewRecords is returned when a series is too short to differentiate
	ErrTooFewRecords = errors.New("need at least two records to differentiate")
)

// Record is one JOS-3 output row: skin and core temperatures (°C) per zone at
// Time seconds into the simulation.
type Record struct {
	Time     float64          `json:"time" msgpack:"time"`
	MeanSkin float64          `json:"mean_skin" msgpack:"mean_skin"`
	Skin     map[Zone]float64 `json:"skin" msgpack:"skin"`
	Core     map[Zone]float64 `json:"core" msgpack:"core"`
}

// Step is the comfort model input for one time step
type Step struct {
	Time  float64       `json:"time"`
	Input comfort.Input `json:"input"`
}

func (r *Record) zone(name string, m map[Zone]float64, z Zone) (float64, error) {
	v, ok := m[z]
	if !ok {
		return 0, fmt.Errorf("%s temperature at t=%gs: %q: %w", name, r.Time, z, ErrMissingZone)
	}
	return v, nil
}

// Differentiate builds the comfort input at cur, taking skin and core rates as
// the backward difference from prev. Each comfort segment reads the zone it
// maps to.
func Differentiate(prev, cur Record) (comfort.Input, error) {
	dt := cur.Time - prev.Time
	if dt <= 0 {
		return comfort.Input{}, fmt.Errorf("t=%gs after t=%gs: %w", cur.Time, prev.Time, ErrTimeOrder)
	}

	segs := comfort.Segments()
	in := comfort.Input{
		Skin:     make(map[comfort.Segment]float64, len(segs)),
		MeanSkin: cur.MeanSkin,
		SkinRate: make(map[comfort.Segment]float64, len(segs)),
		CoreRate: make(map[comfort.Segment]float64, len(segs)),
	}

	for _, seg := range segs {
		z := segmentZone[seg]

		skin, err := cur.zone("skin", cur.Skin, z)
		if err != nil {
			return comfort.Input{}, err
		}
		prevSkin, err := prev.zone("skin", prev.Skin, z)
		if err != nil {
			return comfort.Input{}, err
		}
		core, err := cur.zone("core", cur.Core, z)
		if err != nil {
			return comfort.Input{}, err
		}
		prevCore, err := prev.zone("core", prev.Core, z)
		if err != nil {
			return comfort.Input{}, err
		}

		in.Skin[seg] = skin
		in.SkinRate[seg] = (skin - prevSkin) / dt
		in.CoreRate[seg] = (core - prevCore) / dt
	}

	return in, nil
}

// Steps converts a record series into one Step per consecutive pair. The first
// record only seeds the differences, so n records give n-1 steps.
func Steps(records []Record) ([]Step, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("got %d: %w", len(records), ErrTooFewRecords)
	}

	steps := make([]Step, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		in, err := Differentiate(records[i-1], records[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		steps = append(steps, Step{Time: records[i].Time, Input: in})
	}
	return steps, nil
}
