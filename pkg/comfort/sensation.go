package comfort

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// ScaleLimit bounds every local sensation and comfort value to [-ScaleLimit, ScaleLimit]
	ScaleLimit = 4.0
)

// StaticSensation converts a segment's offset from its set-point into a sensation
// on the [-4, 4] scale. meanOffset is the whole-body mean skin offset; a segment
// deviating further than the body average feels stronger.
func StaticSensation(slopes StaticSlopes, offset, meanOffset float64) float64 {
	p := SelectSlopes(slopes, offset)
	return ScaleLimit * (2/(1+math.Exp(-p.C1*offset-p.K1*(offset-meanOffset))) - 1)
}

// splitRate separates a rate of change into its cooling (<= 0) and warming (> 0) parts.
// Exactly one of the two is non-zero unless rate is zero.
func splitRate(rate float64) (cooling, warming float64) {
	if rate <= 0 {
		return rate, 0
	}
	return 0, rate
}

// DynamicSensation is the unbounded sensation increment caused by the local skin
// rate and the core rate (both °C/s).
func DynamicSensation(g DynamicGains, skinRate, coreRate float64) float64 {
	cooling, warming := splitRate(skinRate)
	return g.Cooling*cooling + g.Warming*warming + g.Core*coreRate
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// localSensation computes the clamped static + dynamic sensation of every input segment
func (t *Tables) localSensation(in *Input) (map[Segment]float64, error) {
	meanOffset := in.MeanSkin - t.MeanSetPoint()

	out := make(map[Segment]float64, len(in.Skin))
	for _, seg := range ordered(in.Skin) {
		setPoint, err := t.SetPoints.Lookup(seg)
		if err != nil {
			return nil, err
		}
		slopes, err := t.Static.Lookup(seg)
		if err != nil {
			return nil, err
		}
		gains, err := t.Dynamic.Lookup(seg)
		if err != nil {
			return nil, err
		}

		static := StaticSensation(slopes, in.Skin[seg]-setPoint, meanOffset)
		dynamic := DynamicSensation(gains, in.SkinRate[seg], in.coreRate(seg))
		// Opposing rates large enough to overflow give Inf - Inf.
		if math.IsNaN(static + dynamic) {
			return nil, fmt.Errorf("local sensation of %q: %w", seg, ErrNonFinite)
		}
		out[seg] = clamp(static+dynamic, -ScaleLimit, ScaleLimit)
	}
	return out, nil
}

// overallSensation reduces local sensations to the whole-body value. Segments are
// weighted by their distance from the mean local sensation, with the cold-side
// weight a1 applied at or below the mean and the warm-side weight a2 above it.
//
// When every weight is zero the unweighted mean is returned together with
// ErrDegenerateAggregation.
func (t *Tables) overallSensation(local map[Segment]float64) (float64, error) {
	order := ordered(local)
	values := make([]float64, len(order))
	for i, seg := range order {
		values[i] = local[seg]
	}
	mean := stat.Mean(values, nil)

	var weighted, total float64
	for i, seg := range order {
		w, err := t.Overall.Lookup(seg)
		if err != nil {
			return 0, err
		}

		d := values[i] - mean
		var weight float64
		if d <= 0 {
			weight = -w.Cold * d
		} else {
			weight = w.Warm * d
		}
		weighted += weight * values[i]
		total += weight
	}

	if total == 0 {
		return mean, fmt.Errorf("%d segments at mean sensation %.4f: %w", len(order), mean, ErrDegenerateAggregation)
	}
	return weighted / total, nil
}
