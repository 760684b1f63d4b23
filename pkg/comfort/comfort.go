package comfort

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	// TransientRateThreshold is the local skin rate (°C/s) above which the body is
	// considered to be in a transient state: 0.2 °C per hour.
	TransientRateThreshold = 0.2 / 3600

	// transientComfortLimit is the second-lowest local comfort above which the
	// max-blended aggregation applies even at steady state.
	transientComfortLimit = -2.0

	// blendGain is the logistic gain that switches between the cold and hot
	// asymptotic comfort curves.
	blendGain = 15.0
)

// Regime identifies which overall-comfort aggregation was applied
type Regime int

const (
	// Steady averages the two least comfortable segments
	Steady Regime = iota
	// Transient blends the two least comfortable segments with the most comfortable one
	Transient
)

// String implements fmt.Stringer
func (r Regime) String() string {
	if r == Transient {
		return "transient"
	}
	return "steady"
}

// MarshalText lets Regime serialise by name
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a regime name
func (r *Regime) UnmarshalText(b []byte) error {
	switch string(b) {
	case "steady":
		*r = Steady
	case "transient":
		*r = Transient
	default:
		return fmt.Errorf("unknown regime %q", b)
	}
	return nil
}

// LocalComfort maps one segment's local sensation through the comfort transfer
// function, given the whole-body overall sensation. The result is bounded to
// [-4, 4].
func LocalComfort(c TransferCoefficients, local, overall float64) float64 {
	var soMinus, soPlus float64
	if overall <= 0 {
		soMinus = -overall
	} else {
		soPlus = overall
	}

	shift := c.C31*soMinus + c.C32*soPlus + c.C8
	bias := c.C6 + c.C71*soMinus + c.C72*soPlus

	cold := (-ScaleLimit - bias) / math.Pow(math.Abs(-ScaleLimit+shift), c.N)
	hot := (-ScaleLimit - bias) / math.Pow(math.Abs(ScaleLimit+shift), c.N)
	blend := (cold-hot)/(math.Exp(blendGain*(local+shift))+1) + hot

	raw := blend*math.Pow(math.Abs(local+shift), c.N) + bias
	return clamp(raw, -ScaleLimit, ScaleLimit)
}

// localComfort evaluates LocalComfort for every segment in local
func (t *Tables) localComfort(local map[Segment]float64, overall float64) (map[Segment]float64, error) {
	out := make(map[Segment]float64, len(local))
	for _, seg := range ordered(local) {
		c, err := t.Transfer.Lookup(seg)
		if err != nil {
			return nil, err
		}
		out[seg] = LocalComfort(c, local[seg], overall)
	}
	return out, nil
}

// Ranked is one segment's comfort value in the ascending comfort ranking
type Ranked struct {
	Segment Segment `json:"segment"`
	Comfort float64 `json:"comfort"`
}

// RankComfort sorts local comfort values ascending. Equal values keep the
// canonical segment order.
func RankComfort(local map[Segment]float64) []Ranked {
	ranked := make([]Ranked, 0, len(local))
	for _, seg := range ordered(local) {
		ranked = append(ranked, Ranked{Segment: seg, Comfort: local[seg]})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Comfort < b.Comfort:
			return -1
		case a.Comfort > b.Comfort:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

type segmentPair [2]Segment

func pairOf(a, b Segment) segmentPair {
	if segmentRank[b] < segmentRank[a] {
		a, b = b, a
	}
	return segmentPair{a, b}
}

// symmetricPairs are left/right extremities that must not both count toward
// overall comfort. When they are the two least comfortable segments the third
// ranked segment replaces the second.
var symmetricPairs = map[segmentPair]bool{
	pairOf(LHand, RHand): true,
	pairOf(LFoot, RFoot): true,
}

// IsSymmetricPair reports whether a and b form one of the excluded left/right pairs
func IsSymmetricPair(a, b Segment) bool {
	return symmetricPairs[pairOf(a, b)]
}

// SelectLeastComfortable picks the two segments that drive overall comfort from
// an ascending ranking: ranks 1 and 2, or ranks 1 and 3 when ranks 1 and 2 are a
// symmetric left/right pair.
func SelectLeastComfortable(ranked []Ranked) []Ranked {
	switch {
	case len(ranked) == 0:
		return nil
	case len(ranked) == 1:
		return []Ranked{ranked[0]}
	case len(ranked) >= 3 && IsSymmetricPair(ranked[0].Segment, ranked[1].Segment):
		return []Ranked{ranked[0], ranked[2]}
	default:
		return []Ranked{ranked[0], ranked[1]}
	}
}

// DetectRegime decides the overall-comfort aggregation from the skin rates and
// the comfort ranking.
func DetectRegime(skinRates map[Segment]float64, ranked []Ranked) Regime {
	for _, r := range skinRates {
		if math.Abs(r) > TransientRateThreshold {
			return Transient
		}
	}
	if len(ranked) >= 2 && ranked[1].Comfort > transientComfortLimit {
		return Transient
	}
	return Steady
}

// overallComfort aggregates local comfort into the whole-body value
func overallComfort(local map[Segment]float64, skinRates map[Segment]float64) (float64, Regime, []Ranked) {
	ranked := RankComfort(local)
	regime := DetectRegime(skinRates, ranked)
	selected := SelectLeastComfortable(ranked)
	if len(selected) == 0 {
		return math.NaN(), regime, nil
	}

	values := make([]float64, len(selected))
	for i, r := range selected {
		values[i] = r.Comfort
	}
	low := stat.Mean(values, nil)

	if regime == Steady {
		return low, regime, selected
	}

	most := ranked[len(ranked)-1].Comfort
	return (low*2 + most) / 3, regime, selected
}
