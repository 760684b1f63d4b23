package comfort

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// SlopePair holds the static-sensation regression coefficients for one side of
// the set-point: C1 scales the local offset, K1 the offset relative to the
// whole-body mean offset.
type SlopePair struct {
	C1 float64 `json:"c1"`
	K1 float64 `json:"k1"`
}

// StaticSlopes pairs the coefficients used below the set-point (Low) with the
// ones used at or above it (High).
type StaticSlopes struct {
	Low  SlopePair `json:"low"`
	High SlopePair `json:"high"`
}

// DynamicGains are the linear gains applied to the cooling part of the local
// skin rate, the warming part, and the core rate (all in °C/s).
type DynamicGains struct {
	Cooling float64 `json:"cooling"`
	Warming float64 `json:"warming"`
	Core    float64 `json:"core"`
}

// OverallWeights are the per-segment overall-sensation weights on the cold
// (a1) and warm (a2) side of the body-mean sensation.
type OverallWeights struct {
	Cold float64 `json:"cold"`
	Warm float64 `json:"warm"`
}

// TransferCoefficients parameterise the local comfort transfer function.
// C31/C32 shift the curve with cold/hot overall sensation, C6 is the neutral
// comfort bias, C71/C72 move that bias with overall sensation, C8 is the
// exposure offset and N the curvature exponent.
type TransferCoefficients struct {
	C31 float64 `json:"c31"`
	C32 float64 `json:"c32"`
	C6  float64 `json:"c6"`
	C71 float64 `json:"c71"`
	C72 float64 `json:"c72"`
	C8  float64 `json:"c8"`
	N   float64 `json:"n"`
}

// Table is an immutable segment-keyed lookup table
type Table[T any] struct {
	name   string
	order  []Segment
	values map[Segment]T
}

// newTable builds a table from the given values. The iteration order is the
// canonical segment order.
func newTable[T any](name string, values map[Segment]T) *Table[T] {
	v := make(map[Segment]T, len(values))
	for k, val := range values {
		v[k] = val
	}
	return &Table[T]{
		name:   name,
		order:  ordered(v),
		values: v,
	}
}

// Name returns the table name used in error messages
func (t *Table[T]) Name() string {
	return t.name
}

// Lookup returns the entry for seg, or ErrMissingSegment
func (t *Table[T]) Lookup(seg Segment) (T, error) {
	v, ok := t.values[seg]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s table: %q: %w", t.name, seg, ErrMissingSegment)
	}
	return v, nil
}

// Segments returns the table's segments in iteration order
func (t *Table[T]) Segments() []Segment {
	out := make([]Segment, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of segments in the table
func (t *Table[T]) Len() int {
	return len(t.order)
}

// Tables bundles the five coefficient tables one evaluation reads from
type Tables struct {
	Variant   Variant
	SetPoints *Table[float64]
	Static    *Table[StaticSlopes]
	Dynamic   *Table[DynamicGains]
	Overall   *Table[OverallWeights]
	Transfer  *Table[TransferCoefficients]

	meanSetPoint float64
}

// NewTables assembles a Tables value from raw per-segment maps
func NewTables(variant Variant, setPoints map[Segment]float64, static map[Segment]StaticSlopes,
	dynamic map[Segment]DynamicGains, overall map[Segment]OverallWeights,
	transfer map[Segment]TransferCoefficients) *Tables {
	t := &Tables{
		Variant:   variant,
		SetPoints: newTable("set-point", setPoints),
		Static:    newTable("static-sensation", static),
		Dynamic:   newTable("dynamic-sensation", dynamic),
		Overall:   newTable("overall-sensation", overall),
		Transfer:  newTable("comfort-transfer", transfer),
	}

	sp := make([]float64, 0, len(t.SetPoints.order))
	for _, s := range t.SetPoints.order {
		sp = append(sp, t.SetPoints.values[s])
	}
	if len(sp) > 0 {
		t.meanSetPoint = stat.Mean(sp, nil)
	}
	return t
}

// MeanSetPoint is the arithmetic mean of every set-point in the table, the
// reference against which the mean skin temperature is compared.
func (t *Tables) MeanSetPoint() float64 {
	return t.meanSetPoint
}

// SelectSlopes picks the low pair when offset is negative and the high pair
// otherwise. An offset of exactly zero takes the high pair.
func SelectSlopes(s StaticSlopes, offset float64) SlopePair {
	if offset < 0 {
		return s.Low
	}
	return s.High
}

// Variant names a comfort-transfer calibration
type Variant string

const (
	// VariantCalibrated is the tuned comfort-transfer calibration and the default
	VariantCalibrated Variant = "calibrated"
	// VariantBaseline is the earlier comfort-transfer calibration
	VariantBaseline Variant = "baseline"
)

// ParseVariant parses a variant name. The empty string selects the default.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantCalibrated:
		return VariantCalibrated, nil
	case VariantBaseline:
		return VariantBaseline, nil
	default:
		return "", fmt.Errorf("unknown comfort variant %q (want %q or %q)", s, VariantCalibrated, VariantBaseline)
	}
}
