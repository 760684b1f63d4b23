package comfort

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// referenceSkin is the cold-cabin driver snapshot used to validate the model
func referenceSkin() map[Segment]float64 {
	return map[Segment]float64{
		Head: 24.6, Face: 26, Neck: 27, BreathZone: 26,
		Chest: 28.5, Back: 28.5, Pelvis: 28,
		LUArm: 29, RUArm: 29, LLArm: 29, RLArm: 29,
		LHand: 24, RHand: 24,
		LThigh: 28, RThigh: 28, LCalf: 28, RCalf: 28,
		LFoot: 28, RFoot: 28,
	}
}

func uniformRates(v float64) map[Segment]float64 {
	m := make(map[Segment]float64)
	for _, s := range Segments() {
		m[s] = v
	}
	return m
}

func setPointSkin() map[Segment]float64 {
	m := make(map[Segment]float64)
	for _, s := range Segments() {
		m[s], _ = ReferenceTables().SetPoints.Lookup(s)
	}
	return m
}

func TestEvaluateScenarios(t *testing.T) {
	const epsilon = 1e-9

	handsCold := setPointSkin()
	handsCold[LHand], handsCold[RHand] = 20, 20
	feetCold := setPointSkin()
	feetCold[LFoot], feetCold[RFoot] = 20, 20

	fastHand := uniformRates(1e-5)
	fastHand[LHand] = 1e-4

	meanSetPoint := ReferenceTables().MeanSetPoint()

	tests := []struct {
		name             string
		input            Input
		overallSensation float64
		overallComfort   float64
		regime           Regime
		selected         []Segment
		degenerate       bool
	}{
		{
			name:             "cold cabin, slow warming",
			input:            Input{Skin: referenceSkin(), MeanSkin: 24.6, SkinRate: uniformRates(1e-5)},
			overallSensation: -2.3018730099764495,
			overallComfort:   -3.2924194368539164,
			regime:           Steady,
			selected:         []Segment{Head, Neck},
		},
		{
			name:             "cold cabin, hand warming fast",
			input:            Input{Skin: referenceSkin(), MeanSkin: 24.6, SkinRate: fastHand},
			overallSensation: -2.3019052436051783,
			overallComfort:   -1.5629660223679867,
			regime:           Transient,
			selected:         []Segment{Head, Neck},
		},
		{
			name:             "cold hands",
			input:            Input{Skin: handsCold, MeanSkin: meanSetPoint, SkinRate: uniformRates(0)},
			overallSensation: -0.6530708642874149,
			overallComfort:   -1.3540058595636972,
			regime:           Steady,
			selected:         []Segment{LHand, LLArm},
		},
		{
			name:             "cold feet",
			input:            Input{Skin: feetCold, MeanSkin: meanSetPoint, SkinRate: uniformRates(0)},
			overallSensation: -1.2767975027811012,
			overallComfort:   -1.550751630300185,
			regime:           Steady,
			selected:         []Segment{LFoot, LLArm},
		},
		{
			name:             "neutral body",
			input:            Input{Skin: setPointSkin(), MeanSkin: meanSetPoint, SkinRate: uniformRates(0)},
			overallSensation: 0,
			overallComfort:   1.5529719205975538,
			regime:           Transient,
			selected:         []Segment{Head, LCalf},
			degenerate:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(ReferenceTables(), tt.input)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}

			if math.Abs(res.OverallSensation-tt.overallSensation) > epsilon {
				t.Errorf("OverallSensation = %.12f, expected %.12f", res.OverallSensation, tt.overallSensation)
			}
			if math.Abs(res.OverallComfort-tt.overallComfort) > epsilon {
				t.Errorf("OverallComfort = %.12f, expected %.12f", res.OverallComfort, tt.overallComfort)
			}
			if res.Regime != tt.regime {
				t.Errorf("Regime = %v, expected %v", res.Regime, tt.regime)
			}
			if res.Degenerate != tt.degenerate {
				t.Errorf("Degenerate = %v, expected %v", res.Degenerate, tt.degenerate)
			}
			if len(res.Selected) != len(tt.selected) {
				t.Fatalf("Selected = %v, expected %v", res.Selected, tt.selected)
			}
			for i := range tt.selected {
				if res.Selected[i] != tt.selected[i] {
					t.Errorf("Selected = %v, expected %v", res.Selected, tt.selected)
					break
				}
			}
		})
	}
}

func TestEvaluateReferenceScenarioRandomRates(t *testing.T) {
	rng := rand.New(rand.NewPCG(2022, 11))
	for i := 0; i < 50; i++ {
		rates := make(map[Segment]float64)
		for _, s := range Segments() {
			rates[s] = rng.Float64() * 2e-5
		}

		res, err := Evaluate(ReferenceTables(), Input{Skin: referenceSkin(), MeanSkin: 24.6, SkinRate: rates})
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if math.IsNaN(res.OverallSensation) || math.IsInf(res.OverallSensation, 0) {
			t.Errorf("OverallSensation = %v, expected finite", res.OverallSensation)
		}
		if math.IsNaN(res.OverallComfort) || math.IsInf(res.OverallComfort, 0) {
			t.Errorf("OverallComfort = %v, expected finite", res.OverallComfort)
		}
		if res.OverallComfort > 0 {
			t.Errorf("OverallComfort = %v, expected <= 0", res.OverallComfort)
		}
		if len(res.LocalSensation) != 19 || len(res.LocalComfort) != 19 {
			t.Errorf("got %d sensations and %d comforts, expected 19 each", len(res.LocalSensation), len(res.LocalComfort))
		}
	}
}

func TestEvaluateClampInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	for _, variant := range []Variant{VariantCalibrated, VariantBaseline} {
		tables, err := TablesFor(variant)
		if err != nil {
			t.Fatalf("TablesFor(%s): %v", variant, err)
		}

		for i := 0; i < 200; i++ {
			in := Input{
				Skin:            make(map[Segment]float64),
				SkinRate:        make(map[Segment]float64),
				MeanSkin:        15 + rng.Float64()*25,
				CoreRateUniform: (rng.Float64() - 0.5) * 2e-3,
			}
			for _, s := range Segments() {
				in.Skin[s] = 10 + rng.Float64()*35
				in.SkinRate[s] = (rng.Float64() - 0.5) * 0.02
			}

			res, err := Evaluate(tables, in)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			for seg, v := range res.LocalSensation {
				if v < -ScaleLimit || v > ScaleLimit {
					t.Errorf("%s local sensation %v out of range", seg, v)
				}
			}
			for seg, v := range res.LocalComfort {
				if math.IsNaN(v) || v < -ScaleLimit || v > ScaleLimit {
					t.Errorf("%s local comfort %v out of range", seg, v)
				}
			}
		}
	}
}

func TestEvaluateAllSaturated(t *testing.T) {
	skin := make(map[Segment]float64)
	for _, s := range Segments() {
		skin[s] = 50
	}

	res, err := Evaluate(ReferenceTables(), Input{Skin: skin, MeanSkin: 50, SkinRate: uniformRates(1)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Degenerate {
		t.Error("expected degenerate aggregation when every segment is saturated")
	}
	if res.OverallSensation != ScaleLimit {
		t.Errorf("OverallSensation = %v, expected %v", res.OverallSensation, ScaleLimit)
	}
}

func TestEvaluateShapeMismatch(t *testing.T) {
	skin := map[Segment]float64{Head: 30, Chest: 31}

	tests := []struct {
		name  string
		input Input
	}{
		{"empty", Input{}},
		{"missing rate", Input{Skin: skin, SkinRate: map[Segment]float64{Head: 0}}},
		{"different rate key", Input{Skin: skin, SkinRate: map[Segment]float64{Head: 0, Back: 0}}},
		{"core rate missing key", Input{
			Skin:     skin,
			SkinRate: map[Segment]float64{Head: 0, Chest: 0},
			CoreRate: map[Segment]float64{Head: 0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(ReferenceTables(), tt.input)
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("Evaluate error = %v, expected ErrShapeMismatch", err)
			}
		})
	}
}

func TestEvaluateSubsetKeepsKeys(t *testing.T) {
	in := Input{
		Skin:     map[Segment]float64{Head: 33, Chest: 34, LHand: 30},
		MeanSkin: 33,
		SkinRate: map[Segment]float64{Head: 0, Chest: 0, LHand: 0},
		CoreRate: map[Segment]float64{Head: 0, Chest: 0, LHand: 0},
	}
	res, err := Evaluate(ReferenceTables(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, m := range []map[Segment]float64{res.LocalSensation, res.LocalComfort} {
		if len(m) != len(in.Skin) {
			t.Errorf("output has %d segments, expected %d", len(m), len(in.Skin))
		}
		for seg := range in.Skin {
			if _, ok := m[seg]; !ok {
				t.Errorf("output lacks %s", seg)
			}
		}
	}
}

func TestEvaluateMissingSegment(t *testing.T) {
	base := ReferenceTables()
	setPoints := map[Segment]float64{Head: 34.9, Chest: 34.6}
	static := map[Segment]StaticSlopes{Head: {}, Chest: {}}
	dynamic := map[Segment]DynamicGains{Head: {}, Chest: {}}
	overall := map[Segment]OverallWeights{Head: {Cold: 1, Warm: 1}, Chest: {Cold: 1, Warm: 1}}
	// Transfer lacks Chest
	c, _ := base.Transfer.Lookup(Head)
	transfer := map[Segment]TransferCoefficients{Head: c}

	tables := NewTables(VariantCalibrated, setPoints, static, dynamic, overall, transfer)
	in := Input{
		Skin:     map[Segment]float64{Head: 30, Chest: 31},
		SkinRate: map[Segment]float64{Head: 0, Chest: 0},
	}

	_, err := Evaluate(tables, in)
	if !errors.Is(err, ErrMissingSegment) {
		t.Fatalf("Evaluate error = %v, expected ErrMissingSegment", err)
	}

	// A segment unknown to every table fails at the first lookup
	in.Skin[Segment("tail")] = 30
	in.SkinRate[Segment("tail")] = 0
	if _, err := Evaluate(base, in); !errors.Is(err, ErrMissingSegment) {
		t.Errorf("Evaluate error = %v, expected ErrMissingSegment", err)
	}
}

func TestModelMatchesEvaluate(t *testing.T) {
	in := Input{Skin: referenceSkin(), MeanSkin: 24.6, SkinRate: uniformRates(1e-5)}

	res, err := Evaluate(ReferenceTables(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	m, err := NewModel(ReferenceTables(), in)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	local, err := m.LocalSensation()
	if err != nil {
		t.Fatalf("LocalSensation: %v", err)
	}
	for seg, v := range res.LocalSensation {
		if local[seg] != v {
			t.Errorf("%s: model sensation %v, Evaluate %v", seg, local[seg], v)
		}
	}

	overall, err := m.OverallSensation()
	if err != nil {
		t.Fatalf("OverallSensation: %v", err)
	}
	if overall != res.OverallSensation {
		t.Errorf("model overall sensation %v, Evaluate %v", overall, res.OverallSensation)
	}

	oc, regime, err := m.OverallComfort()
	if err != nil {
		t.Fatalf("OverallComfort: %v", err)
	}
	if oc != res.OverallComfort || regime != res.Regime {
		t.Errorf("model overall comfort (%v, %v), Evaluate (%v, %v)", oc, regime, res.OverallComfort, res.Regime)
	}
}

func TestModelDegenerate(t *testing.T) {
	m, err := NewModel(ReferenceTables(), Input{
		Skin:     setPointSkin(),
		MeanSkin: ReferenceTables().MeanSetPoint(),
		SkinRate: uniformRates(0),
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	overall, err := m.OverallSensation()
	if !isDegenerate(err) {
		t.Fatalf("OverallSensation error = %v, expected ErrDegenerateAggregation", err)
	}
	if overall != 0 {
		t.Errorf("OverallSensation = %v, expected 0", overall)
	}

	// Downstream stages still run on the fallback value
	if _, _, err := m.OverallComfort(); err != nil {
		t.Errorf("OverallComfort: %v", err)
	}
}

func TestEvaluateNonFinite(t *testing.T) {
	withSkin := func(seg Segment, v float64) Input {
		in := Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(0)}
		in.Skin[seg] = v
		return in
	}

	tests := []struct {
		name  string
		input Input
	}{
		{"NaN skin", withSkin(Face, math.NaN())},
		{"infinite skin", withSkin(LFoot, math.Inf(-1))},
		{"NaN mean skin", Input{Skin: referenceSkin(), MeanSkin: math.NaN(), SkinRate: uniformRates(0)}},
		{"infinite skin rate", Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(math.Inf(1))}},
		{"infinite uniform core rate", Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(0), CoreRateUniform: math.Inf(1)}},
		{"NaN core rate", Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(0), CoreRate: uniformRates(math.NaN())}},
		// Finite, but the face's cooling term and core term overflow with opposite signs.
		{"overflowing opposed rates", Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(-1e308), CoreRateUniform: -1e308}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(ReferenceTables(), tt.input)
			if !errors.Is(err, ErrNonFinite) {
				t.Errorf("Evaluate error = %v, expected ErrNonFinite", err)
			}
		})
	}
}

func TestLocalSensationHugeRatesSaturate(t *testing.T) {
	// Huge rates on one side only overflow to an infinity, which clamps.
	res, err := Evaluate(ReferenceTables(), Input{Skin: referenceSkin(), MeanSkin: 27.5, SkinRate: uniformRates(1e308)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for seg, v := range res.LocalSensation {
		if v != ScaleLimit {
			t.Errorf("%s local sensation = %v, expected %v", seg, v, ScaleLimit)
		}
	}
}
