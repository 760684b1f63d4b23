package comfort

import (
	"errors"
	"math"
	"testing"
)

func TestReferenceTablesComplete(t *testing.T) {
	for _, v := range []Variant{VariantCalibrated, VariantBaseline} {
		tables, err := TablesFor(v)
		if err != nil {
			t.Fatalf("TablesFor(%s): %v", v, err)
		}

		lens := map[string]int{
			tables.SetPoints.Name(): tables.SetPoints.Len(),
			tables.Static.Name():    tables.Static.Len(),
			tables.Dynamic.Name():   tables.Dynamic.Len(),
			tables.Overall.Name():   tables.Overall.Len(),
			tables.Transfer.Name():  tables.Transfer.Len(),
		}
		for name, n := range lens {
			if n != len(Segments()) {
				t.Errorf("%s/%s table has %d segments, expected %d", v, name, n, len(Segments()))
			}
		}

		for i, seg := range tables.Transfer.Segments() {
			if seg != Segments()[i] {
				t.Errorf("%s transfer table position %d = %s, expected %s", v, i, seg, Segments()[i])
			}
		}
	}
}

func TestReferenceTablesShared(t *testing.T) {
	if ReferenceTables() != ReferenceTables() {
		t.Error("ReferenceTables should return the same shared instance")
	}
}

func TestReferenceValues(t *testing.T) {
	tables := ReferenceTables()

	sp, _ := tables.SetPoints.Lookup(Pelvis)
	if sp != 35.83006 {
		t.Errorf("pelvis set-point = %v, expected 35.83006", sp)
	}

	st, _ := tables.Static.Lookup(Head)
	if st.Low != (SlopePair{C1: 0.38, K1: 0.18}) || st.High != (SlopePair{C1: 1.32, K1: 0.18}) {
		t.Errorf("head static slopes = %+v", st)
	}

	dyn, _ := tables.Dynamic.Lookup(Pelvis)
	if dyn != (DynamicGains{Cooling: 75, Warming: 137, Core: -5053}) {
		t.Errorf("pelvis dynamic gains = %+v", dyn)
	}

	w, _ := tables.Overall.Lookup(LHand)
	if w != (OverallWeights{Cold: 0.04, Warm: 0.04}) {
		t.Errorf("left hand overall weights = %+v", w)
	}

	cal, _ := tables.Transfer.Lookup(LFoot)
	if cal != (TransferCoefficients{C31: -2.31, C32: 0.21, C6: 1.62, C71: 0.5, C72: 0.3, C8: -0.25, N: 2}) {
		t.Errorf("left foot calibrated transfer = %+v", cal)
	}

	baseline, _ := TablesFor(VariantBaseline)
	bc, _ := baseline.Transfer.Lookup(Face)
	if bc.N != 1.5 {
		t.Errorf("baseline face exponent = %v, expected 1.5", bc.N)
	}
}

func TestMeanSetPoint(t *testing.T) {
	got := ReferenceTables().MeanSetPoint()
	if math.Abs(got-34.411441052631574) > 1e-12 {
		t.Errorf("MeanSetPoint = %v, expected 34.411441052631574", got)
	}
}

func TestTableLookupMissing(t *testing.T) {
	_, err := ReferenceTables().Dynamic.Lookup(Segment("tail"))
	if !errors.Is(err, ErrMissingSegment) {
		t.Fatalf("Lookup error = %v, expected ErrMissingSegment", err)
	}
	if want := `dynamic-sensation table: "tail": segment missing from coefficient table`; err.Error() != want {
		t.Errorf("error = %q, expected %q", err.Error(), want)
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in       string
		expected Variant
		wantErr  bool
	}{
		{"", VariantCalibrated, false},
		{"calibrated", VariantCalibrated, false},
		{" Baseline ", VariantBaseline, false},
		{"zhang", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVariant(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseVariant(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestParseSegment(t *testing.T) {
	for _, seg := range Segments() {
		got, err := ParseSegment(string(seg))
		if err != nil || got != seg {
			t.Errorf("ParseSegment(%q) = %q, %v", seg, got, err)
		}
	}
	if _, err := ParseSegment("Head"); err == nil {
		t.Error("ParseSegment is case sensitive; expected error for \"Head\"")
	}
}
