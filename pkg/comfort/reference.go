package comfort

import (
	"fmt"
	"sync"
)

// referenceSetPoints are the local neutral skin temperatures (°C) derived from JOS-3.
var referenceSetPoints = map[Segment]float64{
	Head:       34.94932,
	Face:       34.94932,
	Neck:       34.04004,
	BreathZone: 34.94932,
	Chest:      34.66184,
	Back:       34.5771,
	Pelvis:     35.83006,
	LUArm:      34.30318,
	RUArm:      34.30318,
	LLArm:      33.91815,
	RLArm:      33.91815,
	LHand:      34.32792,
	RHand:      34.32792,
	LThigh:     34.21247,
	RThigh:     34.21247,
	LCalf:      34.01645,
	RCalf:      34.01645,
	LFoot:      34.15202,
	RFoot:      34.15202,
}

// referenceStatic holds the static-sensation regression coefficients. K1 is
// shared by both sides of the set-point.
var referenceStatic = map[Segment]StaticSlopes{
	Head:       {Low: SlopePair{C1: 0.38, K1: 0.18}, High: SlopePair{C1: 1.32, K1: 0.18}},
	Face:       {Low: SlopePair{C1: 0.15, K1: 0.1}, High: SlopePair{C1: 0.7, K1: 0.1}},
	Neck:       {Low: SlopePair{C1: 0.4, K1: 0.15}, High: SlopePair{C1: 1.25, K1: 0.15}},
	BreathZone: {Low: SlopePair{C1: 0.1, K1: 0.2}, High: SlopePair{C1: 0.6, K1: 0.2}},
	Chest:      {Low: SlopePair{C1: 0.35, K1: 0.1}, High: SlopePair{C1: 0.6, K1: 0.1}},
	Back:       {Low: SlopePair{C1: 0.3, K1: 0.1}, High: SlopePair{C1: 0.7, K1: 0.1}},
	Pelvis:     {Low: SlopePair{C1: 0.2, K1: 0.15}, High: SlopePair{C1: 0.4, K1: 0.15}},
	LUArm:      {Low: SlopePair{C1: 0.29, K1: 0.1}, High: SlopePair{C1: 0.4, K1: 0.1}},
	RUArm:      {Low: SlopePair{C1: 0.29, K1: 0.1}, High: SlopePair{C1: 0.4, K1: 0.1}},
	LLArm:      {Low: SlopePair{C1: 0.3, K1: 0.1}, High: SlopePair{C1: 0.7, K1: 0.1}},
	RLArm:      {Low: SlopePair{C1: 0.3, K1: 0.1}, High: SlopePair{C1: 0.7, K1: 0.1}},
	LHand:      {Low: SlopePair{C1: 0.2, K1: 0.15}, High: SlopePair{C1: 0.45, K1: 0.15}},
	RHand:      {Low: SlopePair{C1: 0.2, K1: 0.15}, High: SlopePair{C1: 0.45, K1: 0.15}},
	LThigh:     {Low: SlopePair{C1: 0.2, K1: 0.11}, High: SlopePair{C1: 0.29, K1: 0.11}},
	RThigh:     {Low: SlopePair{C1: 0.2, K1: 0.11}, High: SlopePair{C1: 0.29, K1: 0.11}},
	LCalf:      {Low: SlopePair{C1: 0.29, K1: 0.1}, High: SlopePair{C1: 0.4, K1: 0.1}},
	RCalf:      {Low: SlopePair{C1: 0.29, K1: 0.1}, High: SlopePair{C1: 0.4, K1: 0.1}},
	LFoot:      {Low: SlopePair{C1: 0.25, K1: 0.15}, High: SlopePair{C1: 0.26, K1: 0.15}},
	RFoot:      {Low: SlopePair{C1: 0.25, K1: 0.15}, High: SlopePair{C1: 0.26, K1: 0.15}},
}

var referenceDynamic = map[Segment]DynamicGains{
	Head:       {Cooling: 543, Warming: 90, Core: 0},
	Face:       {Cooling: 37, Warming: 105, Core: -2289},
	Neck:       {Cooling: 173, Warming: 217, Core: 0},
	BreathZone: {Cooling: 68, Warming: 741, Core: 0},
	Chest:      {Cooling: 39, Warming: 136, Core: -2135},
	Back:       {Cooling: 88, Warming: 192, Core: -4054},
	Pelvis:     {Cooling: 75, Warming: 137, Core: -5053},
	LUArm:      {Cooling: 156, Warming: 167, Core: 0},
	RUArm:      {Cooling: 156, Warming: 167, Core: 0},
	LLArm:      {Cooling: 144, Warming: 125, Core: 0},
	RLArm:      {Cooling: 144, Warming: 125, Core: 0},
	LHand:      {Cooling: 19, Warming: 46, Core: 0},
	RHand:      {Cooling: 19, Warming: 46, Core: 0},
	LThigh:     {Cooling: 151, Warming: 263, Core: 0},
	RThigh:     {Cooling: 151, Warming: 263, Core: 0},
	LCalf:      {Cooling: 206, Warming: 212, Core: 0},
	RCalf:      {Cooling: 206, Warming: 212, Core: 0},
	LFoot:      {Cooling: 109, Warming: 162, Core: 0},
	RFoot:      {Cooling: 109, Warming: 162, Core: 0},
}

var referenceOverall = map[Segment]OverallWeights{
	Head:       {Cold: 0.13, Warm: 0.21},
	Face:       {Cold: 0.15, Warm: 0.3},
	Neck:       {Cold: 0.13, Warm: 0.23},
	BreathZone: {Cold: 0.16, Warm: 0.19},
	Chest:      {Cold: 0.23, Warm: 0.23},
	Back:       {Cold: 0.23, Warm: 0.24},
	Pelvis:     {Cold: 0.17, Warm: 0.15},
	LUArm:      {Cold: 0.1, Warm: 0.14},
	RUArm:      {Cold: 0.1, Warm: 0.14},
	LLArm:      {Cold: 0.1, Warm: 0.14},
	RLArm:      {Cold: 0.1, Warm: 0.14},
	LHand:      {Cold: 0.04, Warm: 0.04},
	RHand:      {Cold: 0.04, Warm: 0.04},
	LThigh:     {Cold: 0.13, Warm: 0.26},
	RThigh:     {Cold: 0.13, Warm: 0.26},
	LCalf:      {Cold: 0.13, Warm: 0.26},
	RCalf:      {Cold: 0.13, Warm: 0.26},
	LFoot:      {Cold: 0.09, Warm: 0.14},
	RFoot:      {Cold: 0.09, Warm: 0.14},
}

// referenceTransferCalibrated is the tuned comfort-transfer calibration.
var referenceTransferCalibrated = map[Segment]TransferCoefficients{
	Head:       {C31: 0, C32: 1.39, C6: 1.27, C71: 0.28, C72: 0.4, C8: 0.5, N: 2},
	Face:       {C31: -0.11, C32: 0.11, C6: 2.02, C71: 0, C72: 0.4, C8: 0.41, N: 2},
	Neck:       {C31: 0, C32: 0, C6: 1.96, C71: 0, C72: 0, C8: -0.19, N: 1},
	BreathZone: {C31: 0, C32: 0.62, C6: 1.95, C71: 0, C72: 0.79, C8: 1.1, N: 2},
	Chest:      {C31: -1.07, C32: 0, C6: 1.74, C71: 0.35, C72: 0, C8: 0, N: 2},
	Back:       {C31: -0.5, C32: 0.59, C6: 2.22, C71: 0.74, C72: 0, C8: 0, N: 1},
	Pelvis:     {C31: -1, C32: 0.38, C6: 2.7, C71: 0.83, C72: -0.64, C8: -0.75, N: 1},
	LUArm:      {C31: -0.43, C32: 0, C6: 2.2, C71: 0, C72: 0, C8: -0.33, N: 1},
	RUArm:      {C31: -0.43, C32: 0, C6: 2.2, C71: 0, C72: 0, C8: -0.33, N: 1},
	LLArm:      {C31: -1.64, C32: 0.34, C6: 2.38, C71: 1.18, C72: 0.28, C8: -0.41, N: 1},
	RLArm:      {C31: -1.64, C32: 0.34, C6: 2.38, C71: 1.18, C72: 0.28, C8: -0.41, N: 1},
	LHand:      {C31: -0.8, C32: 0.8, C6: 1.99, C71: 0.48, C72: 0.48, C8: 0, N: 1},
	RHand:      {C31: -0.8, C32: 0.8, C6: 1.99, C71: 0.48, C72: 0.48, C8: 0, N: 1},
	LThigh:     {C31: 0, C32: 0, C6: 1.98, C71: 0, C72: 0, C8: 0, N: 1},
	RThigh:     {C31: 0, C32: 0, C6: 1.98, C71: 0, C72: 0, C8: 0, N: 1},
	LCalf:      {C31: -1, C32: 1.5, C6: 1.27, C71: 1.22, C72: 1.22, C8: 0.36, N: 2},
	RCalf:      {C31: -1, C32: 1.5, C6: 1.27, C71: 1.22, C72: 1.22, C8: 0.36, N: 2},
	LFoot:      {C31: -2.31, C32: 0.21, C6: 1.62, C71: 0.5, C72: 0.3, C8: -0.25, N: 2},
	RFoot:      {C31: -2.31, C32: 0.21, C6: 1.62, C71: 0.5, C72: 0.3, C8: -0.25, N: 2},
}

// referenceTransferBaseline is the earlier comfort-transfer calibration, kept
// for comparison runs.
var referenceTransferBaseline = map[Segment]TransferCoefficients{
	Head:       {C31: 0.35, C32: 0.35, C6: 2.17, C71: 0.28, C72: 0.4, C8: 0.5, N: 2},
	Face:       {C31: -0.11, C32: 0.11, C6: 2.02, C71: 0, C72: 0.4, C8: 0.41, N: 1.5},
	Neck:       {C31: 0, C32: 0, C6: 1.96, C71: 0, C72: 0, C8: -0.19, N: 1},
	BreathZone: {C31: 0, C32: 0.62, C6: 1.95, C71: 0, C72: 0.79, C8: 1.1, N: 1.5},
	Chest:      {C31: -0.66, C32: 0.66, C6: 2.1, C71: 1.39, C72: 0.9, C8: 0, N: 2},
	Back:       {C31: -0.45, C32: 0.45, C6: 2.1, C71: 0.96, C72: 0, C8: 0, N: 1},
	Pelvis:     {C31: 0.59, C32: 0, C6: 2.06, C71: 0.5, C72: 0, C8: -0.51, N: 1},
	LUArm:      {C31: 0.3, C32: 0.35, C6: 2.14, C71: 0, C72: 0, C8: -0.4, N: 1},
	RUArm:      {C31: 0.3, C32: 0.35, C6: 2.14, C71: 0, C72: 0, C8: -0.4, N: 1},
	LLArm:      {C31: -0.23, C32: 0.23, C6: 2, C71: 0, C72: 1.71, C8: -0.68, N: 1},
	RLArm:      {C31: -0.23, C32: 0.23, C6: 2, C71: 0, C72: 1.71, C8: -0.68, N: 1},
	LHand:      {C31: -0.8, C32: 0.8, C6: 1.98, C71: 0.48, C72: 0.48, C8: 0, N: 1},
	RHand:      {C31: -0.8, C32: 0.8, C6: 1.98, C71: 0.48, C72: 0.48, C8: 0, N: 1},
	LThigh:     {C31: 0, C32: 0, C6: 1.98, C71: 0, C72: 0, C8: 0, N: 1},
	RThigh:     {C31: 0, C32: 0, C6: 1.98, C71: 0, C72: 0, C8: 0, N: 1},
	LCalf:      {C31: -0.2, C32: 0.61, C6: 2, C71: 1.67, C72: 0, C8: 0, N: 1.5},
	RCalf:      {C31: -0.2, C32: 0.61, C6: 2, C71: 1.67, C72: 0, C8: 0, N: 1.5},
	LFoot:      {C31: -0.91, C32: 0.4, C6: 2.13, C71: 0.5, C72: 0.3, C8: 0, N: 2},
	RFoot:      {C31: -0.91, C32: 0.4, C6: 2.13, C71: 0.5, C72: 0.3, C8: 0, N: 2},
}

var (
	referenceOnce   sync.Once
	referenceByName map[Variant]*Tables
)

func buildReferenceTables() {
	referenceByName = map[Variant]*Tables{
		VariantCalibrated: NewTables(VariantCalibrated, referenceSetPoints, referenceStatic,
			referenceDynamic, referenceOverall, referenceTransferCalibrated),
		VariantBaseline: NewTables(VariantBaseline, referenceSetPoints, referenceStatic,
			referenceDynamic, referenceOverall, referenceTransferBaseline),
	}
}

// ReferenceTables returns the validated reference coefficient tables with the
// calibrated comfort transfer. The returned value is shared and must not be
// modified.
func ReferenceTables() *Tables {
	t, _ := TablesFor(VariantCalibrated)
	return t
}

// TablesFor returns the shared reference tables for a comfort-transfer variant
func TablesFor(v Variant) (*Tables, error) {
	referenceOnce.Do(buildReferenceTables)
	t, ok := referenceByName[v]
	if !ok {
		return nil, fmt.Errorf("no reference tables for variant %q", v)
	}
	return t, nil
}
