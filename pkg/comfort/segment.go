// Package comfort computes local and whole-body thermal sensation and comfort from
// segmental skin temperatures and their rates of change, following the Berkeley
// (Zhang) multi-segment model with JOS-3 derived local set-points.
package comfort

import (
	"fmt"
	"slices"
)

// Segment names one anatomical zone of the 19-segment body model
type Segment string

const (
	Head       Segment = "head"
	Face       Segment = "face"
	Neck       Segment = "neck"
	BreathZone Segment = "breathZone"
	Chest      Segment = "chest"
	Back       Segment = "back"
	Pelvis     Segment = "pelvis"
	LUArm      Segment = "lUArm"
	RUArm      Segment = "rUArm"
	LLArm      Segment = "lLArm"
	RLArm      Segment = "rLArm"
	LHand      Segment = "lHand"
	RHand      Segment = "rHand"
	LThigh     Segment = "lThigh"
	RThigh     Segment = "rThigh"
	LCalf      Segment = "lCalf"
	RCalf      Segment = "rCalf"
	LFoot      Segment = "lFoot"
	RFoot      Segment = "rFoot"
)

// canonicalOrder is the iteration order of every table. Ties in comfort ranking
// resolve in this order.
var canonicalOrder = []Segment{
	Head, Face, Neck, BreathZone, Chest, Back, Pelvis,
	LUArm, RUArm, LLArm, RLArm, LHand, RHand,
	LThigh, RThigh, LCalf, RCalf, LFoot, RFoot,
}

var segmentRank = func() map[Segment]int {
	m := make(map[Segment]int, len(canonicalOrder))
	for i, s := range canonicalOrder {
		m[s] = i
	}
	return m
}()

// Segments returns the canonical ordered segment list. The slice is a copy.
func Segments() []Segment {
	out := make([]Segment, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// ParseSegment converts a segment identifier into a Segment
func ParseSegment(s string) (Segment, error) {
	seg := Segment(s)
	if _, ok := segmentRank[seg]; !ok {
		return "", fmt.Errorf("unknown segment %q", s)
	}
	return seg, nil
}

// String implements fmt.Stringer
func (s Segment) String() string {
	return string(s)
}

// ordered returns the keys of m sorted by canonical rank. Keys outside the
// canonical set sort last, by name, so a bad input still produces a stable order.
func ordered[T any](m map[Segment]T) []Segment {
	keys := make([]Segment, 0, len(m))
	for _, s := range canonicalOrder {
		if _, ok := m[s]; ok {
			keys = append(keys, s)
		}
	}
	if len(keys) == len(m) {
		return keys
	}

	var extra []Segment
	for s := range m {
		if _, ok := segmentRank[s]; !ok {
			extra = append(extra, s)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}
