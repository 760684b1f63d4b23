// Package jos3 adapts the output of the JOS-3 thermoregulation model (17 body
// zones) to the 19-segment vocabulary of the comfort model, and carries the
// clothing lookups used when coupling JOS-3 to a cabin simulation.
package jos3

import (
	"fmt"

	"github.com/chrissnell/thermalcomfort/pkg/comfort"
)

// Zone is a JOS-3 body zone
type Zone string

const (
	Head      Zone = "Head"
	Neck      Zone = "Neck"
	Chest     Zone = "Chest"
	Back      Zone = "Back"
	Pelvis    Zone = "Pelvis"
	LShoulder Zone = "LShoulder"
	LArm      Zone = "LArm"
	LHand     Zone = "LHand"
	RShoulder Zone = "RShoulder"
	RArm      Zone = "RArm"
	RHand     Zone = "RHand"
	LThigh    Zone = "LThigh"
	LLeg      Zone = "LLeg"
	LFoot     Zone = "LFoot"
	RThigh    Zone = "RThigh"
	RLeg      Zone = "RLeg"
	RFoot     Zone = "RFoot"
)

// zoneOrder is the JOS-3 output order
var zoneOrder = []Zone{
	Head, Neck, Chest, Back, Pelvis,
	LShoulder, LArm, LHand,
	RShoulder, RArm, RHand,
	LThigh, LLeg, LFoot,
	RThigh, RLeg, RFoot,
}

// Zones returns the 17 JOS-3 zones in model output order
func Zones() []Zone {
	out := make([]Zone, len(zoneOrder))
	copy(out, zoneOrder)
	return out
}

// ParseZone converts a zone name into a Zone
func ParseZone(s string) (Zone, error) {
	for _, z := range zoneOrder {
		if string(z) == s {
			return z, nil
		}
	}
	return "", fmt.Errorf("unknown JOS-3 zone %q", s)
}

// segmentZone maps every comfort segment to the JOS-3 zone whose temperatures it
// takes. JOS-3 has a single head zone, so face and breathing zone share it.
var segmentZone = map[comfort.Segment]Zone{
	comfort.Head:       Head,
	comfort.Face:       Head,
	comfort.Neck:       Neck,
	comfort.BreathZone: Head,
	comfort.Chest:      Chest,
	comfort.Back:       Back,
	comfort.Pelvis:     Pelvis,
	comfort.LUArm:      LShoulder,
	comfort.RUArm:      RShoulder,
	comfort.LLArm:      LArm,
	comfort.RLArm:      RArm,
	comfort.LHand:      LHand,
	comfort.RHand:      RHand,
	comfort.LThigh:     LThigh,
	comfort.RThigh:     RThigh,
	comfort.LCalf:      LLeg,
	comfort.RCalf:      RLeg,
	comfort.LFoot:      LFoot,
	comfort.RFoot:      RFoot,
}

// ZoneFor returns the JOS-3 zone feeding a comfort segment
func ZoneFor(seg comfort.Segment) (Zone, bool) {
	z, ok := segmentZone[seg]
	return z, ok
}

// SegmentsFor returns the comfort segments fed by a JOS-3 zone, in canonical order
func SegmentsFor(z Zone) []comfort.Segment {
	var out []comfort.Segment
	for _, seg := range comfort.Segments() {
		if segmentZone[seg] == z {
			out = append(out, seg)
		}
	}
	return out
}
