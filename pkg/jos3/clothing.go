package jos3

const (
	// CloToSI converts clothing insulation from clo to m²K/W
	CloToSI = 0.155

	// LatentHeatVaporization of water at skin temperature, J/kg
	LatentHeatVaporization = 2418.7e3
)

// Garments is the insulation (clo) of each garment class worn by the occupant
type Garments struct {
	Head  float64
	Shirt float64
	Pants float64
	Shoes float64
	Hands float64
}

// GarmentsFor picks a seasonal outfit for the ambient air temperature (°C).
// Colder cabins get heavier garments and gloves.
func GarmentsFor(ambientC float64) Garments {
	switch {
	case ambientC <= -20:
		return Garments{Shirt: 1.5, Pants: 1.5, Shoes: 0.2, Hands: 0.2}
	case ambientC <= -10:
		return Garments{Shirt: 1.3, Pants: 1.3, Shoes: 0.15, Hands: 0.15}
	case ambientC <= 0:
		return Garments{Shirt: 0.9, Pants: 0.9, Shoes: 0.1, Hands: 0.1}
	case ambientC > 30:
		return Garments{Shirt: 0.25, Pants: 0.25, Shoes: 0.05}
	default:
		return Garments{Shirt: 0.47, Pants: 0.4, Shoes: 0.08}
	}
}

// Ensemble distributes the garments over the JOS-3 zones. The pelvis is
// covered by the pants and a fifth of the shirt.
func (g Garments) Ensemble() map[Zone]float64 {
	return map[Zone]float64{
		Head:      g.Head,
		Neck:      g.Shirt,
		Chest:     g.Shirt,
		Back:      g.Shirt,
		Pelvis:    g.Shirt*0.2 + g.Pants,
		LShoulder: g.Shirt,
		LArm:      g.Shirt,
		LHand:     g.Hands,
		RShoulder: g.Shirt,
		RArm:      g.Shirt,
		RHand:     g.Hands,
		LThigh:    g.Pants,
		LLeg:      g.Pants,
		LFoot:     g.Shoes,
		RThigh:    g.Pants,
		RLeg:      g.Pants,
		RFoot:     g.Shoes,
	}
}

// ClothingEnsemble returns per-zone clothing insulation (clo) for an ambient
// air temperature (°C)
func ClothingEnsemble(ambientC float64) map[Zone]float64 {
	return GarmentsFor(ambientC).Ensemble()
}

// ClothingSurfaceTemperature estimates the outer clothing temperature (°C) of a
// zone from its skin temperature, the sensible heat loss through the clothing (W),
// the zone surface area (m²) and the clothing insulation (clo).
func ClothingSurfaceTemperature(skinC, sensibleLossW, areaM2, clo float64) float64 {
	return skinC - sensibleLossW/areaM2*clo*CloToSI
}

// VaporFlux converts a zone's latent heat loss (W) into the evaporated water
// flux off its skin (kg/m²s)
func VaporFlux(latentLossW, areaM2 float64) float64 {
	return latentLossW / areaM2 / LatentHeatVaporization
}
