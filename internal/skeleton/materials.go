package skeleton

import "cogentcore.org/core/math32"

// Palette slots. Each arbor type owns two consecutive slots so neighbouring
// polylines can alternate.
const (
	MaterialSomaStart   = 0
	MaterialApicalStart = 2
	MaterialBasalStart  = 4
	MaterialAxonStart   = 6
	paletteSize         = 8
)

// Material is a palette entry referenced by index from polylines.
type Material struct {
	Name  string         `json:"name"`
	Color math32.Vector3 `json:"color"`
}

var (
	somaColor   = math32.Vec3(1, 1, 0)
	apicalColor = math32.Vec3(1, 0, 0.5)
	basalColor  = math32.Vec3(1, 0, 0)
	axonColor   = math32.Vec3(0, 0, 1)
)

// alternateShade darkens c for the second slot of a pair.
const alternateShade = 0.6

// DefaultPalette returns the eight-slot palette: soma, apical, basal, axon.
func DefaultPalette() []Material {
	out := make([]Material, 0, paletteSize)
	for _, p := range []struct {
		name  string
		color math32.Vector3
	}{
		{"soma", somaColor},
		{"apical_dendrite", apicalColor},
		{"basal_dendrite", basalColor},
		{"axon", axonColor},
	} {
		out = append(out,
			Material{Name: p.name + "_0", Color: p.color},
			Material{Name: p.name + "_1", Color: p.color.MulScalar(alternateShade)},
		)
	}
	return out
}
