// Package analysis reduces a morphology to numbers. A per-arbor function is
// applied to every arbor root, grouped by arbor type, and a combiner folds the
// three groups into one value.
//
// Everything here is pure and synchronous. Undefined measurements (a ratio on
// an unbranched arbor, an average over nothing) come back as 0, never as an
// error; the IgnoreZero combiners drop those before reducing.
package analysis

import "github.com/starford/morphovis/internal/morphology"

// ArborFunc computes one value for the arbor rooted at root.
type ArborFunc func(root *morphology.Section) float64

// Combiner folds the per-arbor values of the three arbor types into one result.
type Combiner func(apical, axon, basal []float64) float64

// DataFunc computes annotated values for the arbor rooted at root.
type DataFunc func(root *morphology.Section) []Data

// Data is one annotated measurement.
type Data struct {
	Value          float64 `json:"value"`
	BranchingOrder int     `json:"branching_order"`
	RadialDistance float64 `json:"radial_distance"`
}

// Breakdown keeps the per-arbor values next to the combined result.
type Breakdown struct {
	Apical []float64 `json:"apical,omitempty"`
	Axon   []float64 `json:"axon,omitempty"`
	Basal  []float64 `json:"basal,omitempty"`
	Value  float64   `json:"value"`
}

// Invoke applies perArbor to each arbor of m and combines the results. Arbor
// types with no arbors contribute an empty list.
func Invoke(m *morphology.Morphology, perArbor ArborFunc, combine Combiner) float64 {
	return InvokePerType(m, perArbor, combine).Value
}

// InvokePerType is Invoke that also returns the per-arbor values.
func InvokePerType(m *morphology.Morphology, perArbor ArborFunc, combine Combiner) Breakdown {
	if m == nil {
		return Breakdown{Value: combine(nil, nil, nil)}
	}
	b := Breakdown{
		Apical: applyEach(m.Apical, perArbor),
		Axon:   applyEach(m.Axons, perArbor),
		Basal:  applyEach(m.Basal, perArbor),
	}
	b.Value = combine(b.Apical, b.Axon, b.Basal)
	return b
}

func applyEach(roots []*morphology.Section, fn ArborFunc) []float64 {
	if len(roots) == 0 {
		return nil
	}
	out := make([]float64, 0, len(roots))
	for _, root := range roots {
		out = append(out, fn(root))
	}
	return out
}

// InvokeData concatenates the annotated values of every arbor, apical first,
// then axons, then basal dendrites.
func InvokeData(m *morphology.Morphology, perArbor DataFunc) []Data {
	if m == nil {
		return nil
	}
	var out []Data
	for _, root := range m.Arbors() {
		out = append(out, perArbor(root)...)
	}
	return out
}
