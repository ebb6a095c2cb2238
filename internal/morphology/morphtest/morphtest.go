// Package morphtest builds small hand-checkable morphologies for tests.
package morphtest

import (
	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

// Builder hands out unique section and sample IDs.
type Builder struct {
	nextSection int
	nextSample  int
}

// Section builds a section through points with constant radius r.
func (b *Builder) Section(t morphology.SectionType, r float32, points ...math32.Vector3) *morphology.Section {
	b.nextSection++
	s := &morphology.Section{ID: b.nextSection, Type: t}
	for _, p := range points {
		b.nextSample++
		s.Samples = append(s.Samples, &morphology.Sample{
			ID:        b.nextSample,
			Point:     p,
			Radius:    r,
			SectionID: s.ID,
		})
	}
	return s
}

// Child builds a section that starts at the end of parent and runs by offset,
// and attaches it.
func (b *Builder) Child(parent *morphology.Section, offset math32.Vector3) *morphology.Section {
	start := parent.LastSample()
	child := b.Section(parent.Type, start.Radius, start.Point, start.Point.Add(offset))
	parent.Children = append(parent.Children, child)
	return child
}

// Line returns a single straight section along +X made of n samples spaced step apart.
func Line(t morphology.SectionType, n int, step float32) *morphology.Section {
	var b Builder
	points := make([]math32.Vector3, n)
	for i := range points {
		points[i] = math32.Vec3(float32(i)*step, 0, 0)
	}
	return b.Section(t, 1, points...)
}

// Balanced returns a full binary arbor of the given depth. Every section is a
// unit segment.
func Balanced(t morphology.SectionType, depth int) *morphology.Section {
	var b Builder
	root := b.Section(t, 1, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0))
	grow(&b, root, depth-1)
	return root
}

func grow(b *Builder, s *morphology.Section, depth int) {
	if depth <= 0 {
		return
	}
	grow(b, b.Child(s, math32.Vec3(1, 1, 0)), depth-1)
	grow(b, b.Child(s, math32.Vec3(1, -1, 0)), depth-1)
}

// Caterpillar returns an arbor where every left child is a leaf and the right
// child keeps branching, depth levels deep.
func Caterpillar(t morphology.SectionType, depth int) *morphology.Section {
	var b Builder
	root := b.Section(t, 1, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0))
	spine := root
	for i := 1; i < depth; i++ {
		b.Child(spine, math32.Vec3(0, 1, 0))
		spine = b.Child(spine, math32.Vec3(1, 0, 0))
	}
	return root
}

// Neuron returns a morphology with one apical dendrite, one axon and two basal
// dendrites, each a balanced arbor of depth 2, around a unit soma at the origin.
func Neuron() *morphology.Morphology {
	m := &morphology.Morphology{
		Label: "fixture",
		Soma: &morphology.Soma{
			MeanRadius:     1,
			SmallestRadius: 1,
			LargestRadius:  1,
		},
	}
	m.AddArbor(Balanced(morphology.TypeApicalDendrite, 2))
	m.AddArbor(Balanced(morphology.TypeAxon, 2))
	m.AddArbor(Balanced(morphology.TypeBasalDendrite, 2))
	m.AddArbor(Balanced(morphology.TypeBasalDendrite, 2))
	return m
}
