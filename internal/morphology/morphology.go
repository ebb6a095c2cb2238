// Package morphology defines the skeleton tree of a neuron: samples grouped into
// unbranched sections, sections grouped into arbors, and arbors grouped by type
// around a soma.
//
// # Ownership Model
//
// A section owns its samples and its children. There are no parent pointers; a
// sample refers back to its section by ID only. The last sample of a parent and
// the first sample of each child are equal copies, so any section can be walked
// without consulting its parent.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation. Passes that change
// radii or samples return a new Morphology; use Clone when an independent copy
// is needed.
package morphology

import (
	"strconv"

	"cogentcore.org/core/math32"
)

// SectionType tags the neurite a section belongs to.
type SectionType int

const (
	TypeUnknown SectionType = iota
	TypeSoma
	TypeAxon
	TypeBasalDendrite
	TypeApicalDendrite
)

// SectionTypeFromSWC maps the SWC structure identifier to a SectionType.
func SectionTypeFromSWC(code int) SectionType {
	switch code {
	case 1:
		return TypeSoma
	case 2:
		return TypeAxon
	case 3:
		return TypeBasalDendrite
	case 4:
		return TypeApicalDendrite
	default:
		return TypeUnknown
	}
}

func (t SectionType) String() string {
	switch t {
	case TypeSoma:
		return "soma"
	case TypeAxon:
		return "axon"
	case TypeBasalDendrite:
		return "basal_dendrite"
	case TypeApicalDendrite:
		return "apical_dendrite"
	default:
		return "unknown"
	}
}

// Sample is a single measured point along a section.
type Sample struct {
	ID        int            `json:"id"`
	Point     math32.Vector3 `json:"point"`
	Radius    float32        `json:"radius"`
	SectionID int            `json:"section_id"`
}

// Section is a maximal unbranched run of samples.
type Section struct {
	ID       int         `json:"id"`
	Type     SectionType `json:"type"`
	Samples  []*Sample   `json:"samples"`
	Children []*Section  `json:"children,omitempty"`
}

// FirstSample returns the most proximal sample, or nil for an empty section.
func (s *Section) FirstSample() *Sample {
	if len(s.Samples) == 0 {
		return nil
	}
	return s.Samples[0]
}

// LastSample returns the most distal sample, or nil for an empty section.
func (s *Section) LastSample() *Sample {
	if len(s.Samples) == 0 {
		return nil
	}
	return s.Samples[len(s.Samples)-1]
}

// SegmentCount is the number of consecutive sample pairs.
func (s *Section) SegmentCount() int {
	if len(s.Samples) < 2 {
		return 0
	}
	return len(s.Samples) - 1
}

// IsLeaf reports whether the section has no children.
func (s *Section) IsLeaf() bool { return len(s.Children) == 0 }

// IsBranchPoint reports whether the section ends in a bifurcation (or more).
func (s *Section) IsBranchPoint() bool { return len(s.Children) >= 2 }

// Length is the sum of the Euclidean distances between consecutive samples.
func (s *Section) Length() float64 {
	var length float64
	for i := 0; i+1 < len(s.Samples); i++ {
		length += float64(s.Samples[i].Point.DistanceTo(s.Samples[i+1].Point))
	}
	return length
}

// AverageRadius returns the mean sample radius, 0 for an empty section.
func (s *Section) AverageRadius() float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range s.Samples {
		sum += float64(sample.Radius)
	}
	return sum / float64(len(s.Samples))
}

// Soma is the cell body. It is not part of any arbor tree.
type Soma struct {
	Centroid       math32.Vector3   `json:"centroid"`
	MeanRadius     float32          `json:"mean_radius"`
	SmallestRadius float32          `json:"smallest_radius"`
	LargestRadius  float32          `json:"largest_radius"`
	Profile        []math32.Vector3 `json:"profile,omitempty"`
}

// Morphology is a whole reconstructed neuron.
type Morphology struct {
	Label  string     `json:"label"`
	GID    int        `json:"gid"`
	Soma   *Soma      `json:"soma,omitempty"`
	Apical []*Section `json:"apical,omitempty"`
	Axons  []*Section `json:"axons,omitempty"`
	Basal  []*Section `json:"basal,omitempty"`
}

// HasApical reports whether at least one apical dendrite exists.
func (m *Morphology) HasApical() bool { return len(m.Apical) > 0 }

// HasAxons reports whether at least one axon exists.
func (m *Morphology) HasAxons() bool { return len(m.Axons) > 0 }

// HasBasal reports whether at least one basal dendrite exists.
func (m *Morphology) HasBasal() bool { return len(m.Basal) > 0 }

// Arbors returns every arbor root, apical first, then axons, then basal dendrites.
func (m *Morphology) Arbors() []*Section {
	out := make([]*Section, 0, len(m.Apical)+len(m.Axons)+len(m.Basal))
	out = append(out, m.Apical...)
	out = append(out, m.Axons...)
	out = append(out, m.Basal...)
	return out
}

// ArborsOf returns the arbor roots of one type. The returned slice is shared.
func (m *Morphology) ArborsOf(t SectionType) []*Section {
	switch t {
	case TypeApicalDendrite:
		return m.Apical
	case TypeAxon:
		return m.Axons
	case TypeBasalDendrite:
		return m.Basal
	default:
		return nil
	}
}

// AddArbor appends root to the list matching its type. Roots of other types are
// ignored and false is returned.
func (m *Morphology) AddArbor(root *Section) bool {
	switch root.Type {
	case TypeApicalDendrite:
		m.Apical = append(m.Apical, root)
	case TypeAxon:
		m.Axons = append(m.Axons, root)
	case TypeBasalDendrite:
		m.Basal = append(m.Basal, root)
	default:
		return false
	}
	return true
}

// Bounds returns the axis-aligned box enclosing every sample and the soma centroid.
func (m *Morphology) Bounds() math32.Box3 {
	box := math32.B3Empty()
	if m.Soma != nil {
		box.ExpandByPoint(m.Soma.Centroid)
	}
	for _, root := range m.Arbors() {
		Walk(root, func(s *Section, _ int) bool {
			for _, sample := range s.Samples {
				box.ExpandByPoint(sample.Point)
			}
			return true
		})
	}
	return box
}

// ArborLabel names an arbor after its type and position in the type list,
// e.g. "basal_dendrite_2".
func ArborLabel(t SectionType, index int) string {
	return t.String() + "_" + strconv.Itoa(index)
}
