package skeleton

import (
	"math"

	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

// Unlimited is the branch-order cutoff that keeps every section.
const Unlimited = math.MaxInt

// DefaultSomaSegments is the ring resolution used when SomaOptions.Segments
// is below 3.
const DefaultSomaSegments = 16

// Options configures a Builder. The zero value draws every arbor to full depth
// with the original radii and no transform.
type Options struct {
	Method Method `yaml:"method" json:"method"`
	// Branching only changes the geometry of the connected methods, which this
	// package does not build. It is carried onto every skeleton object so
	// downstream sweepers can join sections the same way.
	Branching Branching `yaml:"branching" json:"branching"`

	IgnoreApicalDendrites bool `yaml:"ignore_apical_dendrites" json:"ignore_apical_dendrites"`
	IgnoreAxons           bool `yaml:"ignore_axons" json:"ignore_axons"`
	IgnoreBasalDendrites  bool `yaml:"ignore_basal_dendrites" json:"ignore_basal_dendrites"`

	// Branch-order cutoffs. Zero or negative means Unlimited.
	ApicalDendriteBranchOrder int `yaml:"apical_dendrite_branch_order" json:"apical_dendrite_branch_order"`
	AxonBranchOrder           int `yaml:"axon_branch_order" json:"axon_branch_order"`
	BasalDendritesBranchOrder int `yaml:"basal_dendrites_branch_order" json:"basal_dendrites_branch_order"`

	Edges            EdgeStyle `yaml:"edges" json:"edges"`
	BevelObjectSides int       `yaml:"bevel_object_sides" json:"bevel_object_sides"`

	Radii      morphology.RadiiOptions    `yaml:"radii" json:"radii"`
	Resampling morphology.ResampleOptions `yaml:"resampling" json:"resampling"`
	Transform  TransformOptions           `yaml:"transform" json:"transform"`
	Soma       SomaOptions                `yaml:"soma" json:"soma"`
}

// DefaultOptions mirrors the settings a fresh session starts with.
func DefaultOptions() Options {
	return Options{
		Method:           MethodDisconnectedSegments,
		BevelObjectSides: 16,
		Soma: SomaOptions{
			Segments:          DefaultSomaSegments,
			RadiusScaleFactor: 1,
		},
	}
}

func cutoff(order int) int {
	if order <= 0 {
		return Unlimited
	}
	return order
}

// arborPlan is what the builder needs to draw one arbor type.
type arborPlan struct {
	roots         []*morphology.Section
	maxOrder      int
	prefix        string
	materialStart int
}

// plans lists the arbor types to draw in drawing order, skipping ignored ones.
func (o Options) plans(m *morphology.Morphology) []arborPlan {
	var out []arborPlan
	if !o.IgnoreApicalDendrites && m.HasApical() {
		out = append(out, arborPlan{m.Apical, cutoff(o.ApicalDendriteBranchOrder), ApicalPrefix, MaterialApicalStart})
	}
	if !o.IgnoreAxons && m.HasAxons() {
		out = append(out, arborPlan{m.Axons, cutoff(o.AxonBranchOrder), AxonPrefix, MaterialAxonStart})
	}
	if !o.IgnoreBasalDendrites && m.HasBasal() {
		out = append(out, arborPlan{m.Basal, cutoff(o.BasalDendritesBranchOrder), BasalPrefix, MaterialBasalStart})
	}
	return out
}

// TransformOptions places the morphology in global coordinates: scale, then
// rotate (Euler angles in degrees), then translate.
type TransformOptions struct {
	Translation math32.Vector3 `yaml:"translation" json:"translation"`
	Rotation    math32.Vector3 `yaml:"rotation" json:"rotation"`
	Scale       float32        `yaml:"scale" json:"scale"`
}

// IsIdentity reports whether applying the transform would change nothing.
func (t TransformOptions) IsIdentity() bool {
	return t.Translation == (math32.Vector3{}) && t.Rotation == (math32.Vector3{}) && (t.Scale == 0 || t.Scale == 1)
}

func (t TransformOptions) scale() float32 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}

// Matrix returns the transform as a 4x4 matrix.
func (t TransformOptions) Matrix() *math32.Matrix4 {
	euler := math32.Vec3(
		math32.DegToRad(t.Rotation.X),
		math32.DegToRad(t.Rotation.Y),
		math32.DegToRad(t.Rotation.Z),
	)
	s := t.scale()
	m := math32.Identity4()
	m.SetTransform(t.Translation, math32.NewQuatEuler(euler), math32.Vec3(s, s, s))
	return m
}

// SomaOptions configures DrawSoma.
type SomaOptions struct {
	Ignore bool `yaml:"ignore" json:"ignore"`
	// Segments is the number of points on the ring drawn when the soma has no
	// profile. Values below 3 mean DefaultSomaSegments.
	Segments          int     `yaml:"segments" json:"segments"`
	RadiusScaleFactor float32 `yaml:"radius_scale_factor" json:"radius_scale_factor"`
}
