// Package skeleton turns a morphology tree into polylines grouped into drawable
// objects, and exports them.
package skeleton

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

// Polyline name prefixes per arbor type.
const (
	ApicalPrefix = "Apical"
	AxonPrefix   = "Axon"
	BasalPrefix  = "Basal"
)

var (
	// ErrNoMaterials is returned when drawing starts before CreateMaterials.
	ErrNoMaterials = errors.New("materials not created")

	// ErrUnsupportedMethod is returned by Build for methods it cannot construct.
	ErrUnsupportedMethod = errors.New("unsupported skeletonization method")

	// ErrAlreadyBuilt is returned by a second call to Build.
	ErrAlreadyBuilt = errors.New("skeleton already built")
)

// Point is one polyline vertex.
type Point struct {
	Position math32.Vector3 `json:"position"`
	Radius   float32        `json:"radius"`
}

// PolyLine is a named vertex strip drawn with one palette material.
type PolyLine struct {
	Name          string  `json:"name"`
	Samples       []Point `json:"samples"`
	MaterialIndex int     `json:"material_index"`
}

// Object is one drawable unit.
type Object struct {
	Name       string     `json:"name"`
	Kind       ObjectKind `json:"kind"`
	PolyLines  []PolyLine `json:"polylines"`
	Materials  []Material `json:"materials,omitempty"`
	Edges      EdgeStyle  `json:"edges"`
	Branching  Branching  `json:"branching"`
	BevelSides int        `json:"bevel_sides,omitempty"`
}

// VertexCount returns the number of points over all polylines.
func (o *Object) VertexCount() int {
	n := 0
	for _, pl := range o.PolyLines {
		n += len(pl.Samples)
	}
	return n
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithVisitHook registers fn to be called for every section that
// ConstructTreePolyLines enters, with its branching order, before the
// branch-order cutoff is applied.
func WithVisitHook(fn func(s *morphology.Section, order int)) BuilderOption {
	return func(b *Builder) { b.visit = fn }
}

// Builder converts one morphology into objects. It works on its own copy of the
// morphology and options and is not safe for concurrent use.
type Builder struct {
	morphology *morphology.Morphology
	options    Options
	logger     *slog.Logger
	visit      func(s *morphology.Section, order int)

	materials []Material
	objects   []*Object
	built     bool
}

// NewBuilder copies m and opts into a new Builder.
func NewBuilder(m *morphology.Morphology, opts Options, options ...BuilderOption) (*Builder, error) {
	clone, err := m.Clone()
	if err != nil {
		return nil, fmt.Errorf("skeleton: new builder: %w", err)
	}
	b := &Builder{
		morphology: clone,
		options:    opts,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Morphology returns the builder's private copy.
func (b *Builder) Morphology() *morphology.Morphology { return b.morphology }

// Objects returns the objects emitted so far.
func (b *Builder) Objects() []*Object { return b.objects }

// Materials returns the palette, empty before CreateMaterials.
func (b *Builder) Materials() []Material { return b.materials }

// CreateMaterials builds the shared palette. Later calls do nothing.
func (b *Builder) CreateMaterials() {
	if len(b.materials) > 0 {
		return
	}
	b.logger.Debug("creating materials")
	b.materials = DefaultPalette()
}

// ConstructTreePolyLines appends the polylines of root and its descendants to
// lines. order is the branching order of root's parent (0 for an arbor root);
// sections deeper than maxOrder are skipped along with their subtrees.
func (b *Builder) ConstructTreePolyLines(root *morphology.Section, lines *[]PolyLine, order, maxOrder int, prefix string, materialStart int) {
	if root == nil {
		return
	}
	order++
	if b.visit != nil {
		b.visit(root, order)
	}
	if order > maxOrder {
		return
	}
	for i, samples := range b.sectionStrips(root) {
		*lines = append(*lines, PolyLine{
			Name:          prefix + "_" + strconv.Itoa(order) + "_" + strconv.Itoa(i),
			Samples:       samples,
			MaterialIndex: materialStart + i%2,
		})
	}
	for _, child := range root.Children {
		b.ConstructTreePolyLines(child, lines, order, maxOrder, prefix, materialStart)
	}
}

// sectionStrips splits a section into vertex strips: one per segment for
// MethodDisconnectedSegments, a single strip otherwise.
func (b *Builder) sectionStrips(s *morphology.Section) [][]Point {
	if b.options.Method == MethodDisconnectedSegments {
		out := make([][]Point, 0, s.SegmentCount())
		for i := 0; i+1 < len(s.Samples); i++ {
			out = append(out, []Point{toPoint(s.Samples[i]), toPoint(s.Samples[i+1])})
		}
		return out
	}
	if len(s.Samples) < 2 {
		return nil
	}
	strip := make([]Point, 0, len(s.Samples))
	for _, sample := range s.Samples {
		strip = append(strip, toPoint(sample))
	}
	return [][]Point{strip}
}

func toPoint(s *morphology.Sample) Point {
	return Point{Position: s.Point, Radius: s.Radius}
}

func (b *Builder) newObject(name string, kind ObjectKind, lines []PolyLine) *Object {
	return &Object{
		Name:       name,
		Kind:       kind,
		PolyLines:  lines,
		Materials:  b.materials,
		Edges:      b.options.Edges,
		Branching:  b.options.Branching,
		BevelSides: b.options.BevelObjectSides,
	}
}

// DrawArborsAsSingleObject emits one object holding every drawn arbor.
func (b *Builder) DrawArborsAsSingleObject() error {
	if len(b.materials) == 0 {
		return fmt.Errorf("skeleton: draw arbors: %w", ErrNoMaterials)
	}
	b.logger.Info("reconstructing arbors", slog.String("mode", ModeSingleObject.String()))

	var lines []PolyLine
	for _, plan := range b.options.plans(b.morphology) {
		for i, root := range plan.roots {
			b.logger.Debug("arbor", slog.String("label", morphology.ArborLabel(root.Type, i)))
			b.ConstructTreePolyLines(root, &lines, 0, plan.maxOrder, plan.prefix, plan.materialStart)
		}
	}
	b.objects = append(b.objects, b.newObject(b.morphology.Label, KindSkeleton, lines))
	return nil
}

// DrawEachArborAsSingleObject emits one object per drawn arbor, named after the arbor.
func (b *Builder) DrawEachArborAsSingleObject() error {
	if len(b.materials) == 0 {
		return fmt.Errorf("skeleton: draw arbors: %w", ErrNoMaterials)
	}
	b.logger.Info("reconstructing arbors", slog.String("mode", ModePerArbor.String()))

	for _, plan := range b.options.plans(b.morphology) {
		for i, root := range plan.roots {
			label := morphology.ArborLabel(root.Type, i)
			b.logger.Debug("arbor", slog.String("label", label))
			var lines []PolyLine
			b.ConstructTreePolyLines(root, &lines, 0, plan.maxOrder, plan.prefix, plan.materialStart)
			b.objects = append(b.objects, b.newObject(label, KindSkeleton, lines))
		}
	}
	return nil
}

// DrawSoma emits the soma object: a closed polyline through the soma profile,
// or a ring around the centroid when there is no profile.
func (b *Builder) DrawSoma() error {
	if len(b.materials) == 0 {
		return fmt.Errorf("skeleton: draw soma: %w", ErrNoMaterials)
	}
	soma := b.morphology.Soma
	if soma == nil || b.options.Soma.Ignore {
		return nil
	}
	b.logger.Info("reconstructing soma")

	var outline []Point
	if len(soma.Profile) > 0 {
		for _, p := range soma.Profile {
			outline = append(outline, Point{Position: p})
		}
	} else {
		scale := b.options.Soma.RadiusScaleFactor
		if scale == 0 {
			scale = 1
		}
		segments := b.options.Soma.Segments
		if segments < 3 {
			segments = DefaultSomaSegments
		}
		outline = ring(soma.Centroid, soma.MeanRadius*scale, segments)
	}
	if len(outline) == 0 {
		return nil
	}
	outline = append(outline, outline[0])

	line := PolyLine{Name: "Soma", Samples: outline, MaterialIndex: MaterialSomaStart}
	b.objects = append(b.objects, b.newObject(b.morphology.Label+"_soma", KindSoma, []PolyLine{line}))
	return nil
}

// ring returns n points on a circle of radius r around center in the XY plane.
func ring(center math32.Vector3, r float32, n int) []Point {
	if n < 3 || r <= 0 {
		return nil
	}
	out := make([]Point, n)
	step := 2 * math32.Pi / float32(n)
	for i := range out {
		angle := step * float32(i)
		out[i] = Point{Position: center.Add(math32.Vec3(r*math32.Cos(angle), r*math32.Sin(angle), 0))}
	}
	return out
}

// createBevelObject emits the unit cross-section profile consumers sweep along
// each polyline.
func (b *Builder) createBevelObject() {
	sides := b.options.BevelObjectSides
	if sides < 3 {
		sides = 3
	}
	profile := ring(math32.Vector3{}, 1, sides)
	profile = append(profile, profile[0])
	b.objects = append(b.objects, &Object{
		Name:       "bevel",
		Kind:       KindBevel,
		PolyLines:  []PolyLine{{Name: "bevel", Samples: profile}},
		BevelSides: sides,
	})
}

// TransformToGlobalCoordinates applies Options.Transform to every emitted
// skeleton and soma point. Radii follow the scale.
func (b *Builder) TransformToGlobalCoordinates() {
	t := b.options.Transform
	if t.IsIdentity() {
		return
	}
	b.logger.Info("transforming to global coordinates")
	m := t.Matrix()
	scale := math32.Abs(t.scale())
	for _, obj := range b.objects {
		if obj.Kind == KindBevel {
			continue
		}
		for i := range obj.PolyLines {
			for j := range obj.PolyLines[i].Samples {
				p := &obj.PolyLines[i].Samples[j]
				p.Position = p.Position.MulMatrix4(m)
				p.Radius *= scale
			}
		}
	}
}

// Build runs the whole sequence: bevel object, materials, radius update,
// resampling, arbors (grouped by mode), soma, global transform. It can run once.
func (b *Builder) Build(mode Mode) ([]*Object, error) {
	if b.built {
		return nil, fmt.Errorf("skeleton: build: %w", ErrAlreadyBuilt)
	}
	if !b.options.Method.Buildable() {
		return nil, fmt.Errorf("skeleton: build %q: %w", b.options.Method, ErrUnsupportedMethod)
	}
	b.built = true
	b.logger.Info("building skeleton",
		slog.String("morphology", b.morphology.Label),
		slog.String("method", b.options.Method.String()),
		slog.String("mode", mode.String()),
	)

	b.createBevelObject()
	b.CreateMaterials()

	updated, err := morphology.UpdateRadii(b.morphology, b.options.Radii)
	if err != nil {
		return nil, fmt.Errorf("skeleton: build: %w", err)
	}
	resampled, err := morphology.Resample(updated, b.options.Resampling)
	if err != nil {
		return nil, fmt.Errorf("skeleton: build: %w", err)
	}
	b.morphology = resampled

	if mode == ModePerArbor {
		err = b.DrawEachArborAsSingleObject()
	} else {
		err = b.DrawArborsAsSingleObject()
	}
	if err != nil {
		return nil, err
	}
	if err := b.DrawSoma(); err != nil {
		return nil, err
	}
	b.TransformToGlobalCoordinates()
	return b.objects, nil
}
