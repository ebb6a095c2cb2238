package skeleton_test

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/morphology/morphtest"
	"github.com/starford/morphovis/internal/skeleton"
)

func newBuilder(t *testing.T, m *morphology.Morphology, opts skeleton.Options, extra ...skeleton.BuilderOption) *skeleton.Builder {
	t.Helper()
	b, err := skeleton.NewBuilder(m, opts, extra...)
	require.NoError(t, err)
	return b
}

func TestMaterialAlternation(t *testing.T) {
	m := &morphology.Morphology{Label: "line"}
	m.AddArbor(morphtest.Line(morphology.TypeApicalDendrite, 6, 1))

	b := newBuilder(t, m, skeleton.DefaultOptions())
	b.CreateMaterials()
	require.NoError(t, b.DrawArborsAsSingleObject())

	objs := b.Objects()
	require.Len(t, objs, 1)
	var materials []int
	var names []string
	for _, pl := range objs[0].PolyLines {
		materials = append(materials, pl.MaterialIndex)
		names = append(names, pl.Name)
	}
	assert.Equal(t, []int{2, 3, 2, 3, 2}, materials)
	assert.Equal(t, []string{"Apical_1_0", "Apical_1_1", "Apical_1_2", "Apical_1_3", "Apical_1_4"}, names)
}

func TestConstructTreePolyLinesPrunesAtMaxOrder(t *testing.T) {
	root := morphtest.Balanced(morphology.TypeBasalDendrite, 3)

	var orders []int
	b := newBuilder(t, &morphology.Morphology{}, skeleton.DefaultOptions(),
		skeleton.WithVisitHook(func(_ *morphology.Section, order int) { orders = append(orders, order) }))

	// The order-2 children are entered and rejected; nothing deeper is reached.
	var lines []skeleton.PolyLine
	b.ConstructTreePolyLines(root, &lines, 0, 1, skeleton.BasalPrefix, skeleton.MaterialBasalStart)
	assert.Equal(t, []int{1, 2, 2}, orders)
	require.Len(t, lines, 1)
	assert.Equal(t, "Basal_1_0", lines[0].Name)

	orders = nil
	lines = nil
	b.ConstructTreePolyLines(root, &lines, 0, 2, skeleton.BasalPrefix, skeleton.MaterialBasalStart)
	assert.Equal(t, []int{1, 2, 3, 3, 2, 3, 3}, orders)
	assert.Len(t, lines, 3)

	orders = nil
	lines = nil
	b.ConstructTreePolyLines(root, &lines, 0, skeleton.Unlimited, skeleton.BasalPrefix, skeleton.MaterialBasalStart)
	assert.Len(t, orders, 7)
	assert.Len(t, lines, 7)
	assert.Equal(t, "Basal_3_0", lines[len(lines)-1].Name)

	orders = nil
	b.ConstructTreePolyLines(nil, &lines, 0, skeleton.Unlimited, skeleton.BasalPrefix, 0)
	assert.Empty(t, orders)
}

func TestPrefixPropagatesToChildren(t *testing.T) {
	m := &morphology.Morphology{}
	m.AddArbor(morphtest.Balanced(morphology.TypeAxon, 2))

	b := newBuilder(t, m, skeleton.DefaultOptions())
	b.CreateMaterials()
	require.NoError(t, b.DrawArborsAsSingleObject())

	for _, pl := range b.Objects()[0].PolyLines {
		assert.Regexp(t, `^Axon_\d_\d$`, pl.Name)
		assert.Contains(t, []int{6, 7}, pl.MaterialIndex)
	}
}

func TestDrawRequiresMaterials(t *testing.T) {
	b := newBuilder(t, morphtest.Neuron(), skeleton.DefaultOptions())
	assert.ErrorIs(t, b.DrawArborsAsSingleObject(), skeleton.ErrNoMaterials)
	assert.ErrorIs(t, b.DrawEachArborAsSingleObject(), skeleton.ErrNoMaterials)
	assert.ErrorIs(t, b.DrawSoma(), skeleton.ErrNoMaterials)
}

func TestCreateMaterialsOnce(t *testing.T) {
	b := newBuilder(t, morphtest.Neuron(), skeleton.DefaultOptions())
	b.CreateMaterials()
	first := b.Materials()
	require.Len(t, first, 8)
	b.CreateMaterials()
	assert.Len(t, b.Materials(), 8)
	assert.Same(t, &first[0], &b.Materials()[0])
	assert.Equal(t, "apical_dendrite_0", first[skeleton.MaterialApicalStart].Name)
	assert.Equal(t, "axon_1", first[skeleton.MaterialAxonStart+1].Name)
}

func TestNewBuilderCopiesMorphology(t *testing.T) {
	m := morphtest.Neuron()
	b := newBuilder(t, m, skeleton.DefaultOptions())

	m.Basal[0].Samples[0].Radius = 99
	m.Axons = nil
	assert.Equal(t, float32(1), b.Morphology().Basal[0].Samples[0].Radius)
	assert.True(t, b.Morphology().HasAxons())
}

func TestBuildModes(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		b := newBuilder(t, morphtest.Neuron(), skeleton.DefaultOptions())
		objs, err := b.Build(skeleton.ModeSingleObject)
		require.NoError(t, err)
		require.Len(t, objs, 3)
		assert.Equal(t, skeleton.KindBevel, objs[0].Kind)
		assert.Equal(t, skeleton.KindSkeleton, objs[1].Kind)
		assert.Equal(t, "fixture", objs[1].Name)
		assert.Len(t, objs[1].PolyLines, 12)
		assert.Equal(t, skeleton.KindSoma, objs[2].Kind)
	})

	t.Run("per arbor", func(t *testing.T) {
		b := newBuilder(t, morphtest.Neuron(), skeleton.DefaultOptions())
		objs, err := b.Build(skeleton.ModePerArbor)
		require.NoError(t, err)
		var names []string
		for _, o := range objs {
			if o.Kind == skeleton.KindSkeleton {
				names = append(names, o.Name)
			}
		}
		assert.Equal(t, []string{"apical_dendrite_0", "axon_0", "basal_dendrite_0", "basal_dendrite_1"}, names)
	})
}

func TestBuildOnlyOnce(t *testing.T) {
	b := newBuilder(t, morphtest.Neuron(), skeleton.DefaultOptions())
	_, err := b.Build(skeleton.ModeSingleObject)
	require.NoError(t, err)
	_, err = b.Build(skeleton.ModeSingleObject)
	assert.ErrorIs(t, err, skeleton.ErrAlreadyBuilt)
}

func TestBuildRejectsUnsupportedMethod(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.Method = skeleton.MethodProgressive
	b := newBuilder(t, morphtest.Neuron(), opts)
	_, err := b.Build(skeleton.ModeSingleObject)
	assert.ErrorIs(t, err, skeleton.ErrUnsupportedMethod)
}

func TestBuildHonoursIgnoreAndCutoffs(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.IgnoreAxons = true
	opts.IgnoreApicalDendrites = true
	opts.BasalDendritesBranchOrder = 1

	b := newBuilder(t, morphtest.Neuron(), opts)
	objs, err := b.Build(skeleton.ModeSingleObject)
	require.NoError(t, err)

	lines := objs[1].PolyLines
	require.Len(t, lines, 2)
	for _, pl := range lines {
		assert.Equal(t, "Basal_1_0", pl.Name)
	}
}

func TestBuildAppliesRadiiAndResampling(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.Method = skeleton.MethodDisconnectedSections
	opts.Radii = morphology.RadiiOptions{Method: morphology.RadiiScaled, ScaleFactor: 2}
	opts.Resampling = morphology.ResampleOptions{Method: morphology.ResampleFixedStep, Step: 0.25}
	opts.Soma.Ignore = true

	m := &morphology.Morphology{}
	m.AddArbor(morphtest.Line(morphology.TypeAxon, 2, 1))

	b := newBuilder(t, m, opts)
	objs, err := b.Build(skeleton.ModeSingleObject)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	lines := objs[1].PolyLines
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Samples, 5)
	for _, p := range lines[0].Samples {
		assert.InDelta(t, 2, p.Radius, 1e-6)
	}
	assert.Equal(t, float32(1), m.Axons[0].Samples[0].Radius)
}

func TestTransformToGlobalCoordinates(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.Soma.Ignore = true
	opts.Transform = skeleton.TransformOptions{
		Translation: math32.Vec3(10, 0, 0),
		Rotation:    math32.Vec3(0, 0, 90),
		Scale:       2,
	}

	m := &morphology.Morphology{}
	m.AddArbor(morphtest.Line(morphology.TypeAxon, 2, 1))

	b := newBuilder(t, m, opts)
	objs, err := b.Build(skeleton.ModeSingleObject)
	require.NoError(t, err)

	end := objs[1].PolyLines[0].Samples[1]
	assert.InDelta(t, 10, end.Position.X, 1e-4)
	assert.InDelta(t, 2, end.Position.Y, 1e-4)
	assert.InDelta(t, 0, end.Position.Z, 1e-4)
	assert.InDelta(t, 2, end.Radius, 1e-6)

	bevel := objs[0].PolyLines[0].Samples[0]
	assert.InDelta(t, 1, bevel.Position.X, 1e-6)
}

func TestDrawSomaRing(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.Soma.Segments = 8
	opts.Soma.RadiusScaleFactor = 0.5

	m := &morphology.Morphology{Label: "n", Soma: &morphology.Soma{Centroid: math32.Vec3(1, 1, 1), MeanRadius: 4}}
	b := newBuilder(t, m, opts)
	b.CreateMaterials()
	require.NoError(t, b.DrawSoma())

	objs := b.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, "n_soma", objs[0].Name)
	ring := objs[0].PolyLines[0]
	require.Len(t, ring.Samples, 9)
	assert.Equal(t, ring.Samples[0], ring.Samples[8])
	assert.Equal(t, skeleton.MaterialSomaStart, ring.MaterialIndex)
	for _, p := range ring.Samples {
		assert.InDelta(t, 2, p.Position.DistanceTo(math32.Vec3(1, 1, 1)), 1e-5)
	}
}

func TestZeroOptionsStillDrawSoma(t *testing.T) {
	m := &morphology.Morphology{Label: "n", Soma: &morphology.Soma{MeanRadius: 3}}
	b := newBuilder(t, m, skeleton.Options{})
	b.CreateMaterials()
	require.NoError(t, b.DrawSoma())

	objs := b.Objects()
	require.Len(t, objs, 1)
	assert.Len(t, objs[0].PolyLines[0].Samples, skeleton.DefaultSomaSegments+1)
}

func TestObjectsCarryBranching(t *testing.T) {
	opts := skeleton.DefaultOptions()
	opts.Branching = skeleton.BranchingRadii
	b := newBuilder(t, morphtest.Neuron(), opts)
	objs, err := b.Build(skeleton.ModePerArbor)
	require.NoError(t, err)
	for _, o := range objs {
		if o.Kind == skeleton.KindBevel {
			continue
		}
		assert.Equal(t, skeleton.BranchingRadii, o.Branching, o.Name)
	}
}

func TestDrawSomaUsesProfile(t *testing.T) {
	profile := []math32.Vector3{math32.Vec3(1, 0, 0), math32.Vec3(0, 1, 0), math32.Vec3(-1, 0, 0)}
	m := &morphology.Morphology{Soma: &morphology.Soma{Profile: profile}}

	b := newBuilder(t, m, skeleton.DefaultOptions())
	b.CreateMaterials()
	require.NoError(t, b.DrawSoma())
	assert.Len(t, b.Objects()[0].PolyLines[0].Samples, 4)
}
