package analysis_test

import (
	"math"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/morphology/morphtest"
)

func TestTotalSamplesMatchesFlatEnumeration(t *testing.T) {
	for depth := 1; depth <= 5; depth++ {
		root := morphtest.Balanced(morphology.TypeAxon, depth)

		flat := 0
		for _, s := range morphology.Sections(root) {
			flat += len(s.Samples)
		}
		assert.Equal(t, float64(flat), analysis.TotalSamples(root), "depth %d", depth)
	}
}

func TestSampleCounts(t *testing.T) {
	var b morphtest.Builder
	root := b.Section(morphology.TypeAxon, 1, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0), math32.Vec3(2, 0, 0), math32.Vec3(3, 0, 0))
	b.Child(root, math32.Vec3(1, 0, 0))

	assert.Equal(t, 6.0, analysis.TotalSamples(root))
	assert.Equal(t, 2.0, analysis.MinSamplesPerSection(root))
	assert.Equal(t, 4.0, analysis.MaxSamplesPerSection(root))
	assert.Equal(t, 3.0, analysis.AvgSamplesPerSection(root))

	root.Samples[1].Radius = 0
	assert.Equal(t, 1.0, analysis.ZeroRadiusSamples(root))
}

func TestLengthKernels(t *testing.T) {
	root := morphtest.Line(morphology.TypeBasalDendrite, 3, 5)
	assert.InDelta(t, 10.0, analysis.TotalLength(root), 1e-6)

	tree := morphtest.Balanced(morphology.TypeBasalDendrite, 2)
	assert.InDelta(t, 1.0, analysis.MinSectionLength(tree), 1e-6)
	assert.InDelta(t, math.Sqrt2, analysis.MaxSectionLength(tree), 1e-6)
	assert.InDelta(t, (1+2*math.Sqrt2)/3, analysis.AvgSectionLength(tree), 1e-6)
}

func TestAbsentArborIsNeutral(t *testing.T) {
	for name, fn := range map[string]analysis.ArborFunc{
		"total length":     analysis.TotalLength,
		"avg length":       analysis.AvgSectionLength,
		"min radius":       analysis.MinSampleRadius,
		"avg daughter":     analysis.AvgDaughterRatio,
		"max asymmetry":    analysis.MaxPartitionAsymmetry,
		"sections":         analysis.NumberOfSections,
		"surface area":     analysis.TotalSurfaceArea,
		"first to soma":    analysis.FirstSampleDistanceToSoma(math32.Vector3{}),
		"parent daughter":  analysis.MinParentDaughterRatio,
		"samples/section":  analysis.AvgSamplesPerSection,
		"branching order":  analysis.MaxBranchingOrder,
		"terminal tips":    analysis.NumberOfTerminalTips,
		"bifurcations":     analysis.NumberOfBifurcations,
		"zero radius":      analysis.ZeroRadiusSamples,
		"volume":           analysis.TotalVolume,
		"max section area": analysis.MaxSectionSurfaceArea,
	} {
		assert.Zero(t, fn(nil), name)
	}
}

func TestSurfaceAreaAndVolume(t *testing.T) {
	var b morphtest.Builder
	root := b.Section(morphology.TypeAxon, 1, math32.Vec3(0, 0, 0), math32.Vec3(0, 0, 2))
	root.Samples[1].Radius = 3

	assert.InDelta(t, math.Pi*4*2, analysis.TotalSurfaceArea(root), 1e-5)
	assert.InDelta(t, math.Pi*2/3*(1+3+9), analysis.TotalVolume(root), 1e-5)
}

func TestRadiusKernels(t *testing.T) {
	var b morphtest.Builder
	root := b.Section(morphology.TypeAxon, 1, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0), math32.Vec3(2, 0, 0))
	root.Samples[0].Radius = 3
	root.Samples[2].Radius = 2

	assert.InDelta(t, 1.0, analysis.MinSampleRadius(root), 1e-6)
	assert.InDelta(t, 3.0, analysis.MaxSampleRadius(root), 1e-6)
	assert.InDelta(t, 2.0, analysis.AvgSampleRadius(root), 1e-6)
}

func TestTopologyKernels(t *testing.T) {
	root := morphtest.Balanced(morphology.TypeApicalDendrite, 3)
	assert.Equal(t, 7.0, analysis.NumberOfSections(root))
	assert.Equal(t, 3.0, analysis.NumberOfBifurcations(root))
	assert.Equal(t, 4.0, analysis.NumberOfTerminalTips(root))
	assert.Equal(t, 3.0, analysis.MaxBranchingOrder(root))
}

func TestPartitionAsymmetry(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		root := morphtest.Balanced(morphology.TypeBasalDendrite, 4)
		assert.Zero(t, analysis.MaxPartitionAsymmetry(root))
		assert.Zero(t, analysis.AvgPartitionAsymmetry(root))
	})

	t.Run("imbalanced", func(t *testing.T) {
		root := morphtest.Caterpillar(morphology.TypeBasalDendrite, 6)
		assert.InDelta(t, 1.0, analysis.MaxPartitionAsymmetry(root), 1e-9)
	})

	t.Run("unbranched", func(t *testing.T) {
		root := morphtest.Line(morphology.TypeBasalDendrite, 4, 1)
		assert.Zero(t, analysis.MinPartitionAsymmetry(root))
	})
}

func TestDaughterRatios(t *testing.T) {
	var b morphtest.Builder
	root := b.Section(morphology.TypeBasalDendrite, 4, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0))
	thick := b.Child(root, math32.Vec3(1, 1, 0))
	thin := b.Child(root, math32.Vec3(1, -1, 0))
	thick.Samples[0].Radius = 2
	thin.Samples[0].Radius = 1

	assert.InDelta(t, 0.5, analysis.MinDaughterRatio(root), 1e-9)
	assert.InDelta(t, 0.5, analysis.MaxDaughterRatio(root), 1e-9)
	// parent end radius 4: children give 2/4 and 1/4
	assert.InDelta(t, 0.25, analysis.MinParentDaughterRatio(root), 1e-9)
	assert.InDelta(t, 0.5, analysis.MaxParentDaughterRatio(root), 1e-9)
	assert.InDelta(t, 0.375, analysis.AvgParentDaughterRatio(root), 1e-9)

	unbranched := morphtest.Line(morphology.TypeBasalDendrite, 3, 1)
	assert.Zero(t, analysis.MinDaughterRatio(unbranched))
	assert.Zero(t, analysis.AvgParentDaughterRatio(unbranched))
}

func TestRatioKernelsIgnoreUnbranchedArbors(t *testing.T) {
	var b morphtest.Builder
	branched := b.Section(morphology.TypeBasalDendrite, 2, math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0))
	left := b.Child(branched, math32.Vec3(1, 1, 0))
	b.Child(branched, math32.Vec3(1, -1, 0))
	left.Samples[0].Radius = 1

	m := &morphology.Morphology{}
	m.AddArbor(branched)
	m.AddArbor(morphtest.Line(morphology.TypeBasalDendrite, 3, 1))

	assert.InDelta(t, 0.5, analysis.MinimumDaughterRatio.Evaluate(m), 1e-9)
	assert.InDelta(t, 0.5, analysis.AverageDaughterRatio.Evaluate(m), 1e-9)
}

func TestFirstSampleToSoma(t *testing.T) {
	var b morphtest.Builder
	m := &morphology.Morphology{Soma: &morphology.Soma{Centroid: math32.Vec3(0, 0, 0)}}
	m.AddArbor(b.Section(morphology.TypeAxon, 1, math32.Vec3(3, 4, 0), math32.Vec3(6, 8, 0)))
	m.AddArbor(b.Section(morphology.TypeBasalDendrite, 1, math32.Vec3(0, 2, 0), math32.Vec3(0, 5, 0)))

	assert.InDelta(t, 2.0, analysis.FirstSampleToSoma.Evaluate(m), 1e-6)
	require.Zero(t, analysis.FirstSampleToSoma.Evaluate(nil))
}

func TestSegmentLengthsAnnotations(t *testing.T) {
	root := morphtest.Balanced(morphology.TypeAxon, 2)
	data := analysis.SegmentLengths(root)
	require.Len(t, data, 3)
	assert.Equal(t, 1, data[0].BranchingOrder)
	assert.Equal(t, 2, data[1].BranchingOrder)
	assert.InDelta(t, math.Sqrt2, data[1].Value, 1e-6)
	assert.InDelta(t, math.Sqrt(5), data[2].RadialDistance, 1e-6)
}
