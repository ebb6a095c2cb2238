package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/morphology/morphtest"
)

func TestCombiners(t *testing.T) {
	apical := []float64{3}
	axon := []float64{0, 1}
	basal := []float64{2, 6}

	tests := []struct {
		name    string
		combine analysis.Combiner
		want    float64
	}{
		{"total", analysis.Total, 12},
		{"minimum", analysis.Minimum, 0},
		{"maximum", analysis.Maximum, 6},
		{"average", analysis.Average, 2.4},
		{"minimum ignore zero", analysis.MinimumIgnoreZero, 1},
		{"maximum ignore zero", analysis.MaximumIgnoreZero, 6},
		{"average ignore zero", analysis.AverageIgnoreZero, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.combine(apical, axon, basal), 1e-9)
		})
	}
}

func TestCombinersOnEmptyInput(t *testing.T) {
	for name, combine := range map[string]analysis.Combiner{
		"total":               analysis.Total,
		"minimum":             analysis.Minimum,
		"maximum":             analysis.Maximum,
		"average":             analysis.Average,
		"minimum ignore zero": analysis.MinimumIgnoreZero,
		"average ignore zero": analysis.AverageIgnoreZero,
	} {
		assert.Zero(t, combine(nil, nil, nil), name)
	}
}

func TestIgnoreZeroOnAllZeros(t *testing.T) {
	zeros := []float64{0, 0}
	assert.Zero(t, analysis.MinimumIgnoreZero(zeros, nil, zeros))
	assert.Zero(t, analysis.AverageIgnoreZero(zeros, zeros, nil))
	assert.Zero(t, analysis.MaximumIgnoreZero(nil, zeros, nil))
}

func TestInvokeSkipsMissingTypes(t *testing.T) {
	m := &morphology.Morphology{}
	m.AddArbor(morphtest.Line(morphology.TypeBasalDendrite, 3, 5))

	var seen []*morphology.Section
	perArbor := func(root *morphology.Section) float64 {
		seen = append(seen, root)
		return 1
	}
	var lens [3]int
	got := analysis.Invoke(m, perArbor, func(apical, axon, basal []float64) float64 {
		lens = [3]int{len(apical), len(axon), len(basal)}
		return 7
	})

	assert.Equal(t, 7.0, got)
	assert.Equal(t, [3]int{0, 0, 1}, lens)
	assert.Len(t, seen, 1)
}

func TestInvokeNilMorphology(t *testing.T) {
	assert.Zero(t, analysis.Invoke(nil, analysis.TotalSamples, analysis.Total))
	assert.Nil(t, analysis.InvokeData(nil, analysis.SegmentLengths))
}

func TestInvokePerType(t *testing.T) {
	b := analysis.InvokePerType(morphtest.Neuron(), analysis.NumberOfSections, analysis.Total)
	assert.Equal(t, []float64{3}, b.Apical)
	assert.Equal(t, []float64{3}, b.Axon)
	assert.Equal(t, []float64{3, 3}, b.Basal)
	assert.Equal(t, 12.0, b.Value)
}

func TestInvokeDataOrder(t *testing.T) {
	m := &morphology.Morphology{}
	m.AddArbor(morphtest.Line(morphology.TypeBasalDendrite, 2, 4))
	m.AddArbor(morphtest.Line(morphology.TypeApicalDendrite, 2, 1))

	data := analysis.InvokeData(m, analysis.SegmentLengths)
	assert.Equal(t, []analysis.Data{
		{Value: 1, BranchingOrder: 1, RadialDistance: 1},
		{Value: 4, BranchingOrder: 1, RadialDistance: 4},
	}, data)
}
