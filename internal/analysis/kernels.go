package analysis

import (
	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

// Kernel reduces a whole morphology to one number.
type Kernel interface {
	Evaluate(m *morphology.Morphology) float64
}

// KernelFunc adapts a plain function to Kernel.
type KernelFunc func(m *morphology.Morphology) float64

// Evaluate calls f(m).
func (f KernelFunc) Evaluate(m *morphology.Morphology) float64 { return f(m) }

// Reduction is the common kernel shape: a per-arbor function and a combiner.
type Reduction struct {
	Arbor   ArborFunc
	Combine Combiner
}

// Evaluate runs Invoke with the reduction's functions.
func (r Reduction) Evaluate(m *morphology.Morphology) float64 {
	return Invoke(m, r.Arbor, r.Combine)
}

// Breakdown runs InvokePerType with the reduction's functions.
func (r Reduction) Breakdown(m *morphology.Morphology) Breakdown {
	return InvokePerType(m, r.Arbor, r.Combine)
}

// Morphology-level kernels. Ratio kernels drop zeros where an unbranched arbor
// would otherwise win the minimum or drag down the average.
var (
	TotalNumberSamples         = Reduction{TotalSamples, Total}
	MinNumberSamplesPerSection = Reduction{MinSamplesPerSection, Minimum}
	MaxNumberSamplesPerSection = Reduction{MaxSamplesPerSection, Maximum}
	AvgNumberSamplesPerSection = Reduction{AvgSamplesPerSection, Average}
	NumberZeroRadiusSamples    = Reduction{ZeroRadiusSamples, Total}

	TotalArborLength     = Reduction{TotalLength, Total}
	ShortestSection      = Reduction{MinSectionLength, Minimum}
	LongestSection       = Reduction{MaxSectionLength, Maximum}
	AverageSectionLength = Reduction{AvgSectionLength, Average}

	TotalArborSurfaceArea = Reduction{TotalSurfaceArea, Total}
	SmallestSectionArea   = Reduction{MinSectionSurfaceArea, Minimum}
	LargestSectionArea    = Reduction{MaxSectionSurfaceArea, Maximum}
	AverageSectionArea    = Reduction{AvgSectionSurfaceArea, Average}
	TotalArborVolume      = Reduction{TotalVolume, Total}

	MinimumSampleRadius = Reduction{MinSampleRadius, Minimum}
	MaximumSampleRadius = Reduction{MaxSampleRadius, Maximum}
	AverageSampleRadius = Reduction{AvgSampleRadius, Average}

	TotalSections         = Reduction{NumberOfSections, Total}
	TotalBifurcations     = Reduction{NumberOfBifurcations, Total}
	TotalTerminalTips     = Reduction{NumberOfTerminalTips, Total}
	DeepestBranchingOrder = Reduction{MaxBranchingOrder, Maximum}

	MinimumDaughterRatio = Reduction{MinDaughterRatio, MinimumIgnoreZero}
	MaximumDaughterRatio = Reduction{MaxDaughterRatio, Maximum}
	AverageDaughterRatio = Reduction{AvgDaughterRatio, AverageIgnoreZero}

	MinimumParentDaughterRatio = Reduction{MinParentDaughterRatio, MinimumIgnoreZero}
	MaximumParentDaughterRatio = Reduction{MaxParentDaughterRatio, Maximum}
	AverageParentDaughterRatio = Reduction{AvgParentDaughterRatio, AverageIgnoreZero}

	MinimumPartitionAsymmetry = Reduction{MinPartitionAsymmetry, Minimum}
	MaximumPartitionAsymmetry = Reduction{MaxPartitionAsymmetry, Maximum}
	AveragePartitionAsymmetry = Reduction{AvgPartitionAsymmetry, Average}
)

// FirstSampleToSoma is the smallest distance between an arbor's first sample
// and the soma centroid. Morphologies without a soma measure from the origin.
var FirstSampleToSoma = KernelFunc(func(m *morphology.Morphology) float64 {
	if m == nil {
		return 0
	}
	var centroid math32.Vector3
	if m.Soma != nil {
		centroid = m.Soma.Centroid
	}
	return Invoke(m, FirstSampleDistanceToSoma(centroid), Minimum)
})
