package analysis

import (
	"math"

	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

// perSection collects one value per section of the arbor.
func perSection(root *morphology.Section, fn func(s *morphology.Section) float64) []float64 {
	var out []float64
	morphology.ApplyToArbor(root, &out, func(s *morphology.Section, acc *[]float64) {
		*acc = append(*acc, fn(s))
	})
	return out
}

// perSample collects one value per sample of the arbor, junction copies included.
func perSample(root *morphology.Section, fn func(sample *morphology.Sample) float64) []float64 {
	var out []float64
	morphology.ApplyToArbor(root, &out, func(s *morphology.Section, acc *[]float64) {
		for _, sample := range s.Samples {
			*acc = append(*acc, fn(sample))
		}
	})
	return out
}

// perBranchPoint collects one value per section with two or more children.
func perBranchPoint(root *morphology.Section, fn func(s *morphology.Section) float64) []float64 {
	var out []float64
	morphology.ApplyToArbor(root, &out, func(s *morphology.Section, acc *[]float64) {
		if s.IsBranchPoint() {
			*acc = append(*acc, fn(s))
		}
	})
	return out
}

func sampleCount(s *morphology.Section) float64 { return float64(len(s.Samples)) }

// TotalSamples counts every sample of the arbor.
func TotalSamples(root *morphology.Section) float64 {
	return sumOf(perSection(root, sampleCount))
}

// MinSamplesPerSection is the sample count of the sparsest section.
func MinSamplesPerSection(root *morphology.Section) float64 {
	return minOf(perSection(root, sampleCount))
}

// MaxSamplesPerSection is the sample count of the densest section.
func MaxSamplesPerSection(root *morphology.Section) float64 {
	return maxOf(perSection(root, sampleCount))
}

// AvgSamplesPerSection is the mean number of samples per section.
func AvgSamplesPerSection(root *morphology.Section) float64 {
	return meanOf(perSection(root, sampleCount))
}

// ZeroRadiusSamples counts samples with a zero radius.
func ZeroRadiusSamples(root *morphology.Section) float64 {
	return sumOf(perSample(root, func(sample *morphology.Sample) float64 {
		if sample.Radius == 0 {
			return 1
		}
		return 0
	}))
}

func sectionLength(s *morphology.Section) float64 { return s.Length() }

// TotalLength sums the lengths of all sections.
func TotalLength(root *morphology.Section) float64 {
	return sumOf(perSection(root, sectionLength))
}

// MinSectionLength is the length of the shortest section.
func MinSectionLength(root *morphology.Section) float64 {
	return minOf(perSection(root, sectionLength))
}

// MaxSectionLength is the length of the longest section.
func MaxSectionLength(root *morphology.Section) float64 {
	return maxOf(perSection(root, sectionLength))
}

// AvgSectionLength is the mean section length.
func AvgSectionLength(root *morphology.Section) float64 {
	return meanOf(perSection(root, sectionLength))
}

// SegmentLengths returns the length of every segment, annotated with the
// branching order of its section and the distance of its distal end from the
// origin.
func SegmentLengths(root *morphology.Section) []Data {
	var out []Data
	morphology.Walk(root, func(s *morphology.Section, order int) bool {
		for i := 0; i+1 < len(s.Samples); i++ {
			a, b := s.Samples[i].Point, s.Samples[i+1].Point
			out = append(out, Data{
				Value:          float64(a.DistanceTo(b)),
				BranchingOrder: order,
				RadialDistance: float64(b.Length()),
			})
		}
		return true
	})
	return out
}

// SectionLengths returns the length of every section, annotated with its
// branching order and the distance of its last sample from the origin.
func SectionLengths(root *morphology.Section) []Data {
	var out []Data
	morphology.Walk(root, func(s *morphology.Section, order int) bool {
		last := s.LastSample()
		if last == nil {
			return true
		}
		out = append(out, Data{
			Value:          s.Length(),
			BranchingOrder: order,
			RadialDistance: float64(last.Point.Length()),
		})
		return true
	})
	return out
}

// SampleRadii returns the radius of every sample. The junction copy at the
// start of a child section is skipped so each location counts once.
func SampleRadii(root *morphology.Section) []Data {
	var out []Data
	morphology.Walk(root, func(s *morphology.Section, order int) bool {
		start := 0
		if order > 1 {
			start = 1
		}
		for _, sample := range s.Samples[min(start, len(s.Samples)):] {
			out = append(out, Data{
				Value:          float64(sample.Radius),
				BranchingOrder: order,
				RadialDistance: float64(sample.Point.Length()),
			})
		}
		return true
	})
	return out
}

// sectionSurfaceArea sums the lateral area of the frustum spanned by each segment.
func sectionSurfaceArea(s *morphology.Section) float64 {
	var area float64
	for i := 0; i+1 < len(s.Samples); i++ {
		a, b := s.Samples[i], s.Samples[i+1]
		length := float64(a.Point.DistanceTo(b.Point))
		area += math.Pi * float64(a.Radius+b.Radius) * length
	}
	return area
}

// TotalSurfaceArea sums the surface area of all sections.
func TotalSurfaceArea(root *morphology.Section) float64 {
	return sumOf(perSection(root, sectionSurfaceArea))
}

// MinSectionSurfaceArea is the surface area of the smallest section.
func MinSectionSurfaceArea(root *morphology.Section) float64 {
	return minOf(perSection(root, sectionSurfaceArea))
}

// MaxSectionSurfaceArea is the surface area of the largest section.
func MaxSectionSurfaceArea(root *morphology.Section) float64 {
	return maxOf(perSection(root, sectionSurfaceArea))
}

// AvgSectionSurfaceArea is the mean section surface area.
func AvgSectionSurfaceArea(root *morphology.Section) float64 {
	return meanOf(perSection(root, sectionSurfaceArea))
}

func sectionVolume(s *morphology.Section) float64 {
	var volume float64
	for i := 0; i+1 < len(s.Samples); i++ {
		a, b := s.Samples[i], s.Samples[i+1]
		length := float64(a.Point.DistanceTo(b.Point))
		r0, r1 := float64(a.Radius), float64(b.Radius)
		volume += math.Pi * length / 3 * (r0*r0 + r0*r1 + r1*r1)
	}
	return volume
}

// TotalVolume sums the frustum volume of every segment.
func TotalVolume(root *morphology.Section) float64 {
	return sumOf(perSection(root, sectionVolume))
}

func sampleRadius(sample *morphology.Sample) float64 { return float64(sample.Radius) }

// MinSampleRadius is the smallest sample radius.
func MinSampleRadius(root *morphology.Section) float64 {
	return minOf(perSample(root, sampleRadius))
}

// MaxSampleRadius is the largest sample radius.
func MaxSampleRadius(root *morphology.Section) float64 {
	return maxOf(perSample(root, sampleRadius))
}

// AvgSampleRadius is the mean sample radius.
func AvgSampleRadius(root *morphology.Section) float64 {
	return meanOf(perSample(root, sampleRadius))
}

// NumberOfSections counts the sections of the arbor.
func NumberOfSections(root *morphology.Section) float64 {
	return float64(morphology.CountSections(root))
}

// NumberOfBifurcations counts sections that end in a branch point.
func NumberOfBifurcations(root *morphology.Section) float64 {
	return float64(len(perBranchPoint(root, func(*morphology.Section) float64 { return 1 })))
}

// NumberOfTerminalTips counts leaf sections.
func NumberOfTerminalTips(root *morphology.Section) float64 {
	return float64(morphology.CountLeaves(root))
}

// MaxBranchingOrder is the deepest branching order reached by the arbor.
func MaxBranchingOrder(root *morphology.Section) float64 {
	return float64(morphology.MaxBranchingOrder(root))
}

// ratio divides the smaller of a and b by the larger, so the result is in (0,1].
// It is 0 when either value is not positive.
func ratio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return min(a, b) / max(a, b)
}

func firstRadius(s *morphology.Section) float64 {
	if first := s.FirstSample(); first != nil {
		return float64(first.Radius)
	}
	return 0
}

// daughterRatio compares the two largest children at a branch point.
func daughterRatio(s *morphology.Section) float64 {
	var large, small float64
	for _, child := range s.Children {
		r := firstRadius(child)
		switch {
		case r > large:
			large, small = r, large
		case r > small:
			small = r
		}
	}
	return ratio(small, large)
}

// parentDaughterRatios compares each child with the end of its parent.
func parentDaughterRatios(s *morphology.Section) []float64 {
	last := s.LastSample()
	if last == nil {
		return nil
	}
	out := make([]float64, 0, len(s.Children))
	for _, child := range s.Children {
		out = append(out, ratio(firstRadius(child), float64(last.Radius)))
	}
	return out
}

func allParentDaughterRatios(root *morphology.Section) []float64 {
	var out []float64
	morphology.ApplyToArbor(root, &out, func(s *morphology.Section, acc *[]float64) {
		if s.IsBranchPoint() {
			*acc = append(*acc, parentDaughterRatios(s)...)
		}
	})
	return out
}

// MinDaughterRatio is the smallest daughter ratio over all branch points.
func MinDaughterRatio(root *morphology.Section) float64 {
	return minOf(nonZero(perBranchPoint(root, daughterRatio)))
}

// MaxDaughterRatio is the largest daughter ratio over all branch points.
func MaxDaughterRatio(root *morphology.Section) float64 {
	return maxOf(perBranchPoint(root, daughterRatio))
}

// AvgDaughterRatio is the mean daughter ratio over all branch points.
func AvgDaughterRatio(root *morphology.Section) float64 {
	return meanOf(nonZero(perBranchPoint(root, daughterRatio)))
}

// MinParentDaughterRatio is the smallest parent-daughter ratio.
func MinParentDaughterRatio(root *morphology.Section) float64 {
	return minOf(nonZero(allParentDaughterRatios(root)))
}

// MaxParentDaughterRatio is the largest parent-daughter ratio.
func MaxParentDaughterRatio(root *morphology.Section) float64 {
	return maxOf(allParentDaughterRatios(root))
}

// AvgParentDaughterRatio is the mean parent-daughter ratio.
func AvgParentDaughterRatio(root *morphology.Section) float64 {
	return meanOf(nonZero(allParentDaughterRatios(root)))
}

// partitionAsymmetry is |nL-nR| / (nL+nR-2) over the leaf counts of the two
// largest child subtrees. Two leaf children give 0.
func partitionAsymmetry(s *morphology.Section) float64 {
	var left, right int
	for _, child := range s.Children {
		n := morphology.CountLeaves(child)
		switch {
		case n > left:
			left, right = n, left
		case n > right:
			right = n
		}
	}
	if left+right <= 2 {
		return 0
	}
	return math.Abs(float64(left-right)) / float64(left+right-2)
}

// MinPartitionAsymmetry is the smallest partition asymmetry over all branch points.
func MinPartitionAsymmetry(root *morphology.Section) float64 {
	return minOf(perBranchPoint(root, partitionAsymmetry))
}

// MaxPartitionAsymmetry is the largest partition asymmetry over all branch points.
func MaxPartitionAsymmetry(root *morphology.Section) float64 {
	return maxOf(perBranchPoint(root, partitionAsymmetry))
}

// AvgPartitionAsymmetry is the mean partition asymmetry over all branch points.
func AvgPartitionAsymmetry(root *morphology.Section) float64 {
	return meanOf(perBranchPoint(root, partitionAsymmetry))
}

// FirstSampleDistanceToSoma returns an ArborFunc measuring how far the first
// sample of an arbor lies from the soma centroid.
func FirstSampleDistanceToSoma(centroid math32.Vector3) ArborFunc {
	return func(root *morphology.Section) float64 {
		if root == nil {
			return 0
		}
		first := root.FirstSample()
		if first == nil {
			return 0
		}
		return float64(first.Point.DistanceTo(centroid))
	}
}
