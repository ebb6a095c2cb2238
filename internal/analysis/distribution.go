package analysis

import "github.com/starford/morphovis/internal/morphology"

// Distribution is a per-location measurement: instead of one number per
// morphology it yields one annotated Data value per segment, section or
// sample, so values can be plotted against branching order or distance.
type Distribution struct {
	Variable    string   `json:"variable"`
	Name        string   `json:"name"`
	Data        DataFunc `json:"-"`
	Description string   `json:"description"`
	Unit        Unit     `json:"unit"`
}

// DistributionResult is a distribution evaluated on one morphology, values
// ordered apical, axon, basal.
type DistributionResult struct {
	Variable string `json:"variable"`
	Name     string `json:"name"`
	Unit     Unit   `json:"unit"`
	Values   []Data `json:"values"`
}

// Evaluate runs the distribution over every arbor of m.
func (d Distribution) Evaluate(m *morphology.Morphology) DistributionResult {
	values := InvokeData(m, d.Data)
	if values == nil {
		values = []Data{}
	}
	return DistributionResult{Variable: d.Variable, Name: d.Name, Unit: d.Unit, Values: values}
}

var distributions = []Distribution{
	{"SegmentLength", "Segment Length", SegmentLengths, "Length of every segment", UnitLength},
	{"SectionLength", "Section Length", SectionLengths, "Length of every section", UnitLength},
	{"SampleRadius", "Sample Radius", SampleRadii, "Radius of every sample", UnitLength},
}

// Distributions lists the available distributions.
func Distributions() []Distribution {
	out := make([]Distribution, len(distributions))
	copy(out, distributions)
	return out
}

// LookupDistribution finds a distribution by variable name.
func LookupDistribution(variable string) (Distribution, bool) {
	for _, d := range distributions {
		if d.Variable == variable {
			return d, true
		}
	}
	return Distribution{}, false
}
