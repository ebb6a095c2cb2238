package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/starford/morphovis/internal/morphology"
)

// ErrDuplicateVariable is returned when two catalog items share a variable name.
var ErrDuplicateVariable = errors.New("duplicate kernel variable")

// DataFormat is the declared result type of a kernel.
type DataFormat int

const (
	FormatFloat DataFormat = iota
	FormatInt
)

func (f DataFormat) String() string {
	if f == FormatInt {
		return "INT"
	}
	return "FLOAT"
}

// MarshalText implements encoding.TextMarshaler.
func (f DataFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Unit is the physical unit of a kernel result.
type Unit int

const (
	UnitNone Unit = iota
	UnitLength
	UnitArea
	UnitVolume
)

// Symbol returns the unit suffix used in reports.
func (u Unit) Symbol() string {
	switch u {
	case UnitLength:
		return "μm"
	case UnitArea:
		return "μm²"
	case UnitVolume:
		return "μm³"
	default:
		return ""
	}
}

func (u Unit) String() string {
	switch u {
	case UnitLength:
		return "LENGTH"
	case UnitArea:
		return "AREA"
	case UnitVolume:
		return "VOLUME"
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// Item registers one kernel with its reporting metadata.
type Item struct {
	Variable    string     `json:"variable"`
	Name        string     `json:"name"`
	Kernel      Kernel     `json:"-"`
	Description string     `json:"description"`
	Format      DataFormat `json:"format"`
	Unit        Unit       `json:"unit"`
}

// Catalog is an ordered, immutable set of items keyed by variable name.
type Catalog struct {
	items []Item
	index map[string]int
}

// NewCatalog builds a catalog, rejecting empty or repeated variable names.
func NewCatalog(items ...Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if it.Variable == "" || it.Kernel == nil {
			return nil, fmt.Errorf("analysis: catalog: item %q needs a variable and a kernel", it.Name)
		}
		if _, ok := c.index[it.Variable]; ok {
			return nil, fmt.Errorf("analysis: catalog: %q: %w", it.Variable, ErrDuplicateVariable)
		}
		c.index[it.Variable] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Items returns the items in registration order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of registered items.
func (c *Catalog) Len() int { return len(c.items) }

// Lookup finds an item by variable name.
func (c *Catalog) Lookup(variable string) (Item, bool) {
	i, ok := c.index[variable]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Result is the outcome of one item on one morphology.
type Result struct {
	Variable  string     `json:"variable"`
	Name      string     `json:"name"`
	Value     float64    `json:"value"`
	Format    DataFormat `json:"format"`
	Unit      Unit       `json:"unit"`
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}

// FormatValue renders Value according to Format, without the unit.
func (r Result) FormatValue() string {
	if r.Format == FormatInt {
		return strconv.FormatFloat(math.Round(r.Value), 'f', 0, 64)
	}
	return strconv.FormatFloat(r.Value, 'f', 3, 64)
}

// String renders "<name>: <value> <unit>".
func (r Result) String() string {
	s := r.Name + ": " + r.FormatValue()
	if sym := r.Unit.Symbol(); sym != "" {
		s += " " + sym
	}
	return s
}

// Report collects the results of a catalog run.
type Report struct {
	Label   string   `json:"label"`
	Results []Result `json:"results"`
}

// Value returns the result value for variable.
func (r Report) Value(variable string) (float64, bool) {
	for _, res := range r.Results {
		if res.Variable == variable {
			return res.Value, true
		}
	}
	return 0, false
}

func (r Report) String() string {
	var b strings.Builder
	if r.Label != "" {
		b.WriteString(r.Label)
		b.WriteByte('\n')
	}
	for _, res := range r.Results {
		b.WriteString(res.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Evaluate runs one item on m. Reductions also report their per-arbor values.
func (it Item) Evaluate(m *morphology.Morphology) Result {
	res := Result{
		Variable: it.Variable,
		Name:     it.Name,
		Format:   it.Format,
		Unit:     it.Unit,
	}
	if r, ok := it.Kernel.(Reduction); ok {
		b := r.Breakdown(m)
		res.Value = b.Value
		res.Breakdown = &b
		return res
	}
	res.Value = it.Kernel.Evaluate(m)
	return res
}

// Run evaluates every item on m in registration order.
func (c *Catalog) Run(m *morphology.Morphology) Report {
	rep := Report{Results: make([]Result, 0, len(c.items))}
	if m != nil {
		rep.Label = m.Label
	}
	for _, it := range c.items {
		rep.Results = append(rep.Results, it.Evaluate(m))
	}
	return rep
}

// DefaultCatalog returns every built-in kernel.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultItems()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultItems() []Item {
	return []Item{
		{"TotalNumberSamples", "Total # of Samples", TotalNumberSamples, "The total number of samples", FormatInt, UnitNone},
		{"MinNumberSamplePerSection", "Min. # Samples / Section", MinNumberSamplesPerSection, "The least number of samples per section", FormatInt, UnitNone},
		{"MaxNumberSamplePerSection", "Max. # Samples / Section", MaxNumberSamplesPerSection, "The largest number of samples per section", FormatInt, UnitNone},
		{"AvgNumberSamplePerSection", "Avg. # Samples / Section", AvgNumberSamplesPerSection, "The average number of samples per section", FormatInt, UnitNone},
		{"NumberZeroRadiusSamples", "# Zero-radius Samples", NumberZeroRadiusSamples, "The number of samples with zero radius", FormatInt, UnitNone},

		{"TotalLength", "Total Length", TotalArborLength, "Total length", FormatFloat, UnitLength},
		{"MinSectionLength", "Min. Section Length", ShortestSection, "The length of the shortest section", FormatFloat, UnitLength},
		{"MaxSectionLength", "Max. Section Length", LongestSection, "The length of the longest section", FormatFloat, UnitLength},
		{"AvgSectionLength", "Avg. Section Length", AverageSectionLength, "Average section length", FormatFloat, UnitLength},

		{"TotalSurfaceArea", "Total Surface Area", TotalArborSurfaceArea, "Total lateral surface area", FormatFloat, UnitArea},
		{"MinSectionSurfaceArea", "Min. Section Surface Area", SmallestSectionArea, "The surface area of the smallest section", FormatFloat, UnitArea},
		{"MaxSectionSurfaceArea", "Max. Section Surface Area", LargestSectionArea, "The surface area of the largest section", FormatFloat, UnitArea},
		{"AvgSectionSurfaceArea", "Avg. Section Surface Area", AverageSectionArea, "Average section surface area", FormatFloat, UnitArea},
		{"TotalVolume", "Total Volume", TotalArborVolume, "Total volume", FormatFloat, UnitVolume},

		{"MinSampleRadius", "Min. Sample Radius", MinimumSampleRadius, "The smallest sample radius", FormatFloat, UnitLength},
		{"MaxSampleRadius", "Max. Sample Radius", MaximumSampleRadius, "The largest sample radius", FormatFloat, UnitLength},
		{"AvgSampleRadius", "Avg. Sample Radius", AverageSampleRadius, "The average sample radius", FormatFloat, UnitLength},

		{"NumberOfSections", "# Sections", TotalSections, "The number of sections", FormatInt, UnitNone},
		{"NumberOfBifurcations", "# Bifurcations", TotalBifurcations, "The number of branch points", FormatInt, UnitNone},
		{"NumberOfTerminalTips", "# Terminal Tips", TotalTerminalTips, "The number of terminal sections", FormatInt, UnitNone},
		{"MaxBranchingOrder", "Max. Branching Order", DeepestBranchingOrder, "The deepest branching order", FormatInt, UnitNone},

		{"MinDaughterRatio", "Min. Daughter Ratio", MinimumDaughterRatio, "The smallest daughter ratio", FormatFloat, UnitNone},
		{"MaxDaughterRatio", "Max. Daughter Ratio", MaximumDaughterRatio, "The largest daughter ratio", FormatFloat, UnitNone},
		{"AvgDaughterRatio", "Avg. Daughter Ratio", AverageDaughterRatio, "The average daughter ratio", FormatFloat, UnitNone},
		{"MinParentDaughterRatio", "Min. Parent-Daughter Ratio", MinimumParentDaughterRatio, "The smallest parent-daughter ratio", FormatFloat, UnitNone},
		{"MaxParentDaughterRatio", "Max. Parent-Daughter Ratio", MaximumParentDaughterRatio, "The largest parent-daughter ratio", FormatFloat, UnitNone},
		{"AvgParentDaughterRatio", "Avg. Parent-Daughter Ratio", AverageParentDaughterRatio, "The average parent-daughter ratio", FormatFloat, UnitNone},
		{"MinPartitionAsymmetry", "Min. Partition Asymmetry", MinimumPartitionAsymmetry, "The smallest partition asymmetry", FormatFloat, UnitNone},
		{"MaxPartitionAsymmetry", "Max. Partition Asymmetry", MaximumPartitionAsymmetry, "The largest partition asymmetry", FormatFloat, UnitNone},
		{"AvgPartitionAsymmetry", "Avg. Partition Asymmetry", AveragePartitionAsymmetry, "The average partition asymmetry", FormatFloat, UnitNone},

		{"FirstSampleDistanceToSoma", "First Sample Distance to Soma", FirstSampleToSoma, "Distance from the soma to the closest arbor start", FormatFloat, UnitLength},
	}
}
