// Package parser reads SWC morphology files into a morphology tree.
//
// An SWC line holds seven whitespace separated fields:
//
//	id type x y z radius parent
//
// Lines starting with '#' are comments. A parent of -1 marks a root sample.
// Type-1 samples describe the soma; every other root, or every sample attached
// directly to the soma, starts an arbor.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"

	"github.com/starford/morphovis/internal/morphology"
)

var (
	// ErrSyntax is returned for a line that is not a valid SWC record.
	ErrSyntax = errors.New("malformed swc record")

	// ErrDuplicateSample is returned when two records share an id.
	ErrDuplicateSample = errors.New("duplicate sample id")

	// ErrUnknownParent is returned when a record points at an id that does not exist.
	ErrUnknownParent = errors.New("unknown parent sample")

	// ErrNoRoot is returned when no record has parent -1.
	ErrNoRoot = errors.New("no root sample")

	// ErrTooFewSamples is returned for files with fewer than two records.
	ErrTooFewSamples = errors.New("fewer than two samples")

	// ErrUnreachable is returned when some records cannot be reached from a root,
	// which only happens when parents form a cycle.
	ErrUnreachable = errors.New("samples unreachable from any root")
)

const swcSomaCode = 1

// Result holds the output of parsing an SWC file.
type Result struct {
	Morphology *morphology.Morphology
	Comments   []string
	Samples    int
	// Skipped counts samples dropped because their arbor had an unknown type or
	// a single sample.
	Skipped int
}

type record struct {
	id     int
	code   int
	point  math32.Vector3
	radius float32
	parent int
	line   int
}

// Parse reads an SWC document from data. label becomes the morphology label.
func Parse(data []byte, label string) (*Result, error) {
	return ParseReader(bytes.NewReader(data), label)
}

// ParseReader reads an SWC document from r.
func ParseReader(r io.Reader, label string) (*Result, error) {
	records, comments, err := scan(r)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("parser: %w", ErrTooFewSamples)
	}

	t, err := newTree(records)
	if err != nil {
		return nil, err
	}

	m := &morphology.Morphology{Label: label, Soma: t.soma()}
	skipped, err := t.arbors(m)
	if err != nil {
		return nil, err
	}
	numberSections(m)

	return &Result{
		Morphology: m,
		Comments:   comments,
		Samples:    len(records),
		Skipped:    skipped,
	}, nil
}

func scan(r io.Reader) ([]record, []string, error) {
	var (
		records  []record
		comments []string
	)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if c := strings.TrimSpace(strings.TrimPrefix(line, "#")); c != "" {
				comments = append(comments, c)
			}
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			return nil, nil, fmt.Errorf("parser: line %d: %w", lineNo, err)
		}
		rec.line = lineNo
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("parser: read: %w", err)
	}
	return records, comments, nil
}

func parseRecord(line string) (record, error) {
	fields := strings.Fields(line)
	if len(fields) < 7 {
		return record{}, fmt.Errorf("%w: want 7 fields, got %d", ErrSyntax, len(fields))
	}
	var (
		rec  record
		vals [4]float64
		err  error
	)
	if rec.id, err = strconv.Atoi(fields[0]); err != nil {
		return record{}, fmt.Errorf("%w: id %q", ErrSyntax, fields[0])
	}
	if rec.code, err = strconv.Atoi(fields[1]); err != nil {
		return record{}, fmt.Errorf("%w: type %q", ErrSyntax, fields[1])
	}
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(fields[2+i], 32); err != nil {
			return record{}, fmt.Errorf("%w: value %q", ErrSyntax, fields[2+i])
		}
		if math.IsNaN(vals[i]) || math.IsInf(vals[i], 0) {
			return record{}, fmt.Errorf("%w: non-finite value %q", ErrSyntax, fields[2+i])
		}
	}
	if rec.parent, err = strconv.Atoi(fields[6]); err != nil {
		return record{}, fmt.Errorf("%w: parent %q", ErrSyntax, fields[6])
	}
	rec.point = math32.Vec3(float32(vals[0]), float32(vals[1]), float32(vals[2]))
	rec.radius = float32(vals[3])
	return rec, nil
}

type tree struct {
	records  []record
	byID     map[int]int
	children map[int][]int
	roots    []int
	nextID   int
	visited  int
}

func newTree(records []record) (*tree, error) {
	t := &tree{
		records:  records,
		byID:     make(map[int]int, len(records)),
		children: make(map[int][]int),
	}
	for i, rec := range records {
		if _, dup := t.byID[rec.id]; dup {
			return nil, fmt.Errorf("parser: line %d: %w: %d", rec.line, ErrDuplicateSample, rec.id)
		}
		t.byID[rec.id] = i
		t.nextID = max(t.nextID, rec.id+1)
	}
	for i, rec := range records {
		if rec.parent < 0 {
			t.roots = append(t.roots, i)
			continue
		}
		if _, ok := t.byID[rec.parent]; !ok {
			return nil, fmt.Errorf("parser: line %d: %w: %d", rec.line, ErrUnknownParent, rec.parent)
		}
		t.children[rec.parent] = append(t.children[rec.parent], i)
	}
	if len(t.roots) == 0 {
		return nil, fmt.Errorf("parser: %w", ErrNoRoot)
	}
	return t, nil
}

func (t *tree) isSoma(i int) bool { return t.records[i].code == swcSomaCode }

// soma summarizes the type-1 records, or returns nil when there are none.
func (t *tree) soma() *morphology.Soma {
	var points []record
	for _, rec := range t.records {
		if rec.code == swcSomaCode {
			points = append(points, rec)
		}
	}
	if len(points) == 0 {
		return nil
	}

	var centroid math32.Vector3
	for _, p := range points {
		centroid = centroid.Add(p.point)
	}
	centroid = centroid.DivScalar(float32(len(points)))

	radii := make([]float32, 0, len(points))
	if len(points) == 1 {
		radii = append(radii, points[0].radius)
	} else {
		for _, p := range points {
			if d := p.point.DistanceTo(centroid); d > 0 {
				radii = append(radii, d)
			} else {
				radii = append(radii, p.radius)
			}
		}
	}

	s := &morphology.Soma{Centroid: centroid, SmallestRadius: radii[0], LargestRadius: radii[0]}
	var sum float32
	for _, r := range radii {
		sum += r
		s.SmallestRadius = min(s.SmallestRadius, r)
		s.LargestRadius = max(s.LargestRadius, r)
	}
	s.MeanRadius = sum / float32(len(radii))

	if len(points) >= 3 {
		s.Profile = make([]math32.Vector3, len(points))
		for i, p := range points {
			s.Profile[i] = p.point
		}
	}
	return s
}

// arbors attaches every neurite tree to m and returns the number of skipped samples.
func (t *tree) arbors(m *morphology.Morphology) (int, error) {
	skipped := 0
	var start func(i int)
	start = func(i int) {
		if t.isSoma(i) {
			t.visited++
			for _, c := range t.children[t.records[i].id] {
				start(c)
			}
			return
		}
		typ := morphology.SectionTypeFromSWC(t.records[i].code)
		for _, root := range t.rootSections(i, typ) {
			if typ == morphology.TypeUnknown || len(root.Samples) < 2 {
				skipped += countSamples(root)
				continue
			}
			m.AddArbor(root)
		}
	}
	for _, r := range t.roots {
		start(r)
	}
	if t.visited != len(t.records) {
		return 0, fmt.Errorf("parser: %w: %d of %d", ErrUnreachable, len(t.records)-t.visited, len(t.records))
	}
	return skipped, nil
}

// rootSections grows the sections starting at record i. A root that branches
// immediately yields one arbor per child, each starting with a copy of the root.
func (t *tree) rootSections(i int, typ morphology.SectionType) []*morphology.Section {
	kids := t.children[t.records[i].id]
	if len(kids) < 2 {
		return []*morphology.Section{t.section(i, typ, nil)}
	}
	t.visited++
	out := make([]*morphology.Section, 0, len(kids))
	for k, c := range kids {
		out = append(out, t.section(c, typ, t.sample(i, k > 0)))
	}
	return out
}

// section follows the unbranched run starting at record i. junction, when set,
// is prepended as the shared first sample.
func (t *tree) section(i int, typ morphology.SectionType, junction *morphology.Sample) *morphology.Section {
	s := &morphology.Section{Type: typ}
	if junction != nil {
		s.Samples = append(s.Samples, junction)
	}
	for {
		t.visited++
		s.Samples = append(s.Samples, t.sample(i, false))
		kids := t.children[t.records[i].id]
		if len(kids) == 1 {
			i = kids[0]
			continue
		}
		for _, c := range kids {
			s.Children = append(s.Children, t.section(c, typ, t.sample(i, true)))
		}
		return s
	}
}

func (t *tree) sample(i int, copied bool) *morphology.Sample {
	rec := t.records[i]
	id := rec.id
	if copied {
		id = t.nextID
		t.nextID++
	}
	return &morphology.Sample{ID: id, Point: rec.point, Radius: rec.radius}
}

func countSamples(root *morphology.Section) int {
	n := 0
	morphology.Walk(root, func(s *morphology.Section, _ int) bool {
		n += len(s.Samples)
		return true
	})
	return n
}

// numberSections assigns section IDs in pre-order over all arbors.
func numberSections(m *morphology.Morphology) {
	var sections []*morphology.Section
	morphology.ApplyToMorphology(m, &sections, func(s *morphology.Section, acc *[]*morphology.Section) {
		*acc = append(*acc, s)
	})
	for id, s := range sections {
		s.ID = id
		for _, sample := range s.Samples {
			sample.SectionID = id
		}
	}
}
