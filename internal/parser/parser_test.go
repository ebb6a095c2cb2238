package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/morphovis/internal/morphology"
)

const smallNeuron = `# small test neuron
# source: hand written

1 1 0 0 0 2 -1
2 3 2 0 0 1 1
3 3 4 0 0 1 2
4 3 5 1 0 0.5 3
5 3 5 -1 0 0.5 3
6 2 -2 0 0 1 1
7 2 -4 0 0 1 6
`

func TestParse_SmallNeuron(t *testing.T) {
	r, err := Parse([]byte(smallNeuron), "small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := r.Morphology
	if m.Label != "small" {
		t.Errorf("label = %q, want %q", m.Label, "small")
	}
	if r.Samples != 7 {
		t.Errorf("samples = %d, want 7", r.Samples)
	}
	if len(r.Comments) != 2 || r.Comments[0] != "small test neuron" {
		t.Errorf("comments = %v", r.Comments)
	}
	if len(m.Axons) != 1 || len(m.Basal) != 1 || len(m.Apical) != 0 {
		t.Fatalf("arbors: apical=%d axons=%d basal=%d", len(m.Apical), len(m.Axons), len(m.Basal))
	}
	if err := m.Validate(); err != nil {
		t.Errorf("parsed tree should validate: %v", err)
	}
}

func TestParse_Soma(t *testing.T) {
	r, err := Parse([]byte(smallNeuron), "small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := r.Morphology.Soma
	if s == nil {
		t.Fatal("expected soma")
	}
	if s.MeanRadius != 2 || s.SmallestRadius != 2 || s.LargestRadius != 2 {
		t.Errorf("soma radii = %v/%v/%v, want 2", s.MeanRadius, s.SmallestRadius, s.LargestRadius)
	}
	if s.Profile != nil {
		t.Errorf("single point soma should have no profile, got %v", s.Profile)
	}
}

func TestParse_ThreePointSoma(t *testing.T) {
	input := "1 1 0 0 0 3 -1\n2 1 0 3 0 3 1\n3 1 0 -3 0 3 1\n4 2 3 0 0 1 1\n5 2 6 0 0 1 4\n"
	r, err := Parse([]byte(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := r.Morphology.Soma
	if s.MeanRadius != 3 {
		t.Errorf("mean radius = %v, want 3", s.MeanRadius)
	}
	if len(s.Profile) != 3 {
		t.Errorf("profile = %d points, want 3", len(s.Profile))
	}
}

func TestParse_BranchPointDuplicated(t *testing.T) {
	r, err := Parse([]byte(smallNeuron), "small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := r.Morphology.Basal[0]
	if len(root.Samples) != 2 || len(root.Children) != 2 {
		t.Fatalf("root: %d samples, %d children", len(root.Samples), len(root.Children))
	}
	last := root.LastSample()
	seen := map[int]bool{}
	for _, child := range root.Children {
		first := child.FirstSample()
		if first.Point != last.Point || first.Radius != last.Radius {
			t.Errorf("child starts at %v, want %v", first.Point, last.Point)
		}
		if first.ID == last.ID || seen[first.ID] {
			t.Errorf("junction copy reuses id %d", first.ID)
		}
		seen[first.ID] = true
	}
}

func TestParse_SectionIDsPreOrder(t *testing.T) {
	r, err := Parse([]byte(smallNeuron), "small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []int
	for _, root := range r.Morphology.Arbors() {
		morphology.Walk(root, func(s *morphology.Section, _ int) bool {
			ids = append(ids, s.ID)
			for _, sample := range s.Samples {
				if sample.SectionID != s.ID {
					t.Errorf("sample %d section = %d, want %d", sample.ID, sample.SectionID, s.ID)
				}
			}
			return true
		})
	}
	want := []int{0, 1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestParse_RootBranchingImmediately(t *testing.T) {
	input := "1 3 0 0 0 1 -1\n2 3 1 0 0 1 1\n3 3 0 1 0 1 1\n"
	r, err := Parse([]byte(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Morphology.Basal) != 2 {
		t.Fatalf("basal arbors = %d, want 2", len(r.Morphology.Basal))
	}
	for _, root := range r.Morphology.Basal {
		if len(root.Samples) != 2 {
			t.Errorf("arbor has %d samples, want 2", len(root.Samples))
		}
	}
}

func TestParse_SkipsUnknownTypes(t *testing.T) {
	input := "1 1 0 0 0 1 -1\n2 7 1 0 0 1 1\n3 7 2 0 0 1 2\n4 2 -1 0 0 1 1\n5 2 -2 0 0 1 4\n"
	r, err := Parse([]byte(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", r.Skipped)
	}
	if len(r.Morphology.Axons) != 1 {
		t.Errorf("axons = %d, want 1", len(r.Morphology.Axons))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "# nothing\n", ErrTooFewSamples},
		{"single", "1 1 0 0 0 1 -1\n", ErrTooFewSamples},
		{"short line", "1 1 0 0 0 1\n2 3 1 0 0 1 1\n", ErrSyntax},
		{"bad number", "1 1 0 x 0 1 -1\n2 3 1 0 0 1 1\n", ErrSyntax},
		{"nan radius", "1 1 0 0 0 1 -1\n2 3 1 0 0 NaN 1\n", ErrSyntax},
		{"inf coordinate", "1 1 0 0 0 1 -1\n2 3 +Inf 0 0 1 1\n", ErrSyntax},
		{"negative inf", "1 1 -inf 0 0 1 -1\n2 3 1 0 0 1 1\n", ErrSyntax},
		{"duplicate", "1 1 0 0 0 1 -1\n1 3 1 0 0 1 1\n", ErrDuplicateSample},
		{"unknown parent", "1 1 0 0 0 1 -1\n2 3 1 0 0 1 9\n", ErrUnknownParent},
		{"no root", "1 3 0 0 0 1 2\n2 3 1 0 0 1 1\n", ErrNoRoot},
		{"cycle", "1 1 0 0 0 1 -1\n2 3 1 0 0 1 3\n3 3 2 0 0 1 2\n", ErrUnreachable},
	}
	for _, tc := range tests {
		_, err := Parse([]byte(tc.input), "")
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestParse_ErrorMentionsLine(t *testing.T) {
	_, err := Parse([]byte("1 1 0 0 0 1 -1\n\n2 3 1 0 z 1 1\n"), "")
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("err = %v, want line 3", err)
	}
}

func TestParse_NonFiniteMentionsLine(t *testing.T) {
	_, err := Parse([]byte("1 1 0 0 0 1 -1\n2 3 1 0 0 NaN 1\n"), "")
	if !errors.Is(err, ErrSyntax) || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want ErrSyntax at line 2", err)
	}
}
