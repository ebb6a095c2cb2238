package morphology

import (
	"fmt"
	"strings"
)

// ResampleMethod selects how samples are redistributed along each section.
type ResampleMethod int

const (
	ResampleNone ResampleMethod = iota
	// ResampleFixedStep places samples at a constant arc-length step.
	ResampleFixedStep
	// ResampleAdaptive drops interior samples whose spheres overlap the
	// previously kept sample.
	ResampleAdaptive
)

// ParseResampleMethod maps a config name to a ResampleMethod, ResampleNone when unknown.
func ParseResampleMethod(name string) ResampleMethod {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fixed":
		return ResampleFixedStep
	case "adaptive":
		return ResampleAdaptive
	default:
		return ResampleNone
	}
}

func (r ResampleMethod) String() string {
	switch r {
	case ResampleFixedStep:
		return "fixed"
	case ResampleAdaptive:
		return "adaptive"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r ResampleMethod) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ResampleMethod) UnmarshalText(text []byte) error {
	*r = ParseResampleMethod(string(text))
	return nil
}

// ResampleOptions configures Resample.
type ResampleOptions struct {
	Method ResampleMethod `yaml:"method" json:"method"`
	Step   float32        `yaml:"step" json:"step"`
}

// Resample returns a copy of m with every section resampled. The first and last
// sample of each section are always kept, so junction continuity survives.
func Resample(m *Morphology, opts ResampleOptions) (*Morphology, error) {
	out, err := m.Clone()
	if err != nil {
		return nil, fmt.Errorf("morphology: resample: %w", err)
	}
	switch opts.Method {
	case ResampleFixedStep:
		if opts.Step <= 0 {
			return nil, fmt.Errorf("morphology: resample: step must be positive, got %v", opts.Step)
		}
		nextID := maxSampleID(out) + 1
		for _, root := range out.Arbors() {
			Walk(root, func(s *Section, _ int) bool {
				s.Samples = resampleFixedStep(s, opts.Step, &nextID)
				return true
			})
		}
	case ResampleAdaptive:
		for _, root := range out.Arbors() {
			Walk(root, func(s *Section, _ int) bool {
				s.Samples = resampleAdaptive(s.Samples)
				return true
			})
		}
	}
	return out, nil
}

func resampleFixedStep(s *Section, step float32, nextID *int) []*Sample {
	if len(s.Samples) < 2 {
		return s.Samples
	}
	first, last := s.FirstSample(), s.LastSample()
	out := []*Sample{first}

	// distance to travel along the polyline before the next sample is emitted
	remaining := step
	for i := 0; i+1 < len(s.Samples); i++ {
		a, b := s.Samples[i], s.Samples[i+1]
		segment := a.Point.DistanceTo(b.Point)
		travelled := float32(0)
		for segment-travelled > remaining {
			travelled += remaining
			t := travelled / segment
			out = append(out, &Sample{
				ID:        *nextID,
				Point:     a.Point.Lerp(b.Point, t),
				Radius:    a.Radius + (b.Radius-a.Radius)*t,
				SectionID: s.ID,
			})
			*nextID++
			remaining = step
		}
		remaining -= segment - travelled
	}

	// a sample emitted right on top of the last one would give a zero-length segment
	if tail := out[len(out)-1]; tail != first && tail.Point.DistanceTo(last.Point) < ContinuityTolerance {
		out = out[:len(out)-1]
	}
	return append(out, last)
}

func resampleAdaptive(samples []*Sample) []*Sample {
	if len(samples) < 3 {
		return samples
	}
	out := []*Sample{samples[0]}
	for _, sample := range samples[1 : len(samples)-1] {
		prev := out[len(out)-1]
		if prev.Point.DistanceTo(sample.Point) < prev.Radius+sample.Radius {
			continue
		}
		out = append(out, sample)
	}
	return append(out, samples[len(samples)-1])
}

func maxSampleID(m *Morphology) int {
	highest := 0
	for _, root := range m.Arbors() {
		Walk(root, func(s *Section, _ int) bool {
			for _, sample := range s.Samples {
				highest = max(highest, sample.ID)
			}
			return true
		})
	}
	return highest
}
