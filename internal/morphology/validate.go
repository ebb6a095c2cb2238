package morphology

import (
	"errors"
	"fmt"
)

// Sentinel errors for malformed trees.
var (
	// ErrCyclicTree is returned when a section is reachable twice, either through
	// a cycle or because two parents share it.
	ErrCyclicTree = errors.New("section reachable more than once")

	// ErrShortSection is returned for a section with fewer than two samples.
	ErrShortSection = errors.New("section has fewer than two samples")

	// ErrDiscontinuous is returned when a child does not start where its parent ends.
	ErrDiscontinuous = errors.New("child section does not start at parent end")
)

// ContinuityTolerance is the largest gap, in microns, accepted between a parent's
// last sample and a child's first sample.
const ContinuityTolerance = 1e-3

// Validate checks the structural invariants of every arbor: strict tree shape,
// at least two samples per section, and junction continuity.
func (m *Morphology) Validate() error {
	seen := make(map[*Section]struct{})
	for _, root := range m.Arbors() {
		if err := validateSection(root, seen); err != nil {
			return fmt.Errorf("morphology: validate %q: %w", m.Label, err)
		}
	}
	return nil
}

func validateSection(s *Section, seen map[*Section]struct{}) error {
	if s == nil {
		return nil
	}
	if _, ok := seen[s]; ok {
		return fmt.Errorf("section %d: %w", s.ID, ErrCyclicTree)
	}
	seen[s] = struct{}{}
	if len(s.Samples) < 2 {
		return fmt.Errorf("section %d: %w", s.ID, ErrShortSection)
	}
	end := s.LastSample().Point
	for _, child := range s.Children {
		if child == nil {
			continue
		}
		if first := child.FirstSample(); first != nil && first.Point.DistanceTo(end) > ContinuityTolerance {
			return fmt.Errorf("section %d -> %d: %w", s.ID, child.ID, ErrDiscontinuous)
		}
		if err := validateSection(child, seen); err != nil {
			return err
		}
	}
	return nil
}

// checkAcyclic reports ErrCyclicTree without checking the other invariants.
func (m *Morphology) checkAcyclic() error {
	seen := make(map[*Section]struct{})
	var visit func(s *Section) error
	visit = func(s *Section) error {
		if s == nil {
			return nil
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("section %d: %w", s.ID, ErrCyclicTree)
		}
		seen[s] = struct{}{}
		for _, child := range s.Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range m.Arbors() {
		if err := visit(root); err != nil {
			return err
		}
	}
	return nil
}
