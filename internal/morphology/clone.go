package morphology

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Clone returns a deep copy of m. Samples, sections and the soma are all
// duplicated; nothing is shared with the receiver. Trees with cycles are
// rejected with ErrCyclicTree.
func (m *Morphology) Clone() (*Morphology, error) {
	if err := m.checkAcyclic(); err != nil {
		return nil, fmt.Errorf("morphology: clone %q: %w", m.Label, err)
	}
	out := &Morphology{}
	if err := copier.CopyWithOption(out, m, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("morphology: clone %q: %w", m.Label, err)
	}
	return out, nil
}

// MustClone is Clone for callers that hold a tree built by this package, where
// copying cannot fail.
func (m *Morphology) MustClone() *Morphology {
	out, err := m.Clone()
	if err != nil {
		panic(err)
	}
	return out
}
