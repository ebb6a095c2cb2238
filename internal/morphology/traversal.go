package morphology

// ApplyToArbor calls op on every section of the arbor rooted at root, parent
// before children, siblings in stored order. op appends whatever it computes to
// acc. A nil root is a no-op. A section reached a second time is skipped
// together with its subtree, so a malformed tree cannot loop forever.
func ApplyToArbor[T any](root *Section, acc *[]T, op func(s *Section, acc *[]T)) {
	seen := make(map[*Section]struct{})
	var visit func(s *Section)
	visit = func(s *Section) {
		if s == nil {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		op(s, acc)
		for _, child := range s.Children {
			visit(child)
		}
	}
	visit(root)
}

// ApplyToMorphology runs ApplyToArbor over every arbor of m, apical first.
func ApplyToMorphology[T any](m *Morphology, acc *[]T, op func(s *Section, acc *[]T)) {
	for _, root := range m.Arbors() {
		ApplyToArbor(root, acc, op)
	}
}

// Walk visits the arbor pre-order and passes the branching order of each
// section (the root is order 1). Returning false from fn skips the children of
// that section.
func Walk(root *Section, fn func(s *Section, order int) bool) {
	seen := make(map[*Section]struct{})
	var visit func(s *Section, order int)
	visit = func(s *Section, order int) {
		if s == nil {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		if !fn(s, order) {
			return
		}
		for _, child := range s.Children {
			visit(child, order+1)
		}
	}
	visit(root, 1)
}

// Sections flattens the arbor into pre-order.
func Sections(root *Section) []*Section {
	var out []*Section
	ApplyToArbor(root, &out, func(s *Section, acc *[]*Section) {
		*acc = append(*acc, s)
	})
	return out
}

// CountSections returns the number of sections in the arbor.
func CountSections(root *Section) int {
	n := 0
	Walk(root, func(*Section, int) bool {
		n++
		return true
	})
	return n
}

// CountLeaves returns the number of terminal sections in the arbor.
func CountLeaves(root *Section) int {
	n := 0
	Walk(root, func(s *Section, _ int) bool {
		if s.IsLeaf() {
			n++
		}
		return true
	})
	return n
}

// MaxBranchingOrder returns the deepest branching order in the arbor, 0 for nil.
func MaxBranchingOrder(root *Section) int {
	deepest := 0
	Walk(root, func(_ *Section, order int) bool {
		deepest = max(deepest, order)
		return true
	})
	return deepest
}
