package skeleton

import "strings"

// Method is the skeletonization style.
type Method int

const (
	MethodDisconnectedSections Method = iota
	MethodDisconnectedSegments
	MethodConnectedSections
	MethodArticulatedSections
	MethodSamples
	MethodProgressive
)

var methodNames = map[Method]string{
	MethodDisconnectedSections: "disconnected-sections",
	MethodDisconnectedSegments: "disconnected-segments",
	MethodConnectedSections:    "connected-sections",
	MethodArticulatedSections:  "articulated-sections",
	MethodSamples:              "samples",
	MethodProgressive:          "progressive",
}

// ParseMethod maps a method name to a Method. Unknown names give
// MethodDisconnectedSections.
func ParseMethod(name string) Method {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == name {
			return m
		}
	}
	return MethodDisconnectedSections
}

func (m Method) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return methodNames[MethodDisconnectedSections]
}

// Buildable reports whether Builder can construct this method.
func (m Method) Buildable() bool {
	return m == MethodDisconnectedSections || m == MethodDisconnectedSegments
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	*m = ParseMethod(string(text))
	return nil
}

// Branching selects how a parent is continued into one of its children.
type Branching int

const (
	BranchingAngles Branching = iota
	BranchingRadii
)

// ParseBranching maps "radii" to BranchingRadii and anything else to BranchingAngles.
func ParseBranching(name string) Branching {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "radii":
		return BranchingRadii
	case "angles":
		return BranchingAngles
	default:
		return BranchingAngles
	}
}

func (b Branching) String() string {
	if b == BranchingRadii {
		return "radii"
	}
	return "angles"
}

// MarshalText implements encoding.TextMarshaler.
func (b Branching) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Branching) UnmarshalText(text []byte) error {
	*b = ParseBranching(string(text))
	return nil
}

// EdgeStyle is passed through to the consumer of the polylines.
type EdgeStyle int

const (
	EdgesSharp EdgeStyle = iota
	EdgesSmooth
)

// ParseEdgeStyle maps "smooth" to EdgesSmooth and anything else to EdgesSharp.
func ParseEdgeStyle(name string) EdgeStyle {
	if strings.EqualFold(strings.TrimSpace(name), "smooth") {
		return EdgesSmooth
	}
	return EdgesSharp
}

func (e EdgeStyle) String() string {
	if e == EdgesSmooth {
		return "smooth"
	}
	return "sharp"
}

// MarshalText implements encoding.TextMarshaler.
func (e EdgeStyle) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EdgeStyle) UnmarshalText(text []byte) error {
	*e = ParseEdgeStyle(string(text))
	return nil
}

// Mode selects how arbors are grouped into objects.
type Mode int

const (
	// ModeSingleObject puts every arbor in one object.
	ModeSingleObject Mode = iota
	// ModePerArbor emits one object per arbor.
	ModePerArbor
)

// ParseMode maps "per-arbor" to ModePerArbor and anything else to ModeSingleObject.
func ParseMode(name string) Mode {
	if strings.EqualFold(strings.TrimSpace(name), "per-arbor") {
		return ModePerArbor
	}
	return ModeSingleObject
}

func (m Mode) String() string {
	if m == ModePerArbor {
		return "per-arbor"
	}
	return "single"
}

// ObjectKind tags what an Object represents.
type ObjectKind int

const (
	KindSkeleton ObjectKind = iota
	KindBevel
	KindSoma
)

func (k ObjectKind) String() string {
	switch k {
	case KindBevel:
		return "bevel"
	case KindSoma:
		return "soma"
	default:
		return "skeleton"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ObjectKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
