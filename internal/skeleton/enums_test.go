package skeleton_test

import (
	"bytes"
	"strings"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/skeleton"
)

func TestParseBranching(t *testing.T) {
	assert.Equal(t, skeleton.BranchingRadii, skeleton.ParseBranching("radii"))
	assert.Equal(t, skeleton.BranchingAngles, skeleton.ParseBranching("angles"))
	assert.Equal(t, skeleton.BranchingAngles, skeleton.ParseBranching(""))
}

func TestParseMethod(t *testing.T) {
	tests := map[string]skeleton.Method{
		"disconnected-segments": skeleton.MethodDisconnectedSegments,
		"disconnected-sections": skeleton.MethodDisconnectedSections,
		"connected-sections":    skeleton.MethodConnectedSections,
		"articulated-sections":  skeleton.MethodArticulatedSections,
		"samples":               skeleton.MethodSamples,
		"progressive":           skeleton.MethodProgressive,
		"whatever":              skeleton.MethodDisconnectedSections,
	}
	for in, want := range tests {
		assert.Equal(t, want, skeleton.ParseMethod(in), in)
	}
	assert.True(t, skeleton.MethodDisconnectedSegments.Buildable())
	assert.False(t, skeleton.MethodSamples.Buildable())
}

func TestOptionsFromYAML(t *testing.T) {
	src := `
method: disconnected-segments
branching: radii
ignore_axons: true
basal_dendrites_branch_order: 3
edges: smooth
bevel_object_sides: 8
radii:
  method: scaled
  scale_factor: 1.5
resampling:
  method: adaptive
transform:
  translation: {x: 1, y: 2, z: 3}
  scale: 2
soma:
  segments: 12
`
	var opts skeleton.Options
	require.NoError(t, yaml.Unmarshal([]byte(src), &opts))

	assert.Equal(t, skeleton.MethodDisconnectedSegments, opts.Method)
	assert.Equal(t, skeleton.BranchingRadii, opts.Branching)
	assert.True(t, opts.IgnoreAxons)
	assert.Equal(t, 3, opts.BasalDendritesBranchOrder)
	assert.Equal(t, skeleton.EdgesSmooth, opts.Edges)
	assert.Equal(t, morphology.RadiiScaled, opts.Radii.Method)
	assert.Equal(t, float32(1.5), opts.Radii.ScaleFactor)
	assert.Equal(t, morphology.ResampleAdaptive, opts.Resampling.Method)
	assert.Equal(t, math32.Vec3(1, 2, 3), opts.Transform.Translation)
	assert.Equal(t, 12, opts.Soma.Segments)
}

func TestWriteOBJ(t *testing.T) {
	objs := []*skeleton.Object{
		{Name: "bevel", Kind: skeleton.KindBevel, PolyLines: []skeleton.PolyLine{{Samples: make([]skeleton.Point, 4)}}},
		{
			Name:      "cell",
			Kind:      skeleton.KindSkeleton,
			Materials: skeleton.DefaultPalette(),
			PolyLines: []skeleton.PolyLine{
				{Name: "Axon_1_0", MaterialIndex: 6, Samples: []skeleton.Point{
					{Position: math32.Vec3(0, 0, 0)}, {Position: math32.Vec3(1.5, 0, 0)},
				}},
				{Name: "Axon_1_1", MaterialIndex: 7, Samples: []skeleton.Point{
					{Position: math32.Vec3(1.5, 0, 0)}, {Position: math32.Vec3(2, 1, -1)}, {Position: math32.Vec3(3, 1, -1)},
				}},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, skeleton.WriteOBJ(&buf, objs))

	want := strings.Join([]string{
		"o cell",
		"usemtl axon_0",
		"v 0 0 0",
		"v 1.5 0 0",
		"l 1 2",
		"usemtl axon_1",
		"v 1.5 0 0",
		"v 2 1 -1",
		"v 3 1 -1",
		"l 3 4 5",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}
