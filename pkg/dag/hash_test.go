package dag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_StructuralEquality(t *testing.T) {
	build := func(width int) *OutputNode {
		in := NewInput("in.mp4", Opt("ss", 5))
		f := mustFilter(t, FilterConfig{
			Name:          "scale",
			Inputs:        []Stream{in.Video()},
			InputTypings:  []StreamType{video},
			OutputTypings: []StreamType{video},
			Options:       []Option{Opt("w", width), Opt("h", -2)},
		})
		v, err := f.Video(0)
		require.NoError(t, err)
		out, err := NewOutput("out.mp4", []Stream{v})
		require.NoError(t, err)
		return out
	}

	a, b, c := build(640), build(640), build(1280)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.Equal(t, a.Hash(), a.Hash())
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}

func TestHash_DistinguishesValueKinds(t *testing.T) {
	assert.False(t, Equal(NewInput("x", Opt("n", 1)), NewInput("x", Opt("n", "1"))))
	assert.False(t, Equal(NewInput("x", Opt("n", Default)), NewInput("x")))
	assert.False(t, Equal(NewInput("x", Opt("a", 1), Opt("b", 2)), NewInput("x", Opt("b", 2), Opt("a", 1))))
}

func TestHash_DynamicTypingsDifferFromEmpty(t *testing.T) {
	in := NewInput("in.mp4")
	dynamic := mustFilter(t, FilterConfig{Name: "nullsink", Inputs: []Stream{in.Video()}})
	empty := mustFilter(t, FilterConfig{Name: "nullsink", Inputs: []Stream{in.Video()}, OutputTypings: []StreamType{}})
	assert.False(t, Equal(dynamic, empty))
}

func TestDedup_MergesEqualInputs(t *testing.T) {
	first := NewInput("in.mp4")
	second := NewInput("in.mp4")
	out, err := NewOutput("out.mp4", []Stream{first.Video(), second.Audio()})
	require.NoError(t, err)

	assert.Equal(t, []string{"-i", "in.mp4", "-i", "in.mp4", "-map", "0:v", "-map", "1:a", "out.mp4"}, Compile(out))

	deduped := Dedup(out)
	assert.True(t, Equal(out, deduped))
	assert.Equal(t, []string{"-i", "in.mp4", "-map", "0:v", "-map", "0:a", "out.mp4"}, Compile(deduped))
}

func TestDedupMapping(t *testing.T) {
	first := NewInput("in.mp4")
	second := NewInput("in.mp4")
	out, err := NewOutput("out.mp4", []Stream{first.Video(), second.Audio()})
	require.NoError(t, err)

	deduped, mapping := DedupMapping(out)
	assert.Same(t, mapping[first], mapping[second])
	assert.Same(t, deduped, mapping[out])
	assert.Len(t, NewContext(deduped).Nodes(), 2)
}

func TestRewriteFilenames(t *testing.T) {
	out := scaleGraph(t)
	g := out.Global(Opt("y", true))

	rewritten := RewriteFilenames(g, func(n Node, filename string) string {
		switch n.(type) {
		case *InputNode:
			return filepath.Join("/tmp/work", filename)
		default:
			return "/tmp/out/" + filename
		}
	})

	want := []string{"-i", "/tmp/work/in.mp4", "-filter_complex", "[0]scale=w=1280:h=720[s0]", "-map", "[s0]", "/tmp/out/out.mp4", "-y"}
	assert.Equal(t, want, Compile(rewritten))
	assert.Equal(t, []string{"-i", "in.mp4", "-filter_complex", "[0]scale=w=1280:h=720[s0]", "-map", "[s0]", "out.mp4", "-y"}, Compile(g))
	assert.False(t, Equal(g, rewritten))
}
