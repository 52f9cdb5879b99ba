package dag

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaleGraph(t *testing.T) *OutputNode {
	t.Helper()
	in := NewInput("in.mp4")
	scale := mustFilter(t, FilterConfig{
		Name:          "scale",
		Inputs:        []Stream{in.Stream()},
		InputTypings:  []StreamType{video},
		OutputTypings: []StreamType{video},
		Options:       []Option{Opt("w", "1280"), Opt("h", "720")},
	})
	v, err := scale.Video(0)
	require.NoError(t, err)
	out, err := NewOutput("out.mp4", []Stream{v})
	require.NoError(t, err)
	return out
}

func TestCompile_EndToEnd(t *testing.T) {
	got := Compile(scaleGraph(t))

	want := []string{"-i", "in.mp4", "-filter_complex", "[0]scale=w=1280:h=720[s0]", "-map", "[s0]", "out.mp4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCommand_PrefixesExecutable(t *testing.T) {
	got := Command("ffmpeg", scaleGraph(t))
	assert.Equal(t, "ffmpeg", got[0])
	assert.Equal(t, Compile(scaleGraph(t)), got[1:])
}

func TestCompile_Deterministic(t *testing.T) {
	in := NewInput("in.mp4")
	music := NewInput("music.mp3")
	mix := mustFilter(t, FilterConfig{
		Name:          "amix",
		Inputs:        []Stream{in.Audio(), music.Audio()},
		OutputTypings: []StreamType{audio},
		Options:       []Option{Opt("inputs", 2), Opt("duration", Default)},
	})
	a, err := mix.Audio(0)
	require.NoError(t, err)
	out, err := NewOutput("out.mp4", []Stream{in.Video(), a}, Opt("c:v", "copy"))
	require.NoError(t, err)
	g := out.Global(Opt("y", true))

	first := Compile(g)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Compile(g)); diff != "" {
			t.Fatalf("run %d differs (-first +run):\n%s", i, diff)
		}
	}

	want := []string{
		"-i", "in.mp4",
		"-i", "music.mp3",
		"-filter_complex", "[0:a][1:a]amix=inputs=2[s0]",
		"-map", "0:v", "-map", "[s0]", "-c:v", "copy", "out.mp4",
		"-y",
	}
	assert.Equal(t, want, first)
}

func TestCompile_MapCountMatchesOutputInputs(t *testing.T) {
	in := NewInput("in.mkv")
	streams := []Stream{in.Video(), in.Audio(), in.Stream()}

	for k := 1; k <= len(streams); k++ {
		out, err := NewOutput("out.mkv", streams[:k])
		require.NoError(t, err)

		count := 0
		for _, arg := range Compile(out) {
			if arg == "-map" {
				count++
			}
		}
		assert.Equal(t, k, count)
	}
}

func TestCompile_NoFilterComplexWithoutFilters(t *testing.T) {
	in := NewInput("in.mp4", Opt("ss", 10), Opt("t", Default))
	out, err := NewOutput("out.mp4", []Stream{in.Stream()}, Opt("c", "copy"))
	require.NoError(t, err)

	want := []string{"-ss", "10", "-i", "in.mp4", "-map", "0", "-c", "copy", "out.mp4"}
	assert.Equal(t, want, Compile(out))
}

func TestCompile_SingleOutputLabelElision(t *testing.T) {
	in := NewInput("in.mp4")

	single := mustFilter(t, FilterConfig{
		Name:          "volume",
		Inputs:        []Stream{in.Audio()},
		OutputTypings: []StreamType{audio},
	})
	a, err := single.Audio(0)
	require.NoError(t, err)

	double := mustFilter(t, FilterConfig{
		Name:          "asplit",
		Inputs:        []Stream{a},
		OutputTypings: []StreamType{audio, audio},
	})
	second, err := double.Audio(1)
	require.NoError(t, err)

	out, err := NewOutput("out.m4a", []Stream{second})
	require.NoError(t, err)

	ctx := NewContext(out)
	assert.Equal(t, "[s0]", a.Label(ctx))
	assert.Equal(t, "[s1#1]", second.Label(ctx))
	assert.Equal(t, "[0:a]", in.Audio().Label(ctx))
	assert.Equal(t, "[0]", in.Stream().Label(ctx))
}

func TestCompile_DynamicOutputsAlwaysIndexed(t *testing.T) {
	in := NewInput("in.mp4")
	sel := mustFilter(t, FilterConfig{Name: "select", Inputs: []Stream{in.Video()}})
	s, err := sel.Stream(0)
	require.NoError(t, err)
	out, err := NewOutput("out.mp4", []Stream{s})
	require.NoError(t, err)

	assert.Equal(t, []string{"-i", "in.mp4", "-filter_complex", "[0:v]select[s0#0]", "-map", "[s0#0]", "out.mp4"}, Compile(out))
}

func TestCompile_OutgoingLabelsSortedByIndex(t *testing.T) {
	in := NewInput("in.mp4")
	split := mustFilter(t, FilterConfig{
		Name:          "split",
		Inputs:        []Stream{in.Video()},
		InputTypings:  []StreamType{video},
		OutputTypings: []StreamType{video, video},
	})
	v0, err := split.Video(0)
	require.NoError(t, err)
	v1, err := split.Video(1)
	require.NoError(t, err)

	b, err := NewOutput("b.mp4", []Stream{v1})
	require.NoError(t, err)
	a, err := NewOutput("a.mp4", []Stream{v0})
	require.NoError(t, err)
	m, err := MergeOutputs(b, a)
	require.NoError(t, err)

	want := []string{
		"-i", "in.mp4",
		"-filter_complex", "[0:v]split[s0#0][s0#1]",
		"-map", "[s0#1]", "b.mp4",
		"-map", "[s0#0]", "a.mp4",
	}
	if diff := cmp.Diff(want, Compile(m)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ChainedFiltersInDependencyOrder(t *testing.T) {
	main := NewInput("main.mp4")
	logo := NewInput("logo.png", Opt("loop", 1))

	scaled := mustFilter(t, FilterConfig{
		Name:          "scale",
		Inputs:        []Stream{logo.Video()},
		InputTypings:  []StreamType{video},
		OutputTypings: []StreamType{video},
		Options:       []Option{Opt("w", 64), Opt("h", -1)},
	})
	sv, err := scaled.Video(0)
	require.NoError(t, err)

	overlay := mustFilter(t, FilterConfig{
		Name:          "overlay",
		Inputs:        []Stream{main.Video(), sv},
		InputTypings:  []StreamType{video, video},
		OutputTypings: []StreamType{video},
		Options:       []Option{Opt("x", "W-w-10"), Opt("y", 10), Opt("shortest", true)},
	})
	ov, err := overlay.Video(0)
	require.NoError(t, err)

	out, err := NewOutput("out.mp4", []Stream{ov, main.Audio()}, Opt("shortest", true), Opt("an", false))
	require.NoError(t, err)

	want := []string{
		"-i", "main.mp4",
		"-loop", "1", "-i", "logo.png",
		"-filter_complex", "[1:v]scale=w=64:h=-1[s0];[0:v][s0]overlay=x=W-w-10:y=10:shortest=1[s1]",
		"-map", "[s1]", "-map", "0:a", "-shortest", "out.mp4",
	}
	if diff := cmp.Diff(want, Compile(out)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_GlobalOptionsLast(t *testing.T) {
	in := NewInput("in.wav", Opt("re", true))
	a, err := NewOutput("a.mp3", []Stream{in.Audio()})
	require.NoError(t, err)
	b, err := NewOutput("b.ogg", []Stream{in.Audio()})
	require.NoError(t, err)

	m, err := MergeOutputs(a, b)
	require.NoError(t, err)
	g := m.Global(Opt("y", true), Opt("hide_banner", true), Opt("loglevel", "error"), Opt("n", false))

	want := []string{
		"-re", "true", "-i", "in.wav",
		"-map", "0:a", "a.mp3",
		"-map", "0:a", "b.ogg",
		"-y", "-hide_banner", "-loglevel", "error",
	}
	assert.Equal(t, want, Compile(g))
	assert.Empty(t, m.Args(NewContext(m)))
}

func TestCompile_MultipleTerminals(t *testing.T) {
	in := NewInput("in.mp4")
	a, err := NewOutput("a.mp4", []Stream{in.Video()})
	require.NoError(t, err)
	b, err := NewOutput("b.mp4", []Stream{in.Audio()})
	require.NoError(t, err)

	assert.Equal(t, []string{"-i", "in.mp4", "-map", "0:v", "a.mp4", "-map", "0:a", "b.mp4"}, Compile(a, b))
	assert.Empty(t, Compile())
}

func TestContext_LabelsAndOutgoing(t *testing.T) {
	in := NewInput("in.mp4")
	split := mustFilter(t, FilterConfig{
		Name:          "split",
		Inputs:        []Stream{in.Video()},
		OutputTypings: []StreamType{video, video},
	})
	v1, err := split.Video(1)
	require.NoError(t, err)
	out, err := NewOutput("out.mp4", []Stream{v1, v1})
	require.NoError(t, err)

	ctx := NewContext(out)
	assert.Equal(t, "0", ctx.NodeLabel(in))
	assert.Equal(t, "s0", ctx.NodeLabel(split))
	assert.Equal(t, "o0", ctx.NodeLabel(out))
	assert.Equal(t, []Stream{v1}, ctx.Outgoing(split))
	assert.Equal(t, []Node{in, split, out}, ctx.Nodes())

	again := NewContext(out)
	for _, n := range ctx.Nodes() {
		assert.Equal(t, ctx.NodeLabel(n), again.NodeLabel(n))
	}
}

func TestContext_StructurallyEqualNodesGetDistinctLabels(t *testing.T) {
	a := NewInput("same.mp4")
	b := NewInput("same.mp4")
	out, err := NewOutput("out.mp4", []Stream{a.Video(), b.Audio()})
	require.NoError(t, err)

	ctx := NewContext(out)
	assert.Equal(t, "0", ctx.NodeLabel(a))
	assert.Equal(t, "1", ctx.NodeLabel(b))
	assert.True(t, Equal(a, b))
}

func TestContext_UnknownNodePanics(t *testing.T) {
	ctx := NewContext(scaleGraph(t))
	stray := NewInput("stray.mp4")

	assert.False(t, ctx.Contains(stray))
	assert.PanicsWithError(t, "input node is not reachable from the compiled terminals", func() {
		ctx.NodeLabel(stray)
	})
}

func TestContext_Filtergraph(t *testing.T) {
	ctx := NewContext(scaleGraph(t))
	assert.Equal(t, "[0]scale=w=1280:h=720[s0]", ctx.Filtergraph())

	in := NewInput("in.mp4")
	out, err := NewOutput("out.mp4", []Stream{in.Stream()})
	require.NoError(t, err)
	assert.Equal(t, "", NewContext(out).Filtergraph())
}

func TestFilterNode_ArgsFragments(t *testing.T) {
	in := NewInput("in.mp4")
	bare := mustFilter(t, FilterConfig{
		Name:          "hflip",
		Inputs:        []Stream{in.Video()},
		OutputTypings: []StreamType{video},
		Options:       []Option{Opt("unused", Default)},
	})
	v, err := bare.Video(0)
	require.NoError(t, err)
	out, err := NewOutput("out.mp4", []Stream{v})
	require.NoError(t, err)

	ctx := NewContext(out)
	assert.Equal(t, []string{"[0:v]", "hflip", "[s0]"}, bare.Args(ctx))
	assert.Equal(t, "[0:v]hflip[s0]", strings.Join(bare.Args(ctx), ""))
}
