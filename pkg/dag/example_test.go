package dag_test

import (
	"fmt"

	"github.com/chicogong/ffgraph/pkg/dag"
)

func ExampleCompile() {
	in := dag.NewInput("in.mp4")
	scaled, err := dag.NewFilter(dag.FilterConfig{
		Name:          "scale",
		Inputs:        []dag.Stream{in.Stream()},
		InputTypings:  []dag.StreamType{dag.StreamTypeVideo},
		OutputTypings: []dag.StreamType{dag.StreamTypeVideo},
		Options:       []dag.Option{dag.Opt("w", 1280), dag.Opt("h", 720)},
	})
	if err != nil {
		panic(err)
	}
	v, _ := scaled.Video(0)
	out, err := dag.NewOutput("out.mp4", []dag.Stream{v})
	if err != nil {
		panic(err)
	}

	for _, arg := range dag.Compile(out) {
		fmt.Println(arg)
	}
	// Output:
	// -i
	// in.mp4
	// -filter_complex
	// [0]scale=w=1280:h=720[s0]
	// -map
	// [s0]
	// out.mp4
}

func ExampleMergeOutputs() {
	in := dag.NewInput("talk.wav")
	mp3, _ := dag.NewOutput("talk.mp3", []dag.Stream{in.Audio()}, dag.Opt("b:a", "128k"))
	ogg, _ := dag.NewOutput("talk.ogg", []dag.Stream{in.Audio()})
	merged, err := dag.MergeOutputs(mp3, ogg)
	if err != nil {
		panic(err)
	}

	fmt.Println(dag.Command("ffmpeg", merged.Global(dag.Opt("y", true))))
	// Output:
	// [ffmpeg -i talk.wav -map 0:a -b:a 128k talk.mp3 -map 0:a talk.ogg -y]
}
