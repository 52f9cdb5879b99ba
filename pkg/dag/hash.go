package dag

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// digest is the canonical content of a node. Upstream nodes enter through
// their own hashes, so equal digests imply structurally equal subgraphs.
type digest struct {
	Kind          int            `cbor:"1,keyasint"`
	Name          string         `cbor:"2,keyasint,omitempty"`
	Filename      string         `cbor:"3,keyasint,omitempty"`
	Options       []optionDigest `cbor:"4,keyasint"`
	Inputs        []streamDigest `cbor:"5,keyasint"`
	InputTypings  []int          `cbor:"6,keyasint"`
	OutputTypings []int          `cbor:"7,keyasint"`
	DynamicIn     bool           `cbor:"8,keyasint"`
	DynamicOut    bool           `cbor:"9,keyasint"`
}

type optionDigest struct {
	Key   string `cbor:"1,keyasint"`
	Type  string `cbor:"2,keyasint"`
	Value string `cbor:"3,keyasint"`
}

type streamDigest struct {
	Node     []byte `cbor:"1,keyasint"`
	Index    int    `cbor:"2,keyasint"`
	Selector int    `cbor:"3,keyasint"`
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dag: cbor encoder: %v", err))
	}
	return em
}

func (b *base) digestOnce(build func() digest) [32]byte {
	b.hashOnce.Do(func() {
		d := build()
		d.Options = digestOptions(b.options)
		data, err := encMode.Marshal(d)
		if err != nil {
			panic(fmt.Sprintf("dag: encode node digest: %v", err))
		}
		b.hash = blake2b.Sum256(data)
	})
	return b.hash
}

func digestOptions(opts []Option) []optionDigest {
	out := make([]optionDigest, len(opts))
	for i, o := range opts {
		od := optionDigest{Key: o.Key, Type: valueKind(o.Value)}
		switch v := o.Value.(type) {
		case bool:
			od.Value = fmt.Sprint(v)
		default:
			if !IsDefault(v) {
				od.Value = formatValue(v)
			}
		}
		out[i] = od
	}
	return out
}

func digestStreams(streams []Stream) []streamDigest {
	out := make([]streamDigest, len(streams))
	for i, s := range streams {
		h := s.Node.Hash()
		out[i] = streamDigest{Node: h[:], Index: s.Index, Selector: int(s.Selector)}
	}
	return out
}

func digestTypings(t []StreamType) []int {
	out := make([]int, len(t))
	for i, v := range t {
		out[i] = int(v)
	}
	return out
}

func (n *InputNode) Hash() [32]byte {
	return n.digestOnce(func() digest {
		return digest{Kind: int(KindInput), Filename: n.filename}
	})
}

func (n *FilterNode) Hash() [32]byte {
	return n.digestOnce(func() digest {
		return digest{
			Kind:          int(KindFilter),
			Name:          n.name,
			Inputs:        digestStreams(n.inputs),
			InputTypings:  digestTypings(n.inputTypings),
			OutputTypings: digestTypings(n.outputTypings),
			DynamicIn:     n.inputTypings == nil,
			DynamicOut:    n.outputTypings == nil,
		}
	})
}

func (n *OutputNode) Hash() [32]byte {
	return n.digestOnce(func() digest {
		return digest{Kind: int(KindOutput), Filename: n.filename, Inputs: digestStreams(n.inputs)}
	})
}

func (n *GlobalNode) Hash() [32]byte {
	return n.digestOnce(func() digest {
		return digest{Kind: int(KindGlobal), Inputs: digestStreams([]Stream{n.input})}
	})
}

func (n *MergeOutputsNode) Hash() [32]byte {
	return n.digestOnce(func() digest {
		return digest{Kind: int(KindMerge), Inputs: digestStreams(n.inputs)}
	})
}

// Equal reports whether a and b are structurally identical, including
// everything upstream of them.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash() == b.Hash()
}
