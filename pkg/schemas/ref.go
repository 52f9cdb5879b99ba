package schemas

import (
	"fmt"
	"strings"

	"github.com/chicogong/ffgraph/pkg/dag"
)

// Ref is a parsed stream reference: "id", "id:v" or "id:a".
type Ref struct {
	ID   string
	Type dag.StreamType
}

// ParseRef parses a stream reference.
func ParseRef(s string) (Ref, error) {
	id, sel, found := strings.Cut(s, ":")
	if id == "" {
		return Ref{}, fmt.Errorf("invalid stream reference '%s': empty id", s)
	}
	if !found {
		return Ref{ID: id}, nil
	}
	t, err := dag.ParseStreamType(sel)
	if err != nil || t == dag.StreamTypeAny {
		return Ref{}, fmt.Errorf("invalid stream reference '%s': selector must be v or a", s)
	}
	return Ref{ID: id, Type: t}, nil
}

func (r Ref) String() string {
	if sel := r.Type.Selector(); sel != "" {
		return r.ID + ":" + sel
	}
	return r.ID
}
