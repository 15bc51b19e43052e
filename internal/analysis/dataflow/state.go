package dataflow

import "sort"

// NodeState is the taint status of one graph node after propagation.
type NodeState struct {
	Node       string
	Tainted    bool
	Confidence float64
	// SourceIdx points into the builder's source list at the origin of the
	// taint currently held. When several sources reach the node, the one
	// with the highest confidence wins, ties broken by earliest line.
	SourceIdx int
}

// StateTable holds per-node taint state. The flat name-keyed form is
// deliberately scope-blind: two $url variables in unrelated functions share
// an entry. The interface exists so a scope-aware table can replace the flat
// one without touching the propagation engine.
type StateTable interface {
	Get(node string) (NodeState, bool)
	Put(state NodeState)
	Nodes() []string
	Len() int
}

type flatTable struct {
	m map[string]NodeState
}

// NewStateTable returns the flat name-keyed table.
func NewStateTable() StateTable {
	return &flatTable{m: make(map[string]NodeState)}
}

func (t *flatTable) Get(node string) (NodeState, bool) {
	s, ok := t.m[node]
	return s, ok
}

func (t *flatTable) Put(state NodeState) {
	t.m[state.Node] = state
}

// Nodes returns the tracked node names sorted for deterministic iteration.
func (t *flatTable) Nodes() []string {
	out := make([]string, 0, len(t.m))
	for k := range t.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *flatTable) Len() int { return len(t.m) }
