package dataflow

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// taintState is the propagation engine's internal per-node record. It holds
// the growing set of sources that reach the node and the surviving
// confidence, which only ever decays.
type taintState struct {
	confidence float64
	sources    map[int]struct{}
	path       []schemas.FlowStep
}

// Propagator runs the worklist taint propagation over a built graph.
type Propagator struct {
	graph   *Graph
	sources []schemas.TaintSource
	logger  *zap.Logger

	states map[string]*taintState
	table  StateTable
}

// NewPropagator prepares a run over the builder's output.
func NewPropagator(b *Builder) *Propagator {
	return &Propagator{
		graph:   b.Graph(),
		sources: b.Sources(),
		logger:  observability.GetLogger().Named("propagate"),
		states:  make(map[string]*taintState),
		table:   NewStateTable(),
	}
}

// Run seeds the graph from the classified sources and drains the worklist.
// Confidence follows a min-decay lattice: a node's confidence is the minimum
// of the incoming confidence and the edge weight, so it never increases
// along a path. A node is re-enqueued only when its confidence strictly
// decreased or a new source reached it; both happen finitely often, so the
// loop terminates on any graph, cycles included.
func (p *Propagator) Run(seeds []Seed) {
	var work []string
	enqueue := func(node string) { work = append(work, node) }

	for _, s := range seeds {
		if s.Confidence <= 0 {
			continue
		}
		st, ok := p.states[s.Node]
		if !ok {
			st = &taintState{
				confidence: s.Confidence,
				sources:    map[int]struct{}{s.SourceIdx: {}},
				path:       []schemas.FlowStep{p.seedStep(s)},
			}
			p.states[s.Node] = st
			enqueue(s.Node)
			continue
		}
		changed := false
		if _, seen := st.sources[s.SourceIdx]; !seen {
			st.sources[s.SourceIdx] = struct{}{}
			changed = true
		}
		if s.Confidence > st.confidence {
			// A stronger seed restarts this node at the higher base; decay
			// below happens through edges, not seeds.
			st.confidence = s.Confidence
			st.path = []schemas.FlowStep{p.seedStep(s)}
			changed = true
		}
		if changed {
			enqueue(s.Node)
		}
	}

	steps := 0
	for len(work) > 0 {
		node := work[0]
		work = work[1:]
		steps++

		cur, ok := p.states[node]
		if !ok {
			continue
		}
		for _, e := range p.graph.Out(node) {
			cand := cur.confidence
			if e.Weight < cand {
				cand = e.Weight
			}
			if cand <= 0 {
				continue
			}

			dst, ok := p.states[e.To]
			if !ok {
				p.states[e.To] = &taintState{
					confidence: cand,
					sources:    cloneSet(cur.sources),
					path:       extendPath(cur.path, e),
				}
				enqueue(e.To)
				continue
			}

			changed := false
			for s := range cur.sources {
				if _, seen := dst.sources[s]; !seen {
					dst.sources[s] = struct{}{}
					changed = true
				}
			}
			if cand < dst.confidence {
				dst.confidence = cand
				dst.path = extendPath(cur.path, e)
				changed = true
			}
			if changed {
				enqueue(e.To)
			}
		}
	}

	for node, st := range p.states {
		p.table.Put(NodeState{
			Node:       node,
			Tainted:    true,
			Confidence: st.confidence,
			SourceIdx:  p.bestSource(st),
		})
	}
	p.logger.Debug("propagation converged",
		zap.Int("worklist_steps", steps),
		zap.Int("tainted_nodes", len(p.states)))
}

// States exposes the converged per-node results.
func (p *Propagator) States() StateTable { return p.table }

// stateOf returns the full internal record for flow synthesis.
func (p *Propagator) stateOf(node string) (*taintState, bool) {
	st, ok := p.states[node]
	return st, ok
}

// bestSource picks the origin with the highest base confidence, ties broken
// by earliest line then file name for determinism.
func (p *Propagator) bestSource(st *taintState) int {
	idxs := make([]int, 0, len(st.sources))
	for i := range st.sources {
		idxs = append(idxs, i)
	}
	sort.Slice(idxs, func(a, b int) bool {
		sa, sb := p.sources[idxs[a]], p.sources[idxs[b]]
		if sa.Confidence != sb.Confidence {
			return sa.Confidence > sb.Confidence
		}
		if sa.Line != sb.Line {
			return sa.Line < sb.Line
		}
		return sa.File < sb.File
	})
	return idxs[0]
}

func (p *Propagator) seedStep(s Seed) schemas.FlowStep {
	src := p.sources[s.SourceIdx]
	label := fmt.Sprintf("source:%s", src.Kind)
	if src.Variable != "" {
		label = fmt.Sprintf("source:%s %s", src.Kind, src.Variable)
	}
	return schemas.FlowStep{File: src.File, Line: src.Line, Label: label}
}

func extendPath(parent []schemas.FlowStep, e Edge) []schemas.FlowStep {
	out := make([]schemas.FlowStep, len(parent), len(parent)+1)
	copy(out, parent)
	return append(out, schemas.FlowStep{
		File:  e.File,
		Line:  e.Line,
		Label: fmt.Sprintf("%s %s -> %s", e.Op, e.From, e.To),
	})
}

func cloneSet(in map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
