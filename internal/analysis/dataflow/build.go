package dataflow

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/parser"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Edge weights for the structural operations. Call-return weights come from
// the per-function propagation rules instead.
const (
	assignWeight      = 1.0
	concatWeight      = 1.0 // concatenation taints the whole string
	arrayAccessWeight = 0.9
	callArgWeight     = 1.0
)

// SinkSite is a classified sink call plus the graph handles needed to decide,
// after propagation, which argument carried taint into it.
type SinkSite struct {
	Sink schemas.TaintSink

	// One entry per argument position.
	ArgNodes []string
	ArgVars  [][]string
}

// Seed is a taint entry point: a graph node that starts tainted before
// propagation, tied to the source that tainted it.
type Seed struct {
	Node       string
	Confidence float64
	SourceIdx  int
}

// Builder walks parsed statements, classifies sources and sinks against a
// rules pack, and emits the data-flow graph plus propagation seeds.
type Builder struct {
	set    *rules.Set
	graph  *Graph
	logger *zap.Logger

	sources []schemas.TaintSource
	sinks   []SinkSite
	seeds   []Seed
}

// NewBuilder returns a Builder classifying against the given rules pack.
func NewBuilder(set *rules.Set) *Builder {
	return &Builder{
		set:    set,
		graph:  NewGraph(),
		logger: observability.GetLogger().Named("dataflow"),
	}
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph { return b.graph }

// Sources returns the classified taint sources in encounter order.
func (b *Builder) Sources() []schemas.TaintSource { return b.sources }

// Sinks returns the classified sink sites in encounter order.
func (b *Builder) Sinks() []SinkSite { return b.sinks }

// Seeds returns the propagation entry points.
func (b *Builder) Seeds() []Seed { return b.seeds }

// AddFile folds one parsed file into the graph. Files are independent at
// this stage; cross-file effects only appear later through shared variable
// names, which is what makes cross-file flows low-confidence.
func (b *Builder) AddFile(file string, nodes []*parser.Node) {
	for _, n := range nodes {
		b.classifySource(n)
		b.classifySink(n)

		switch {
		case n.Kind == parser.KindAssignment:
			b.assignmentEdges(n)
		case n.IsCall():
			b.callArgEdges(n)
		}
	}
	b.logger.Debug("file added to graph",
		zap.String("file", file),
		zap.Int("statements", len(nodes)),
		zap.Int("graph_nodes", b.graph.NodeCount()),
		zap.Int("graph_edges", b.graph.EdgeCount()))
}

// classifySource records a taint source and seeds the graph nodes it taints.
func (b *Builder) classifySource(n *parser.Node) {
	kind, conf, ok := b.set.MatchSource(n.Raw)
	if !ok {
		return
	}

	variable := ""
	if n.Kind == parser.KindAssignment {
		variable = n.Target
	}
	b.sources = append(b.sources, schemas.TaintSource{
		File:       n.File,
		Line:       n.Line,
		Column:     n.Column,
		Variable:   variable,
		Kind:       kind,
		Raw:        n.Raw,
		Confidence: conf,
	})
	idx := len(b.sources) - 1

	if variable != "" {
		b.seeds = append(b.seeds, Seed{Node: variable, Confidence: conf, SourceIdx: idx})
	}

	// A source expression sitting directly inside a call argument taints
	// that argument position even when no variable is involved, e.g.
	// redirect($_SERVER['HTTP_HOST']).
	call := callOf(n)
	if call == nil {
		return
	}
	for i, arg := range call.Args {
		if _, _, ok := b.set.MatchSource(arg.Raw); ok {
			b.seeds = append(b.seeds, Seed{
				Node:       ArgNode(call.Callee, i, call.File, call.Line),
				Confidence: conf,
				SourceIdx:  idx,
			})
		}
	}
}

// classifySink records a sink call site with its argument graph handles.
func (b *Builder) classifySink(n *parser.Node) {
	call := callOf(n)
	if call == nil {
		return
	}
	kind, ok := b.set.MatchSink(n.Raw)
	if !ok {
		return
	}

	site := SinkSite{
		Sink: schemas.TaintSink{
			File:   call.File,
			Line:   n.Line,
			Column: n.Column,
			Callee: calleeLabel(call),
			Kind:   kind,
			Raw:    n.Raw,
		},
	}
	for i, arg := range call.Args {
		site.Sink.Arguments = append(site.Sink.Arguments, arg.Raw)
		site.ArgNodes = append(site.ArgNodes, ArgNode(call.Callee, i, call.File, call.Line))
		// Scan the raw argument text rather than the parsed subtree: variables
		// buried in concatenations or double-quoted interpolation still count.
		site.ArgVars = append(site.ArgVars, parser.VarsInText(arg.Raw))
	}
	b.sinks = append(b.sinks, site)
}

// assignmentEdges emits edges from every right-hand-side variable into the
// assignment target.
func (b *Builder) assignmentEdges(n *parser.Node) {
	exprRaw := n.Expr.Raw

	if n.Expr.IsCall() {
		b.callArgEdges(n.Expr)
		rule := b.set.FunctionRule(n.Expr.Callee)
		if rule.Policy == rules.PolicyRemoving {
			// Sanitizer output is clean; nothing flows into the target.
			return
		}
		for _, v := range n.Expr.Vars() {
			b.graph.AddEdge(Edge{
				From: v, To: n.Target, Op: schemas.OpCallReturn,
				File: n.File, Line: n.Line, Weight: rule.Weight,
			})
		}
		return
	}

	op := schemas.OpAssign
	weight := assignWeight
	switch {
	case n.AssignOp == ".=" || parser.IsConcatExpr(exprRaw):
		op = schemas.OpConcat
		weight = concatWeight
	case n.Expr.Kind == parser.KindArrayAccess:
		op = schemas.OpArrayAccess
		weight = arrayAccessWeight
	}

	for _, v := range parser.VarsInText(exprRaw) {
		b.graph.AddEdge(Edge{
			From: v, To: n.Target, Op: op,
			File: n.File, Line: n.Line, Weight: weight,
		})
	}
}

// callArgEdges connects every variable inside each argument to that
// argument's synthetic node, so taint arriving at a variable is visible at
// every call position that consumes it. The raw text is scanned, not the
// parsed subtree: `"Location: " . $host` and `"https://$host"` both parse to
// literal-ish nodes but still reference the variable.
func (b *Builder) callArgEdges(call *parser.Node) {
	for i, arg := range call.Args {
		node := ArgNode(call.Callee, i, call.File, call.Line)
		for _, v := range parser.VarsInText(arg.Raw) {
			b.graph.AddEdge(Edge{
				From: v, To: node, Op: schemas.OpCallArg,
				File: call.File, Line: call.Line, Weight: callArgWeight,
			})
		}
	}
}

// callOf unwraps a statement to the call it contains, if any.
func callOf(n *parser.Node) *parser.Node {
	if n.IsCall() {
		return n
	}
	if n.Kind == parser.KindAssignment && n.Expr != nil && n.Expr.IsCall() {
		return n.Expr
	}
	return nil
}

// calleeLabel renders the call target the way it appears in source.
func calleeLabel(call *parser.Node) string {
	switch call.Kind {
	case parser.KindMethodCall:
		return call.Receiver + "->" + call.Callee
	case parser.KindStaticCall:
		return strings.TrimSuffix(call.Receiver, "::") + "::" + call.Callee
	default:
		return call.Callee
	}
}
