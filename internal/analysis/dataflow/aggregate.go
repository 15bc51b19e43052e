package dataflow

import (
	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// Aggregate assembles the final result: classified sources and sinks, the
// synthesized flows, and the summary counts reporting consumes. The flow
// slice is assumed already sorted by the synthesizer; aggregation never
// reorders or mutates it.
func Aggregate(framework string, b *Builder, flows []schemas.TaintFlow) *schemas.AnalysisResult {
	res := schemas.EmptyResult(framework)

	res.Sources = append(res.Sources, b.Sources()...)
	for _, site := range b.Sinks() {
		res.Sinks = append(res.Sinks, site.Sink)
	}
	res.Flows = append(res.Flows, flows...)

	for _, f := range flows {
		res.CountsByTier[schemas.TierFor(f.Confidence)]++
		res.CountsBySink[f.Sink.Kind]++
	}
	return res
}
