package dataflow

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Synthesizer pairs converged taint states with classified sinks and emits
// the final flows. All confidence penalties live here, nowhere else.
type Synthesizer struct {
	prop   *Propagator
	det    *GuardDetector
	cfg    config.AnalysisConfig
	logger *zap.Logger
}

// NewSynthesizer wires the synthesis stage.
func NewSynthesizer(prop *Propagator, det *GuardDetector, cfg config.AnalysisConfig) *Synthesizer {
	return &Synthesizer{
		prop:   prop,
		det:    det,
		cfg:    cfg,
		logger: observability.GetLogger().Named("synthesize"),
	}
}

// Flows emits at most one TaintFlow per sink site: the tainted argument with
// the highest surviving confidence wins. Guard, validation, and cross-file
// penalties are subtracted from the propagated confidence, and flows that
// land below the configured minimum are dropped. Output ordering is fully
// deterministic.
func (s *Synthesizer) Flows(sinks []SinkSite, sources []schemas.TaintSource) []schemas.TaintFlow {
	var flows []schemas.TaintFlow
	dropped := 0

	for _, site := range sinks {
		arg, st, ok := s.taintedArgument(site)
		if !ok {
			continue
		}

		src := sources[s.prop.bestSource(st)]
		flowType := schemas.FlowSameFile
		if src.File != site.Sink.File {
			flowType = schemas.FlowCrossFile
		}
		hasGuard, hasValidation := s.det.Check(src.File, site.Sink.File)

		confidence := st.confidence
		if hasGuard {
			confidence -= s.cfg.GuardPenalty
		}
		if hasValidation {
			confidence -= s.cfg.ValidationPenalty
		}
		if flowType == schemas.FlowCrossFile {
			confidence -= s.cfg.CrossFilePenalty
		}
		if confidence < 0 {
			confidence = 0
		}
		if confidence < s.cfg.MinConfidence {
			dropped++
			continue
		}

		path := append(append([]schemas.FlowStep(nil), st.path...), schemas.FlowStep{
			File:  site.Sink.File,
			Line:  site.Sink.Line,
			Label: fmt.Sprintf("sink:%s %s", site.Sink.Kind, site.Sink.Callee),
		})
		flows = append(flows, schemas.TaintFlow{
			Source:          src,
			Sink:            site.Sink,
			TaintedArgument: arg,
			Path:            path,
			HasGuard:        hasGuard,
			HasValidation:   hasValidation,
			Confidence:      confidence,
			Type:            flowType,
		})
	}

	sort.SliceStable(flows, func(i, j int) bool {
		a, b := flows[i], flows[j]
		if a.Sink.File != b.Sink.File {
			return a.Sink.File < b.Sink.File
		}
		if a.Sink.Line != b.Sink.Line {
			return a.Sink.Line < b.Sink.Line
		}
		if a.Source.File != b.Source.File {
			return a.Source.File < b.Source.File
		}
		return a.Source.Line < b.Source.Line
	})

	s.logger.Debug("flows synthesized",
		zap.Int("emitted", len(flows)),
		zap.Int("below_min_confidence", dropped))
	return flows
}

// taintedArgument scans a sink's argument positions for taint, checking both
// the variables inside each argument and the argument's synthetic call node.
// The strongest state wins; earlier argument positions break ties.
func (s *Synthesizer) taintedArgument(site SinkSite) (string, *taintState, bool) {
	var (
		bestLabel string
		bestState *taintState
	)
	consider := func(label string, st *taintState) {
		if bestState == nil || st.confidence > bestState.confidence {
			bestLabel = label
			bestState = st
		}
	}

	for i := range site.ArgNodes {
		for _, v := range site.ArgVars[i] {
			if st, ok := s.prop.stateOf(v); ok {
				consider(v, st)
			}
		}
		if st, ok := s.prop.stateOf(site.ArgNodes[i]); ok {
			label := site.ArgNodes[i]
			if i < len(site.Sink.Arguments) {
				label = site.Sink.Arguments[i]
			}
			consider(label, st)
		}
	}
	if bestState == nil {
		return "", nil, false
	}
	return bestLabel, bestState, true
}
