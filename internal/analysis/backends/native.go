package backends

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/dataflow"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/parser"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/loader"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Native is the built-in pipeline: line-granular parsing, pattern
// classification, data-flow graph, worklist propagation, flow synthesis.
// Parsing is a pure function per file and runs in parallel into per-index
// buffers; the graph and propagation stages are single-threaded by design,
// so no locks guard the shared structures.
type Native struct {
	parseConcurrency int
	logger           *zap.Logger
}

// NewNative returns the native backend.
func NewNative(parseConcurrency int) *Native {
	if parseConcurrency < 1 {
		parseConcurrency = 1
	}
	return &Native{
		parseConcurrency: parseConcurrency,
		logger:           observability.GetLogger().Named("backend.native"),
	}
}

// Name implements Backend.
func (n *Native) Name() string { return "native" }

// Analyze implements Backend.
func (n *Native) Analyze(ctx context.Context, files []loader.SourceFile, set *rules.Set, cfg config.AnalysisConfig) (*schemas.AnalysisResult, error) {
	if len(files) == 0 {
		return schemas.EmptyResult(set.Framework), nil
	}

	parsed := make([][]*parser.Node, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.parseConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = parser.ParseFile(f.Path, f.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The unknown-callee weight is config, not pack data, and must be in
	// place before edges are weighted.
	set.SetUnknownWeight(cfg.UnknownCallWeight)

	builder := dataflow.NewBuilder(set)
	contents := make(map[string]string, len(files))
	for i, f := range files {
		builder.AddFile(f.Path, parsed[i])
		contents[f.Path] = f.Content
	}

	prop := dataflow.NewPropagator(builder)
	prop.Run(builder.Seeds())

	detector := dataflow.NewGuardDetector(set, contents)
	flows := dataflow.NewSynthesizer(prop, detector, cfg).Flows(builder.Sinks(), builder.Sources())

	result := dataflow.Aggregate(set.Framework, builder, flows)
	result.FilesScanned = len(files)

	n.logger.Info("analysis complete",
		zap.String("framework", set.Framework),
		zap.Int("files", len(files)),
		zap.Int("sources", len(result.Sources)),
		zap.Int("sinks", len(result.Sinks)),
		zap.Int("flows", len(result.Flows)))
	return result, nil
}
