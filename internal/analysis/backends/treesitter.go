package backends

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
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

// TreeSitter is the grammar-backed strategy. A real PHP parse tree decides
// statement boundaries, which handles multi-line statements and embedded
// HTML that defeat the line-granular native parser. Extracted statements are
// normalized through the same classifier and data-flow stages, so both back
// ends emit the identical result shape.
type TreeSitter struct {
	parseConcurrency int
	logger           *zap.Logger
}

// NewTreeSitter returns the tree-sitter backed backend.
func NewTreeSitter(parseConcurrency int) *TreeSitter {
	if parseConcurrency < 1 {
		parseConcurrency = 1
	}
	return &TreeSitter{
		parseConcurrency: parseConcurrency,
		logger:           observability.GetLogger().Named("backend.treesitter"),
	}
}

// Name implements Backend.
func (t *TreeSitter) Name() string { return "treesitter" }

// Analyze implements Backend.
func (t *TreeSitter) Analyze(ctx context.Context, files []loader.SourceFile, set *rules.Set, cfg config.AnalysisConfig) (*schemas.AnalysisResult, error) {
	if len(files) == 0 {
		return schemas.EmptyResult(set.Framework), nil
	}

	set.SetUnknownWeight(cfg.UnknownCallWeight)

	parsed := make([][]*parser.Node, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parseConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			nodes, err := t.statements(gctx, f.Path, f.Content)
			if err != nil {
				return err
			}
			parsed[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

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

	t.logger.Info("analysis complete",
		zap.String("framework", set.Framework),
		zap.Int("files", len(files)),
		zap.Int("flows", len(result.Flows)))
	return result, nil
}

// statementTypes are the tree-sitter node types that carry one statement
// worth of analyzable expression text.
var statementTypes = map[string]bool{
	"expression_statement": true,
	"echo_statement":       true,
	"return_statement":     true,
}

// statements parses one file with the PHP grammar and extracts normalized
// statement nodes at the positions the tree reports.
func (t *TreeSitter) statements(ctx context.Context, file, content string) ([]*parser.Node, error) {
	p := sitter.NewParser()
	p.SetLanguage(php.GetLanguage())

	src := []byte(content)
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse of %s failed: %w", file, err)
	}
	defer tree.Close()

	var nodes []*parser.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if statementTypes[n.Type()] {
			line := int(n.StartPoint().Row) + 1
			if pn := parser.ParseLine(file, line, flatten(n.Content(src))); pn != nil {
				nodes = append(nodes, pn)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return nodes, nil
}

// flatten collapses a possibly multi-line statement into the single line the
// normalization layer expects.
func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
