// Package backends defines the normalization seam between analysis
// strategies and the flow synthesis stage. Every back end, whatever it uses
// to understand PHP, hands back the same AnalysisResult shape; downstream
// reporting and persistence never know which strategy ran.
package backends

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/loader"
)

// Backend is one complete analysis strategy over loaded source files.
type Backend interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// Analyze runs the strategy. Empty input is not an error; the result is
	// a well-formed empty AnalysisResult.
	Analyze(ctx context.Context, files []loader.SourceFile, set *rules.Set, cfg config.AnalysisConfig) (*schemas.AnalysisResult, error)
}

// New constructs the backend selected by configuration.
func New(name string, parseConcurrency int) (Backend, error) {
	switch name {
	case "", "native":
		return NewNative(parseConcurrency), nil
	case "treesitter":
		return NewTreeSitter(parseConcurrency), nil
	default:
		return nil, fmt.Errorf("unknown analysis backend %q (available: native, treesitter)", name)
	}
}
