// Package engine drives a complete scan: target resolution, framework
// detection, rules selection, source loading, and analysis backend dispatch.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/backends"
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/fetch"
	"github.com/xkilldash9x/hnpscan-cli/internal/frameworkdetect"
	"github.com/xkilldash9x/hnpscan-cli/internal/loader"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Engine is the scan coordinator. It owns no analysis logic itself; every
// stage is a collaborator it wires together according to configuration.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New returns an Engine over validated configuration.
func New(cfg *config.Config) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: observability.GetLogger().Named("engine"),
	}
}

// Scan analyzes the configured target and returns the normalized result.
// Infrastructure failures (unreachable target, missing rules file, unknown
// backend) are hard errors; per-file read failures are skip-and-continue and
// surface only as the skipped count.
func (e *Engine) Scan(ctx context.Context) (*schemas.AnalysisResult, error) {
	target, err := fetch.Resolve(ctx, e.cfg.Scan.Target)
	if err != nil {
		return nil, err
	}
	defer target.Cleanup()

	set, err := e.selectRules(target.Root)
	if err != nil {
		return nil, err
	}

	backend, err := backends.New(e.cfg.Engine.Backend, e.cfg.Engine.ParseConcurrency)
	if err != nil {
		return nil, err
	}

	loaded, err := loader.Load(ctx, target.Root, e.cfg.Engine.ReadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tree: %w", err)
	}

	e.logger.Info("starting analysis",
		zap.String("target", e.cfg.Scan.Target),
		zap.String("framework", set.Framework),
		zap.String("backend", backend.Name()),
		zap.Int("files", len(loaded.Files)))

	result, err := backend.Analyze(ctx, loaded.Files, set, e.cfg.Analysis)
	if err != nil {
		return nil, err
	}
	result.FilesSkipped += loaded.Skipped
	return result, nil
}

// selectRules resolves the rules pack: an explicit rules file wins, then the
// configured framework, then marker-file auto-detection.
func (e *Engine) selectRules(root string) (*rules.Set, error) {
	if e.cfg.Rules.File != "" {
		return rules.LoadFile(e.cfg.Rules.File)
	}
	framework := e.cfg.Rules.Framework
	if framework == "" || framework == "auto" {
		framework = frameworkdetect.Detect(root)
	}
	return rules.ForFramework(framework)
}
