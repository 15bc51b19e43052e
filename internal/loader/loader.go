// Package loader walks a source tree and reads the PHP-flavored files the
// engine analyzes. Discovery and filtering live here so the analysis stages
// stay agnostic to where file contents came from.
package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// SourceFile is one loaded file, path relative to the scan root.
type SourceFile struct {
	Path    string
	Content string
}

// Result carries the loaded files plus the count of files that could not be
// read. Unreadable files are never fatal; they are skipped and counted.
type Result struct {
	Files   []SourceFile
	Skipped int
}

var phpExtensions = []string{".php", ".phtml", ".inc", ".php5", ".blade.php"}

var skippedDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"cache":        true,
	".idea":        true,
}

// Load walks root, discovers analyzable files, and reads them with a bounded
// pool of workers. Each worker writes into its own slot of a pre-sized
// slice, so no locking is needed and output order matches discovery order.
func Load(ctx context.Context, root string, concurrency int) (*Result, error) {
	logger := observability.GetLogger().Named("loader")
	if concurrency < 1 {
		concurrency = 1
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A directory we cannot list is skipped, not fatal.
			logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if isAnalyzable(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]*SourceFile, len(paths))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
				skipped.Add(1)
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			files[i] = &SourceFile{Path: filepath.ToSlash(rel), Content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Skipped: int(skipped.Load())}
	for _, f := range files {
		if f != nil {
			res.Files = append(res.Files, *f)
		}
	}
	logger.Info("source tree loaded",
		zap.String("root", root),
		zap.Int("files", len(res.Files)),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func isAnalyzable(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range phpExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
