// Package fetch materializes remote scan targets. A target that looks like a
// git URL is shallow-cloned into a temporary directory; anything else is
// treated as a local path.
package fetch

import (
	"context"
	"fmt"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Target is a resolved scan root. Cleanup removes any temporary clone and is
// a no-op for local paths; callers must always defer it.
type Target struct {
	Root    string
	Remote  bool
	cleanup func()
}

// Cleanup removes the backing temporary directory, if any.
func (t *Target) Cleanup() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// IsRemote reports whether raw names a git repository rather than a local
// filesystem path.
func IsRemote(raw string) bool {
	return strings.HasPrefix(raw, "http://") ||
		strings.HasPrefix(raw, "https://") ||
		strings.HasPrefix(raw, "git@") ||
		strings.HasSuffix(raw, ".git")
}

// Resolve turns a raw target argument into a scannable directory. Remote
// targets are cloned depth-1; history is irrelevant to static analysis.
func Resolve(ctx context.Context, raw string) (*Target, error) {
	logger := observability.GetLogger().Named("fetch")

	if !IsRemote(raw) {
		info, err := os.Stat(raw)
		if err != nil {
			return nil, fmt.Errorf("target %s is not accessible: %w", raw, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("target %s is not a directory", raw)
		}
		return &Target{Root: raw}, nil
	}

	tempDir, err := os.MkdirTemp("", "hnpscan-clone-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone workspace: %w", err)
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			logger.Warn("failed to remove clone workspace", zap.String("dir", tempDir), zap.Error(rmErr))
		}
	}

	logger.Info("cloning remote target", zap.String("url", raw), zap.String("workspace", tempDir))
	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:          raw,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to clone %s: %w", raw, err)
	}
	return &Target{Root: tempDir, Remote: true, cleanup: cleanup}, nil
}
