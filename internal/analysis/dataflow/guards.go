package dataflow

import (
	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
)

// GuardDetector answers, per source/sink file pair, whether trusted-host
// configuration or sanitization evidence exists. It scans whole files, not
// the span between source and sink: the heuristic is meant to bias
// confidence down on any plausible evidence, not to prove safety. Results
// are cached per file since the same files recur across many flows.
type GuardDetector struct {
	set      *rules.Set
	contents map[string]string

	guardCache      map[string]bool
	validationCache map[string]bool
}

// NewGuardDetector builds a detector over the raw file contents the engine
// already has in memory.
func NewGuardDetector(set *rules.Set, contents map[string]string) *GuardDetector {
	return &GuardDetector{
		set:             set,
		contents:        contents,
		guardCache:      make(map[string]bool),
		validationCache: make(map[string]bool),
	}
}

// Check returns the two independent booleans for a flow between the given
// files. Evidence anywhere in either file counts.
func (d *GuardDetector) Check(sourceFile, sinkFile string) (hasGuard, hasValidation bool) {
	hasGuard = d.fileHasGuard(sourceFile) || d.fileHasGuard(sinkFile)
	hasValidation = d.fileHasValidation(sourceFile) || d.fileHasValidation(sinkFile)
	return hasGuard, hasValidation
}

func (d *GuardDetector) fileHasGuard(file string) bool {
	if v, ok := d.guardCache[file]; ok {
		return v
	}
	v := d.set.HasGuard(d.contents[file])
	d.guardCache[file] = v
	return v
}

func (d *GuardDetector) fileHasValidation(file string) bool {
	if v, ok := d.validationCache[file]; ok {
		return v
	}
	v := d.set.HasValidation(d.contents[file])
	d.validationCache[file] = v
	return v
}
