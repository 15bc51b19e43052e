// Package rules carries the pattern libraries the classifier and propagation
// stages consume: taint-source patterns, taint-sink patterns, guard and
// validation keyword lists, and per-function propagation rules. Everything
// here is data keyed by a framework identifier; supporting a new framework
// means adding data, not code.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// PropagationPolicy is the three-way classification of how a callee treats
// taint in its arguments.
type PropagationPolicy string

const (
	// PolicyPreserving propagates taint with high weight (URL builders).
	PolicyPreserving PropagationPolicy = "preserving"
	// PolicyRemoving stops propagation (sanitizers).
	PolicyRemoving PropagationPolicy = "removing"
	// PolicyUnknown propagates with reduced confidence.
	PolicyUnknown PropagationPolicy = "unknown"
)

// FunctionRule is the propagation behavior of one known callee.
type FunctionRule struct {
	Policy PropagationPolicy
	Weight float64
}

// SourcePattern classifies a statement as a taint source.
type SourcePattern struct {
	Kind       schemas.SourceKind
	Confidence float64
	re         *regexp.Regexp
}

// SinkPattern classifies a call site as a taint sink.
type SinkPattern struct {
	Kind schemas.SinkKind
	re   *regexp.Regexp
}

// Set is one compiled rules pack for a single framework.
type Set struct {
	Framework string

	sources     []SourcePattern
	sinks       []SinkPattern
	guards      []*regexp.Regexp
	validations []*regexp.Regexp
	functions   map[string]FunctionRule

	// unknownWeight applies to callees without an entry in functions.
	unknownWeight float64
}

// MatchSource tests raw statement text against the source library. The first
// matching entry wins; entries are ordered most-specific first.
func (s *Set) MatchSource(raw string) (schemas.SourceKind, float64, bool) {
	for _, p := range s.sources {
		if p.re.MatchString(raw) {
			return p.Kind, p.Confidence, true
		}
	}
	return schemas.SourceUnknown, 0, false
}

// MatchSink tests raw call text against the sink library.
func (s *Set) MatchSink(raw string) (schemas.SinkKind, bool) {
	for _, p := range s.sinks {
		if p.re.MatchString(raw) {
			return p.Kind, true
		}
	}
	return schemas.SinkUnknown, false
}

// HasGuard reports whether content carries trusted-host/trusted-proxy
// configuration evidence anywhere.
func (s *Set) HasGuard(content string) bool {
	for _, re := range s.guards {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// HasValidation reports whether content carries sanitization or validation
// call evidence anywhere.
func (s *Set) HasValidation(content string) bool {
	for _, re := range s.validations {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// FunctionRule returns the propagation rule for a callee. Absence of a rule
// is expected and common: unknown callees propagate at the reduced default
// weight rather than failing.
func (s *Set) FunctionRule(name string) FunctionRule {
	if r, ok := s.functions[strings.ToLower(name)]; ok {
		return r
	}
	return FunctionRule{Policy: PolicyUnknown, Weight: s.unknownWeight}
}

// SetUnknownWeight overrides the default weight for callees without a rule.
func (s *Set) SetUnknownWeight(w float64) {
	if w > 0 && w <= 1 {
		s.unknownWeight = w
	}
}

// -- Loadable spec (YAML / mapstructure) --

// FileSpec mirrors the YAML rules file layout.
type FileSpec struct {
	Framework   string            `mapstructure:"framework"`
	Sources     []SourceSpec      `mapstructure:"sources"`
	Sinks       []SinkSpec        `mapstructure:"sinks"`
	Guards      []string          `mapstructure:"guards"`
	Validations []string          `mapstructure:"validations"`
	Functions   map[string]FnSpec `mapstructure:"functions"`
}

// SourceSpec is one source entry in a rules file.
type SourceSpec struct {
	Kind       string  `mapstructure:"kind"`
	Pattern    string  `mapstructure:"pattern"`
	Confidence float64 `mapstructure:"confidence"`
}

// SinkSpec is one sink entry in a rules file.
type SinkSpec struct {
	Kind    string `mapstructure:"kind"`
	Pattern string `mapstructure:"pattern"`
}

// FnSpec is one propagation rule entry in a rules file.
type FnSpec struct {
	Policy string  `mapstructure:"policy"`
	Weight float64 `mapstructure:"weight"`
}

// Compile turns a file spec into a usable Set.
func (fs *FileSpec) Compile() (*Set, error) {
	if fs.Framework == "" {
		return nil, fmt.Errorf("rules file is missing a framework identifier")
	}
	set := &Set{
		Framework:     fs.Framework,
		functions:     map[string]FunctionRule{},
		unknownWeight: defaultUnknownWeight,
	}

	for _, src := range fs.Sources {
		re, err := regexp.Compile("(?i)" + src.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", src.Pattern, err)
		}
		conf := src.Confidence
		if conf <= 0 || conf > 1 {
			conf = 1.0
		}
		set.sources = append(set.sources, SourcePattern{
			Kind:       schemas.SourceKind(src.Kind),
			Confidence: conf,
			re:         re,
		})
	}
	for _, snk := range fs.Sinks {
		re, err := regexp.Compile("(?i)" + snk.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid sink pattern %q: %w", snk.Pattern, err)
		}
		set.sinks = append(set.sinks, SinkPattern{Kind: schemas.SinkKind(snk.Kind), re: re})
	}
	for _, g := range fs.Guards {
		re, err := regexp.Compile("(?i)" + g)
		if err != nil {
			return nil, fmt.Errorf("invalid guard pattern %q: %w", g, err)
		}
		set.guards = append(set.guards, re)
	}
	for _, v := range fs.Validations {
		re, err := regexp.Compile("(?i)" + v)
		if err != nil {
			return nil, fmt.Errorf("invalid validation pattern %q: %w", v, err)
		}
		set.validations = append(set.validations, re)
	}
	for name, fn := range fs.Functions {
		policy := PropagationPolicy(fn.Policy)
		switch policy {
		case PolicyPreserving, PolicyRemoving, PolicyUnknown:
		default:
			return nil, fmt.Errorf("function %q has invalid policy %q", name, fn.Policy)
		}
		set.functions[strings.ToLower(name)] = FunctionRule{Policy: policy, Weight: fn.Weight}
	}
	return set, nil
}

// ForFramework returns the built-in rules pack for a framework identifier.
// A pack that does not exist is a hard error: the engine cannot proceed
// without its pattern libraries.
func ForFramework(name string) (*Set, error) {
	spec, ok := builtinSpecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("no built-in rules for framework %q (known: %s)",
			name, strings.Join(Frameworks(), ", "))
	}
	set, err := spec.Compile()
	if err != nil {
		// Built-in packs are compile-checked by tests; an error here means
		// a broken pack shipped.
		return nil, fmt.Errorf("built-in rules for %q are invalid: %w", name, err)
	}
	return set, nil
}

// Frameworks lists the built-in framework identifiers, sorted.
func Frameworks() []string {
	names := make([]string, 0, len(builtinSpecs))
	for name := range builtinSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a YAML rules file and compiles it. A missing or malformed
// file is an infrastructure failure and propagates as a hard error.
func LoadFile(path string) (*Set, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var spec FileSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules file %s: %w", path, err)
	}
	set, err := spec.Compile()
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return set, nil
}
