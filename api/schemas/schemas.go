// Package schemas defines the canonical result shapes shared between the
// analysis engine, the report writers, and the store. Every back end is
// normalized into these types before anything downstream sees it.
package schemas

// SourceKind classifies where an externally controlled host value enters the
// analyzed program.
type SourceKind string

const (
	SourceHostHeader    SourceKind = "http_host"      // $_SERVER['HTTP_HOST'] style reads
	SourceServerName    SourceKind = "server_name"    // $_SERVER['SERVER_NAME'] style reads
	SourceHostAccessor  SourceKind = "host_accessor"  // framework accessors: getHost(), getHttpHost(), ...
	SourceForwardedHost SourceKind = "forwarded_host" // X-Forwarded-Host / FORWARDED_HOST reads
	SourceUnknown       SourceKind = "unknown"
)

// SinkKind categorizes the trust-sensitive operation a tainted value reaches.
type SinkKind string

const (
	SinkURLGeneration  SinkKind = "url_generation"
	SinkRedirect       SinkKind = "redirect"
	SinkAuthentication SinkKind = "authentication"
	SinkTemplateRender SinkKind = "template_render"
	SinkResponseHeader SinkKind = "response_header"
	SinkMail           SinkKind = "mail"
	SinkUnknown        SinkKind = "unknown"
)

// OperationKind labels the edge type in the data-flow graph.
type OperationKind string

const (
	OpAssign      OperationKind = "assign"
	OpConcat      OperationKind = "concat"
	OpArrayAccess OperationKind = "array_access"
	OpCallArg     OperationKind = "call_arg"
	OpCallReturn  OperationKind = "call_return"
)

// TaintSource is a program point where an attacker-influenced host value
// enters the analysis. Immutable once created.
type TaintSource struct {
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Variable   string     `json:"variable"`
	Kind       SourceKind `json:"kind"`
	Raw        string     `json:"raw"`
	Confidence float64    `json:"confidence"` // base confidence at the entry point
}

// TaintSink is a call site that consumes a value in a security-relevant way.
type TaintSink struct {
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	Callee    string   `json:"callee"`
	Arguments []string `json:"arguments"`
	Kind      SinkKind `json:"kind"`
	Raw       string   `json:"raw"`
}

// FlowStep is one hop in a reported taint path.
type FlowStep struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Label string `json:"label"`
}

// FlowType distinguishes flows whose source and sink share a file from flows
// that cross file boundaries.
type FlowType string

const (
	FlowSameFile  FlowType = "same-file"
	FlowCrossFile FlowType = "cross-file"
)

// TaintFlow is the terminal artifact of an analysis run: one confirmed
// source-to-sink pairing, annotated with guard evidence and a confidence
// score in [0,1]. Never mutated after creation.
type TaintFlow struct {
	Source          TaintSource `json:"source"`
	Sink            TaintSink   `json:"sink"`
	TaintedArgument string      `json:"tainted_argument"`
	Path            []FlowStep  `json:"flow_path"`
	HasGuard        bool        `json:"has_guard"`
	HasValidation   bool        `json:"has_validation"`
	Confidence      float64     `json:"confidence"`
	Type            FlowType    `json:"flow_type"`
}

// ConfidenceTier buckets flows for summary reporting.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// TierFor maps a confidence score onto its reporting tier.
// High is >= 0.7, medium is [0.4, 0.7), low is the rest.
func TierFor(confidence float64) ConfidenceTier {
	switch {
	case confidence >= 0.7:
		return TierHigh
	case confidence >= 0.4:
		return TierMedium
	default:
		return TierLow
	}
}

// AnalysisResult is the sole artifact an analysis back end hands to the
// reporting and persistence layers.
type AnalysisResult struct {
	Framework    string                 `json:"framework"`
	FilesScanned int                    `json:"files_scanned"`
	FilesSkipped int                    `json:"files_skipped"`
	Sources      []TaintSource          `json:"sources"`
	Sinks        []TaintSink            `json:"sinks"`
	Flows        []TaintFlow            `json:"flows"`
	CountsByTier map[ConfidenceTier]int `json:"counts_by_confidence"`
	CountsBySink map[SinkKind]int       `json:"counts_by_sink_kind"`
}

// EmptyResult returns a well-formed zero-valued result. Empty input is not an
// error; callers get this instead of nil so summary maps are always present.
func EmptyResult(framework string) *AnalysisResult {
	return &AnalysisResult{
		Framework:    framework,
		Sources:      []TaintSource{},
		Sinks:        []TaintSink{},
		Flows:        []TaintFlow{},
		CountsByTier: map[ConfidenceTier]int{TierHigh: 0, TierMedium: 0, TierLow: 0},
		CountsBySink: map[SinkKind]int{},
	}
}
