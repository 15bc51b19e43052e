package schemas

import (
	"encoding/json"
	"time"
)

// Severity represents the severity level of a reported finding. The values
// are lowercase to align with database ENUMs.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Finding is the report-facing projection of a TaintFlow. It maps directly
// to the `findings` table when persistence is enabled.
type Finding struct {
	ID     string `json:"id"`
	ScanID string `json:"scan_id"`

	ObservedAt time.Time `json:"observed_at"`

	// Target is the sink location in file:line form.
	Target    string `json:"target"`
	Framework string `json:"framework"`

	VulnerabilityName string `json:"vulnerability_name"`

	Severity    Severity `json:"severity"`
	Description string   `json:"description"`

	// Evidence holds the originating TaintFlow serialized as JSON.
	Evidence json.RawMessage `json:"evidence,omitempty"`

	Recommendation string   `json:"recommendation"`
	CWE            []string `json:"cwe,omitempty"`
}

// ResultEnvelope bundles everything a reporter consumes for one scan.
type ResultEnvelope struct {
	ScanID    string          `json:"scan_id"`
	Timestamp time.Time       `json:"timestamp"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Findings  []Finding       `json:"findings"`
}
