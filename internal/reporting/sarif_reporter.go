package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
	"github.com/xkilldash9x/hnpscan-cli/internal/reporting/sarif"
)

const (
	ToolName     = "hnpscan-cli"
	ToolInfoURI  = "https://github.com/xkilldash9x/hnpscan-cli"
	SARIFVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

	ruleIDPrefix = "HNPSCAN-"
)

// ruleIDSanitizer collapses anything outside the SARIF-safe character set
// into single hyphens.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFReporter accumulates findings into a single SARIF run and encodes it
// on Close. Safe for concurrent Write calls.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu                 sync.Mutex
	log                *sarif.Log
	rulesByFingerprint map[string]*sarif.ReportingDescriptor
	ruleIDUsage        map[string]int
}

// NewSARIFReporter constructs a reporter around the given writer. The tool
// version is recorded in the driver component so consumers can trace which
// release produced a report.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	run := &sarif.Run{
		Tool: &sarif.Tool{
			Driver: &sarif.ToolComponent{
				Name:           ToolName,
				Version:        pString(toolVersion),
				InformationURI: pString(ToolInfoURI),
				Rules:          []*sarif.ReportingDescriptor{},
			},
		},
		Results: []*sarif.Result{},
	}

	return &SARIFReporter{
		writer: writer,
		logger: observability.GetLogger().Named("sarif_reporter"),
		log: &sarif.Log{
			Version: SARIFVersion,
			Schema:  sarifSchema,
			Runs:    []*sarif.Run{run},
		},
		rulesByFingerprint: make(map[string]*sarif.ReportingDescriptor),
		ruleIDUsage:        make(map[string]int),
	}
}

// Write appends every finding in the envelope to the run, registering a rule
// descriptor per distinct finding shape.
func (r *SARIFReporter) Write(envelope *schemas.ResultEnvelope) error {
	if envelope == nil || len(envelope.Findings) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	for i := range envelope.Findings {
		finding := &envelope.Findings[i]
		rule := r.ensureRule(finding)

		messageText := finding.Description
		if messageText == "" {
			messageText = finding.VulnerabilityName
		}

		run.Results = append(run.Results, &sarif.Result{
			RuleID:    rule.ID,
			Level:     mapSeverityToSARIFLevel(finding.Severity),
			Message:   &sarif.Message{Text: pString(messageText)},
			Locations: createLocations(finding),
		})
	}
	return nil
}

// Close encodes the accumulated log and closes the writer. An encoding
// failure takes precedence over a close failure.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(r.log)

	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF report.", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// ensureRule returns the descriptor for the finding's shape, creating and
// registering one the first time that shape is seen. Caller holds r.mu.
func (r *SARIFReporter) ensureRule(finding *schemas.Finding) *sarif.ReportingDescriptor {
	fingerprint := calculateFingerprint(finding)
	if rule, ok := r.rulesByFingerprint[fingerprint]; ok {
		return rule
	}

	baseID := sanitizeRuleID(finding.VulnerabilityName)
	ruleID := baseID
	if n := r.ruleIDUsage[baseID]; n > 0 {
		ruleID = baseID + "-" + strconv.Itoa(n)
	}
	r.ruleIDUsage[baseID]++

	var helpMarkdown string
	if finding.Recommendation != "" {
		helpMarkdown = "## Remediation\n\n" + finding.Recommendation
	}

	props := sarif.PropertyBag{
		"tags":      []string{"security", "host-header-injection"},
		"precision": "medium",
	}
	if len(finding.CWE) > 0 {
		props["CWE"] = finding.CWE
	}

	rule := &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(finding.VulnerabilityName),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(finding.VulnerabilityName)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(finding.Description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(finding.Recommendation),
			Markdown: pString(helpMarkdown),
		},
		Properties: &props,
	}

	r.rulesByFingerprint[fingerprint] = rule
	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, rule)
	return rule
}

// calculateFingerprint hashes the fields that define a rule's identity. CWEs
// are sorted so ordering differences do not split rules.
func calculateFingerprint(finding *schemas.Finding) string {
	cwes := make([]string, len(finding.CWE))
	copy(cwes, finding.CWE)
	sort.Strings(cwes)

	identity := struct {
		Name           string   `json:"name"`
		Description    string   `json:"description"`
		Recommendation string   `json:"recommendation"`
		CWE            []string `json:"cwe"`
	}{
		Name:           finding.VulnerabilityName,
		Description:    finding.Description,
		Recommendation: finding.Recommendation,
		CWE:            cwes,
	}

	hasher := sha1.New()
	// Encoding a flat struct of strings cannot fail.
	_ = json.NewEncoder(hasher).Encode(identity)
	return hex.EncodeToString(hasher.Sum(nil))
}

func sanitizeRuleID(name string) string {
	if name == "" {
		return ruleIDPrefix + "UNNAMED-VULNERABILITY"
	}
	sanitized := ruleIDSanitizer.ReplaceAllString(name, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return ruleIDPrefix + "UNKNOWN-VULNERABILITY"
	}
	return ruleIDPrefix + strings.ToUpper(sanitized)
}

// createLocations derives the physical location from the finding target,
// which carries "path:line" for static findings.
func createLocations(finding *schemas.Finding) []*sarif.Location {
	if finding.Target == "" {
		return nil
	}

	uri := finding.Target
	var region *sarif.Region
	if idx := strings.LastIndex(finding.Target, ":"); idx > 0 {
		if line, err := strconv.Atoi(finding.Target[idx+1:]); err == nil && line > 0 {
			uri = finding.Target[:idx]
			region = &sarif.Region{StartLine: line}
		}
	}

	return []*sarif.Location{{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(uri)},
			Region:           region,
		},
	}}
}

func mapSeverityToSARIFLevel(severity schemas.Severity) sarif.Level {
	switch strings.ToLower(string(severity)) {
	case "high":
		return sarif.LevelError
	case "medium":
		return sarif.LevelWarning
	case "low", "info":
		return sarif.LevelNote
	default:
		return sarif.LevelNote
	}
}

func pString(s string) *string { return &s }
