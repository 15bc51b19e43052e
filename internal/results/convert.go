// Package results projects the engine's taint flows into report-facing
// findings: stable IDs, severities, CWE references, and remediation text.
package results

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sinkAdvice carries the per-sink-kind report text. Extending coverage means
// adding a row, the same way the rules packs grow.
type sinkAdvice struct {
	name           string
	cwe            []string
	recommendation string
}

var adviceByKind = map[schemas.SinkKind]sinkAdvice{
	schemas.SinkURLGeneration: {
		name:           "Host Header Poisoning in URL Generation",
		cwe:            []string{"CWE-644"},
		recommendation: "Generate absolute URLs from a configured canonical base URL instead of the request Host header.",
	},
	schemas.SinkRedirect: {
		name:           "Host-Header-Controlled Redirect",
		cwe:            []string{"CWE-601", "CWE-644"},
		recommendation: "Validate redirect targets against an allowlist; never derive redirect hosts from request headers.",
	},
	schemas.SinkAuthentication: {
		name:           "Host Header Poisoning in Authentication Flow",
		cwe:            []string{"CWE-640", "CWE-644"},
		recommendation: "Build login, logout, and password-reset links from a trusted configured host.",
	},
	schemas.SinkTemplateRender: {
		name:           "Host-Derived Value Rendered in Template",
		cwe:            []string{"CWE-644"},
		recommendation: "Pass a configured host to templates, or validate the request host against trusted values first.",
	},
	schemas.SinkResponseHeader: {
		name:           "Host-Derived Value in Response Header",
		cwe:            []string{"CWE-644"},
		recommendation: "Do not echo the request host into response headers without validating it against trusted hosts.",
	},
	schemas.SinkMail: {
		name:           "Host Header Poisoning in Outbound Mail",
		cwe:            []string{"CWE-640", "CWE-644"},
		recommendation: "Use a configured domain when composing links in outbound mail, especially password-reset messages.",
	},
}

var genericAdvice = sinkAdvice{
	name:           "Host Header Poisoning",
	cwe:            []string{"CWE-644"},
	recommendation: "Validate the request host against a trusted-host allowlist before using it.",
}

// severityFor maps confidence tiers onto finding severities.
func severityFor(confidence float64) schemas.Severity {
	switch schemas.TierFor(confidence) {
	case schemas.TierHigh:
		return schemas.SeverityHigh
	case schemas.TierMedium:
		return schemas.SeverityMedium
	default:
		return schemas.SeverityLow
	}
}

// Convert projects an analysis result into a persisted/reported envelope.
// Finding IDs are fresh UUIDs; the originating flow rides along as evidence.
func Convert(result *schemas.AnalysisResult) *schemas.ResultEnvelope {
	logger := observability.GetLogger().Named("results")
	now := time.Now().UTC()
	envelope := &schemas.ResultEnvelope{
		ScanID:    uuid.NewString(),
		Timestamp: now,
		Result:    result,
		Findings:  []schemas.Finding{},
	}

	for _, flow := range result.Flows {
		advice, ok := adviceByKind[flow.Sink.Kind]
		if !ok {
			advice = genericAdvice
		}

		evidence, err := json.Marshal(flow)
		if err != nil {
			logger.Warn("failed to serialize flow evidence",
				zap.String("sink_file", flow.Sink.File),
				zap.Int("sink_line", flow.Sink.Line),
				zap.Error(err))
			evidence = nil
		}

		envelope.Findings = append(envelope.Findings, schemas.Finding{
			ID:                uuid.NewString(),
			ScanID:            envelope.ScanID,
			ObservedAt:        now,
			Target:            fmt.Sprintf("%s:%d", flow.Sink.File, flow.Sink.Line),
			Framework:         result.Framework,
			VulnerabilityName: advice.name,
			Severity:          severityFor(flow.Confidence),
			Description:       describe(flow),
			Evidence:          evidence,
			Recommendation:    advice.recommendation,
			CWE:               advice.cwe,
		})
	}
	return envelope
}

func describe(flow schemas.TaintFlow) string {
	desc := fmt.Sprintf(
		"Attacker-controlled host value from %s (%s:%d) reaches %s (%s:%d) with confidence %.2f.",
		flow.Source.Kind, flow.Source.File, flow.Source.Line,
		flow.Sink.Callee, flow.Sink.File, flow.Sink.Line,
		flow.Confidence)
	if flow.HasGuard {
		desc += " Trusted-host configuration was detected nearby and may mitigate this flow."
	}
	if flow.HasValidation {
		desc += " Sanitization calls were detected nearby and may mitigate this flow."
	}
	return desc
}
