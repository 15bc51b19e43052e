package results

import (
	"sort"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

var severityOrder = map[schemas.Severity]int{
	schemas.SeverityHigh:   1,
	schemas.SeverityMedium: 2,
	schemas.SeverityLow:    3,
	schemas.SeverityInfo:   4,
}

// Prioritize orders findings for reporting: highest severity first, then
// target location for a stable, reviewable layout.
func Prioritize(findings []schemas.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		oi, ok := severityOrder[findings[i].Severity]
		if !ok {
			oi = 99
		}
		oj, ok := severityOrder[findings[j].Severity]
		if !ok {
			oj = 99
		}
		if oi != oj {
			return oi < oj
		}
		return findings[i].Target < findings[j].Target
	})
}

// Summarize produces the per-severity counts shown at the end of a scan.
func Summarize(findings []schemas.Finding) map[string]int {
	summary := map[string]int{"total": len(findings)}
	for _, f := range findings {
		summary[string(f.Severity)]++
	}
	return summary
}
