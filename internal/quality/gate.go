package quality

import (
	"fmt"
	"strings"

	"trialgraph/internal/domain"
)

// Unknown-zone rate thresholds from §4.13: 10% raises a warning, 25%
// also downgrades the run's final status.
const (
	unknownZoneWarnRate = 0.10
	unknownZoneFailRate = 0.25
)

// GateResult is the quality gate's verdict: the run's final status plus
// every warning that contributed to it.
type GateResult struct {
	Status   domain.RunStatus
	Warnings []string
}

// Gate decides a run's final status from its aggregated Metrics, per
// §4.13: missing required facts, conflicting facts, or needs-review facts
// force at least `partial`; an unknown-zone rate of 25% or more does too.
// A 10-25% unknown-zone rate or missing core sections leave the status
// `ok` but still surface a warning. Gate never returns `failed` — that status is
// reserved for pipeline errors the orchestrator (C14) catches before
// metrics are even computed.
func Gate(m Metrics) GateResult {
	result := GateResult{Status: domain.RunOK}

	if len(m.Facts.MissingRequired) > 0 {
		result.Status = domain.RunPartial
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("missing required facts: %s", strings.Join(m.Facts.MissingRequired, ", ")))
	}

	if m.Facts.ConflictingCount > 0 {
		result.Status = domain.RunPartial
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d fact(s) flagged conflicting", m.Facts.ConflictingCount))
	}

	if len(m.Facts.NeedsReview) > 0 {
		result.Status = domain.RunPartial
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d fact(s) need review: %s", len(m.Facts.NeedsReview), strings.Join(m.Facts.NeedsReview, ", ")))
	}

	switch {
	case m.Anchors.UnknownZoneRate >= unknownZoneFailRate:
		result.Status = domain.RunPartial
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("unknown-zone rate %.1f%% exceeds the %.0f%% threshold", m.Anchors.UnknownZoneRate*100, unknownZoneFailRate*100))
	case m.Anchors.UnknownZoneRate >= unknownZoneWarnRate:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("unknown-zone rate %.1f%% exceeds the %.0f%% threshold", m.Anchors.UnknownZoneRate*100, unknownZoneWarnRate*100))
	}

	if len(m.SectionMaps.MissingCoreKeys) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("core sections not mapped: %s", strings.Join(m.SectionMaps.MissingCoreKeys, ", ")))
	}

	return result
}
