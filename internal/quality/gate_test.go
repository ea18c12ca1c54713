package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trialgraph/internal/domain"
)

func TestGateCleanRunIsOK(t *testing.T) {
	m := Metrics{Facts: FactsMetrics{ByFactKey: map[string]int{"design/arm_count": 1}}}
	result := Gate(m)
	assert.Equal(t, domain.RunOK, result.Status)
	assert.Empty(t, result.Warnings)
}

func TestGateMissingRequiredFactDowngradesToPartial(t *testing.T) {
	m := Metrics{Facts: FactsMetrics{MissingRequired: []string{"design/sample_size"}}}
	result := Gate(m)
	assert.Equal(t, domain.RunPartial, result.Status)
	assert.Len(t, result.Warnings, 1)
}

func TestGateConflictingFactsDowngradesToPartial(t *testing.T) {
	m := Metrics{Facts: FactsMetrics{ConflictingCount: 2}}
	result := Gate(m)
	assert.Equal(t, domain.RunPartial, result.Status)
}

func TestGateUnknownZoneRateBelowWarnThresholdStaysOK(t *testing.T) {
	m := Metrics{Anchors: AnchorMetrics{UnknownZoneRate: 0.05}}
	result := Gate(m)
	assert.Equal(t, domain.RunOK, result.Status)
	assert.Empty(t, result.Warnings)
}

func TestGateUnknownZoneRateAboveWarnThresholdWarnsButStaysOK(t *testing.T) {
	m := Metrics{Anchors: AnchorMetrics{UnknownZoneRate: 0.15}}
	result := Gate(m)
	assert.Equal(t, domain.RunOK, result.Status)
	assert.Len(t, result.Warnings, 1)
}

func TestGateUnknownZoneRateAboveFailThresholdDowngradesToPartial(t *testing.T) {
	m := Metrics{Anchors: AnchorMetrics{UnknownZoneRate: 0.30}}
	result := Gate(m)
	assert.Equal(t, domain.RunPartial, result.Status)
}

func TestGateMissingCoreSectionsWarnsWithoutDowngrading(t *testing.T) {
	m := Metrics{SectionMaps: SectionMapMetrics{MissingCoreKeys: []string{"endpoints"}}}
	result := Gate(m)
	assert.Equal(t, domain.RunOK, result.Status)
	assert.Len(t, result.Warnings, 1)
}
