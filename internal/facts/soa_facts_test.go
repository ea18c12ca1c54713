package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func TestFromSoANotFoundReturnsNothing(t *testing.T) {
	facts, evidence := FromSoA("study-1", "v1", domain.SoaResult{Found: false})
	assert.Nil(t, facts)
	assert.Nil(t, evidence)
}

func TestFromSoAHighConfidenceExtracted(t *testing.T) {
	r := domain.SoaResult{
		Found:      true,
		Confidence: 0.9,
		Visits:     []domain.Visit{{VisitID: "v1", AnchorRef: "a1"}},
		Procedures: []domain.Procedure{{ProcID: "p1", AnchorRef: "a2"}},
		Matrix:     []domain.MatrixCell{{VisitID: "v1", ProcID: "p1", Value: "X", AnchorRef: "a3"}},
	}
	facts, evidence := FromSoA("study-1", "v1", r)
	require.Len(t, facts, 3)
	for _, f := range facts {
		assert.Equal(t, domain.FactExtracted, f.Status)
		assert.Equal(t, "soa", f.FactType)
		assert.Equal(t, "v1", f.CreatedFromDocVersionID)
	}
	require.Len(t, evidence, 3)
}

func TestFromSoALowConfidenceNeedsReview(t *testing.T) {
	r := domain.SoaResult{
		Found:      true,
		Confidence: 0.4,
		Visits:     []domain.Visit{{VisitID: "v1", AnchorRef: "a1"}},
	}
	facts, _ := FromSoA("study-1", "v1", r)
	require.Len(t, facts, 1)
	assert.Equal(t, domain.FactNeedsReview, facts[0].Status)
}

func TestFromSoAMatrixEvidenceCapped(t *testing.T) {
	matrix := make([]domain.MatrixCell, 150)
	for i := range matrix {
		matrix[i] = domain.MatrixCell{VisitID: "v1", ProcID: "p1", Value: "X", AnchorRef: "a-cell"}
	}
	r := domain.SoaResult{Found: true, Confidence: 0.9, Matrix: matrix}
	_, evidence := FromSoA("study-1", "v1", r)
	assert.Len(t, evidence, soaMatrixEvidenceCap)
}

func TestFromSoASkipsEmptyAnchorRefs(t *testing.T) {
	r := domain.SoaResult{
		Found:      true,
		Confidence: 0.9,
		Visits:     []domain.Visit{{VisitID: "v1", AnchorRef: ""}, {VisitID: "v2", AnchorRef: "a2"}},
	}
	_, evidence := FromSoA("study-1", "v1", r)
	assert.Len(t, evidence, 1)
}
