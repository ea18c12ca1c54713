package domain

import "errors"

// Sentinel errors from the §7 error taxonomy. Components wrap these with
// fmt.Errorf("...: %w", ErrX) so callers can errors.Is against a stable
// identity while still carrying a human-readable message.
var (
	ErrFileMissing          = errors.New("source file not found")
	ErrUnsupportedFormat    = errors.New("unsupported source format")
	ErrParseError           = errors.New("document parse error")
	ErrFootnotesUnavailable = errors.New("footnote collection unavailable")
	ErrSoAAmbiguous         = errors.New("multiple schedule-of-activities candidates")
	ErrLLMUnavailable       = errors.New("llm provider unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrNoAnchors            = errors.New("no anchors extracted from document")
)
