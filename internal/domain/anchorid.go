package domain

import (
	"fmt"
	"strings"
)

// BuildAnchorID constructs the bit-exact anchor_id grammar from §6:
//
//	body     ::= uuid ":" ctype ":" para_index ":" hex64
//	footnote ::= uuid ":fn:" fn_index ":" fn_para_index ":" hex64
//
// positionalIndex is pre-formatted by the caller: a plain integer for
// body/footnote anchors, or "table.row.col" for CELL anchors (the cell
// positional index per invariant I-1).
func BuildAnchorID(docVersionID string, ct ContentType, positionalIndex string, hexHash string) string {
	return fmt.Sprintf("%s:%s:%s:%s", docVersionID, ct, positionalIndex, hexHash)
}

// BuildFootnoteAnchorID constructs the footnote grammar specifically, which
// always uses the literal "fn" tag rather than a generic ContentType.
func BuildFootnoteAnchorID(docVersionID string, footnoteIndex, footnoteParaIndex int, hexHash string) string {
	return fmt.Sprintf("%s:fn:%d:%d:%s", docVersionID, footnoteIndex, footnoteParaIndex, hexHash)
}

// HashSegment extracts the trailing hex64 segment from an anchor_id,
// ignoring the leading doc_version_id and any ":v<n>" version suffix some
// callers append for display. Used by the aligner's hash-exact phase.
func HashSegment(anchorID string) string {
	parts := strings.Split(anchorID, ":")
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	// A trailing ":v<n>" segment is a version suffix, not the hash.
	if len(parts) > 1 && len(last) > 1 && last[0] == 'v' && strings.Trim(last[1:], "0123456789") == "" {
		last = parts[len(parts)-2]
	}
	// Strip an optional "v<n>" suffix joined with a dash, defensive against
	// callers that decorate ids for display purposes.
	if idx := strings.IndexByte(last, '-'); idx > 0 && strings.HasPrefix(last[idx+1:], "v") {
		last = last[:idx]
	}
	return last
}
