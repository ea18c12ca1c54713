// Package headingblock implements C7: deriving a HeadingBlock for each
// heading anchor by collecting its contiguous descendants, per spec §4.7.
package headingblock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"trialgraph/internal/domain"
)

// textPreviewMaxLen is the "first ~300 chars" preview length from §4.7.
const textPreviewMaxLen = 300

// Build derives one HeadingBlock per HDR anchor in anchorsInOrder (assumed
// sorted in document order, including non-HDR anchors).
func Build(docVersionID string, anchorsInOrder []domain.Anchor) []domain.HeadingBlock {
	var blocks []domain.HeadingBlock

	for i, h := range anchorsInOrder {
		if h.ContentType != domain.ContentHeading {
			continue
		}
		var contentIDs []string
		var previewText string
		var zoneCounts = map[domain.SourceZone]int{}
		var langCounts = map[domain.Language]int{}

		for j := i + 1; j < len(anchorsInOrder); j++ {
			next := anchorsInOrder[j]
			if next.ContentType == domain.ContentHeading {
				if next.HeadingLevel <= h.HeadingLevel {
					break
				}
				// Nested sub-headings own their own blocks.
				continue
			}
			contentIDs = append(contentIDs, next.AnchorID)
			if len(previewText) < textPreviewMaxLen {
				if previewText != "" {
					previewText += " "
				}
				previewText += next.TextNorm
			}
			zoneCounts[next.SourceZone]++
			langCounts[next.Language]++
		}
		if len(previewText) > textPreviewMaxLen {
			previewText = previewText[:textPreviewMaxLen]
		}

		blocks = append(blocks, domain.HeadingBlock{
			HeadingBlockID:   buildHeadingBlockID(h.AnchorID),
			DocVersionID:     docVersionID,
			HeadingAnchorID:  h.AnchorID,
			HeadingText:      h.TextNorm,
			HeadingLevel:     h.HeadingLevel,
			ContentAnchorIDs: contentIDs,
			TextPreview:      previewText,
			SourceZone:       pickMode(zoneCounts, h.SourceZone),
			Language:         pickMode(langCounts, h.Language),
		})
	}

	return blocks
}

// buildHeadingBlockID derives a stable string from the heading's own
// anchor_id, per §4.7.
func buildHeadingBlockID(headingAnchorID string) string {
	sum := sha256.Sum256([]byte("heading_block:" + headingAnchorID))
	return fmt.Sprintf("hb:%s", hex.EncodeToString(sum[:16]))
}

func pickMode[T comparable](counts map[T]int, fallback T) T {
	best := fallback
	bestCount := 0
	for k, c := range counts {
		if c > bestCount {
			best = k
			bestCount = c
		}
	}
	return best
}
