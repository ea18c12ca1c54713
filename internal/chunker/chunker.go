// Package chunker implements C6: grouping contiguous narrative anchors into
// soft-token-budget chunks, per spec §4.6.
package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"trialgraph/internal/domain"
)

// Embedder produces one embedding vector per input text. A nil Embedder is
// valid: chunks are still persisted without embeddings, per §4.6.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	// softTokenTarget and hardTokenCeiling bound the rough-character token
	// estimate used to decide when to flush a chunk mid-section, per §4.6's
	// "target ~400-800 tokens by rough character estimate".
	softTokenTarget  = 400
	hardTokenCeiling = 800
	// charsPerTokenEstimate mirrors the teacher's rough 4-chars-per-token
	// heuristic used elsewhere in the pack for budget estimation.
	charsPerTokenEstimate = 4
)

func estimateTokens(s string) int {
	return len(s) / charsPerTokenEstimate
}

// Chunk groups a document version's non-CELL, non-FN anchors (assumed
// already sorted in document order) into narrative chunks and attaches
// embeddings if embedder is non-nil.
func Chunk(ctx context.Context, docVersionID string, anchorsInOrder []domain.Anchor, embedder Embedder) ([]domain.Chunk, error) {
	var groups [][]domain.Anchor
	var current []domain.Anchor
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, a := range anchorsInOrder {
		if a.ContentType == domain.ContentCell || a.ContentType == domain.ContentFootnote {
			continue
		}
		if len(current) > 0 && current[0].SectionPath != a.SectionPath {
			flush()
		}
		next := estimateTokens(a.TextNorm)
		if len(current) > 0 && currentTokens+next > hardTokenCeiling && currentTokens >= softTokenTarget {
			flush()
		}
		current = append(current, a)
		currentTokens += next
	}
	flush()

	chunks := make([]domain.Chunk, 0, len(groups))
	var texts []string
	for i, g := range groups {
		text := concatText(g)
		ids := make([]string, len(g))
		for j, a := range g {
			ids[j] = a.AnchorID
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:      buildChunkID(docVersionID, i, text),
			DocVersionID: docVersionID,
			SectionPath:  g[0].SectionPath,
			AnchorIDs:    ids,
			Text:         text,
			TokenEst:     estimateTokens(text),
			SourceZone:   modeZone(g),
			Language:     modeLanguage(g),
		})
		texts = append(texts, text)
	}

	if embedder == nil || len(chunks) == 0 {
		return chunks, nil
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		// Missing embeddings are non-fatal: chunks persist without vectors
		// and downstream components must handle that gracefully, per §4.6.
		return chunks, nil
	}
	for i := range chunks {
		if i < len(vectors) {
			chunks[i].Embedding = vectors[i]
		}
	}
	return chunks, nil
}

func concatText(anchors []domain.Anchor) string {
	out := ""
	for i, a := range anchors {
		if i > 0 {
			out += " "
		}
		out += a.TextNorm
	}
	return out
}

func buildChunkID(docVersionID string, index int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:chunk:%d:%s", docVersionID, index, hex.EncodeToString(sum[:8]))
}

func modeZone(anchors []domain.Anchor) domain.SourceZone {
	counts := map[domain.SourceZone]int{}
	for _, a := range anchors {
		counts[a.SourceZone]++
	}
	return pickMode(counts, domain.ZoneUnknown)
}

func modeLanguage(anchors []domain.Anchor) domain.Language {
	counts := map[domain.Language]int{}
	for _, a := range anchors {
		counts[a.Language]++
	}
	return pickMode(counts, domain.LanguageUnknown)
}

func pickMode[T comparable](counts map[T]int, fallback T) T {
	best := fallback
	bestCount := -1
	for k, c := range counts {
		if c > bestCount {
			best = k
			bestCount = c
		}
	}
	return best
}
