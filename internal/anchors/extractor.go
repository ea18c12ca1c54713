// Package anchors implements C4: walking an already-opened DOCX document
// into the ordered Anchor records the rest of the pipeline consumes, per
// spec §4.4.
package anchors

import (
	"fmt"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
	"trialgraph/internal/headings"
	"trialgraph/internal/textnorm"
	"trialgraph/internal/zones"
)

// Summary reports the counts and quality signal the orchestrator persists
// onto the IngestionRun, per §4.4's "Heading-quality summary".
type Summary struct {
	AnchorsCreated      int
	BodyAnchors         int
	FootnoteAnchors     int
	HeadingQuality      headings.Quality
	NumberingRejections int
	FootnotesWarning    string // non-empty if footnote metadata was unavailable
}

// stackEntry is one frame of the heading stack described in §4.4 step 4.
type stackEntry struct {
	level int
	title string
}

// Context exposes the heading-stack state computed during Extract, keyed
// by paragraph index, so other components (the SoA extractor's table
// section-path lookup) can resolve which section a non-paragraph body
// element (a table) falls under without re-walking the document.
type Context struct {
	sectionPathAt     []string
	nearestHeadingAt  []string
}

// SectionPathAt returns the section_path and nearest heading text that
// were active immediately after paragraph index i was processed. For a
// table, callers pass its PrecedingParagraphIndex (or -1, which resolves
// to the frontmatter sentinel).
func (c Context) SectionPathAt(i int) (sectionPath, nearestHeading string) {
	if i < 0 || i >= len(c.sectionPathAt) {
		return domain.SectionFrontmatter, ""
	}
	return c.sectionPathAt[i], c.nearestHeadingAt[i]
}

// Extract walks doc in document order and returns every Anchor, a summary,
// and a Context for resolving section paths at arbitrary paragraph
// indices. rulebook classifies source_zone; docVersionID seeds anchor_id
// construction.
func Extract(docVersionID string, doc docxreader.Document, rulebook zones.Rulebook) ([]domain.Anchor, Summary, Context) {
	paragraphs := doc.Paragraphs()
	hits, headingSummary := headings.DetectAll(paragraphs)

	var anchors []domain.Anchor
	var stack []stackEntry
	firstRealHeadingFound := false
	ordinals := map[string]int{} // key: section_path + "\x00" + content_type

	nearestHeadingText := ""
	ctx := Context{
		sectionPathAt:    make([]string, len(paragraphs)),
		nearestHeadingAt: make([]string, len(paragraphs)),
	}

	for paraIndex, p := range paragraphs {
		text := textnorm.Normalize(p.Text())
		if text == "" {
			if firstRealHeadingFound {
				ctx.sectionPathAt[paraIndex] = joinSectionPath(stack)
			} else {
				ctx.sectionPathAt[paraIndex] = domain.SectionFrontmatter
			}
			ctx.nearestHeadingAt[paraIndex] = nearestHeadingText
			continue
		}
		hit := hits[paraIndex]

		var sectionPath string
		var contentType domain.ContentType

		if hit.Real() {
			for len(stack) > 0 && stack[len(stack)-1].level >= hit.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, stackEntry{level: hit.Level, title: hit.NormalizedTitle})
			firstRealHeadingFound = true
			contentType = domain.ContentHeading
			nearestHeadingText = hit.NormalizedTitle
		} else if p.HasNumbering() || styleStartsWithList(p.StyleName()) {
			contentType = domain.ContentListItem
		} else {
			contentType = domain.ContentPara
		}

		if !firstRealHeadingFound {
			sectionPath = domain.SectionFrontmatter
		} else {
			sectionPath = joinSectionPath(stack)
		}
		ctx.sectionPathAt[paraIndex] = sectionPath
		ctx.nearestHeadingAt[paraIndex] = nearestHeadingText

		ordinalKey := sectionPath + "\x00" + string(contentType)
		ordinal := ordinals[ordinalKey]
		ordinals[ordinalKey] = ordinal + 1

		// para_index in the anchor_id grammar (and the body location it
		// mirrors) is 1-based per §6/§8 S1: the first paragraph in the
		// document is para_index 1, not 0.
		displayParaIndex := paraIndex + 1

		hash := textnorm.Hash(text)
		anchorID := domain.BuildAnchorID(docVersionID, contentType, fmt.Sprintf("%d", displayParaIndex), hash)

		zoneResult := rulebook.Classify(sectionPath, nearestHeadingText, textnorm.DetectLanguage(text))
		lang := textnorm.DetectLanguage(text)

		anchors = append(anchors, domain.Anchor{
			DocVersionID: docVersionID,
			AnchorID:     anchorID,
			SectionPath:  sectionPath,
			ContentType:  contentType,
			Ordinal:      ordinal,
			TextRaw:      p.Text(),
			TextNorm:     text,
			TextHash:     hash,
			Location: domain.Location{Body: &domain.BodyLocation{
				ParagraphIndex: displayParaIndex,
				Style:          p.StyleName(),
			}},
			SourceZone:   zoneResult.Zone,
			Language:     lang,
			ParaIndex:    displayParaIndex,
			HeadingLevel: hit.Level,
		})
	}

	footnoteAnchors, footnoteWarning := extractFootnotes(docVersionID, doc, rulebook)
	anchors = append(anchors, footnoteAnchors...)

	return anchors, Summary{
		AnchorsCreated:      len(anchors),
		BodyAnchors:         len(anchors) - len(footnoteAnchors),
		FootnoteAnchors:     len(footnoteAnchors),
		HeadingQuality:      headingSummary.Quality,
		NumberingRejections: headingSummary.NumberingRejections,
		FootnotesWarning:    footnoteWarning,
	}, ctx
}

func extractFootnotes(docVersionID string, doc docxreader.Document, rulebook zones.Rulebook) ([]domain.Anchor, string) {
	footnotes, err := doc.Footnotes()
	if err != nil || footnotes == nil {
		warning := "footnote metadata unavailable"
		if err != nil {
			warning = fmt.Sprintf("footnote metadata unavailable: %v", err)
		}
		return nil, warning
	}

	var anchors []domain.Anchor
	for fnIdx, fn := range footnotes {
		fnParaIdx := 0
		for _, p := range fn.Paragraphs() {
			text := textnorm.Normalize(p.Text())
			if text == "" {
				continue
			}
			hash := textnorm.Hash(text)
			anchorID := domain.BuildFootnoteAnchorID(docVersionID, fnIdx, fnParaIdx, hash)
			lang := textnorm.DetectLanguage(text)
			zoneResult := rulebook.Classify(domain.SectionFootnotes, "", lang)

			anchors = append(anchors, domain.Anchor{
				DocVersionID: docVersionID,
				AnchorID:     anchorID,
				SectionPath:  domain.SectionFootnotes,
				ContentType:  domain.ContentFootnote,
				Ordinal:      fnParaIdx,
				TextRaw:      p.Text(),
				TextNorm:     text,
				TextHash:     hash,
				Location: domain.Location{Footnote: &domain.FootnoteLocation{
					FootnoteIndex:     fnIdx,
					FootnoteParaIndex: fnParaIdx,
				}},
				SourceZone: zoneResult.Zone,
				Language:   lang,
			})
			fnParaIdx++
		}
	}
	return anchors, ""
}

func joinSectionPath(stack []stackEntry) string {
	if len(stack) == 0 {
		return domain.SectionRoot
	}
	out := stack[0].title
	for _, e := range stack[1:] {
		out += "/" + e.title
	}
	return out
}

func styleStartsWithList(style string) bool {
	return len(style) >= 4 && style[:4] == "List"
}
