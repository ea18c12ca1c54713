// Package soa implements C5: detecting and extracting the single
// Schedule-of-Activities table in a document, per spec §4.5.
package soa

import (
	"regexp"

	"trialgraph/internal/docxreader"
)

// scoreThreshold is the minimum composite score (§4.5) a table must clear
// to be selected as the SoA table.
const scoreThreshold = 0.5

var (
	visitHeaderRe = regexp.MustCompile(`(?i)\b(screening|baseline|week\s*\d+|day\s*\d+|visit\s*\d*|follow-?up|скрининг|базов\w*|недел\w*\s*\d*|день\s*\d*|визит\w*|наблюдени\w*)\b`)
	procHeaderRe  = regexp.MustCompile(`(?i)\b(informed consent|vital signs?|vitals|ecg|ekg|laborator\w*|labs?|physical exam\w*|adverse events?|randomi[sz]ation|информированн\w* согласи\w*|жизненн\w* показател\w*|экг|лаборатор\w*|осмотр\w*|рандомизаци\w*)\b`)
	markCellRe    = regexp.MustCompile(`^\s*[xXхХ✓✔●•*]+\s*$`)
	soaHeadingRe  = regexp.MustCompile(`(?i)(schedule of activities|soa\b|график процедур|график визитов|расписание процедур)`)
)

// Score computes the composite [0,1] detection score for one table, per
// §4.5's detection rules.
func Score(table docxreader.Table, nearestHeadingText string) float64 {
	rows := table.Rows()
	if len(rows) < 2 || len(rows[0].Cells()) < 2 {
		return 0
	}

	var visitHits, procHits, markCells, totalBodyCells int
	header := rows[0].Cells()
	for _, c := range header {
		if visitHeaderRe.MatchString(c.Text()) {
			visitHits++
		}
	}
	for _, r := range rows[1:] {
		cells := r.Cells()
		if len(cells) == 0 {
			continue
		}
		if procHeaderRe.MatchString(cells[0].Text()) {
			procHits++
		}
		for _, c := range cells[1:] {
			totalBodyCells++
			if markCellRe.MatchString(c.Text()) {
				markCells++
			}
		}
	}

	visitScore := ratio(visitHits, len(header))
	procScore := ratio(procHits, len(rows)-1)
	markDensity := ratio(markCells, totalBodyCells)

	aspectScore := 0.0
	if len(rows) >= 3 && len(header) >= 3 {
		aspectScore = 1.0
	} else if len(rows) >= 2 && len(header) >= 2 {
		aspectScore = 0.5
	}

	headingScore := 0.0
	if soaHeadingRe.MatchString(nearestHeadingText) {
		headingScore = 1.0
	}

	score := 0.3*visitScore + 0.25*procScore + 0.2*markDensity + 0.1*aspectScore + 0.15*headingScore
	if score > 1 {
		score = 1
	}
	return score
}

func ratio(hits, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Detect picks the highest-scoring table above scoreThreshold, breaking
// ties by earliest position, per §4.5.
func Detect(tables []docxreader.Table, nearestHeading func(table docxreader.Table) string) (index int, score float64, found bool) {
	bestIndex := -1
	bestScore := 0.0
	for i, t := range tables {
		s := Score(t, nearestHeading(t))
		if s < scoreThreshold {
			continue
		}
		if bestIndex == -1 || s > bestScore {
			bestIndex = i
			bestScore = s
		}
	}
	if bestIndex == -1 {
		return 0, 0, false
	}
	return bestIndex, bestScore, true
}
