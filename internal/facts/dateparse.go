package facts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dotDateRe   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([A-Za-zА-Яа-яЁё]+)\s+(\d{4})\b`)
)

var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,

	"января": 1, "янв": 1,
	"февраля": 2, "фев": 2,
	"марта": 3, "мар": 3,
	"апреля": 4, "апр": 4,
	"мая": 5,
	"июня": 6, "июн": 6,
	"июля": 7, "июл": 7,
	"августа": 8, "авг": 8,
	"сентября": 9, "сен": 9,
	"октября": 10, "окт": 10,
	"ноября": 11, "ноя": 11,
	"декабря": 12, "дек": 12,
}

// ParseDate accepts YYYY-MM-DD, DD.MM.YYYY, DD/MM/YYYY, or "D <Month> YYYY"
// in English or Russian with standard/abbreviated month names, and returns
// an ISO (YYYY-MM-DD) date string. Per §4.8.1, callers treat a failure as
// NEEDS_REVIEW with the raw span kept, rather than a hard error.
func ParseDate(raw string) (string, bool) {
	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		return formatISO(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := dotDateRe.FindStringSubmatch(raw); m != nil {
		return formatISO(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := slashDateRe.FindStringSubmatch(raw); m != nil {
		return formatISO(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := monthDateRe.FindStringSubmatch(raw); m != nil {
		month, ok := monthNames[strings.ToLower(m[2])]
		if !ok {
			return "", false
		}
		return formatISO(atoi(m[3]), month, atoi(m[1]))
	}
	return "", false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func formatISO(year, month, day int) (string, bool) {
	if year < 1000 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
