package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/signals"
)

var (
	ageTokenRe = regexp.MustCompile(`(?i)^(\d{1,5})\s*(d|mo)$`)
	dayTokenRe = regexp.MustCompile(`(?i)^\d{1,5}\s*d$`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 02 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// no year: assume the most recent such date
var shortDateLayouts = []string{
	"Jan 02",
	"Jan 2",
	"January 2",
	"02 Jan",
}

// parseAge reads an age cell: "3d", "2mo" or an absolute date.
func parseAge(text string, now time.Time) (time.Time, int, bool) {
	text = util.CleanText(text)
	if text == "" {
		return time.Time{}, 0, false
	}
	if m := ageTokenRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, 0, false
		}
		if strings.EqualFold(m[2], "mo") {
			n *= 30
		}
		posted, days := signals.PostedFromAge(n, now)
		return posted, days, true
	}
	if t, ok := parseDate(text, now); ok {
		posted, days := signals.AgeFromPosted(t, now)
		return posted, days, true
	}
	return time.Time{}, 0, false
}

func parseDate(text string, now time.Time) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range shortDateLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.After(now.Add(24 * time.Hour)) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// ageFromCells prefers the age column. When the header did not name one,
// the first "<digits>d" cell anywhere in the row is used instead.
func ageFromCells(cells []string, cm ColumnMap, headerHasAge bool, now time.Time) (time.Time, int, bool) {
	if i := cm.Index(ColAge); i >= 0 && i < len(cells) {
		if posted, days, ok := parseAge(cells[i], now); ok {
			return posted, days, true
		}
	}
	if headerHasAge {
		return time.Time{}, 0, false
	}
	for _, c := range cells {
		c = util.CleanText(c)
		if dayTokenRe.MatchString(c) {
			return parseAge(c, now)
		}
	}
	return time.Time{}, 0, false
}
