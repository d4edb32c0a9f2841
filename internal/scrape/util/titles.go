package util

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	seasonYearRe = regexp.MustCompile(`(?i)\b(?:spring|summer|fall|autumn|winter)\s+(?:19|20)\d{2}\b`)
	yearSeasonRe = regexp.MustCompile(`(?i)\b(?:19|20)\d{2}\s+(?:spring|summer|fall|autumn|winter)\b`)
	emptyParenRe = regexp.MustCompile(`\(\s*\)|\[\s*\]`)

	termPatterns sync.Map // term -> *regexp.Regexp
)

// NormalizeTitle strips emoji, season/year tokens, the run term and
// separator noise from a scraped role title. Applying it twice gives the
// same result as applying it once.
func NormalizeTitle(raw, term string) string {
	s := norm.NFKC.String(raw)
	for i := 0; i < 8; i++ {
		next := normalizeTitleOnce(s, term)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizeTitleOnce(s, term string) string {
	s = StripPictographs(s)
	s = seasonYearRe.ReplaceAllString(s, " ")
	s = yearSeasonRe.ReplaceAllString(s, " ")
	if re := termPattern(term); re != nil {
		s = re.ReplaceAllString(s, " ")
	}
	s = emptyParenRe.ReplaceAllString(s, " ")
	s = replaceSeparators(s)
	s = CleanText(s)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(trailingNoise, r)
	})
	return CleanText(s)
}

const trailingNoise = "&.,:;!?-–—|/\\*·•"

// StripPictographs removes emoji, pictographic symbols, variation
// selectors and joiners. Arrows such as "↳" and "→" are kept.
func StripPictographs(s string) string {
	return strings.Map(func(r rune) rune {
		if isPictograph(r) {
			return -1
		}
		return r
	}, s)
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoji, flags, pictographs
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
	case r >= 0x2300 && r <= 0x23FF: // misc technical (⌚ ⏰)
	case r >= 0x2B00 && r <= 0x2BFF: // ⬆ ⭐
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
	case r >= 0xE0000 && r <= 0xE007F: // tag sequences
	case r == 0x200D || r == 0x20E3:
	default:
		return false
	}
	return true
}

// replaceSeparators turns separator runes into spaces. A hyphen between
// two letters or digits ("Co-op", "Full-Stack") is part of the word.
func replaceSeparators(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		switch r {
		case '–', '—', '|', ',', ':', ';':
			b.WriteRune(' ')
			continue
		case '-':
			if i > 0 && i < len(rs)-1 && isWordRune(rs[i-1]) && isWordRune(rs[i+1]) {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func termPattern(term string) *regexp.Regexp {
	term = CleanText(term)
	if term == "" {
		return nil
	}
	if re, ok := termPatterns.Load(term); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(term)
	rs := []rune(term)
	if isWordRune(rs[0]) {
		q = `\b` + q
	}
	if isWordRune(rs[len(rs)-1]) {
		q += `\b`
	}
	re := regexp.MustCompile(`(?i)` + q)
	termPatterns.Store(term, re)
	return re
}
