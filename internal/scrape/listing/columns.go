package listing

import (
	"strings"
	"unicode"
)

// ColumnRole is what a table column holds.
type ColumnRole int

const (
	ColUnknown ColumnRole = iota
	ColCompany
	ColRole
	ColLocation
	ColApply
	ColAge
)

func (c ColumnRole) String() string {
	switch c {
	case ColCompany:
		return "company"
	case ColRole:
		return "role"
	case ColLocation:
		return "location"
	case ColApply:
		return "apply"
	case ColAge:
		return "age"
	default:
		return "unknown"
	}
}

// ColumnMap gives the role of each column by position.
type ColumnMap []ColumnRole

// DefaultColumns is the layout assumed when no header can be read.
func DefaultColumns() ColumnMap {
	return ColumnMap{ColCompany, ColRole, ColLocation, ColApply, ColAge}
}

func (m ColumnMap) Index(role ColumnRole) int {
	for i, r := range m {
		if r == role {
			return i
		}
	}
	return -1
}

// checked in order; "name" is last so "Role Name" stays a role column.
// Prefix keywords also match longer words ("applic" for "Application").
var headerKeywords = []struct {
	word   string
	role   ColumnRole
	prefix bool
}{
	{"company", ColCompany, false},
	{"role", ColRole, false},
	{"position", ColRole, false},
	{"title", ColRole, false},
	{"location", ColLocation, false},
	{"apply", ColApply, false},
	{"applic", ColApply, true},
	{"link", ColApply, false},
	{"url", ColApply, false},
	{"age", ColAge, false},
	{"posted", ColAge, false},
	{"date", ColAge, false},
	{"name", ColCompany, false},
}

const (
	matchNone = iota
	matchWord
	matchExact
)

func headerWords(h string) []string {
	return strings.FieldsFunc(strings.ToLower(h), func(r rune) bool { return !unicode.IsLetter(r) })
}

func wordMatches(w, kw string, prefix bool) bool {
	if w == kw || w == kw+"s" {
		return true
	}
	return prefix && strings.HasPrefix(w, kw)
}

// classifyHeader returns the role a header names and how strongly: a header
// that is exactly one keyword beats one that merely contains it as a word.
func classifyHeader(h string) (ColumnRole, int) {
	words := headerWords(h)
	if len(words) == 0 {
		return ColUnknown, matchNone
	}
	for _, kw := range headerKeywords {
		for _, w := range words {
			if !wordMatches(w, kw.word, kw.prefix) {
				continue
			}
			if len(words) == 1 {
				return kw.role, matchExact
			}
			return kw.role, matchWord
		}
	}
	return ColUnknown, matchNone
}

// DetectColumns maps header cells to roles. Each role goes to its strongest
// header, the leftmost on ties. The header counts as detected only when both
// a company and a role column were found; otherwise the positional defaults
// are returned with ok=false.
func DetectColumns(headers []string) (ColumnMap, bool) {
	m := make(ColumnMap, len(headers))
	type claim struct{ col, strength int }
	taken := map[ColumnRole]claim{}
	for i, h := range headers {
		r, strength := classifyHeader(h)
		if r == ColUnknown {
			continue
		}
		if prev, ok := taken[r]; ok {
			if strength <= prev.strength {
				continue
			}
			m[prev.col] = ColUnknown
		}
		m[i] = r
		taken[r] = claim{col: i, strength: strength}
	}
	if _, ok := taken[ColCompany]; !ok {
		return DefaultColumns(), false
	}
	if _, ok := taken[ColRole]; !ok {
		return DefaultColumns(), false
	}
	return m, true
}
