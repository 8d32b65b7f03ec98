package sheet

import (
	"regexp"
	"strings"

	"github.com/schollz/closestmatch"
)

// FieldPattern declares one logical field and the header spellings that
// resolve to it. Order across a pattern list is priority order: when two
// logical names could claim the same header, the earlier one wins.
type FieldPattern struct {
	Name     string
	Patterns []string
}

// UnmatchedHeader records a non-empty header cell that resolved to neither a
// logical field nor a month column, with the nearest known pattern as a
// diagnostic hint. Unmatched headers are never an error.
type UnmatchedHeader struct {
	Col        int
	Text       string
	Suggestion string
}

// HeaderMap is the result of scanning one header row.
type HeaderMap struct {
	// Named maps logical field names to 1-based column positions.
	Named map[string]int
	// Months maps "YYYY-MM" keys to 1-based column positions.
	Months map[string]int
	// Unmatched lists header cells that claimed nothing.
	Unmatched []UnmatchedHeader
}

// MonthRange returns the lexically (therefore chronologically) smallest and
// largest month keys, or "?" for both when no month columns were found.
func (h HeaderMap) MonthRange() (string, string) {
	first, last := "?", "?"
	for key := range h.Months {
		if first == "?" || key < first {
			first = key
		}
		if last == "?" || key > last {
			last = key
		}
	}
	return first, last
}

var headerWhitespaceRE = regexp.MustCompile(`\s+`)

// normalizeHeader folds a header cell to its comparable form: trimmed,
// lowercased, internal whitespace and newlines collapsed to single spaces.
func normalizeHeader(s string) string {
	return headerWhitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// DiscoverHeaders scans one header row between colStart and colEnd and
// resolves each cell to a logical field, a month column, or nothing.
//
// Calendar-typed cells always become month columns. When spanishMonths is
// set, text cells shaped like "sept.24" become month columns too. Remaining
// text is matched in two passes: exact first, then substring. Substring
// candidates must be longer than four characters so a short pattern cannot
// claim a longer header that merely contains it. A logical name, once
// claimed, is never reassigned.
func DiscoverHeaders(grid CellGrid, headerRow, colStart, colEnd int, patterns []FieldPattern, spanishMonths bool) HeaderMap {
	hm := HeaderMap{
		Named:  make(map[string]int),
		Months: make(map[string]int),
	}

	for col := colStart; col <= colEnd; col++ {
		cell := grid.Cell(headerRow, col)
		if cell.Kind == KindEmpty {
			continue
		}

		if cell.Kind == KindDate {
			hm.Months[monthKey(cell.Date)] = col
			continue
		}

		raw := cellString(cell)
		norm := normalizeHeader(raw)
		if norm == "" {
			continue
		}

		if spanishMonths {
			if ym, ok := parseSpanishMonth(strings.TrimSpace(raw)); ok {
				hm.Months[ym] = col
				continue
			}
		}

		if claimColumn(hm.Named, patterns, norm, col) {
			continue
		}
		hm.Unmatched = append(hm.Unmatched, UnmatchedHeader{Col: col, Text: raw})
	}

	suggestUnmatched(hm.Unmatched, patterns)
	return hm
}

func claimColumn(named map[string]int, patterns []FieldPattern, norm string, col int) bool {
	for _, fp := range patterns {
		if _, taken := named[fp.Name]; taken {
			continue
		}
		for _, p := range fp.Patterns {
			if p == norm {
				named[fp.Name] = col
				return true
			}
		}
	}
	for _, fp := range patterns {
		if _, taken := named[fp.Name]; taken {
			continue
		}
		for _, p := range fp.Patterns {
			if len(p) > 4 && strings.Contains(norm, p) {
				named[fp.Name] = col
				return true
			}
		}
	}
	return false
}

// suggestUnmatched annotates unmatched headers with the closest declared
// pattern. Purely diagnostic: suggestions never influence column resolution.
func suggestUnmatched(unmatched []UnmatchedHeader, patterns []FieldPattern) {
	if len(unmatched) == 0 {
		return
	}
	var corpus []string
	for _, fp := range patterns {
		corpus = append(corpus, fp.Patterns...)
	}
	if len(corpus) == 0 {
		return
	}
	cm := closestmatch.New(corpus, []int{3, 4})
	for i := range unmatched {
		unmatched[i].Suggestion = cm.Closest(normalizeHeader(unmatched[i].Text))
	}
}
