package sheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CellKind tags the runtime type of a spreadsheet cell value.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindNumber
	KindText
	KindDate
)

// Cell is one typed spreadsheet value. Exactly one of Number, Text, or Date
// is meaningful, selected by Kind; a KindEmpty cell carries nothing.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
	Date   time.Time
}

// CellGrid is the minimal worksheet surface the parsers consume.
// Coordinates are 1-based, matching spreadsheet row/column numbering.
// Out-of-range reads return an empty cell.
type CellGrid interface {
	Cell(row, col int) Cell
}

// ---------------------------------------------------------------------------
// Cell coercions. Each is tolerant: an unparsable value degrades to absent
// rather than failing, so a single malformed cell never aborts a sheet.
// ---------------------------------------------------------------------------

func cellString(c Cell) string {
	switch c.Kind {
	case KindText:
		return strings.TrimSpace(strings.Trim(strings.TrimSpace(c.Text), "\t"))
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Date.Format("2006-01-02")
	}
	return ""
}

func cellDecimal(c Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case KindNumber:
		return decimal.NewFromFloat(c.Number).Round(2), true
	case KindText:
		s := strings.ReplaceAll(strings.TrimSpace(c.Text), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d.Round(2), true
	}
	return decimal.Zero, false
}

func cellInt(c Cell) (int, bool) {
	d, ok := cellDecimal(c)
	if !ok {
		return 0, false
	}
	return int(d.IntPart()), true
}

var textDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	time.RFC3339,
}

func cellDate(c Cell) (time.Time, bool) {
	switch c.Kind {
	case KindDate:
		y, m, d := c.Date.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case KindText:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range textDateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				y, m, d := parsed.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}

// cellKey normalizes a unit-key cell. Numeric keys collapse to their integer
// form so 305.0 and "305" identify the same unit; text keys are trimmed.
func cellKey(c Cell) string {
	switch c.Kind {
	case KindNumber:
		return strconv.Itoa(int(c.Number))
	case KindText:
		return strings.TrimSpace(c.Text)
	case KindDate:
		return c.Date.Format("2006-01-02")
	}
	return ""
}
