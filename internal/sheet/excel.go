package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook adapts an xlsx file to the CellGrid surface the parsers consume.
type Workbook struct {
	f        *excelize.File
	date1904 bool
}

func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	wb := &Workbook{f: f}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

func (w *Workbook) Close() error { return w.f.Close() }

func (w *Workbook) Sheets() []string { return w.f.GetSheetList() }

func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Grid returns a typed view over one worksheet. The grid caches per-style
// date detection, so reuse one grid per sheet rather than recreating it.
func (w *Workbook) Grid(sheet string) CellGrid {
	return &excelGrid{
		f:          w.f,
		sheet:      sheet,
		date1904:   w.date1904,
		dateStyles: make(map[int]bool),
	}
}

type excelGrid struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

// Cell reads one cell and types it. Spreadsheets store dates as styled
// numbers, so a numeric cell is a date exactly when its number format says
// so; everything that is neither numeric nor empty is text.
func (g *excelGrid) Cell(row, col int) Cell {
	addr, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}
	}
	raw, err := g.f.GetCellValue(g.sheet, addr, excelize.Options{RawCellValue: true})
	if err != nil || strings.TrimSpace(raw) == "" {
		return Cell{}
	}

	ctype, err := g.f.GetCellType(g.sheet, addr)
	if err != nil {
		return Cell{}
	}
	switch ctype {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return Cell{Kind: KindText, Text: raw}
	case excelize.CellTypeBool:
		return Cell{Kind: KindText, Text: raw}
	case excelize.CellTypeError:
		return Cell{}
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return Cell{Kind: KindDate, Date: t.UTC()}
		}
	}

	// Numeric cells carry no type attribute in the file, so anything left
	// is a number candidate first and text only if parsing fails.
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Cell{Kind: KindText, Text: raw}
	}
	if g.dateStyled(addr) {
		if t, err := excelize.ExcelDateToTime(n, g.date1904); err == nil {
			return Cell{Kind: KindDate, Date: t}
		}
	}
	return Cell{Kind: KindNumber, Number: n}
}

func (g *excelGrid) dateStyled(addr string) bool {
	styleID, err := g.f.GetCellStyle(g.sheet, addr)
	if err != nil {
		return false
	}
	if isDate, ok := g.dateStyles[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := g.f.GetStyle(styleID); err == nil && style != nil {
		isDate = dateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	g.dateStyles[styleID] = isDate
	return isDate
}

// Builtin number-format ranges that render as dates or times.
func dateNumFmt(id int, custom *string) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	if custom == nil {
		return false
	}
	return customFmtIsDate(*custom)
}

var numFmtLiteralRE = regexp.MustCompile(`\[[^\]]*\]|"[^"]*"`)

// customFmtIsDate detects calendar tokens in a custom number format after
// stripping color/condition brackets and quoted literals, which may contain
// letters without making the format a date.
func customFmtIsDate(format string) bool {
	return strings.ContainsAny(numFmtLiteralRE.ReplaceAllString(format, ""), "ymdhYMDH")
}
