package load

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
)

var ErrMissingSheet = errors.New("sheet not found in workbook")

// GridSource is the slice of a workbook the parser needs. *sheet.Workbook
// satisfies it; tests substitute in-memory grids.
type GridSource interface {
	HasSheet(name string) bool
	Grid(sheet string) sheet.CellGrid
}

// ParseResult carries everything parsed from one workbook: actuals records
// in section order (main first, sub-sections after, rows ascending), the
// budget's installment records, and the discovered header maps for
// inspection output.
type ParseResult struct {
	Records       []sheet.UnitRecord
	Budget        []sheet.InstallmentRecord
	Headers       sheet.HeaderMap
	BudgetHeaders sheet.HeaderMap
}

// ParseWorkbook reads the profile's two sheets into records. Sub-sections
// reuse the main section's month columns: their stub headers repeat only
// the named fields, so month positions carry over from the main header row.
func ParseWorkbook(src GridSource, profile *project.Profile, log *logrus.Logger) (*ParseResult, error) {
	actuals := profile.Actuals
	if !src.HasSheet(actuals.Sheet) {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, actuals.Sheet)
	}
	grid := src.Grid(actuals.Sheet)

	main, headers, err := sheet.ParseSection(grid, actuals.Main, actuals.ColStart, actuals.ColEnd, actuals.Patterns, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s section: %w", actuals.Main.Tag, err)
	}
	logHeaders(log, string(actuals.Main.Tag), headers)

	result := &ParseResult{Records: main, Headers: headers}
	for _, sub := range actuals.Subs {
		records, subHeaders, err := sheet.ParseSection(grid, sub, actuals.ColStart, actuals.ColEnd, actuals.Patterns, headers.Months)
		if err != nil {
			return nil, fmt.Errorf("parse %s section: %w", sub.Tag, err)
		}
		logHeaders(log, string(sub.Tag), subHeaders)
		result.Records = append(result.Records, records...)
	}

	budget := profile.Budget
	if !src.HasSheet(budget.Sheet) {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, budget.Sheet)
	}
	installments, budgetHeaders, err := sheet.ParseBudget(src.Grid(budget.Sheet), budget.Layout, budget.ColStart, budget.ColEnd, budget.Patterns)
	if err != nil {
		return nil, fmt.Errorf("parse budget sheet: %w", err)
	}
	logHeaders(log, "budget", budgetHeaders)
	result.Budget = installments
	result.BudgetHeaders = budgetHeaders

	log.Infof("parsed %d records, %d expected installments", len(result.Records), len(result.Budget))
	return result, nil
}

func logHeaders(log *logrus.Logger, tag string, hm sheet.HeaderMap) {
	first, last := hm.MonthRange()
	log.Infof("[%s] headers: %d named, %d month columns (%s to %s)", tag, len(hm.Named), len(hm.Months), first, last)
	for _, um := range hm.Unmatched {
		if um.Suggestion != "" {
			log.Debugf("[%s] col %d header %q unmatched, closest pattern %q", tag, um.Col, um.Text, um.Suggestion)
			continue
		}
		log.Debugf("[%s] col %d header %q unmatched", tag, um.Col, um.Text)
	}
}
