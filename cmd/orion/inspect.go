package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
)

func newInspectCmd() *cobra.Command {
	var projectName string

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Preview header discovery and section parsing without loading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], projectName)
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "", "Project profile name (required)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runInspect(workbook, projectName string) error {
	profile, err := project.Get(projectName)
	if err != nil {
		return withCode(exitUsage, err)
	}

	wb, err := sheet.OpenWorkbook(workbook)
	if err != nil {
		return withCode(exitValidation, err)
	}
	defer wb.Close()

	fmt.Printf("workbook: %s\n", workbook)
	fmt.Printf("project:  %s (%s)\n", profile.DisplayName, profile.Name)

	actuals := profile.Actuals
	if !wb.HasSheet(actuals.Sheet) {
		return withCode(exitValidation, fmt.Errorf("workbook has no sheet %q (found: %s)", actuals.Sheet, strings.Join(wb.Sheets(), ", ")))
	}
	grid := wb.Grid(actuals.Sheet)

	records, headers, err := sheet.ParseSection(grid, actuals.Main, actuals.ColStart, actuals.ColEnd, actuals.Patterns, nil)
	if err != nil {
		return withCode(exitValidation, err)
	}
	printSection(actuals.Sheet, actuals.Main, headers, len(records))

	for _, sub := range actuals.Subs {
		subRecords, subHeaders, err := sheet.ParseSection(grid, sub, actuals.ColStart, actuals.ColEnd, actuals.Patterns, headers.Months)
		if err != nil {
			return withCode(exitValidation, err)
		}
		printSection(actuals.Sheet, sub, subHeaders, len(subRecords))
	}

	budget := profile.Budget
	if !wb.HasSheet(budget.Sheet) {
		return withCode(exitValidation, fmt.Errorf("workbook has no sheet %q (found: %s)", budget.Sheet, strings.Join(wb.Sheets(), ", ")))
	}
	installments, budgetHeaders, err := sheet.ParseBudget(wb.Grid(budget.Sheet), budget.Layout, budget.ColStart, budget.ColEnd, budget.Patterns)
	if err != nil {
		return withCode(exitValidation, err)
	}

	units := make(map[string]struct{})
	for _, ins := range installments {
		units[ins.UnitKey] = struct{}{}
	}
	fmt.Printf("\n[budget] sheet %q, header row %d, rows %d-%d\n", budget.Sheet, budget.Layout.HeaderRow, budget.Layout.RowStart, budget.Layout.RowEnd)
	printHeaderMap(budgetHeaders)
	fmt.Printf("  installments: %d across %d units\n", len(installments), len(units))

	return nil
}

func printSection(sheetName string, layout sheet.SectionLayout, hm sheet.HeaderMap, count int) {
	fmt.Printf("\n[%s] sheet %q, header row %d, rows %d-%d\n", layout.Tag, sheetName, layout.HeaderRow, layout.RowStart, layout.RowEnd)
	printHeaderMap(hm)
	fmt.Printf("  records: %d\n", count)
}

func printHeaderMap(hm sheet.HeaderMap) {
	type field struct {
		name string
		col  int
	}
	fields := make([]field, 0, len(hm.Named))
	for name, col := range hm.Named {
		fields = append(fields, field{name: name, col: col})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].col < fields[j].col })

	fmt.Printf("  fields (%d):\n", len(fields))
	for _, f := range fields {
		fmt.Printf("    %-24s col %d\n", f.name, f.col)
	}

	first, last := hm.MonthRange()
	fmt.Printf("  months: %d columns (%s to %s)\n", len(hm.Months), first, last)

	if len(hm.Unmatched) > 0 {
		fmt.Printf("  unmatched (%d):\n", len(hm.Unmatched))
		for _, um := range hm.Unmatched {
			if um.Suggestion != "" {
				fmt.Printf("    col %-3d %q (closest: %s)\n", um.Col, um.Text, um.Suggestion)
				continue
			}
			fmt.Printf("    col %-3d %q\n", um.Col, um.Text)
		}
	}
}
