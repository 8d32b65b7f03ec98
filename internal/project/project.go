// Package project holds the per-project ingestion profiles: where each
// ledger's sections live in the workbook, how its headers are spelled, and
// which normalization tables and tax strategy apply. Everything that varies
// between projects is declared here; the parsers and loader stay generic.
package project

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/sheet"
)

var ErrUnknownProject = errors.New("unknown project")

// TaxRule derives a unit's net price from its tax-inclusive gross price.
type TaxRule struct {
	// Divisor, when positive, derives the net price as gross / Divisor.
	// When zero, the net price is gross minus the sheet's own tax
	// component columns (VAT plus stamp tax).
	Divisor decimal.Decimal
}

func (t TaxRule) NetPrice(gross, vat, stampTax decimal.Decimal) decimal.Decimal {
	if t.Divisor.IsPositive() {
		if gross.IsZero() {
			return decimal.Zero
		}
		return gross.Div(t.Divisor).Round(2)
	}
	return gross.Sub(vat.Add(stampTax).Round(2)).Round(2)
}

// ActualsSpec locates the lifecycle sections of a project's actuals sheet.
// Sub-sections share the main section's column span; those without their own
// calendar header row inherit the main section's month columns at parse time.
type ActualsSpec struct {
	Sheet    string
	ColStart int
	ColEnd   int
	Main     sheet.SectionLayout
	Subs     []sheet.SectionLayout
	Patterns []sheet.FieldPattern
}

// BudgetSpec locates a project's expected-installment grid.
type BudgetSpec struct {
	Sheet    string
	Layout   sheet.BudgetLayout
	ColStart int
	ColEnd   int
	Patterns []sheet.FieldPattern
}

// Profile is one project's complete ingestion configuration.
type Profile struct {
	Name        string
	DisplayName string
	Actuals     ActualsSpec
	Budget      BudgetSpec
	Tax         TaxRule
	Tables      normalize.Tables

	// RepFallback is the sales-rep identifier recorded when a record has
	// no resolvable rep.
	RepFallback string
	// SalesReps maps canonical rep identifiers to display names for the
	// sales_reps reference table. Nil disables the phase entirely for
	// projects that do not track reps as durable rows.
	SalesReps map[string]string
}

var registry = map[string]func() *Profile{
	"boulevard":   Boulevard,
	"santa_elisa": SantaElisa,
}

// Get returns a fresh Profile for the named project.
func Get(name string) (*Profile, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownProject, name, Names())
	}
	return build(), nil
}

// Names lists the registered project names in stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
