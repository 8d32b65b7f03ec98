// Package validate runs the cross-section consistency checks over one
// workbook's parsed records before anything is written. Errors block the
// load; warnings and the resold report are advisory.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/sheet"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Finding struct {
	Severity Severity
	Message  string
}

// Report collects everything the checks found. A report with at least one
// error-severity finding must abort the load before any write.
type Report struct {
	Findings []Finding

	// Resold lists units that appear both in a cancellation section and as
	// a non-available main record. That is the expected shape of a unit
	// with lifecycle history, not a defect, so it is reported apart from
	// the warnings.
	Resold []string
}

func (r *Report) addf(sev Severity, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Severity: sev, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) Errors() []string   { return r.messages(SeverityError) }
func (r *Report) Warnings() []string { return r.messages(SeverityWarning) }

func (r *Report) messages(sev Severity) []string {
	var out []string
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f.Message)
		}
	}
	return out
}

// Fatal reports whether the load must not proceed.
func (r *Report) Fatal() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Check validates one workbook's records against each other and against the
// budget. It never mutates its inputs and runs entirely in memory.
func Check(records []sheet.UnitRecord, budget []sheet.InstallmentRecord, norm *normalize.Normalizer) *Report {
	rep := &Report{}

	var main []sheet.UnitRecord
	historicKeys := map[string]struct{}{}
	cancelledPairs := map[[2]string]struct{}{}
	refundPairs := map[[2]string]struct{}{}

	for _, rec := range records {
		switch {
		case rec.Section == sheet.SectionMain:
			main = append(main, rec)
		case rec.Section.Refund():
			historicKeys[rec.UnitKey] = struct{}{}
			if rec.ClientName != "" {
				refundPairs[[2]string{rec.UnitKey, rec.ClientName}] = struct{}{}
			}
		case rec.Section.Cancelled():
			historicKeys[rec.UnitKey] = struct{}{}
			if rec.ClientName != "" {
				cancelledPairs[[2]string{rec.UnitKey, rec.ClientName}] = struct{}{}
			}
		}
	}

	mainKeys := map[string]int{}
	for _, rec := range main {
		mainKeys[rec.UnitKey]++
	}

	// A unit must appear at most once as the current owner.
	var dupes []string
	for key, count := range mainKeys {
		if count > 1 {
			dupes = append(dupes, key)
		}
	}
	if len(dupes) > 0 {
		rep.addf(SeverityError, "duplicate unit keys in main section: %s", sample(dupes))
	}

	// An explicitly unrecognized status is fatal; a blank one just
	// defaults and is fine.
	for _, rec := range main {
		if !norm.HasUnitStatus(rec.RawStatus) {
			rep.addf(SeverityError, "unit %s: unknown status %q", rec.UnitKey, rec.RawStatus)
		}
	}

	// Cancelled-then-resold units are informational, not a warning.
	var resold []string
	for _, rec := range main {
		if _, ok := historicKeys[rec.UnitKey]; ok && norm.UnitStatus(rec.RawStatus) != normalize.UnitAvailable {
			resold = append(resold, rec.UnitKey)
		}
	}
	sort.Strings(resold)
	rep.Resold = resold

	var historicOnly []string
	for key := range historicKeys {
		if _, ok := mainKeys[key]; !ok {
			historicOnly = append(historicOnly, key)
		}
	}
	if len(historicOnly) > 0 {
		rep.addf(SeverityWarning, "%d cancelled units missing from main section (%s): their sales will be skipped",
			len(historicOnly), sample(historicOnly))
	}

	budgetKeys := map[string]struct{}{}
	for _, ins := range budget {
		budgetKeys[ins.UnitKey] = struct{}{}
	}
	actualKeys := map[string]struct{}{}
	for key := range mainKeys {
		actualKeys[key] = struct{}{}
	}
	for key := range historicKeys {
		actualKeys[key] = struct{}{}
	}

	if only := difference(budgetKeys, actualKeys); len(only) > 0 {
		rep.addf(SeverityWarning, "%d units in budget but not in actuals: %s", len(only), sample(only))
	}
	if only := difference(actualKeys, budgetKeys); len(only) > 0 {
		rep.addf(SeverityWarning, "%d units in actuals but not in budget: %s", len(only), sample(only))
	}

	var soldNoClient []string
	for _, rec := range main {
		if norm.SaleStatus(rec.RawStatus) != "" && rec.ClientName == "" {
			soldNoClient = append(soldNoClient, rec.UnitKey)
		}
	}
	if len(soldNoClient) > 0 {
		rep.addf(SeverityWarning, "%d sold or reserved units missing a client: %s", len(soldNoClient), sample(soldNoClient))
	}

	// A refund without a matching cancellation means the cancelled sale
	// must be synthesized from the refund record alone.
	var orphanRefunds []string
	for pair := range refundPairs {
		if _, ok := cancelledPairs[pair]; !ok {
			orphanRefunds = append(orphanRefunds, pair[0]+"/"+pair[1])
		}
	}
	if len(orphanRefunds) > 0 {
		rep.addf(SeverityWarning, "%d refund records without a matching cancellation (%s): cancelled sales will be created from refund data",
			len(orphanRefunds), sample(orphanRefunds))
	}

	return rep
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for key := range a {
		if _, ok := b[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

// sample renders up to ten keys for a finding message; full sets can run to
// hundreds of units and would drown the summary.
func sample(keys []string) string {
	sort.Strings(keys)
	if len(keys) > 10 {
		return strings.Join(keys[:10], ", ") + ", ..."
	}
	return strings.Join(keys, ", ")
}
