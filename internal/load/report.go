package load

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
)

// Summary is the dry-run view of a parsed workbook: what a load would
// write, computed without touching the database.
type Summary struct {
	Project          string
	MainUnits        int
	Sold             int
	Reserved         int
	Available        int
	Clients          int
	ActiveSales      int
	CancelledSales   int
	CancelledBy      []SectionCount
	MainPayments     int
	HistoricPayments int
	Expected         int
	Resold           []string
	Lifecycle        *LifecycleSample
	ExpectedSample   *ExpectedSample
}

type SectionCount struct {
	Section sheet.Section
	Count   int
}

// LifecycleSample shows one unit that was cancelled and then sold again:
// both episodes, side by side.
type LifecycleSample struct {
	Unit              string
	CancelledClient   string
	CancelledPayments int
	ActiveClient      string
	ActivePayments    int
}

type ExpectedSample struct {
	Unit  string
	Count int
	First time.Time
	Last  time.Time
}

// Summarize computes the dry-run summary from parsed records. Counting
// mirrors the load phases: units and active sales from main, cancelled
// sales per sub-section, clients across all sections.
func Summarize(records []sheet.UnitRecord, budget []sheet.InstallmentRecord, profile *project.Profile) *Summary {
	norm := normalize.New(profile.Tables)
	s := &Summary{Project: profile.DisplayName}

	clients := make(map[string]struct{})
	activeUnits := make(map[string]struct{})
	historicUnits := make(map[string]struct{})
	bySection := make(map[sheet.Section]int)

	for _, rec := range records {
		if rec.ClientName != "" {
			clients[rec.ClientName] = struct{}{}
		}
		if rec.Section != sheet.SectionMain {
			s.CancelledSales++
			bySection[rec.Section]++
			s.HistoricPayments += len(rec.Payments)
			historicUnits[rec.UnitKey] = struct{}{}
			continue
		}
		s.MainUnits++
		s.MainPayments += len(rec.Payments)
		switch norm.UnitStatus(rec.RawStatus) {
		case normalize.UnitSold:
			s.Sold++
		case normalize.UnitReserved:
			s.Reserved++
		case normalize.UnitAvailable:
			s.Available++
		}
		if norm.UnitStatus(rec.RawStatus) != normalize.UnitAvailable {
			activeUnits[rec.UnitKey] = struct{}{}
		}
		if norm.SaleStatus(rec.RawStatus) != "" {
			s.ActiveSales++
		}
	}
	s.Clients = len(clients)

	for _, sub := range profile.Actuals.Subs {
		s.CancelledBy = append(s.CancelledBy, SectionCount{Section: sub.Tag, Count: bySection[sub.Tag]})
	}

	for unit := range historicUnits {
		if _, ok := activeUnits[unit]; ok {
			s.Resold = append(s.Resold, unit)
		}
	}
	sort.Strings(s.Resold)
	s.Lifecycle = lifecycleSample(records, s.Resold)

	s.Expected = len(budget)
	if len(budget) > 0 {
		unit := budget[0].UnitKey
		sample := &ExpectedSample{Unit: unit, First: budget[0].DueDate}
		for _, ins := range budget {
			if ins.UnitKey != unit {
				continue
			}
			sample.Count++
			sample.Last = ins.DueDate
		}
		s.ExpectedSample = sample
	}
	return s
}

func lifecycleSample(records []sheet.UnitRecord, resold []string) *LifecycleSample {
	if len(resold) == 0 {
		return nil
	}
	sample := &LifecycleSample{Unit: resold[0]}
	for _, rec := range records {
		if rec.UnitKey != sample.Unit {
			continue
		}
		if rec.Section == sheet.SectionMain {
			sample.ActiveClient = rec.ClientName
			sample.ActivePayments = len(rec.Payments)
		} else if sample.CancelledClient == "" {
			sample.CancelledClient = rec.ClientName
			sample.CancelledPayments = len(rec.Payments)
		}
	}
	return sample
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

const boxWidth = 56

// Log prints the summary as a boxed report, one log line per row.
func (s *Summary) Log(log *logrus.Logger) {
	hr := strings.Repeat("═", boxWidth+2)
	line := func(format string, args ...any) {
		log.Infof("║ %-*s ║", boxWidth, fmt.Sprintf(format, args...))
	}

	log.Infof("╔%s╗", hr)
	line("DRY-RUN SUMMARY — %s", strings.ToUpper(s.Project))
	log.Infof("╠%s╣", hr)
	line("projects              →     1 row")
	line("units (from main)     →  %4d (sold:%d res:%d avail:%d)", s.MainUnits, s.Sold, s.Reserved, s.Available)
	line("clients               →  %4d unique names", s.Clients)
	line("sales (active)        →  %4d", s.ActiveSales)
	if breakdown := s.cancelledBreakdown(); breakdown != "" {
		line("sales (cancelled)     →  %4d (%s)", s.CancelledSales, breakdown)
	} else {
		line("sales (cancelled)     →  %4d", s.CancelledSales)
	}
	line("payments (active)     →  %4d records", s.MainPayments)
	line("payments (cancelled)  →  %4d records", s.HistoricPayments)
	line("expected_payments     →  %4d records", s.Expected)
	log.Infof("╠%s╣", hr)
	line("units cancelled then re-sold: %d", len(s.Resold))
	log.Infof("╚%s╝", hr)

	if s.Lifecycle != nil {
		log.Infof("sample lifecycle, unit %s:", s.Lifecycle.Unit)
		log.Infof("  cancelled: client=%s payments=%d", s.Lifecycle.CancelledClient, s.Lifecycle.CancelledPayments)
		log.Infof("  active:    client=%s payments=%d", s.Lifecycle.ActiveClient, s.Lifecycle.ActivePayments)
	}
	if s.ExpectedSample != nil {
		log.Infof("sample expected schedule, unit %s: %d installments (%s to %s)",
			s.ExpectedSample.Unit, s.ExpectedSample.Count,
			s.ExpectedSample.First.Format("2006-01-02"), s.ExpectedSample.Last.Format("2006-01-02"))
	}
	log.Info("run with --execute to write to the database")
}

func (s *Summary) cancelledBreakdown() string {
	var parts []string
	for _, sc := range s.CancelledBy {
		parts = append(parts, fmt.Sprintf("%s:%d", sc.Section, sc.Count))
	}
	return strings.Join(parts, " ")
}
