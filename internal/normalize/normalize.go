// Package normalize maps raw ledger text to canonical statuses and names.
// All lookups are total: unrecognized input degrades to a defined default
// instead of failing, so normalization never aborts a load on its own.
package normalize

import "strings"

// Canonical unit and sale statuses.
const (
	UnitAvailable = "available"
	UnitReserved  = "reserved"
	UnitSold      = "sold"
	UnitCancelled = "cancelled"

	SaleActive    = "active"
	SaleCancelled = "cancelled"
)

// Tables hold one project's canonicalization data. Keys are compared after
// trimming and case-folding, so entries must be stored pre-folded.
type Tables struct {
	// UnitStatus maps raw status text to a canonical unit status.
	UnitStatus map[string]string
	// SaleStatus maps raw status text to a canonical sale status. A raw
	// value with no entry means no sale exists for that record.
	SaleStatus map[string]string
	// Reps maps raw sales-rep spellings to canonical display names. An
	// empty-string value marks a sentinel: input that explicitly means
	// "no rep" rather than an unregistered name.
	Reps map[string]string
}

// Normalizer answers canonicalization lookups for one project. It copies its
// tables at construction and never mutates them afterwards, so one instance
// is safe to share across a whole run.
type Normalizer struct {
	unitStatus map[string]string
	saleStatus map[string]string
	reps       map[string]string
}

func New(t Tables) *Normalizer {
	return &Normalizer{
		unitStatus: copyTable(t.UnitStatus),
		saleStatus: copyTable(t.SaleStatus),
		reps:       copyTable(t.Reps),
	}
}

func copyTable(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func foldKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// UnitStatus maps raw status text to its canonical unit status. Blank and
// unrecognized input both default to available.
func (n *Normalizer) UnitStatus(raw string) string {
	if status, ok := n.unitStatus[foldKey(raw)]; ok {
		return status
	}
	return UnitAvailable
}

// HasUnitStatus reports whether raw resolves through the unit-status table.
// Blank input always resolves (it defaults to available); non-blank input
// resolves only when the table carries an entry for it.
func (n *Normalizer) HasUnitStatus(raw string) bool {
	key := foldKey(raw)
	if key == "" {
		return true
	}
	_, ok := n.unitStatus[key]
	return ok
}

// SaleStatus maps raw status text to a canonical sale status, or "" when no
// sale should exist for the record. This is the gate deciding whether a
// parsed record produces a sale at all.
func (n *Normalizer) SaleStatus(raw string) string {
	return n.saleStatus[foldKey(raw)]
}

// RepName canonicalizes a sales-rep spelling. Sentinel entries and blank
// input return ""; unregistered non-blank input passes through trimmed,
// treated as an already-canonical name.
func (n *Normalizer) RepName(raw string) string {
	key := foldKey(raw)
	if key == "" {
		return ""
	}
	if canonical, ok := n.reps[key]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}
