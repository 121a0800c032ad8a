/*
Package salary turns a pasted salary grid into a normalised salary timeline.

PURPOSE:
  The pension system shows salary history as a spreadsheet. Caseworkers copy
  it (tab separated), upload it as .xlsx, or photograph it and run it through
  image extraction. Every route ends up as a Timeline: one Entry per
  effective-from row, newest first, with the salary normalised to 100%.

KEY CONCEPTS:
  Basis:
    Each row carries an actual salary ("Lønn") and a nominal one ("LønnN").
    One basis is chosen for the whole timeline, either by the caller or from
    the basis-type flags of the row in force on the sick date.

  Format:
    Two historical grid layouts exist. Each is a strategy that either
    recognises the grid or declines; see formats.go.

  Ajourholddato correction:
    A later-dated row with an earlier audit date is a stale correction and
    inherits the figures of the older row. Actual basis only.

SEE ALSO:
  - formats.go: tabular and legacy layouts
  - parser.go: ParseText, ParseGrid, basis selection, correction
  - karens/: salary-increase checks over a Timeline
*/
package salary

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// BASIS
// =============================================================================

// Basis selects which salary and percentage columns a timeline uses.
type Basis string

const (
	BasisAuto    Basis = ""
	BasisActual  Basis = "actual"
	BasisNominal Basis = "nominal"
)

// ParseBasis accepts "", "auto", "actual"/"faktisk" and "nominal"/"normert".
func ParseBasis(s string) (Basis, bool) {
	switch s {
	case "", "auto":
		return BasisAuto, true
	case "actual", "faktisk":
		return BasisActual, true
	case "nominal", "normert":
		return BasisNominal, true
	}
	return BasisAuto, false
}

// BasisSource records how the basis was decided.
type BasisSource string

const (
	SourceAuto     BasisSource = "auto"
	SourceOverride BasisSource = "override"
	SourceDefault  BasisSource = "default"
)

// Format names the layout a grid was recognised as.
type Format string

const (
	FormatTabular   Format = "tabular"
	FormatLegacy    Format = "legacy"
	FormatExtracted Format = "extracted"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one effective-from row. Entries with an unchanged salary are kept
// distinct.
type Entry struct {
	Date              generic.Date               `json:"date"`
	ActualSalary      decimal.Decimal            `json:"actual_salary"`
	NominalSalary     decimal.Decimal            `json:"nominal_salary"`
	SelectedSalary    decimal.Decimal            `json:"selected_salary"`
	Percentage        decimal.Decimal            `json:"percentage"`
	PercentageDecimal decimal.Decimal            `json:"percentage_decimal"`
	SalaryAt100Pct    decimal.Decimal            `json:"salary_at_100_pct"`
	BasisTypeIF       string                     `json:"basis_type_if,omitempty"`
	BasisTypeUP       string                     `json:"basis_type_up,omitempty"`
	Benefits          map[string]decimal.Decimal `json:"benefits,omitempty"`
	Ajourholddato     *generic.Date              `json:"ajourholddato,omitempty"`

	// Corrected is set when the ajourholddato rule overwrote the salary;
	// CorrectedFrom is the date of the entry the figures came from.
	Corrected     bool          `json:"corrected,omitempty"`
	CorrectedFrom *generic.Date `json:"corrected_from,omitempty"`
}

// Benefit returns the named benefit amount, zero when absent.
func (e Entry) Benefit(name string) decimal.Decimal {
	if v, ok := e.Benefits[name]; ok {
		return v
	}
	return decimal.Zero
}

// ExtractedRow is the shape the image-extraction collaborator returns.
type ExtractedRow struct {
	Date       string  `json:"date"`
	Salary     float64 `json:"salary"`
	Percentage float64 `json:"percentage"`
}

// Options control basis selection.
type Options struct {
	SickDate *generic.Date
	Override Basis
}

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is the parsed salary history, sorted descending by date.
type Timeline struct {
	Entries     []Entry     `json:"entries"`
	Basis       Basis       `json:"basis"`
	BasisSource BasisSource `json:"basis_source"`
	Format      Format      `json:"format"`
	Corrections int         `json:"corrections"`
	Skipped     int         `json:"skipped"`

	raw  []rawRow
	opts Options
	cols columnSet
}

// Empty reports whether no entry survived parsing.
func (t Timeline) Empty() bool { return len(t.Entries) == 0 }

// At returns the most recent entry dated on or before d.
func (t Timeline) At(d generic.Date) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Date.BeforeOrEqual(d) {
			return e, true
		}
	}
	return Entry{}, false
}

// Ascending returns a copy of the entries, oldest first.
func (t Timeline) Ascending() []Entry {
	out := make([]Entry, len(t.Entries))
	for i, e := range t.Entries {
		out[len(out)-1-i] = e
	}
	return out
}

// BenefitNames lists every benefit column seen in the timeline, sorted.
func (t Timeline) BenefitNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, e := range t.Entries {
		for name := range e.Benefits {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// WithBasis re-derives the timeline from the same raw rows with a forced
// basis. The receiver is not modified.
func (t Timeline) WithBasis(b Basis) Timeline {
	opts := t.opts
	opts.Override = b
	return build(t.raw, t.cols, t.Format, opts)
}
