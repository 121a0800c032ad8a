package salary

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// ENTRY POINTS
// =============================================================================

// ParseText parses a tab-separated paste. Blank lines are ignored.
func ParseText(text string, opts Options) Timeline {
	return ParseGrid(splitTSV(text), opts)
}

// ParseGrid tries each known layout in order. A grid no layout recognises is
// handed to the legacy parser, which yields an empty timeline when it finds
// nothing either.
func ParseGrid(grid [][]string, opts Options) Timeline {
	for _, s := range strategies {
		if rows, cols, ok := s.detect(grid); ok {
			return build(rows, cols, s.format(), opts)
		}
	}
	rows, cols, _ := legacyFormat{}.detect(grid)
	return build(rows, cols, FormatLegacy, opts)
}

// FromExtracted converts image-extraction rows. Dates and percentage scale
// are interpreted exactly as for pasted grids.
func FromExtracted(rows []ExtractedRow, opts Options) Timeline {
	raw := make([]rawRow, len(rows))
	for i, r := range rows {
		raw[i] = rawRow{
			date:         r.Date,
			actualSalary: numberCell(r.Salary),
			actualPct:    numberCell(r.Percentage),
		}
	}
	return build(raw, columnSet{}, FormatExtracted, opts)
}

func splitTSV(text string) [][]string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	grid := make([][]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		grid = append(grid, strings.Split(line, "\t"))
	}
	return grid
}

// numberCell renders with a decimal comma so ParseNumber never mistakes
// three decimals for a thousands group.
func numberCell(f float64) string {
	return strings.Replace(decimal.NewFromFloat(f).String(), ".", ",", 1)
}

// =============================================================================
// BUILD - Basis selection, normalisation, correction
// =============================================================================

func build(raw []rawRow, cols columnSet, format Format, opts Options) Timeline {
	basis, source := selectBasis(raw, cols, opts)

	entries := make([]Entry, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		e, ok := r.entry(basis)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	corrections := 0
	if basis == BasisActual {
		corrections = applyAjourholdCorrection(entries)
	}

	return Timeline{
		Entries:     entries,
		Basis:       basis,
		BasisSource: source,
		Format:      format,
		Corrections: corrections,
		Skipped:     skipped,
		raw:         raw,
		opts:        opts,
		cols:        cols,
	}
}

// selectBasis applies the caller override, then the basis-type flags of the
// row in force on the sick date. Nominal is only possible when the grid has a
// nominal salary column.
func selectBasis(raw []rawRow, cols columnSet, opts Options) (Basis, BasisSource) {
	switch {
	case opts.Override == BasisNominal && !cols.nominalSalary:
		return BasisActual, SourceDefault
	case opts.Override != BasisAuto:
		return opts.Override, SourceOverride
	case opts.SickDate == nil:
		return BasisActual, SourceDefault
	}

	var (
		inForce *rawRow
		latest  generic.Date
	)
	for i := range raw {
		d, ok := parseCellDate(raw[i].date)
		if !ok || d.After(*opts.SickDate) {
			continue
		}
		if inForce == nil || d.After(latest) {
			inForce, latest = &raw[i], d
		}
	}
	if inForce == nil {
		return BasisActual, SourceDefault
	}
	if cols.nominalSalary && (isNormert(inForce.basisIF) || isNormert(inForce.basisUP)) {
		return BasisNominal, SourceAuto
	}
	return BasisActual, SourceAuto
}

func isNormert(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "normert") }

// entry resolves one row under the basis. Rows without a date or a salary
// for the basis are rejected.
func (r rawRow) entry(basis Basis) (Entry, bool) {
	date, ok := parseCellDate(r.date)
	if !ok {
		return Entry{}, false
	}
	actual, hasActual := generic.ParseNumber(r.actualSalary)
	nominal, hasNominal := generic.ParseNumber(r.nominalSalary)

	selected, resolved, pctCell := actual, hasActual, r.actualPct
	if basis == BasisNominal {
		selected, resolved = nominal, hasNominal
		if strings.TrimSpace(r.nominalPct) != "" {
			pctCell = r.nominalPct
		}
	}
	if !resolved {
		return Entry{}, false
	}

	pct, pctDecimal := normalizePercentage(pctCell)
	e := Entry{
		Date:              date,
		ActualSalary:      actual,
		NominalSalary:     nominal,
		SelectedSalary:    selected,
		Percentage:        pct,
		PercentageDecimal: pctDecimal,
		SalaryAt100Pct:    at100(selected, pctDecimal),
		BasisTypeIF:       r.basisIF,
		BasisTypeUP:       r.basisUP,
		Ajourholddato:     parseCellDatePtr(r.ajourhold),
	}
	if len(r.benefits) > 0 {
		e.Benefits = make(map[string]decimal.Decimal, len(r.benefits))
		for name, v := range r.benefits {
			amount, _ := generic.ParseNumber(v)
			e.Benefits[name] = amount
		}
	}
	return e, true
}

// normalizePercentage reads values <= 1 as a fraction and larger values as
// 0-100. Missing or unparseable percentages are zero.
func normalizePercentage(s string) (pct, fraction decimal.Decimal) {
	v, ok := generic.ParseNumber(s)
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	if v.LessThanOrEqual(generic.One) {
		return v.Mul(generic.Hundred), v
	}
	return v, v.Div(generic.Hundred)
}

// at100 scales a salary to full time. A zero percentage leaves it unchanged.
func at100(salary, fraction decimal.Decimal) decimal.Decimal {
	if fraction.IsZero() {
		return salary
	}
	return salary.Div(fraction)
}

// =============================================================================
// AJOURHOLDDATO CORRECTION
// =============================================================================

// applyAjourholdCorrection walks entries newest first. For each entry with an
// ajourholddato, every strictly newer entry whose own ajourholddato is earlier
// takes over its salary figures. Older sources are applied later, so the
// oldest qualifying source wins. Entries are only overwritten, never removed
// or reordered. Returns the number of corrected entries.
func applyAjourholdCorrection(entries []Entry) int {
	corrected := map[int]bool{}
	for i := range entries {
		src := entries[i]
		if src.Ajourholddato == nil {
			continue
		}
		for j := 0; j < i; j++ {
			newer := &entries[j]
			if !newer.Date.After(src.Date) || newer.Ajourholddato == nil {
				continue
			}
			if !newer.Ajourholddato.Before(*src.Ajourholddato) {
				continue
			}
			newer.SelectedSalary = src.SelectedSalary
			newer.SalaryAt100Pct = src.SalaryAt100Pct
			newer.Corrected = true
			newer.CorrectedFrom = src.Date.Ptr()
			corrected[j] = true
		}
	}
	return len(corrected)
}

// =============================================================================
// CELL DATES
// =============================================================================

// Spreadsheet exports sometimes render dates as ISO or US short dates.
var fallbackDateLayouts = []string{"2006-01-02", "01-02-06", "2006-01-02 15:04:05"}

func parseCellDate(s string) (generic.Date, bool) {
	if d, ok := generic.ParseDate(s); ok {
		return d, true
	}
	s = strings.TrimSpace(s)
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return generic.Date{}, false
}

func parseCellDatePtr(s string) *generic.Date {
	d, ok := parseCellDate(s)
	if !ok {
		return nil
	}
	return &d
}
