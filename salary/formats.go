package salary

import (
	"strings"
)

// =============================================================================
// RAW ROWS - Format-neutral cell strings, before basis selection
// =============================================================================

type rawRow struct {
	date          string
	actualSalary  string
	nominalSalary string
	actualPct     string
	nominalPct    string
	ajourhold     string
	basisIF       string
	basisUP       string
	benefits      map[string]string
}

// columnSet records which optional columns the grid carried.
type columnSet struct {
	nominalSalary bool
	nominalPct    bool
}

// =============================================================================
// FORMAT STRATEGIES - Tried in priority order
// =============================================================================

// formatStrategy recognises one grid layout. detect returns ok=false when
// the grid is not in this layout.
type formatStrategy interface {
	format() Format
	detect(grid [][]string) (rows []rawRow, cols columnSet, ok bool)
}

var strategies = []formatStrategy{
	tabularFormat{},
	legacyFormat{},
}

// =============================================================================
// TABULAR - Current Excel paste with a header row
// =============================================================================

type tabularFormat struct{}

func (tabularFormat) format() Format { return FormatTabular }

type benefitColumn struct {
	name string
	idx  int
}

type tabularHeader struct {
	date, actualSalary, nominalSalary int
	actualPct, nominalPct             int
	ajourhold, basisIF, basisUP       int
	benefits                          []benefitColumn
}

func (tabularFormat) detect(grid [][]string) ([]rawRow, columnSet, bool) {
	for i, row := range grid {
		h, ok := classifyHeader(row)
		if !ok {
			continue
		}
		rows := []rawRow{}
		for _, r := range grid[i+1:] {
			if blankRow(r) {
				continue
			}
			rows = append(rows, h.extract(r))
		}
		cols := columnSet{nominalSalary: h.nominalSalary >= 0, nominalPct: h.nominalPct >= 0}
		return rows, cols, true
	}
	return nil, columnSet{}, false
}

// classifyHeader maps column names to roles. A header needs a date column
// and an actual or nominal salary column.
func classifyHeader(row []string) (tabularHeader, bool) {
	h := tabularHeader{
		date: -1, actualSalary: -1, nominalSalary: -1,
		actualPct: -1, nominalPct: -1,
		ajourhold: -1, basisIF: -1, basisUP: -1,
	}
	fallbackDate := -1
	for i, cell := range row {
		switch name := normalizeHeader(cell); {
		case name == "gjelderfradato":
			setOnce(&h.date, i)
		case name == "dato":
			setOnce(&fallbackDate, i)
		case name == "lønn":
			setOnce(&h.actualSalary, i)
		case name == "lønnn":
			setOnce(&h.nominalSalary, i)
		case name == "stillingsprosent":
			setOnce(&h.actualPct, i)
		case name == "stillingsprosentn":
			setOnce(&h.nominalPct, i)
		case name == "ajourholddato":
			setOnce(&h.ajourhold, i)
		case name == "grunnlagstypeif":
			setOnce(&h.basisIF, i)
		case name == "grunnlagstypeup":
			setOnce(&h.basisUP, i)
		case strings.Contains(name, "ytelse"):
			h.benefits = append(h.benefits, benefitColumn{name: strings.TrimSpace(cell), idx: i})
		}
	}
	if h.date < 0 {
		h.date = fallbackDate
	}
	return h, h.date >= 0 && (h.actualSalary >= 0 || h.nominalSalary >= 0)
}

func (h tabularHeader) extract(r []string) rawRow {
	row := rawRow{
		date:          cell(r, h.date),
		actualSalary:  cell(r, h.actualSalary),
		nominalSalary: cell(r, h.nominalSalary),
		actualPct:     cell(r, h.actualPct),
		nominalPct:    cell(r, h.nominalPct),
		ajourhold:     cell(r, h.ajourhold),
		basisIF:       cell(r, h.basisIF),
		basisUP:       cell(r, h.basisUP),
	}
	if len(h.benefits) > 0 {
		row.benefits = make(map[string]string, len(h.benefits))
		for _, b := range h.benefits {
			row.benefits[b.name] = cell(r, b.idx)
		}
	}
	return row
}

// =============================================================================
// LEGACY - Columnar DSOP layout, one labelled block per field
// =============================================================================

type legacyFormat struct{}

func (legacyFormat) format() Format { return FormatLegacy }

type legacyBlock int

const (
	blockNone legacyBlock = iota
	blockDate
	blockSalary
	blockPct
)

var legacyLabels = map[string]legacyBlock{
	"gjelderfradato":   blockDate,
	"lønn":             blockSalary,
	"stillingsprosent": blockPct,
}

const legacyTerminator = "typelønn"

func (legacyFormat) detect(grid [][]string) ([]rawRow, columnSet, bool) {
	values := map[legacyBlock][]string{}
	current := blockNone
	for _, r := range grid {
		line := strings.TrimSpace(strings.Join(r, " "))
		if line == "" {
			continue
		}
		label := normalizeHeader(line)
		if label == legacyTerminator {
			current = blockNone
			continue
		}
		if b, ok := legacyLabels[label]; ok {
			current = b
			continue
		}
		if current != blockNone {
			values[current] = append(values[current], line)
		}
	}

	dates, salaries := values[blockDate], values[blockSalary]
	if len(dates) == 0 || len(salaries) == 0 {
		return nil, columnSet{}, false
	}
	rows := make([]rawRow, len(dates))
	for i, d := range dates {
		rows[i] = rawRow{
			date:         d,
			actualSalary: at(salaries, i),
			actualPct:    at(values[blockPct], i),
		}
	}
	return rows, columnSet{}, true
}

// =============================================================================
// HELPERS
// =============================================================================

// normalizeHeader lower-cases and strips all whitespace: "Lønn N" -> "lønnn".
func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func setOnce(dst *int, i int) {
	if *dst < 0 {
		*dst = i
	}
}

func cell(r []string, idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

func at(values []string, i int) string {
	if i >= len(values) {
		return ""
	}
	return values[i]
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
