package karens

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// G-REGULATION TABLE - Grunnbeløp by effective date
// =============================================================================

// gRegulationTable is the national base amount (G), effective 1 May each year.
var gRegulationTable = []struct {
	from   string
	amount int64
}{
	{"01.05.2005", 60699},
	{"01.05.2006", 62892},
	{"01.05.2007", 66812},
	{"01.05.2008", 70256},
	{"01.05.2009", 72881},
	{"01.05.2010", 75641},
	{"01.05.2011", 79216},
	{"01.05.2012", 82122},
	{"01.05.2013", 85245},
	{"01.05.2014", 88370},
	{"01.05.2015", 90068},
	{"01.05.2016", 92576},
	{"01.05.2017", 93634},
	{"01.05.2018", 96883},
	{"01.05.2019", 99858},
	{"01.05.2020", 101351},
	{"01.05.2021", 106399},
	{"01.05.2022", 111477},
	{"01.05.2023", 118620},
	{"01.05.2024", 124028},
	{"01.05.2025", 130160},
}

// DefaultEntries returns the built-in table rows, oldest first.
func DefaultEntries() []generic.IndexEntry {
	out := make([]generic.IndexEntry, len(gRegulationTable))
	for i, row := range gRegulationTable {
		out[i] = generic.IndexEntry{
			EffectiveFrom: generic.MustParseDate(row.from),
			Amount:        decimal.NewFromInt(row.amount),
		}
	}
	return out
}

// GTable is an immutable, validated G-regulation table.
type GTable struct {
	entries []generic.IndexEntry
}

// NewTable validates that dates are strictly ascending and amounts positive.
func NewTable(entries []generic.IndexEntry) (*GTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", generic.ErrMalformedIndexTable)
	}
	for i, e := range entries {
		if e.EffectiveFrom.IsZero() {
			return nil, fmt.Errorf("%w: row %d has no date", generic.ErrMalformedIndexTable, i)
		}
		if !e.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: non-positive amount %s at %s", generic.ErrMalformedIndexTable, e.Amount, e.EffectiveFrom)
		}
		if i > 0 && !e.EffectiveFrom.After(entries[i-1].EffectiveFrom) {
			return nil, fmt.Errorf("%w: %s does not follow %s", generic.ErrMalformedIndexTable, e.EffectiveFrom, entries[i-1].EffectiveFrom)
		}
	}
	cp := make([]generic.IndexEntry, len(entries))
	copy(cp, entries)
	return &GTable{entries: cp}, nil
}

// MustTable panics on a malformed table.
func MustTable(entries []generic.IndexEntry) *GTable {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable is the built-in table.
func DefaultTable() *GTable { return MustTable(DefaultEntries()) }

// Lookup returns G in force on d: the most recent row on or before d.
func (t *GTable) Lookup(d generic.Date) (decimal.Decimal, error) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].EffectiveFrom.BeforeOrEqual(d) {
			return t.entries[i].Amount, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", generic.ErrDateOutOfRange, d)
}

// Entries returns a copy of the rows, oldest first.
func (t *GTable) Entries() []generic.IndexEntry {
	out := make([]generic.IndexEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
