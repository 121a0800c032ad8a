package karens_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/karens"
	"github.com/warp/benefit-engine/salary"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(s string) generic.Date { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// timeline builds an actual-basis timeline from "date salary percent" rows.
func timeline(rows ...string) salary.Timeline {
	var b strings.Builder
	b.WriteString("Dato\tLønn\tStillingsprosent\n")
	for _, r := range rows {
		b.WriteString(strings.ReplaceAll(r, " ", "\t") + "\n")
	}
	return salary.ParseText(b.String(), salary.Options{})
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "amount = %s, want %s", got, want)
}

func codes(msgs []generic.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Code)
	}
	return out
}

// =============================================================================
// THRESHOLDS
// =============================================================================

func TestAllowedIncrease(t *testing.T) {
	cases := map[int]string{36: "15", 24: "15", 23: "7.5", 12: "7.5", 11: "5", 6: "5", 5: "2.5", 3: "2.5"}
	for months, want := range cases {
		assertAmount(t, want, karens.AllowedIncrease(months))
	}
}

// =============================================================================
// CHECK
// =============================================================================

func TestCheck_SixteenPercentOverTwoYearsIsHighIncrease(t *testing.T) {
	// GIVEN: 100000 two years before the sick date, 116000 at the sick date
	// WHEN: Checking
	// THEN: 16% exceeds the 15% threshold; karens must be assessed
	tl := timeline("01.06.2022 100000 100", "01.03.2024 116000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	require.True(t, c.Computable)
	assert.True(t, c.IsHighIncrease)
	assert.True(t, c.KarensMustBeAssessed)

	require.True(t, c.TwoYear.Computable)
	assertAmount(t, "16", c.TwoYear.IncreasePct)
	assert.True(t, c.TwoYear.Exceeds)
	assert.True(t, c.OneYear.Exceeds)

	require.Len(t, c.Violations, 1)
	assert.Equal(t, 24, c.Violations[0].MonthsBefore)
	assertAmount(t, "15", c.Violations[0].ThresholdPct)
	assertAmount(t, "1", c.Violations[0].Margin)
	assert.Contains(t, codes(c.Messages), karens.CodeKarensMustBeAssessed)
}

func TestCheck_WithinThresholds(t *testing.T) {
	tl := timeline("01.06.2022 100000 100", "01.03.2024 104000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	require.True(t, c.Computable)
	assert.False(t, c.IsHighIncrease)
	assert.False(t, c.KarensMustBeAssessed)
	assert.Empty(t, c.Violations)
	assert.Nil(t, c.MostSignificant)
}

func TestCheck_PositionPercentageIsNormalised(t *testing.T) {
	// GIVEN: 50000 at 50% two years before, 100000 at 100% now
	// WHEN: Checking
	// THEN: No increase; only the position changed
	tl := timeline("01.06.2022 50000 50", "01.03.2024 100000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	assertAmount(t, "0", c.TwoYear.IncreasePct)
	assert.False(t, c.IsHighIncrease)
}

func TestCheck_MostSignificantHasLargestMargin(t *testing.T) {
	tl := timeline("01.06.2023 100000 100", "01.12.2023 110000 100", "01.03.2024 116000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	require.Len(t, c.Violations, 2)
	require.NotNil(t, c.MostSignificant)
	assert.Equal(t, "01.06.2023", c.MostSignificant.Date.String())
	assertAmount(t, "8.5", c.MostSignificant.Margin)
}

func TestCheck_EntriesCloserThanThreeMonthsIgnored(t *testing.T) {
	tl := timeline("01.04.2024 50000 100", "01.05.2024 100000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	require.True(t, c.Computable)
	assert.Empty(t, c.Violations)
}

func TestCheck_NoSalaryAtSickDate(t *testing.T) {
	tl := timeline("01.01.2025 100000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	assert.False(t, c.Computable)
	assert.Equal(t, generic.ErrNoSalaryAtSickDate.Error(), c.Reason)
	assert.Equal(t, []string{karens.CodeNoSalaryAtSickDate}, codes(c.Messages))
}

func TestCheck_ZeroSalaryAtSickDate(t *testing.T) {
	c := karens.Check(timeline("01.01.2024 0 100"), date("01.06.2024"), karens.CheckOptions{})

	assert.False(t, c.Computable)
	assert.NotEmpty(t, c.Reason)
}

// =============================================================================
// SUSTAINED PERIODS / FREQUENT CHANGES
// =============================================================================

func TestCheck_SustainedPeriodInLastYear(t *testing.T) {
	// GIVEN: 100000 until 01.03.2024, then 116000; sick 01.06.2024
	// WHEN: Checking the last-year window (limit 92.5% = 107300)
	// THEN: 01.06.2023 - 01.03.2024 (9 months) is a sustained period
	tl := timeline("01.06.2022 100000 100", "01.03.2024 116000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	require.Len(t, c.SustainedPeriods, 1)
	p := c.SustainedPeriods[0]
	assert.Equal(t, karens.WindowLastYear, p.Window)
	assert.Equal(t, "01.06.2023", p.Start.String())
	assert.Equal(t, "01.03.2024", p.End.String())
	assert.Equal(t, 9, p.Months)
}

func TestCheck_SustainedPeriodsInBothWindows(t *testing.T) {
	// GIVEN: 100000 from 01.01.2022, 120000 from 01.06.2023; sick 01.01.2024
	// WHEN: Checking both windows (85% = 102000 in 2y-1y, 92.5% = 111000 in 1y-0)
	// THEN: The low stretch is reported once per window, split at sick - 1 year
	tl := timeline("01.01.2022 100000 100", "01.06.2023 120000 100")
	c := karens.Check(tl, date("01.01.2024"), karens.CheckOptions{})

	require.Len(t, c.SustainedPeriods, 2)

	far := c.SustainedPeriods[0]
	assert.Equal(t, karens.WindowTwoToOneYear, far.Window)
	assert.Equal(t, "01.01.2022", far.Start.String())
	assert.Equal(t, "01.01.2023", far.End.String())
	assert.Equal(t, 12, far.Months)

	near := c.SustainedPeriods[1]
	assert.Equal(t, karens.WindowLastYear, near.Window)
	assert.Equal(t, "01.01.2023", near.Start.String())
	assert.Equal(t, "01.06.2023", near.End.String())
	assert.Equal(t, 5, near.Months)
}

func TestCheck_ShortDipIsNotSustained(t *testing.T) {
	tl := timeline("01.01.2023 116000 100", "01.01.2024 90000 100", "01.03.2024 116000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	assert.Empty(t, c.SustainedPeriods)
}

func TestCheck_FrequentChanges(t *testing.T) {
	tl := timeline(
		"01.01.2024 40000 100", "01.02.2024 41000 100", "01.03.2024 42000 100",
		"01.04.2024 43000 100", "01.05.2024 44000 100", "01.06.2024 45000 100",
		"01.07.2024 46000 100",
	)
	c := karens.Check(tl, date("01.12.2024"), karens.CheckOptions{})

	assert.Equal(t, 6, c.ChangesLastYear)
	assert.True(t, c.UnstableIncome)
	assert.Contains(t, codes(c.Messages), karens.CodeUnstableIncome)
}

// =============================================================================
// G-REGULATION
// =============================================================================

const nominalGrid = "Gjelderfradato\tLønn\tLønnN\tStillingsprosent\tStillingsprosentN\tGrunnlagstypeIF\tGrunnlagstypeUP\n" +
	"01.01.2022\t400000\t400000\t100\t100\tNormert\tNormert\n" +
	"01.01.2024\t300000\t500000\t60\t100\tNormert\tNormert\n"

func TestCheck_GRegulationOnNominalBasis(t *testing.T) {
	// GIVEN: A nominal timeline with 400000 until 01.01.2024 and 500000 after
	// WHEN: Checking with sick date 01.06.2024
	// THEN: The latest sustained period ends 01.01.2024; the actual salary in
	//   force the day before is indexed from G(01.01.2022) to G(01.06.2024)
	sick := date("01.06.2024")
	tl := salary.ParseText(nominalGrid, salary.Options{SickDate: &sick})
	require.Equal(t, salary.BasisNominal, tl.Basis)

	c := karens.Check(tl, sick, karens.CheckOptions{Table: karens.DefaultTable()})

	require.Len(t, c.SustainedPeriods, 2)
	g := c.GRegulation
	require.True(t, g.Evaluated)
	assert.Empty(t, g.Reason)
	assert.Equal(t, "01.01.2024", g.PeriodEnd.String())
	require.NotNil(t, g.Salary)
	assertAmount(t, "106399", g.Salary.GAtSalaryDate)
	assertAmount(t, "124028", g.Salary.GAtTarget)
	assertAmount(t, "466275.06", g.Salary.Regulated)
	assertAmount(t, "466275.06", g.Salary.RegulatedAt100Pct)
}

func TestCheck_GRegulationSkippedOnActualBasis(t *testing.T) {
	tl := timeline("01.06.2022 100000 100", "01.03.2024 116000 100")
	c := karens.Check(tl, date("01.06.2024"), karens.CheckOptions{})

	assert.False(t, c.GRegulation.Evaluated)
	assert.NotEmpty(t, c.GRegulation.Reason)
}

func TestRegulate_RenormalisesWithOwnPercentage(t *testing.T) {
	tl := timeline("01.06.2019 50000 50")
	e := tl.Entries[0]

	r := karens.Regulate(e, date("01.06.2020"), karens.DefaultTable())

	require.True(t, r.Computable)
	assertAmount(t, "99858", r.GAtSalaryDate)
	assertAmount(t, "101351", r.GAtTarget)
	want := dec("50000").Mul(dec("101351")).Div(dec("99858"))
	assertAmount(t, want.Round(2).String(), r.Regulated)
	assertAmount(t, want.Div(dec("0.5")).Round(2).String(), r.RegulatedAt100Pct)
}

// =============================================================================
// G TABLE
// =============================================================================

func TestGTable_Lookup(t *testing.T) {
	table := karens.DefaultTable()

	g, err := table.Lookup(date("30.04.2024"))
	require.NoError(t, err)
	assertAmount(t, "118620", g)

	g, err = table.Lookup(date("01.05.2024"))
	require.NoError(t, err)
	assertAmount(t, "124028", g)

	_, err = table.Lookup(date("01.01.2000"))
	assert.True(t, errors.Is(err, generic.ErrDateOutOfRange))
}

func TestNewTable_RejectsMalformed(t *testing.T) {
	unsorted := []generic.IndexEntry{
		{EffectiveFrom: date("01.05.2024"), Amount: dec("124028")},
		{EffectiveFrom: date("01.05.2023"), Amount: dec("118620")},
	}
	_, err := karens.NewTable(unsorted)
	assert.True(t, errors.Is(err, generic.ErrMalformedIndexTable))

	negative := []generic.IndexEntry{{EffectiveFrom: date("01.05.2024"), Amount: dec("-1")}}
	_, err = karens.NewTable(negative)
	assert.True(t, errors.Is(err, generic.ErrMalformedIndexTable))

	assert.Panics(t, func() { karens.MustTable(nil) })
}

// =============================================================================
// NEW BENEFITS
// =============================================================================

func benefitTimeline(rows ...string) salary.Timeline {
	var b strings.Builder
	b.WriteString("Dato\tLønn\tStillingsprosent\tYtelse bil\n")
	for _, r := range rows {
		b.WriteString(strings.ReplaceAll(r, " ", "\t") + "\n")
	}
	return salary.ParseText(b.String(), salary.Options{})
}

func TestCheckBenefits_NewBenefitInWindow(t *testing.T) {
	// GIVEN: No car benefit before the window, 5000 from 01.01.2023
	// WHEN: Checking with sick date 01.06.2024
	// THEN: One new-benefit event; history is sufficient
	tl := benefitTimeline("01.01.2021 400000 100 0", "01.01.2023 400000 100 5000")
	b := karens.CheckBenefits(tl, date("01.06.2024"))

	assert.False(t, b.InsufficientHistory)
	require.Len(t, b.Events, 1)
	assert.Equal(t, "Ytelse bil", b.Events[0].Name)
	assert.Equal(t, "01.01.2023", b.Events[0].Date.String())
	assertAmount(t, "5000", b.Events[0].Amount)
	require.Len(t, b.Benefits, 1)
	require.NotNil(t, b.Benefits[0].PriorValue)
	assert.True(t, b.Benefits[0].PriorValue.IsZero())
}

func TestCheckBenefits_InsufficientHistory(t *testing.T) {
	// GIVEN: The earliest entry is inside the window
	// WHEN: Checking
	// THEN: Insufficient history is reported; transitions are tracked from
	//   the first in-window value
	tl := benefitTimeline("01.01.2023 400000 100 0", "01.01.2024 400000 100 3000")
	b := karens.CheckBenefits(tl, date("01.06.2024"))

	assert.True(t, b.InsufficientHistory)
	assert.Nil(t, b.Benefits[0].PriorValue)
	require.Len(t, b.Events, 1)
	assert.Equal(t, "01.01.2024", b.Events[0].Date.String())
	assert.Contains(t, codes(b.Messages), karens.CodeInsufficientBenefitHistory)
}

func TestCheckBenefits_ExistingBenefitIsNotNew(t *testing.T) {
	tl := benefitTimeline("01.01.2021 400000 100 5000", "01.01.2023 400000 100 6000")
	b := karens.CheckBenefits(tl, date("01.06.2024"))

	assert.Empty(t, b.Events)
}
