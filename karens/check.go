/*
Package karens evaluates salary increases before the sick date.

PURPOSE:
  A sharp salary increase shortly before the member fell sick may trigger a
  karens (waiting period) assessment. This package compares the salary in
  force on the sick date with earlier salaries, tracks periods where the
  salary stayed clearly below it, and indexes historical salaries with the
  national base amount (G) for comparison.

KEY CONCEPTS:
  All comparisons use SalaryAt100Pct, so a change of position percentage is
  not mistaken for a raise.

  Thresholds grow with distance from the sick date:
    >= 24 months: 15%    >= 12 months: 7.5%
    >=  6 months:  5%    otherwise:    2.5%
  Entries closer than 3 months to the sick date are not evaluated.

  Headline comparisons (always computed):
    salary in force 2 years before vs 15%, 1 year before vs 7.5%.
    Either exceeding means karens must be assessed.

  Sustained sub-threshold periods:
    [sick-2y, sick-1y]: salary < 85% of the sick-date salary
    [sick-1y, sick]:    salary < 92.5% of the sick-date salary
    Runs of 3 whole months or more are reported.

  G-regulation runs only on nominal timelines with a sustained period. The
  actual salary one day before the latest period ends is indexed to the
  sick date.

SEE ALSO:
  - gtable.go: GTable
  - regulate.go: Regulate
  - benefits.go: new-benefit detection
*/
package karens

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/salary"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

var (
	ThresholdTwoYears  = decimal.NewFromInt(15)
	ThresholdOneYear   = decimal.RequireFromString("7.5")
	ThresholdSixMonths = decimal.NewFromInt(5)
	ThresholdUnderSix  = decimal.RequireFromString("2.5")
	SustainedRatioFar  = decimal.RequireFromString("0.85")
	SustainedRatioNear = decimal.RequireFromString("0.925")
)

const (
	displayPlaces        int32 = 2
	minMonthsBeforeSick        = 3
	minSustainedMonths         = 3
	frequentChangeLimit        = 6
	frequentChangeMonths       = 12
)

// Window labels for sustained periods.
const (
	WindowTwoToOneYear = "2y-1y"
	WindowLastYear     = "1y-0"
)

// Message codes.
const (
	CodeNoSalaryAtSickDate   = "NO_SALARY_AT_SICK_DATE"
	CodeKarensMustBeAssessed = "KARENS_MUST_BE_ASSESSED"
	CodeHighIncrease         = "HIGH_SALARY_INCREASE"
	CodeSustainedLowSalary   = "SUSTAINED_LOW_SALARY"
	CodeUnstableIncome       = "UNSTABLE_INCOME"
	CodeGRegulationFailed    = "G_REGULATION_FAILED"
)

// AllowedIncrease is the permitted percentage increase for an entry the
// given number of whole months before the sick date.
func AllowedIncrease(months int) decimal.Decimal {
	switch {
	case months >= 24:
		return ThresholdTwoYears
	case months >= 12:
		return ThresholdOneYear
	case months >= 6:
		return ThresholdSixMonths
	default:
		return ThresholdUnderSix
	}
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Violation is an entry whose increase to the sick-date salary exceeds its
// threshold. Percentages are rounded for display.
type Violation struct {
	Date         generic.Date    `json:"date"`
	MonthsBefore int             `json:"months_before"`
	Salary100    decimal.Decimal `json:"salary_at_100_pct"`
	IncreasePct  decimal.Decimal `json:"increase_pct"`
	ThresholdPct decimal.Decimal `json:"threshold_pct"`
	Margin       decimal.Decimal `json:"margin"`

	margin decimal.Decimal
}

// HeadlineComparison compares the salary in force on a fixed date before
// the sick date with a fixed threshold.
type HeadlineComparison struct {
	Computable     bool            `json:"computable"`
	ComparisonDate generic.Date    `json:"comparison_date"`
	EntryDate      *generic.Date   `json:"entry_date,omitempty"`
	Salary100      decimal.Decimal `json:"salary_at_100_pct"`
	IncreasePct    decimal.Decimal `json:"increase_pct"`
	ThresholdPct   decimal.Decimal `json:"threshold_pct"`
	Exceeds        bool            `json:"exceeds"`
}

// ThresholdViolationPeriod is a maximal run below a share of the sick-date
// salary. End is the date the run stopped (next entry or window end).
type ThresholdViolationPeriod struct {
	Start  generic.Date    `json:"start"`
	End    generic.Date    `json:"end"`
	Months int             `json:"months"`
	Window string          `json:"window"`
	Ratio  decimal.Decimal `json:"ratio"`
}

// GRegulationResult wraps Regulate with why it ran or did not.
type GRegulationResult struct {
	Evaluated bool              `json:"evaluated"`
	Reason    string            `json:"reason,omitempty"`
	PeriodEnd *generic.Date     `json:"period_end,omitempty"`
	Salary    *GRegulatedSalary `json:"salary,omitempty"`
}

// SalaryIncreaseCheck is the full karens determination.
type SalaryIncreaseCheck struct {
	Computable bool         `json:"computable"`
	Reason     string       `json:"reason,omitempty"`
	SickDate   generic.Date `json:"sick_date"`
	Basis      salary.Basis `json:"basis"`

	SalaryAtSick *salary.Entry `json:"salary_at_sick,omitempty"`

	Violations      []Violation `json:"violations"`
	MostSignificant *Violation  `json:"most_significant,omitempty"`

	TwoYear              HeadlineComparison `json:"two_year"`
	OneYear              HeadlineComparison `json:"one_year"`
	KarensMustBeAssessed bool               `json:"karens_must_be_assessed"`
	IsHighIncrease       bool               `json:"is_high_increase"`

	SustainedPeriods []ThresholdViolationPeriod `json:"sustained_periods"`

	ChangesLastYear int  `json:"changes_last_year"`
	UnstableIncome  bool `json:"unstable_income"`

	GRegulation GRegulationResult `json:"g_regulation"`

	Messages []generic.Message `json:"messages"`
}

// CheckOptions carries the G table. A nil Table means DefaultTable.
type CheckOptions struct {
	Table *GTable
}

// =============================================================================
// CHECK
// =============================================================================

// Check evaluates the timeline against the sick date.
func Check(tl salary.Timeline, sick generic.Date, opts CheckOptions) SalaryIncreaseCheck {
	out := SalaryIncreaseCheck{
		SickDate:         sick,
		Basis:            tl.Basis,
		Violations:       []Violation{},
		SustainedPeriods: []ThresholdViolationPeriod{},
		Messages:         []generic.Message{},
	}

	atSick, ok := tl.At(sick)
	switch {
	case !ok:
		out.Reason = generic.ErrNoSalaryAtSickDate.Error()
	case atSick.SalaryAt100Pct.IsZero():
		out.Reason = "salary at sick date is zero"
	}
	if out.Reason != "" {
		out.Messages = append(out.Messages, generic.Critical(CodeNoSalaryAtSickDate,
			"Kan ikke vurdere karens: "+out.Reason))
		return out
	}
	out.Computable = true
	out.SalaryAtSick = &atSick
	sick100 := atSick.SalaryAt100Pct

	out.Violations, out.MostSignificant = sweep(tl, sick, sick100)

	out.TwoYear = headline(tl, sick.AddYears(-2), sick100, ThresholdTwoYears)
	out.OneYear = headline(tl, sick.AddYears(-1), sick100, ThresholdOneYear)
	out.KarensMustBeAssessed = out.TwoYear.Exceeds || out.OneYear.Exceeds
	out.IsHighIncrease = out.KarensMustBeAssessed || len(out.Violations) > 0

	asc := tl.Ascending()
	out.SustainedPeriods = append(out.SustainedPeriods,
		sustained(asc, sick.AddYears(-2), sick.AddYears(-1), sick100.Mul(SustainedRatioFar), WindowTwoToOneYear, SustainedRatioFar)...)
	out.SustainedPeriods = append(out.SustainedPeriods,
		sustained(asc, sick.AddYears(-1), sick, sick100.Mul(SustainedRatioNear), WindowLastYear, SustainedRatioNear)...)

	out.ChangesLastYear = countChanges(asc, sick.AddMonths(-frequentChangeMonths), sick)
	out.UnstableIncome = out.ChangesLastYear >= frequentChangeLimit

	table := opts.Table
	if table == nil {
		table = DefaultTable()
	}
	out.GRegulation = gRegulation(tl, sick, out.SustainedPeriods, table)

	out.Messages = append(out.Messages, checkMessages(out)...)
	return out
}

// sweep evaluates every entry at least 3 months before the sick date.
func sweep(tl salary.Timeline, sick generic.Date, sick100 decimal.Decimal) ([]Violation, *Violation) {
	violations := []Violation{}
	var most *Violation
	latest := sick.AddMonths(-minMonthsBeforeSick)

	for _, e := range tl.Entries {
		if e.Date.After(latest) || e.SalaryAt100Pct.IsZero() {
			continue
		}
		months := generic.MonthsBetween(e.Date, sick)
		threshold := AllowedIncrease(months)
		increase := generic.PercentChange(e.SalaryAt100Pct, sick100)
		if !increase.GreaterThan(threshold) {
			continue
		}
		margin := increase.Sub(threshold)
		violations = append(violations, Violation{
			Date:         e.Date,
			MonthsBefore: months,
			Salary100:    e.SalaryAt100Pct,
			IncreasePct:  increase.Round(displayPlaces),
			ThresholdPct: threshold,
			Margin:       margin.Round(displayPlaces),
			margin:       margin,
		})
	}
	for i := range violations {
		if most == nil || violations[i].margin.GreaterThan(most.margin) {
			v := violations[i]
			most = &v
		}
	}
	return violations, most
}

func headline(tl salary.Timeline, on generic.Date, sick100, threshold decimal.Decimal) HeadlineComparison {
	h := HeadlineComparison{ComparisonDate: on, ThresholdPct: threshold}
	e, ok := tl.At(on)
	if !ok || e.SalaryAt100Pct.IsZero() {
		return h
	}
	increase := generic.PercentChange(e.SalaryAt100Pct, sick100)
	h.Computable = true
	h.EntryDate = e.Date.Ptr()
	h.Salary100 = e.SalaryAt100Pct
	h.IncreasePct = increase.Round(displayPlaces)
	h.Exceeds = increase.GreaterThan(threshold)
	return h
}

// sustained finds maximal runs inside [from, to] where the salary in force
// is below limit. Each entry applies until the next entry's date.
func sustained(asc []salary.Entry, from, to generic.Date, limit decimal.Decimal, window string, ratio decimal.Decimal) []ThresholdViolationPeriod {
	var (
		out []ThresholdViolationPeriod
		run *ThresholdViolationPeriod
	)
	flush := func() {
		if run != nil {
			run.Months = generic.MonthsBetween(run.Start, run.End)
			if run.Months >= minSustainedMonths {
				out = append(out, *run)
			}
			run = nil
		}
	}

	for i, e := range asc {
		start, end := e.Date, to
		if i+1 < len(asc) {
			end = asc[i+1].Date
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if !start.Before(end) {
			continue
		}
		if !e.SalaryAt100Pct.LessThan(limit) {
			flush()
			continue
		}
		if run == nil {
			run = &ThresholdViolationPeriod{Start: start, End: end, Window: window, Ratio: ratio}
		} else {
			run.End = end
		}
	}
	flush()
	return out
}

// countChanges counts entries in (from, to] whose salary or percentage
// differs from the entry before.
func countChanges(asc []salary.Entry, from, to generic.Date) int {
	n := 0
	for i := 1; i < len(asc); i++ {
		e, prev := asc[i], asc[i-1]
		if !e.Date.After(from) || e.Date.After(to) {
			continue
		}
		if !e.SelectedSalary.Equal(prev.SelectedSalary) || !e.Percentage.Equal(prev.Percentage) {
			n++
		}
	}
	return n
}

func gRegulation(tl salary.Timeline, sick generic.Date, periods []ThresholdViolationPeriod, table *GTable) GRegulationResult {
	if tl.Basis != salary.BasisNominal {
		return GRegulationResult{Reason: "timeline uses the actual basis"}
	}
	if len(periods) == 0 {
		return GRegulationResult{Reason: "no sustained sub-threshold period"}
	}

	latest := periods[0]
	for _, p := range periods[1:] {
		if p.End.After(latest.End) {
			latest = p
		}
	}
	end := latest.End
	res := GRegulationResult{Evaluated: true, PeriodEnd: &end}

	actual := tl.WithBasis(salary.BasisActual)
	entry, ok := actual.At(end.AddDays(-1))
	if !ok {
		res.Reason = "no actual salary before " + end.String()
		return res
	}
	reg := Regulate(entry, sick, table)
	res.Salary = &reg
	if !reg.Computable {
		res.Reason = reg.Reason
	}
	return res
}

func checkMessages(c SalaryIncreaseCheck) []generic.Message {
	var out []generic.Message
	if c.KarensMustBeAssessed {
		out = append(out, generic.Critical(CodeKarensMustBeAssessed,
			fmt.Sprintf("Lønnsøkning over terskel: 2 år %s %%, 1 år %s %%", c.TwoYear.IncreasePct, c.OneYear.IncreasePct)))
	}
	if c.MostSignificant != nil {
		v := c.MostSignificant
		out = append(out, generic.Warning(CodeHighIncrease,
			fmt.Sprintf("Økning på %s %% fra %s (terskel %s %%)", v.IncreasePct, v.Date, v.ThresholdPct)))
	}
	for _, p := range c.SustainedPeriods {
		out = append(out, generic.Warning(CodeSustainedLowSalary,
			fmt.Sprintf("Lønn under %s av lønn ved sykdom i %d måneder (%s - %s)", p.Ratio, p.Months, p.Start, p.End)))
	}
	if c.UnstableIncome {
		out = append(out, generic.Warning(CodeUnstableIncome,
			fmt.Sprintf("%d lønnsendringer siste 12 måneder", c.ChangesLastYear)))
	}
	if c.GRegulation.Evaluated && c.GRegulation.Reason != "" {
		out = append(out, generic.Warning(CodeGRegulationFailed, c.GRegulation.Reason))
	}
	return out
}
