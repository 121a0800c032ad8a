package karens

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/salary"
)

// GRegulatedSalary is a historical salary indexed to a later date's G.
type GRegulatedSalary struct {
	Computable bool   `json:"computable"`
	Reason     string `json:"reason,omitempty"`

	SalaryDate generic.Date    `json:"salary_date"`
	TargetDate generic.Date    `json:"target_date"`
	Salary     decimal.Decimal `json:"salary"`
	Percentage decimal.Decimal `json:"percentage"`

	GAtSalaryDate decimal.Decimal `json:"g_at_salary_date"`
	GAtTarget     decimal.Decimal `json:"g_at_target"`

	// Regulated = Salary * GAtTarget / GAtSalaryDate.
	Regulated decimal.Decimal `json:"regulated"`
	// RegulatedAt100Pct re-normalises Regulated with the entry's own percentage.
	RegulatedAt100Pct decimal.Decimal `json:"regulated_at_100_pct"`
}

// Regulate indexes the entry's selected salary from its own date to target.
func Regulate(entry salary.Entry, target generic.Date, table *GTable) GRegulatedSalary {
	out := GRegulatedSalary{
		SalaryDate: entry.Date,
		TargetDate: target,
		Salary:     entry.SelectedSalary,
		Percentage: entry.Percentage,
	}

	gFrom, err := table.Lookup(entry.Date)
	if err != nil {
		out.Reason = err.Error()
		return out
	}
	gTo, err := table.Lookup(target)
	if err != nil {
		out.Reason = err.Error()
		return out
	}

	regulated := entry.SelectedSalary.Mul(gTo).Div(gFrom)
	at100 := regulated
	if !entry.PercentageDecimal.IsZero() {
		at100 = regulated.Div(entry.PercentageDecimal)
	}

	out.Computable = true
	out.GAtSalaryDate = gFrom
	out.GAtTarget = gTo
	out.Regulated = regulated.Round(2)
	out.RegulatedAt100Pct = at100.Round(2)
	return out
}
