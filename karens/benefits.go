package karens

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/salary"
)

// Benefit message codes.
const (
	CodeNewBenefit                 = "NEW_BENEFIT"
	CodeInsufficientBenefitHistory = "INSUFFICIENT_BENEFIT_HISTORY"
)

// BenefitWindowYears is how far back from the sick date benefits are tracked.
const BenefitWindowYears = 2

// NewBenefitEvent is a benefit going from zero to a positive amount.
type NewBenefitEvent struct {
	Name   string          `json:"name"`
	Date   generic.Date    `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// BenefitHistory is one benefit's value entering the window.
type BenefitHistory struct {
	Name string `json:"name"`
	// PriorValue is the value at the window start; nil when there is no
	// history before the window.
	PriorValue *decimal.Decimal `json:"prior_value"`
	Events     int              `json:"events"`
}

// BenefitCheck is the new-benefit determination for the window
// (sick - 2 years, sick].
type BenefitCheck struct {
	WindowStart generic.Date `json:"window_start"`
	SickDate    generic.Date `json:"sick_date"`
	// InsufficientHistory is set when no entry is dated on or before the
	// window start. Transitions are then tracked from the first value inside
	// the window.
	InsufficientHistory bool              `json:"insufficient_history"`
	Benefits            []BenefitHistory  `json:"benefits"`
	Events              []NewBenefitEvent `json:"events"`
	Messages            []generic.Message `json:"messages"`
}

// CheckBenefits reports benefits that appear inside the window.
func CheckBenefits(tl salary.Timeline, sick generic.Date) BenefitCheck {
	windowStart := sick.AddYears(-BenefitWindowYears)
	out := BenefitCheck{
		WindowStart: windowStart,
		SickDate:    sick,
		Benefits:    []BenefitHistory{},
		Events:      []NewBenefitEvent{},
		Messages:    []generic.Message{},
	}

	var inWindow []salary.Entry
	for _, e := range tl.Ascending() {
		if e.Date.After(windowStart) && e.Date.BeforeOrEqual(sick) {
			inWindow = append(inWindow, e)
		}
	}
	prior, hasPrior := tl.At(windowStart)
	out.InsufficientHistory = !hasPrior

	for _, name := range tl.BenefitNames() {
		h := BenefitHistory{Name: name}
		entries := inWindow
		var prev decimal.Decimal
		switch {
		case hasPrior:
			v := prior.Benefit(name)
			h.PriorValue = &v
			prev = v
		case len(entries) > 0:
			prev, entries = entries[0].Benefit(name), entries[1:]
		}

		for _, e := range entries {
			v := e.Benefit(name)
			if prev.IsZero() && v.IsPositive() {
				out.Events = append(out.Events, NewBenefitEvent{Name: name, Date: e.Date, Amount: v})
				h.Events++
			}
			prev = v
		}
		out.Benefits = append(out.Benefits, h)
	}

	if out.InsufficientHistory && len(out.Benefits) > 0 {
		out.Messages = append(out.Messages, generic.Info(CodeInsufficientBenefitHistory,
			"Mangler lønnshistorikk før "+windowStart.String()+"; nye ytelser kan ikke fastslås sikkert"))
	}
	for _, ev := range out.Events {
		out.Messages = append(out.Messages, generic.Warning(CodeNewBenefit,
			fmt.Sprintf("Ny ytelse %q fra %s: %s", ev.Name, ev.Date, ev.Amount)))
	}
	return out
}
