/*
Package casetext extracts benefit periods, meldekort and anchor dates from the
free-form case dump a caseworker pastes from the case system.

PURPOSE:
  The case system has no export format. Caseworkers select the case overview
  and paste it. The text contains labelled anchor dates, a "Vedtak ID"
  section listing decisions, and a "Meldekort ID" section listing
  bi-weekly activity cards. This package turns that text into a Case.

FAILURE POLICY:
  Nothing here returns an error. Unrecognised lines are dropped, missing
  sections yield empty slices and missing labels yield nil dates. Callers
  must treat nil/empty as "insufficient information", never as zero.

SEE ALSO:
  - parser.go: Parse and the section scanners
  - temporal/: foreldelse and duration checks over a Case
  - uforegrad/: disability-grade segmentation of Case.Meldekort
*/
package casetext

import (
	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// BENEFIT PERIODS
// =============================================================================

// KindAAP is the only benefit kind the parser emits.
const KindAAP = "AAP"

// Where the AAP periods of a Case were found.
const (
	SourceVedtak          = "vedtak"
	SourceUttrekksperiode = "uttrekksperiode"
	StatusUttrekksperiode = "Uttrekksperiode"
)

// FullTimeHours is the reported hours of a full-time meldekort period.
const FullTimeHours = 75.0

// BenefitPeriod is one AAP decision period. From <= To always holds.
type BenefitPeriod struct {
	Kind   string       `json:"kind"`
	From   generic.Date `json:"from"`
	To     generic.Date `json:"to"`
	Status string       `json:"status,omitempty"`
}

// Period converts to the generic inclusive range.
func (b BenefitPeriod) Period() generic.Period {
	return generic.Period{Start: b.From, End: b.To}
}

// =============================================================================
// MELDEKORT
// =============================================================================

// Meldekort is one bi-weekly activity card. Hours are on a 0-75 scale where
// 75 is full-time.
type Meldekort struct {
	Hours float64      `json:"hours"`
	From  generic.Date `json:"from"`
	To    generic.Date `json:"to"`
}

// WorkFraction is Hours relative to full time.
func (m Meldekort) WorkFraction() float64 { return m.Hours / FullTimeHours }

// Contains reports whether d falls on one of the card's days.
func (m Meldekort) Contains(d generic.Date) bool {
	return generic.Period{Start: m.From, End: m.To}.Contains(d)
}

// =============================================================================
// CASE
// =============================================================================

// Case is everything Parse could recognise in one case dump.
type Case struct {
	SickDate            *generic.Date   `json:"sick_date"`
	RegistrationDate    *generic.Date   `json:"registration_date"`
	DisabilityGrantDate *generic.Date   `json:"disability_grant_date"`
	AAPPeriods          []BenefitPeriod `json:"aap_periods"`
	Meldekort           []Meldekort     `json:"meldekort"`
	// Source tells where AAPPeriods came from: SourceVedtak,
	// SourceUttrekksperiode, or "" when none were found.
	Source string `json:"source,omitempty"`
}

// AAPStart is the earliest AAP from-date, the legally relevant start.
func (c *Case) AAPStart() *generic.Date {
	var out *generic.Date
	for _, p := range c.AAPPeriods {
		if out == nil || p.From.Before(*out) {
			out = p.From.Ptr()
		}
	}
	return out
}

// AAPEnd is the latest to-date among the matched periods.
func (c *Case) AAPEnd() *generic.Date {
	var out *generic.Date
	for _, p := range c.AAPPeriods {
		if out == nil || p.To.After(*out) {
			out = p.To.Ptr()
		}
	}
	return out
}

// Periods returns the AAP periods as generic ranges.
func (c *Case) Periods() []generic.Period {
	out := make([]generic.Period, len(c.AAPPeriods))
	for i, p := range c.AAPPeriods {
		out[i] = p.Period()
	}
	return out
}

// Gaps reports uncovered days between consecutive AAP periods.
func (c *Case) Gaps() []generic.Gap {
	return generic.FindGaps(c.Periods())
}
