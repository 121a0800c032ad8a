/*
temporal.go - Duration projection and foreldelse checks

PURPOSE:
  Date arithmetic between the anchor dates of a case: how long the member
  was sick before AAP or uføretrygd started, and whether the registration
  came too late for the 3-year and 10-year statutes of limitation.

KEY INSIGHT:
  Durations are calendar exact (months + days). Foreldelse is the one place
  that measures years approximately, as days / 365.25, because that is how
  the limitation rules are applied in practice.

CHECKS:
  Duration:
    sick date -> earlier of AAP start and disability grant date.
    Projection: an 18-month total duration ending at that anchor gives the
    theoretical sick date; the shortfall is how far the real sick date is
    from it.

  ThreeYear:
    registration - AAP from > 3 years => violation. Payments before
    registration - 3 calendar years are time barred (the cutoff).

  TenYear:
    registration compared with the earlier of AAP start - 1 day and the
    disability grant date; > 10 years => violation.

MISSING INPUTS:
  A check with missing anchors returns Computable=false and names the
  missing inputs. It never reports "no violation" for a case it could not
  evaluate.

SEE ALSO:
  - generic/time.go: Diff, YearsApprox
  - uforegrad/: uses the 3-year cutoff to restrict meldekort
*/
package temporal

import (
	"math"

	"github.com/warp/benefit-engine/generic"
)

// Policy constants.
const (
	ProjectionMonths    = 18
	ThreeYearLimitYears = 3
	TenYearLimitYears   = 10
)

// Which anchor a duration or 10-year check used.
const (
	AnchorSourceAAP        = "aap"
	AnchorSourceUforetrygd = "uforetrygd"
)

// Names used in Missing lists.
const (
	InputSickDate         = "sick_date"
	InputRegistrationDate = "registration_date"
	InputAAPFromDate      = "aap_from_date"
	InputAnchorDate       = "aap_start_or_disability_grant_date"
)

// Determination names carried by generic.InsufficientDataError.
const (
	DeterminationDuration  = "duration"
	DeterminationThreeYear = "3-year foreldelse"
	DeterminationTenYear   = "10-year foreldelse"
)

// =============================================================================
// DURATION / PROJECTION
// =============================================================================

// DurationResult is the sick-to-benefit duration and its 18-month projection.
type DurationResult struct {
	Computable   bool          `json:"computable"`
	Missing      []string      `json:"missing,omitempty"`
	SickDate     *generic.Date `json:"sick_date,omitempty"`
	Anchor       *generic.Date `json:"anchor,omitempty"`
	AnchorSource string        `json:"anchor_source,omitempty"`

	Elapsed     generic.Span `json:"elapsed"`
	ElapsedText string       `json:"elapsed_text,omitempty"`

	TheoreticalSickDate *generic.Date `json:"theoretical_sick_date,omitempty"`
	Shortfall           generic.Span  `json:"shortfall"`
	ShortfallText       string        `json:"shortfall_text,omitempty"`
}

// Err returns a *generic.InsufficientDataError when the result is not
// computable, nil otherwise.
func (r DurationResult) Err() error {
	return insufficient(DeterminationDuration, r.Computable, r.Missing)
}

// Duration measures sick date to the earlier of AAP start and grant date.
func Duration(sick, aapStart, grantDate *generic.Date) DurationResult {
	anchor, source := earlierAnchor(aapStart, grantDate)

	var missing []string
	if sick == nil {
		missing = append(missing, InputSickDate)
	}
	if anchor == nil {
		missing = append(missing, InputAnchorDate)
	}
	if len(missing) > 0 {
		return DurationResult{Missing: missing, SickDate: sick, Anchor: anchor, AnchorSource: source}
	}

	elapsed := generic.Diff(*sick, *anchor)
	theoretical := anchor.AddMonths(-ProjectionMonths)
	shortfall := generic.Diff(theoretical, *sick)

	return DurationResult{
		Computable:          true,
		SickDate:            sick,
		Anchor:              anchor,
		AnchorSource:        source,
		Elapsed:             elapsed,
		ElapsedText:         elapsed.String(),
		TheoreticalSickDate: &theoretical,
		Shortfall:           shortfall,
		ShortfallText:       shortfall.String(),
	}
}

// earlierAnchor picks the earlier of AAP start and grant date. AAP wins ties.
func earlierAnchor(aapStart, grantDate *generic.Date) (*generic.Date, string) {
	switch {
	case aapStart == nil && grantDate == nil:
		return nil, ""
	case grantDate == nil:
		return aapStart, AnchorSourceAAP
	case aapStart == nil:
		return grantDate, AnchorSourceUforetrygd
	case grantDate.Before(*aapStart):
		return grantDate, AnchorSourceUforetrygd
	default:
		return aapStart, AnchorSourceAAP
	}
}

// =============================================================================
// 3-YEAR FORELDELSE
// =============================================================================

// ForeldelseStatus is the 3-year limitation check.
type ForeldelseStatus struct {
	Computable       bool          `json:"computable"`
	Missing          []string      `json:"missing,omitempty"`
	RegistrationDate *generic.Date `json:"registration_date,omitempty"`
	AAPFromDate      *generic.Date `json:"aap_from_date,omitempty"`
	Years            float64       `json:"years"`
	Violation        bool          `json:"violation"`
	// Cutoff is registration - 3 calendar years, set only on violation.
	Cutoff *generic.Date `json:"cutoff,omitempty"`
}

// Err returns a *generic.InsufficientDataError when the check is not
// computable, nil otherwise.
func (s ForeldelseStatus) Err() error {
	return insufficient(DeterminationThreeYear, s.Computable, s.Missing)
}

// ThreeYear checks registration against AAP from.
func ThreeYear(registration, aapFrom *generic.Date) ForeldelseStatus {
	var missing []string
	if registration == nil {
		missing = append(missing, InputRegistrationDate)
	}
	if aapFrom == nil {
		missing = append(missing, InputAAPFromDate)
	}
	if len(missing) > 0 {
		return ForeldelseStatus{Missing: missing, RegistrationDate: registration, AAPFromDate: aapFrom}
	}

	years := generic.YearsApprox(*aapFrom, *registration)
	status := ForeldelseStatus{
		Computable:       true,
		RegistrationDate: registration,
		AAPFromDate:      aapFrom,
		Years:            roundTo(years, 2),
		Violation:        years > ThreeYearLimitYears,
	}
	if status.Violation {
		cutoff := registration.AddYears(-ThreeYearLimitYears)
		status.Cutoff = &cutoff
	}
	return status
}

// =============================================================================
// 10-YEAR FORELDELSE
// =============================================================================

// TenYearForeldelseCheck is the 10-year limitation check.
type TenYearForeldelseCheck struct {
	Computable       bool          `json:"computable"`
	Missing          []string      `json:"missing,omitempty"`
	RegistrationDate *generic.Date `json:"registration_date,omitempty"`
	ComparedDate     *generic.Date `json:"compared_date,omitempty"`
	// Source is AnchorSourceAAP or AnchorSourceUforetrygd.
	Source    string  `json:"source,omitempty"`
	Years     float64 `json:"years"`
	Violation bool    `json:"violation"`
}

// Err returns a *generic.InsufficientDataError when the check is not
// computable, nil otherwise.
func (c TenYearForeldelseCheck) Err() error {
	return insufficient(DeterminationTenYear, c.Computable, c.Missing)
}

// TenYear compares registration against the earlier of the day before AAP
// start and the disability grant date.
func TenYear(registration, aapStart, grantDate *generic.Date) TenYearForeldelseCheck {
	var dayBeforeAAP *generic.Date
	if aapStart != nil {
		dayBeforeAAP = aapStart.AddDays(-1).Ptr()
	}
	compared, source := earlierAnchor(dayBeforeAAP, grantDate)

	var missing []string
	if registration == nil {
		missing = append(missing, InputRegistrationDate)
	}
	if compared == nil {
		missing = append(missing, InputAnchorDate)
	}
	if len(missing) > 0 {
		return TenYearForeldelseCheck{Missing: missing, RegistrationDate: registration, ComparedDate: compared, Source: source}
	}

	years := generic.YearsApprox(*compared, *registration)
	return TenYearForeldelseCheck{
		Computable:       true,
		RegistrationDate: registration,
		ComparedDate:     compared,
		Source:           source,
		Years:            roundTo(years, 1),
		Violation:        years > TenYearLimitYears,
	}
}

// =============================================================================
// GAPS
// =============================================================================

// Gaps is the standalone gap check over an already parsed period list.
func Gaps(periods []generic.Period) []generic.Gap {
	return generic.FindGaps(periods)
}

func insufficient(determination string, computable bool, missing []string) error {
	if computable {
		return nil
	}
	return &generic.InsufficientDataError{Determination: determination, Missing: missing}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
