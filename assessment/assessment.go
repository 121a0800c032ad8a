/*
Package assessment recomputes every determination for one case.

PURPOSE:
  The caseworker edits inputs (case text, salary grid, anchor dates, basis
  override) and presses compute. Compute is a pure function of Input: it
  parses both texts, resolves the anchor dates and runs every check. There
  is no cache and no incremental update; a changed input means a full
  recompute, so nothing stale is ever shown.

DEPENDENCY SET:
  Input is the complete list of things a result depends on. Fingerprint
  hashes it so a host can tell whether a recompute is needed.

ORDER OF EVALUATION:
  1. casetext.Parse, then anchors (caseworker entries win over parsed ones)
  2. temporal: duration, 3-year and 10-year foreldelse, AAP gaps
  3. uforegrad, restricted by the 3-year cutoff when there is a violation
  4. salary timeline (basis chosen at the sick date)
  5. karens: salary increase, G-regulation, new benefits

SEE ALSO:
  - factory/assessment.go: JSON request -> Input
  - api/handlers.go: POST /api/assessments
*/
package assessment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/warp/benefit-engine/casetext"
	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/karens"
	"github.com/warp/benefit-engine/salary"
	"github.com/warp/benefit-engine/temporal"
	"github.com/warp/benefit-engine/uforegrad"
)

// Message codes raised by Compute itself.
const (
	CodeMissingSickDate         = "MISSING_SICK_DATE"
	CodeMissingRegistrationDate = "MISSING_REGISTRATION_DATE"
	CodeNoAAPPeriods            = "NO_AAP_PERIODS"
	CodeNotComputable           = "NOT_COMPUTABLE"
	CodeAAPGap                  = "AAP_GAP"
	CodeThreeYearForeldelse     = "FORELDELSE_3_YEAR"
	CodeTenYearForeldelse       = "FORELDELSE_10_YEAR"
	CodeNoSalaryHistory         = "NO_SALARY_HISTORY"
	CodeSkippedSalaryRows       = "SKIPPED_SALARY_ROWS"
	CodeSalaryCorrected         = "SALARY_CORRECTED"
)

// Where an anchor date came from.
const (
	FromInput = "input"
	FromCase  = "case"
)

// =============================================================================
// INPUT
// =============================================================================

// Input is the observable dependency set of a computation. Salary comes from
// SalaryRows, else SalaryText, else ExtractedSalary.
type Input struct {
	CaseText        string                `json:"case_text"`
	SalaryText      string                `json:"salary_text,omitempty"`
	SalaryRows      [][]string            `json:"salary_rows,omitempty"`
	ExtractedSalary []salary.ExtractedRow `json:"extracted_salary,omitempty"`

	SickDate            *generic.Date `json:"sick_date,omitempty"`
	RegistrationDate    *generic.Date `json:"registration_date,omitempty"`
	DisabilityGrantDate *generic.Date `json:"disability_grant_date,omitempty"`

	Basis salary.Basis `json:"basis,omitempty"`
}

// Fingerprint is the hex sha256 of the canonical JSON form of the input.
func (in Input) Fingerprint() string {
	b, err := json.Marshal(in)
	if err != nil {
		// Input holds only strings, dates and numbers.
		panic(fmt.Sprintf("assessment: marshal input: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// RESULT
// =============================================================================

// Anchors are the resolved dates every check is computed from.
type Anchors struct {
	SickDate            *generic.Date `json:"sick_date"`
	SickDateSource      string        `json:"sick_date_source,omitempty"`
	RegistrationDate    *generic.Date `json:"registration_date"`
	RegistrationSource  string        `json:"registration_date_source,omitempty"`
	DisabilityGrantDate *generic.Date `json:"disability_grant_date"`
	GrantDateSource     string        `json:"disability_grant_date_source,omitempty"`
	AAPStart            *generic.Date `json:"aap_start"`
	AAPEnd              *generic.Date `json:"aap_end"`
}

// Result holds every determination. Nothing in it is updated after Compute
// returns.
type Result struct {
	Fingerprint string  `json:"fingerprint"`
	Anchors     Anchors `json:"anchors"`

	Case *casetext.Case `json:"case"`
	Gaps []generic.Gap  `json:"gaps"`

	Duration  temporal.DurationResult         `json:"duration"`
	ThreeYear temporal.ForeldelseStatus       `json:"three_year"`
	TenYear   temporal.TenYearForeldelseCheck `json:"ten_year"`

	Uforegrad uforegrad.Analysis `json:"uforegrad"`

	Salary         salary.Timeline             `json:"salary"`
	SalaryIncrease *karens.SalaryIncreaseCheck `json:"salary_increase,omitempty"`
	Benefits       *karens.BenefitCheck        `json:"benefits,omitempty"`

	Messages []generic.Message `json:"messages"`
}

// =============================================================================
// COMPUTE
// =============================================================================

// Compute runs every determination for in. A nil table means the built-in
// G table.
func Compute(in Input, table *karens.GTable) *Result {
	if table == nil {
		table = karens.DefaultTable()
	}

	c := casetext.Parse(in.CaseText)
	anchors := resolveAnchors(in, c)

	r := &Result{
		Fingerprint: in.Fingerprint(),
		Anchors:     anchors,
		Case:        c,
		Gaps:        c.Gaps(),
		Messages:    []generic.Message{},
	}

	r.Duration = temporal.Duration(anchors.SickDate, anchors.AAPStart, anchors.DisabilityGrantDate)
	r.ThreeYear = temporal.ThreeYear(anchors.RegistrationDate, anchors.AAPStart)
	r.TenYear = temporal.TenYear(anchors.RegistrationDate, anchors.AAPStart, anchors.DisabilityGrantDate)

	r.Uforegrad = uforegrad.Analyze(c.Meldekort, uforegrad.Options{Cutoff: r.ThreeYear.Cutoff})

	r.Salary = parseSalary(in, anchors.SickDate)
	if anchors.SickDate != nil && !r.Salary.Empty() {
		check := karens.Check(r.Salary, *anchors.SickDate, karens.CheckOptions{Table: table})
		benefits := karens.CheckBenefits(r.Salary, *anchors.SickDate)
		r.SalaryIncrease, r.Benefits = &check, &benefits
	}

	r.Messages = collectMessages(r)
	return r
}

func resolveAnchors(in Input, c *casetext.Case) Anchors {
	a := Anchors{AAPStart: c.AAPStart(), AAPEnd: c.AAPEnd()}
	a.SickDate, a.SickDateSource = pick(in.SickDate, c.SickDate)
	a.RegistrationDate, a.RegistrationSource = pick(in.RegistrationDate, c.RegistrationDate)
	a.DisabilityGrantDate, a.GrantDateSource = pick(in.DisabilityGrantDate, c.DisabilityGrantDate)
	return a
}

func pick(entered, parsed *generic.Date) (*generic.Date, string) {
	switch {
	case entered != nil && !entered.IsZero():
		return entered, FromInput
	case parsed != nil:
		return parsed, FromCase
	}
	return nil, ""
}

func parseSalary(in Input, sick *generic.Date) salary.Timeline {
	opts := salary.Options{SickDate: sick, Override: in.Basis}
	switch {
	case len(in.SalaryRows) > 0:
		return salary.ParseGrid(in.SalaryRows, opts)
	case strings.TrimSpace(in.SalaryText) != "":
		return salary.ParseText(in.SalaryText, opts)
	default:
		return salary.FromExtracted(in.ExtractedSalary, opts)
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func collectMessages(r *Result) []generic.Message {
	out := []generic.Message{}
	add := func(m ...generic.Message) { out = append(out, m...) }

	if r.Anchors.SickDate == nil {
		add(generic.Critical(CodeMissingSickDate, "Første sykedag mangler; karens og varighet kan ikke beregnes"))
	}
	if r.Anchors.RegistrationDate == nil {
		add(generic.Warning(CodeMissingRegistrationDate, "Første melding om uførhet mangler; foreldelse kan ikke vurderes"))
	}
	if len(r.Case.AAPPeriods) == 0 {
		add(generic.Warning(CodeNoAAPPeriods, "Fant ingen AAP-perioder"))
	}
	for _, g := range r.Gaps {
		add(generic.Info(CodeAAPGap, fmt.Sprintf("Opphold i AAP på %d dager (%s - %s)", g.Days, g.Start, g.End)))
	}
	for _, err := range []error{r.Duration.Err(), r.ThreeYear.Err(), r.TenYear.Err()} {
		if err != nil {
			add(generic.Info(CodeNotComputable, err.Error()))
		}
	}
	if r.ThreeYear.Violation {
		add(generic.Critical(CodeThreeYearForeldelse,
			fmt.Sprintf("3-års foreldelse: %.2f år; utbetaling før %s er foreldet", r.ThreeYear.Years, r.ThreeYear.Cutoff)))
	}
	if r.TenYear.Violation {
		add(generic.Critical(CodeTenYearForeldelse,
			fmt.Sprintf("10-års foreldelse: %.1f år fra %s", r.TenYear.Years, r.TenYear.ComparedDate)))
	}

	add(r.Uforegrad.Warnings...)

	switch {
	case r.Salary.Empty():
		add(generic.Warning(CodeNoSalaryHistory, "Fant ingen lønnshistorikk"))
	default:
		if r.Salary.Skipped > 0 {
			add(generic.Info(CodeSkippedSalaryRows, fmt.Sprintf("%d lønnsrader ble hoppet over", r.Salary.Skipped)))
		}
		if r.Salary.Corrections > 0 {
			add(generic.Info(CodeSalaryCorrected, fmt.Sprintf("%d lønnsrader korrigert etter ajourholddato", r.Salary.Corrections)))
		}
	}
	if r.SalaryIncrease != nil {
		add(r.SalaryIncrease.Messages...)
	}
	if r.Benefits != nil {
		add(r.Benefits.Messages...)
	}
	return out
}
