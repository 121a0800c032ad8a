/*
Package factory provides JSON to Go conversion for assessment requests.

PURPOSE:
  Converts the JSON a caseworker UI sends into assessment.Input, and JSON
  G-table definitions into a validated karens.GTable. Dates arrive as the
  caseworker typed them, either DD.MM.YYYY or the 8-digit keystroke form.

JSON SCHEMA:
  {
    "case_text": "...pasted case dump...",
    "salary_text": "Dato\tLønn\tStillingsprosent\n...",
    "salary_rows": [["Dato", "Lønn"], ["01.01.2022", "500000"]],
    "extracted_salary": [{"date": "01.01.2022", "salary": 500000, "percentage": 100}],
    "sick_date": "15.03.2019",
    "registration_date": "01022024",
    "disability_grant_date": "",
    "basis": "nominal"
  }

  G table:
  {
    "entries": [
      {"effective_from": "01.05.2023", "amount": 118620},
      {"effective_from": "01.05.2024", "amount": 124028}
    ]
  }

USAGE:
  f := factory.NewAssessmentFactory()
  in, err := f.ParseAssessment(body)
  result := assessment.Compute(in, table)

SEE ALSO:
  - assessment/assessment.go: Input definition
  - karens/gtable.go: GTable validation
*/
package factory

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/assessment"
	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/karens"
	"github.com/warp/benefit-engine/salary"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AssessmentJSON is the JSON representation of an assessment request.
type AssessmentJSON struct {
	CaseText        string                `json:"case_text"`
	SalaryText      string                `json:"salary_text,omitempty"`
	SalaryRows      [][]string            `json:"salary_rows,omitempty"`
	ExtractedSalary []salary.ExtractedRow `json:"extracted_salary,omitempty"`

	SickDate            string `json:"sick_date,omitempty"`
	RegistrationDate    string `json:"registration_date,omitempty"`
	DisabilityGrantDate string `json:"disability_grant_date,omitempty"`

	Basis string `json:"basis,omitempty"` // "", auto, actual, nominal
}

// Validate checks the typed fields; blank dates are allowed.
func (aj AssessmentJSON) Validate() error {
	return validation.ValidateStruct(&aj,
		validation.Field(&aj.SickDate, validation.By(dateRule)),
		validation.Field(&aj.RegistrationDate, validation.By(dateRule)),
		validation.Field(&aj.DisabilityGrantDate, validation.By(dateRule)),
		validation.Field(&aj.Basis, validation.By(basisRule)),
	)
}

// GTableJSON is the JSON representation of a G-regulation table.
type GTableJSON struct {
	Entries []GTableEntryJSON `json:"entries"`
}

// GTableEntryJSON is one grunnbeløp row.
type GTableEntryJSON struct {
	EffectiveFrom string          `json:"effective_from"`
	Amount        decimal.Decimal `json:"amount"`
}

// =============================================================================
// ASSESSMENT FACTORY
// =============================================================================

// AssessmentFactory converts JSON requests to domain inputs.
type AssessmentFactory struct{}

// NewAssessmentFactory creates a new assessment factory.
func NewAssessmentFactory() *AssessmentFactory {
	return &AssessmentFactory{}
}

// ParseAssessment parses a JSON request into an assessment.Input.
func (f *AssessmentFactory) ParseAssessment(data []byte) (assessment.Input, error) {
	var aj AssessmentJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return assessment.Input{}, fmt.Errorf("failed to parse assessment JSON: %w", err)
	}
	return f.FromJSON(aj)
}

// FromJSON converts AssessmentJSON to assessment.Input.
func (f *AssessmentFactory) FromJSON(aj AssessmentJSON) (assessment.Input, error) {
	if err := aj.Validate(); err != nil {
		return assessment.Input{}, fmt.Errorf("%w: %v", generic.ErrInvalidRequest, err)
	}
	basis, _ := salary.ParseBasis(strings.TrimSpace(aj.Basis))

	return assessment.Input{
		CaseText:            aj.CaseText,
		SalaryText:          aj.SalaryText,
		SalaryRows:          aj.SalaryRows,
		ExtractedSalary:     aj.ExtractedSalary,
		SickDate:            parseInputDate(aj.SickDate),
		RegistrationDate:    parseInputDate(aj.RegistrationDate),
		DisabilityGrantDate: parseInputDate(aj.DisabilityGrantDate),
		Basis:               basis,
	}, nil
}

// ToJSON converts an Input back to its request form.
func (f *AssessmentFactory) ToJSON(in assessment.Input) AssessmentJSON {
	return AssessmentJSON{
		CaseText:            in.CaseText,
		SalaryText:          in.SalaryText,
		SalaryRows:          in.SalaryRows,
		ExtractedSalary:     in.ExtractedSalary,
		SickDate:            formatInputDate(in.SickDate),
		RegistrationDate:    formatInputDate(in.RegistrationDate),
		DisabilityGrantDate: formatInputDate(in.DisabilityGrantDate),
		Basis:               string(in.Basis),
	}
}

// ParseGTable parses a JSON table definition. Rows may arrive in any order.
func (f *AssessmentFactory) ParseGTable(data []byte) (*karens.GTable, error) {
	var tj GTableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("failed to parse G table JSON: %w", err)
	}
	entries, err := f.GTableEntries(tj)
	if err != nil {
		return nil, err
	}
	return karens.NewTable(entries)
}

// GTableEntries converts and sorts the rows without building a table.
func (f *AssessmentFactory) GTableEntries(tj GTableJSON) ([]generic.IndexEntry, error) {
	entries := make([]generic.IndexEntry, 0, len(tj.Entries))
	for _, ej := range tj.Entries {
		d, ok := generic.ParseDate(generic.FormatInput(strings.TrimSpace(ej.EffectiveFrom)))
		if !ok {
			return nil, fmt.Errorf("%w: effective_from %q", generic.ErrInvalidDate, ej.EffectiveFrom)
		}
		entries = append(entries, generic.IndexEntry{EffectiveFrom: d, Amount: ej.Amount})
	}
	generic.SortIndexEntries(entries)
	return entries, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseInputDate(s string) *generic.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return generic.ParseDatePtr(generic.FormatInput(s))
}

func formatInputDate(d *generic.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func dateRule(v any) error {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, ok := generic.ParseDate(generic.FormatInput(s)); !ok {
		return fmt.Errorf("must be a valid DD.MM.YYYY date, got %q", s)
	}
	return nil
}

func basisRule(v any) error {
	s, _ := v.(string)
	if _, ok := salary.ParseBasis(strings.TrimSpace(s)); !ok {
		return fmt.Errorf("must be one of auto, actual, nominal, got %q", s)
	}
	return nil
}
