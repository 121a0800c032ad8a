/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain results
  (assessment.Result, salary.Timeline, casetext.Case) are returned as-is;
  the types here are the request bodies and the few wrappers the UI needs.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Case:      ParseCaseRequest, CaseResponse
  Salary:    ParseSalaryRequest
  G table:   GTableDTO, GTableEntryRequest
  Scenarios: ScenarioDTO
  Dates:     FormatDateResponse

VALIDATION:
  The assessment request is validated by factory.AssessmentJSON. The small
  requests here are checked in the handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/assessment.go: AssessmentJSON, the assessment request body
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/casetext"
	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// CASE
// =============================================================================

// ParseCaseRequest is the body of POST /api/cases/parse.
type ParseCaseRequest struct {
	Text string `json:"text"`
}

// CaseResponse is a parsed case with its derived AAP dates.
type CaseResponse struct {
	Case     *casetext.Case `json:"case"`
	AAPStart *generic.Date  `json:"aap_start"`
	AAPEnd   *generic.Date  `json:"aap_end"`
	Gaps     []generic.Gap  `json:"gaps"`
}

// =============================================================================
// SALARY
// =============================================================================

// ParseSalaryRequest is the body of POST /api/salary/parse. Rows win over
// Grid when both are given.
type ParseSalaryRequest struct {
	Grid     string     `json:"grid"`
	Rows     [][]string `json:"rows,omitempty"`
	SickDate string     `json:"sick_date,omitempty"`
	Basis    string     `json:"basis,omitempty"`
}

// =============================================================================
// G TABLE
// =============================================================================

// GTableDTO lists the table in force.
type GTableDTO struct {
	// Source is "store" when rows came from the database, "default" when the
	// built-in table is used.
	Source  string               `json:"source"`
	Entries []generic.IndexEntry `json:"entries"`
}

// GTableEntryRequest is the body of PUT /api/g-table/{date}.
type GTableEntryRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a built-in sample case.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ScenarioDetailDTO includes the inputs so the UI can prefill its forms.
type ScenarioDetailDTO struct {
	ScenarioDTO
	CaseText   string `json:"case_text"`
	SalaryText string `json:"salary_text"`
}

// =============================================================================
// MISC
// =============================================================================

// FormatDateResponse is the result of GET /api/dates/format.
type FormatDateResponse struct {
	Input     string `json:"input"`
	Formatted string `json:"formatted"`
	Valid     bool   `json:"valid"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
