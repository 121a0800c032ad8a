/*
scenarios.go - Built-in sample cases for demos and UI development

PURPOSE:

	Provides anonymised sample cases that exercise specific determinations.
	Each scenario is a complete assessment.Input: a case dump, a salary grid
	and no caseworker overrides. Nothing is written to the database.

AVAILABLE SCENARIOS:

	stable-aap:         Clean case, no foreldelse, stable salary
	foreldelse:         Registration more than 3 years after AAP start
	high-increase:      Salary jump before the sick date, new car benefit
	nominal-regulation: Nominal basis with a sustained low period, G-regulated

USAGE VIA API:

	GET  /api/scenarios                  List
	GET  /api/scenarios/{id}             Inputs, to prefill the forms
	POST /api/scenarios/{id}/assess      Full assessment

ADDING NEW SCENARIOS:
 1. Add the case and salary text constants
 2. Add an entry to 'scenarios'

SEE ALSO:
  - handlers.go: Assess handler
  - assessment/assessment.go: Compute
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/benefit-engine/assessment"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	input assessment.Input
}

const stableCase = `Første sykedag: 10.01.2022
Første melding om uførhet: 15.08.2024

Vedtak ID	Vedtakstype	Ytelse	Fra dato	Til dato	Status
5001	Innvilgelse av søknad	Arbeidsavklaringspenger	01.03.2023	29.02.2024	Iverksatt
5002	Forlengelse	Arbeidsavklaringspenger	01.03.2024	31.08.2024	Iverksatt

Meldekort ID	Periode	Timer
Alle perioder 06.03.2023 - 24.09.2023 0 i hver periode
Alle perioder 25.09.2023 - 25.02.2024 30 i hver periode
`

const stableSalary = "Gjelder fra dato\tLønn\tStillingsprosent\tYtelse bil\n" +
	"01.01.2019\t520000\t100\t0\n" +
	"01.01.2020\t535000\t100\t0\n" +
	"01.01.2021\t550000\t100\t0\n"

const foreldelseCase = `Første sykedag: 20.08.2019
Første melding om uførhet: 01.06.2024
Første virkningstidspunkt: 01.01.2024

Vedtak ID	Vedtakstype	Ytelse	Fra dato	Til dato	Status
6001	Innvilgelse av søknad	Arbeidsavklaringspenger	01.03.2020	28.02.2021	Iverksatt
6002	Forlengelse	Arbeidsavklaringspenger	01.04.2021	31.12.2023	Iverksatt

Meldekort ID	Periode	Timer
Alle perioder 02.03.2020 - 30.05.2021 10 i hver periode
Alle perioder 31.05.2021 - 26.12.2021 45 i hver periode
`

const foreldelseSalary = "Gjelder fra dato\tLønn\tStillingsprosent\n" +
	"01.01.2017\t410000\t100\n" +
	"01.01.2019\t425000\t100\n"

const highIncreaseCase = `Første sykedag: 15.03.2023
Første melding om uførhet: 01.02.2025

Vedtak ID	Vedtakstype	Ytelse	Fra dato	Til dato	Status
7001	Innvilgelse av søknad	Arbeidsavklaringspenger	15.03.2024	14.03.2025	Iverksatt

Meldekort ID	Periode	Timer
Alle perioder 18.03.2024 - 12.01.2025 15 i hver periode
`

const highIncreaseSalary = "Gjelder fra dato\tLønn\tStillingsprosent\tYtelse bil\n" +
	"01.01.2020\t450000\t100\t0\n" +
	"01.06.2022\t540000\t100\t6000\n"

const nominalCase = `Første sykedag: 01.06.2024
Første melding om uførhet: 01.03.2025

Vedtak ID	Vedtakstype	Ytelse	Fra dato	Til dato	Status
8001	Innvilgelse av søknad	Arbeidsavklaringspenger	01.06.2025	31.05.2026	Iverksatt
`

const nominalSalary = "Gjelderfradato\tLønn\tLønnN\tStillingsprosent\tStillingsprosentN\tGrunnlagstypeIF\tGrunnlagstypeUP\n" +
	"01.01.2022\t400000\t400000\t100\t100\tNormert\tNormert\n" +
	"01.01.2024\t300000\t500000\t60\t100\tNormert\tNormert\n"

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "stable-aap",
			Name:        "Stable AAP",
			Description: "Two consecutive AAP decisions, no foreldelse, stable salary",
			Category:    "baseline",
		},
		input: assessment.Input{CaseText: stableCase, SalaryText: stableSalary},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "foreldelse",
			Name:        "3-Year Foreldelse",
			Description: "Registration more than 3 years after AAP start; meldekort before the cutoff are excluded",
			Category:    "foreldelse",
		},
		input: assessment.Input{CaseText: foreldelseCase, SalaryText: foreldelseSalary},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "high-increase",
			Name:        "High Salary Increase",
			Description: "20% raise less than a year before the sick date and a new car benefit",
			Category:    "karens",
		},
		input: assessment.Input{CaseText: highIncreaseCase, SalaryText: highIncreaseSalary},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "nominal-regulation",
			Name:        "Nominal Basis G-Regulation",
			Description: "Nominal salary below threshold for over a year, regulated with G",
			Category:    "karens",
		},
		input: assessment.Input{CaseText: nominalCase, SalaryText: nominalSalary},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetScenario returns a scenario with its inputs.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDetailDTO{
		ScenarioDTO: s.ScenarioDTO,
		CaseText:    s.input.CaseText,
		SalaryText:  s.input.SalaryText,
	})
}

// AssessScenario computes the full assessment for a scenario.
func (h *Handler) AssessScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	h.writeAssessment(w, r, s.input)
}
