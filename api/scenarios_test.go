package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/api"
	"github.com/warp/benefit-engine/assessment"
	"github.com/warp/benefit-engine/karens"
)

type scenarioResult struct {
	Anchors   assessment.Anchors `json:"anchors"`
	ThreeYear struct {
		Computable bool   `json:"computable"`
		Violation  bool   `json:"violation"`
		Cutoff     string `json:"cutoff"`
	} `json:"three_year"`
	Uforegrad struct {
		Computable    bool `json:"computable"`
		CardsAnalyzed int  `json:"cards_analyzed"`
	} `json:"uforegrad"`
	SalaryIncrease *struct {
		KarensMustBeAssessed bool `json:"karens_must_be_assessed"`
	} `json:"salary_increase"`
	Benefits *struct {
		Events []struct {
			Benefit string `json:"benefit"`
		} `json:"events"`
	} `json:"benefits"`
	Messages []struct {
		Code string `json:"code"`
	} `json:"messages"`
}

func assessScenario(t *testing.T, srv http.Handler, id string) scenarioResult {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/scenarios/"+id+"/assess", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[scenarioResult](t, rec)
}

func TestListScenarios(t *testing.T) {
	_, srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/scenarios", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.ScenarioDTO](t, rec)
	require.Len(t, list, 4)

	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Category)
	}
	assert.Equal(t, []string{"stable-aap", "foreldelse", "high-increase", "nominal-regulation"}, ids)
}

func TestGetScenario(t *testing.T) {
	_, srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/scenarios/stable-aap", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[api.ScenarioDetailDTO](t, rec)
	assert.Equal(t, "stable-aap", detail.ID)
	assert.Contains(t, detail.CaseText, "Første sykedag")
	assert.Contains(t, detail.SalaryText, "Stillingsprosent")
}

func TestScenario_Unknown(t *testing.T) {
	_, srv := newServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/scenarios/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/scenarios/nope/assess", nil).Code)
}

func TestScenario_StableAAP(t *testing.T) {
	// GIVEN: Two back-to-back AAP decisions and small yearly raises
	_, srv := newServer(t)

	res := assessScenario(t, srv, "stable-aap")

	// THEN: No foreldelse and no karens
	require.NotNil(t, res.Anchors.AAPStart)
	require.NotNil(t, res.Anchors.AAPEnd)
	assert.Equal(t, "01.03.2023", res.Anchors.AAPStart.String())
	assert.Equal(t, "31.08.2024", res.Anchors.AAPEnd.String())
	assert.True(t, res.ThreeYear.Computable)
	assert.False(t, res.ThreeYear.Violation)
	assert.True(t, res.Uforegrad.Computable)
	require.NotNil(t, res.SalaryIncrease)
	assert.False(t, res.SalaryIncrease.KarensMustBeAssessed)
	assert.False(t, hasCode(res.Messages, assessment.CodeAAPGap))
}

func TestScenario_Foreldelse(t *testing.T) {
	_, srv := newServer(t)

	res := assessScenario(t, srv, "foreldelse")

	assert.True(t, res.ThreeYear.Violation)
	assert.Equal(t, "01.06.2021", res.ThreeYear.Cutoff)
	assert.True(t, hasCode(res.Messages, assessment.CodeThreeYearForeldelse))
	assert.True(t, hasCode(res.Messages, assessment.CodeAAPGap))
	assert.Equal(t, assessment.FromCase, res.Anchors.GrantDateSource)
}

func TestScenario_HighIncrease(t *testing.T) {
	_, srv := newServer(t)

	res := assessScenario(t, srv, "high-increase")

	require.NotNil(t, res.SalaryIncrease)
	assert.True(t, res.SalaryIncrease.KarensMustBeAssessed)
	assert.True(t, hasCode(res.Messages, karens.CodeKarensMustBeAssessed))
	require.NotNil(t, res.Benefits)
	assert.NotEmpty(t, res.Benefits.Events)
}

func TestScenario_AssessmentIgnoresStore(t *testing.T) {
	// GIVEN: The same scenario before and after a G-table edit for a future date
	_, srv := newServer(t)
	before := assessScenario(t, srv, "stable-aap")

	rec := do(t, srv, http.MethodPut, "/api/g-table/01.05.2031", map[string]any{"amount": 160000})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: Determinations that do not use G are unchanged
	after := assessScenario(t, srv, "stable-aap")
	assert.Equal(t, before.ThreeYear, after.ThreeYear)
	assert.Equal(t, len(before.Messages), len(after.Messages))
}

func TestScenario_NominalRegulationUsesTableInForce(t *testing.T) {
	// GIVEN: The nominal scenario assessed on the built-in G table
	_, srv := newServer(t)

	type gReg struct {
		SalaryIncrease struct {
			GRegulation struct {
				Evaluated bool `json:"evaluated"`
				Salary    struct {
					GAtTarget string `json:"g_at_target"`
					Regulated string `json:"regulated"`
				} `json:"salary"`
			} `json:"g_regulation"`
		} `json:"salary_increase"`
	}
	assess := func() gReg {
		rec := do(t, srv, http.MethodPost, "/api/scenarios/nominal-regulation/assess", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[gReg](t, rec)
	}

	before := assess()
	require.True(t, before.SalaryIncrease.GRegulation.Evaluated)
	assert.Equal(t, "124028", before.SalaryIncrease.GRegulation.Salary.GAtTarget)
	assert.Equal(t, "466275.06", before.SalaryIncrease.GRegulation.Salary.Regulated)

	// WHEN: The G in force on the sick date is corrected
	rec := do(t, srv, http.MethodPut, "/api/g-table/01.05.2024", map[string]any{"amount": 130000})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: The next assessment regulates with the corrected amount
	after := assess()
	assert.Equal(t, "130000", after.SalaryIncrease.GRegulation.Salary.GAtTarget)
	assert.NotEqual(t, before.SalaryIncrease.GRegulation.Salary.Regulated, after.SalaryIncrease.GRegulation.Salary.Regulated)
}
