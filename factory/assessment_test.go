package factory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/factory"
	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/salary"
)

func TestParseAssessment(t *testing.T) {
	// GIVEN: A request with one typed date and one keystroke date
	// WHEN: Parsing
	// THEN: Both become dates and the basis is recognised
	f := factory.NewAssessmentFactory()
	in, err := f.ParseAssessment([]byte(`{
		"case_text": "Første sykedag: 15.03.2019",
		"salary_text": "Dato\tLønn\n01.01.2019\t500000",
		"sick_date": "15.03.2019",
		"registration_date": "01022024",
		"disability_grant_date": "",
		"basis": "normert"
	}`))
	require.NoError(t, err)

	require.NotNil(t, in.SickDate)
	require.NotNil(t, in.RegistrationDate)
	assert.Equal(t, "15.03.2019", in.SickDate.String())
	assert.Equal(t, "01.02.2024", in.RegistrationDate.String())
	assert.Nil(t, in.DisabilityGrantDate)
	assert.Equal(t, salary.BasisNominal, in.Basis)
	assert.Equal(t, "Første sykedag: 15.03.2019", in.CaseText)
}

func TestParseAssessment_InvalidDate(t *testing.T) {
	f := factory.NewAssessmentFactory()
	_, err := f.ParseAssessment([]byte(`{"sick_date": "31.02.2024"}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrInvalidRequest))
	assert.True(t, generic.IsClientError(err))
	assert.Contains(t, err.Error(), "sick_date")
}

func TestParseAssessment_InvalidBasis(t *testing.T) {
	f := factory.NewAssessmentFactory()
	_, err := f.ParseAssessment([]byte(`{"basis": "weekly"}`))
	assert.True(t, errors.Is(err, generic.ErrInvalidRequest))
}

func TestParseAssessment_MalformedJSON(t *testing.T) {
	f := factory.NewAssessmentFactory()
	_, err := f.ParseAssessment([]byte(`{"case_text": `))
	assert.Error(t, err)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewAssessmentFactory()
	in, err := f.ParseAssessment([]byte(`{"sick_date": "15032019", "basis": "actual"}`))
	require.NoError(t, err)

	aj := f.ToJSON(in)
	assert.Equal(t, "15.03.2019", aj.SickDate)
	assert.Equal(t, "", aj.RegistrationDate)
	assert.Equal(t, "actual", aj.Basis)

	back, err := f.FromJSON(aj)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

// =============================================================================
// G TABLE
// =============================================================================

func TestParseGTable_SortsRows(t *testing.T) {
	f := factory.NewAssessmentFactory()
	table, err := f.ParseGTable([]byte(`{"entries": [
		{"effective_from": "01.05.2024", "amount": 124028},
		{"effective_from": "01.05.2023", "amount": 118620}
	]}`))
	require.NoError(t, err)

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "01.05.2023", entries[0].EffectiveFrom.String())

	g, err := table.Lookup(generic.MustParseDate("01.01.2024"))
	require.NoError(t, err)
	assert.Equal(t, "118620", g.String())
}

func TestParseGTable_Rejects(t *testing.T) {
	f := factory.NewAssessmentFactory()
	cases := map[string]string{
		"empty":     `{"entries": []}`,
		"duplicate": `{"entries": [{"effective_from": "01.05.2023", "amount": 1}, {"effective_from": "01.05.2023", "amount": 2}]}`,
		"negative":  `{"entries": [{"effective_from": "01.05.2023", "amount": -5}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseGTable([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, generic.ErrMalformedIndexTable))
		})
	}

	_, err := f.ParseGTable([]byte(`{"entries": [{"effective_from": "2023-05-01", "amount": 1}]}`))
	assert.True(t, errors.Is(err, generic.ErrInvalidDate))
}
