package uforegrad_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/casetext"
	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/uforegrad"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// cards builds consecutive 14-day meldekort starting at from.
func cards(from string, hours ...float64) []casetext.Meldekort {
	start := generic.MustParseDate(from)
	out := make([]casetext.Meldekort, len(hours))
	for i, h := range hours {
		out[i] = casetext.Meldekort{Hours: h, From: start, To: start.AddDays(13)}
		start = start.AddDays(14)
	}
	return out
}

func codes(msgs []generic.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Code)
	}
	return out
}

// =============================================================================
// SEGMENTATION
// =============================================================================

func TestAnalyze_DetectsDropInHours(t *testing.T) {
	// GIVEN: Five full-time cards followed by four at 40 hours
	// WHEN: Analyzing (first card dropped)
	// THEN: A boundary at position 4 of the graded cards, a 0% segment and a
	//   45% segment, overall 25% (23.33 exact)
	a := uforegrad.Analyze(cards("06.01.2020", 75, 75, 75, 75, 75, 40, 40, 40, 40), uforegrad.Options{})

	require.True(t, a.Computable)
	assert.Equal(t, 1, a.Offset)
	assert.Equal(t, 8, a.CardsAnalyzed)

	require.Len(t, a.Segments, 2)
	high, low := a.Segments[0], a.Segments[1]
	assert.Equal(t, 0, high.Grade)
	assert.Equal(t, 45, low.Grade)
	assert.Equal(t, 4, low.FromIndex-a.Offset)
	assert.Equal(t, 8, low.ToIndex)
	assert.Equal(t, 4, low.Cards())
	assert.Equal(t, "20.01.2020", high.FromDate.String())

	assert.Equal(t, 25, a.OverallGrade)
	assert.Equal(t, 23.33, a.OverallExact)
}

func TestAnalyze_StableHoursGiveOneSegment(t *testing.T) {
	a := uforegrad.Analyze(cards("06.01.2020", 10, 30, 30, 30, 30, 30, 30), uforegrad.Options{})

	require.Len(t, a.Segments, 1)
	assert.Equal(t, 60, a.Segments[0].Grade)
	assert.Equal(t, 60, a.OverallGrade)
}

func TestAnalyze_TransientDipIsNotABoundary(t *testing.T) {
	// GIVEN: One low card in an otherwise full-time series
	// WHEN: Analyzing
	// THEN: The stability check rejects it; a single segment remains
	a := uforegrad.Analyze(cards("06.01.2020", 75, 75, 75, 75, 75, 0, 75, 75), uforegrad.Options{})

	require.True(t, a.Computable)
	assert.Len(t, a.Segments, 1)
}

// =============================================================================
// SMALL INPUTS
// =============================================================================

func TestAnalyze_SingleCardUsedDirectly(t *testing.T) {
	a := uforegrad.Analyze(cards("06.01.2020", 37.5), uforegrad.Options{})

	require.True(t, a.Computable)
	assert.Equal(t, 0, a.Offset)
	require.Len(t, a.Segments, 1)
	assert.Equal(t, 50, a.Segments[0].Grade)
	assert.Equal(t, 50, a.OverallGrade)
}

func TestAnalyze_TwoCardsUseOnlySecond(t *testing.T) {
	a := uforegrad.Analyze(cards("06.01.2020", 0, 75), uforegrad.Options{})

	require.True(t, a.Computable)
	assert.Equal(t, 1, a.Offset)
	assert.Equal(t, 1, a.CardsAnalyzed)
	assert.Equal(t, 0, a.OverallGrade)
}

func TestAnalyze_NoCards(t *testing.T) {
	a := uforegrad.Analyze(nil, uforegrad.Options{})

	assert.False(t, a.Computable)
	assert.Empty(t, a.Segments)
	assert.Contains(t, codes(a.Warnings), uforegrad.CodeNoMeldekort)
}

// =============================================================================
// FORELDELSE CUTOFF
// =============================================================================

func TestAnalyze_CutoffKeepsTwoCardsBefore(t *testing.T) {
	// GIVEN: Cards every 14 days from 06.01.2020; the sixth (16.03-29.03)
	//   contains the cutoff 20.03.2020
	// WHEN: Analyzing with the cutoff
	// THEN: Analysis starts two cards earlier (index 3) and, after dropping
	//   that first card, grades from index 4
	cut := generic.MustParseDate("20.03.2020")
	a := uforegrad.Analyze(cards("06.01.2020", 75, 75, 75, 75, 75, 75, 75, 75, 75, 75), uforegrad.Options{Cutoff: &cut})

	require.True(t, a.Computable)
	assert.True(t, a.Restricted)
	assert.Equal(t, 4, a.Offset)
	assert.Equal(t, 6, a.CardsAnalyzed)
}

func TestAnalyze_CutoffAfterAllCards(t *testing.T) {
	cut := generic.MustParseDate("01.01.2030")
	a := uforegrad.Analyze(cards("06.01.2020", 75, 75, 75), uforegrad.Options{Cutoff: &cut})

	assert.False(t, a.Computable)
	assert.Contains(t, codes(a.Warnings), uforegrad.CodeCutoffExcluded)
}

// =============================================================================
// WARNINGS
// =============================================================================

func TestAnalyze_GapAndLowGradeWarnings(t *testing.T) {
	// GIVEN: Two cards separated by a 30-day pause, both near full time
	// WHEN: Analyzing
	// THEN: One MELDEKORT_GAP and one LOW_GRADE_CARDS warning
	in := []casetext.Meldekort{
		{Hours: 70, From: generic.MustParseDate("01.01.2024"), To: generic.MustParseDate("14.01.2024")},
		{Hours: 65, From: generic.MustParseDate("13.02.2024"), To: generic.MustParseDate("26.02.2024")},
		{Hours: 10, From: generic.MustParseDate("27.02.2024"), To: generic.MustParseDate("11.03.2024")},
	}
	a := uforegrad.Analyze(in, uforegrad.Options{})

	require.Len(t, a.Gaps, 1)
	assert.Equal(t, 30, a.Gaps[0].Days)
	assert.ElementsMatch(t, []string{
		uforegrad.CodeMeldekortGap, uforegrad.CodeLowGradeCards, uforegrad.CodeSplitWindowDetection,
	}, codes(a.Warnings))
}

func TestAnalyze_NotesChangeDetectionMethod(t *testing.T) {
	// GIVEN: A computable analysis and one without cards
	// WHEN: Reading the warnings
	// THEN: Only the computable one carries the change-detection note, at Info level
	a := uforegrad.Analyze(cards("06.01.2020", 75, 75, 75, 75, 35, 35, 35, 35), uforegrad.Options{})

	require.True(t, a.Computable)
	var note *generic.Message
	for i := range a.Warnings {
		if a.Warnings[i].Code == uforegrad.CodeSplitWindowDetection {
			note = &a.Warnings[i]
		}
	}
	require.NotNil(t, note)
	assert.Equal(t, generic.LevelInfo, note.Level)
	assert.Contains(t, note.Text, "ikke ved steg mellom glattede verdier")

	empty := uforegrad.Analyze(nil, uforegrad.Options{})
	assert.NotContains(t, codes(empty.Warnings), uforegrad.CodeSplitWindowDetection)
}

func TestAnalyze_Idempotent(t *testing.T) {
	in := cards("06.01.2020", 75, 60, 60, 50, 20, 20, 20, 20, 0, 0, 0)
	assert.Equal(t, uforegrad.Analyze(in, uforegrad.Options{}), uforegrad.Analyze(in, uforegrad.Options{}))
}
