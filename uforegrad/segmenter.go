/*
Package uforegrad estimates the disability grade (uføregrad) from meldekort.

PURPOSE:
  Each meldekort reports hours worked in a 14-day period against a 75-hour
  full-time reference. The grade is the share of full time NOT worked,
  rounded to a multiple of 5. Cases often change grade over time, so the
  cards are split into stable segments before grading.

ALGORITHM:
  1. Restrict to cards from two before the 3-year foreldelse cutoff (if any)
  2. Drop the first card (partial period); 1 card: keep it; 2: keep the second
  3. p[i] = hours / 75, smoothed with a centered window of half-width 2
  4. Flag i when the two halves of the window at i (up to 2 points before,
     up to 3 points from i) differ by more than 0.20
  5. Accept a flag as a boundary when the segment before has >= 3 cards,
     >= 2 cards follow, and the next 2 cards stay within 0.10 of p[i];
     then skip the 2 confirmed cards
  6. Merge segments shorter than 3 into the neighbour with the nearest grade
  7. Grade each segment from its own smoothed work fraction

The overall grade ignores segmentation: 100 - 100 * mean(hours) / 75.

SEE ALSO:
  - casetext/types.go: Meldekort
  - temporal/temporal.go: ThreeYear produces the cutoff
*/
package uforegrad

import (
	"fmt"
	"math"

	"github.com/warp/benefit-engine/casetext"
	"github.com/warp/benefit-engine/generic"
)

// Segmentation parameters.
const (
	SmoothingHalfWidth = 2
	ChangeThreshold    = 0.20
	StabilityTolerance = 0.10
	StabilityPoints    = 2
	MinSegmentLength   = 3
	GradeStep          = 5

	// Cards before the cutoff card that are kept, compensating for the
	// dropped first card.
	CutoffLeadCards = 2

	MeldekortGapDays   = 30
	LowGradeThreshold  = 20
	LowGradeCardsLimit = 2
)

// Message codes.
const (
	CodeMeldekortGap   = "MELDEKORT_GAP"
	CodeLowGradeCards  = "LOW_GRADE_CARDS"
	CodeNoMeldekort    = "NO_MELDEKORT"
	CodeCutoffExcluded = "MELDEKORT_BEFORE_CUTOFF"

	// CodeSplitWindowDetection is an Info note on every computable
	// analysis: change points come from changeScore, not from the step
	// between neighbouring smoothed values.
	CodeSplitWindowDetection = "SPLIT_WINDOW_CHANGE_DETECTION"
)

// =============================================================================
// TYPES
// =============================================================================

// Options restrict the analysis.
type Options struct {
	// Cutoff is the 3-year foreldelse cutoff, nil when there is none.
	Cutoff *generic.Date
}

// Segment is a run of cards judged to share one grade. Indices refer to the
// cards slice given to Analyze, inclusive.
type Segment struct {
	Grade     int          `json:"grade"`
	FromIndex int          `json:"from_index"`
	ToIndex   int          `json:"to_index"`
	FromDate  generic.Date `json:"from_date"`
	ToDate    generic.Date `json:"to_date"`
}

// Cards is the number of meldekort in the segment.
func (s Segment) Cards() int { return s.ToIndex - s.FromIndex + 1 }

// CardGap is a pause of MeldekortGapDays or more between consecutive cards.
type CardGap struct {
	PreviousTo generic.Date `json:"previous_to"`
	NextFrom   generic.Date `json:"next_from"`
	Days       int          `json:"days"`
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Computable bool   `json:"computable"`
	Reason     string `json:"reason,omitempty"`

	// Offset is the index into the input of the first graded card.
	Offset        int  `json:"offset"`
	CardsAnalyzed int  `json:"cards_analyzed"`
	Restricted    bool `json:"restricted"`

	WorkFractions []float64 `json:"work_fractions"`
	Smoothed      []float64 `json:"smoothed"`
	Segments      []Segment `json:"segments"`

	OverallGrade int     `json:"overall_grade"`
	OverallExact float64 `json:"overall_exact"`

	Gaps     []CardGap         `json:"gaps"`
	Warnings []generic.Message `json:"warnings"`
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze grades the cards, which must be ordered by From.
func Analyze(cards []casetext.Meldekort, opts Options) Analysis {
	out := Analysis{Segments: []Segment{}, Gaps: []CardGap{}, Warnings: []generic.Message{}}

	start := 0
	if opts.Cutoff != nil {
		k, ok := cutoffCard(cards, *opts.Cutoff)
		if !ok {
			out.Reason = "all meldekort precede the foreldelse cutoff " + opts.Cutoff.String()
			out.Warnings = append(out.Warnings, generic.Warning(CodeCutoffExcluded, out.Reason))
			return out
		}
		start = max(0, k-CutoffLeadCards)
		out.Restricted = start > 0
	}
	considered := cards[start:]
	if len(considered) == 0 {
		out.Reason = "no meldekort"
		out.Warnings = append(out.Warnings, generic.Warning(CodeNoMeldekort, "Ingen meldekort å analysere"))
		return out
	}

	out.Gaps = findCardGaps(considered)
	out.Warnings = append(out.Warnings, warnings(considered, out.Gaps)...)

	// The first card is partial. A single card is used as is.
	offset, dataset := start, considered
	if len(considered) >= 2 {
		offset, dataset = start+1, considered[1:]
	}

	p := make([]float64, len(dataset))
	hours := 0.0
	for i, c := range dataset {
		p[i] = c.WorkFraction()
		hours += c.Hours
	}

	out.Computable = true
	out.Offset = offset
	out.CardsAnalyzed = len(dataset)
	out.WorkFractions = p
	out.Smoothed = smooth(p, 0, len(p))

	exact := 100 - 100*(hours/float64(len(dataset)))/casetext.FullTimeHours
	out.OverallExact = math.Round(exact*100) / 100
	out.OverallGrade = toGrade(exact)

	out.Warnings = append(out.Warnings, generic.Info(CodeSplitWindowDetection,
		"Endringspunkter er funnet ved å sammenligne snittet før og etter hvert meldekort, "+
			"ikke ved steg mellom glattede verdier. Hvert segment er glattet på nytt innenfor egne grenser."))

	for _, s := range merge(split(p), p) {
		out.Segments = append(out.Segments, Segment{
			Grade:     toGrade(100 * (1 - mean(smooth(p, s.from, s.to+1)))),
			FromIndex: offset + s.from,
			ToIndex:   offset + s.to,
			FromDate:  dataset[s.from].From,
			ToDate:    dataset[s.to].To,
		})
	}
	return out
}

// cutoffCard finds the card containing the cutoff, or else the first card
// starting after it.
func cutoffCard(cards []casetext.Meldekort, cutoff generic.Date) (int, bool) {
	for i, c := range cards {
		if c.Contains(cutoff) || c.From.After(cutoff) {
			return i, true
		}
	}
	return 0, false
}

// =============================================================================
// SMOOTHING AND CHANGE DETECTION
// =============================================================================

// smooth returns the centered moving average of p[lo:hi], clipped at lo/hi.
func smooth(p []float64, lo, hi int) []float64 {
	out := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		a := max(lo, i-SmoothingHalfWidth)
		b := min(hi, i+SmoothingHalfWidth+1)
		out[i-lo] = mean(p[a:b])
	}
	return out
}

// changeScore compares the two halves of the smoothing window at i.
//
// The rule |smoothed[i] - smoothed[i-1]| > ChangeThreshold is not used. A
// width-5 average spreads a step over five points, so neighbouring smoothed
// values rarely differ by more than a fifth of the raw drop.
// Segment grades are likewise re-smoothed inside each segment rather than
// read from Analysis.Smoothed. Analyze reports CodeSplitWindowDetection.
func changeScore(p []float64, i int) float64 {
	before := p[max(0, i-SmoothingHalfWidth):i]
	after := p[i:min(len(p), i+SmoothingHalfWidth+1)]
	return math.Abs(mean(after) - mean(before))
}

func stable(p []float64, i int) bool {
	for j := i + 1; j <= i+StabilityPoints; j++ {
		if math.Abs(p[j]-p[i]) > StabilityTolerance {
			return false
		}
	}
	return true
}

type span struct{ from, to int }

// split returns the accepted segments as inclusive index spans.
func split(p []float64) []span {
	n := len(p)
	var spans []span
	segStart := 0
	for i := 1; i < n; i++ {
		if changeScore(p, i) <= ChangeThreshold {
			continue
		}
		if i-segStart < MinSegmentLength || n-i-1 < StabilityPoints || !stable(p, i) {
			continue
		}
		spans = append(spans, span{segStart, i - 1})
		segStart = i
		i += StabilityPoints
	}
	return append(spans, span{segStart, n - 1})
}

// =============================================================================
// MERGE - Fixed-point reduction over an immutable span list
// =============================================================================

func merge(spans []span, p []float64) []span {
	for {
		next, changed := mergeOnce(spans, p)
		if !changed {
			return spans
		}
		spans = next
	}
}

// mergeOnce folds the first short span into its nearest-grade neighbour and
// returns a new list. Ties go to the earlier neighbour.
func mergeOnce(spans []span, p []float64) ([]span, bool) {
	if len(spans) < 2 {
		return spans, false
	}
	for i, s := range spans {
		if s.to-s.from+1 >= MinSegmentLength {
			continue
		}
		target := i - 1
		switch {
		case i == 0:
			target = 1
		case i < len(spans)-1:
			d := distance(s, p)
			if math.Abs(d-distance(spans[i+1], p)) < math.Abs(d-distance(spans[i-1], p)) {
				target = i + 1
			}
		}

		lo, hi := min(i, target), max(i, target)
		out := make([]span, 0, len(spans)-1)
		out = append(out, spans[:lo]...)
		out = append(out, span{spans[lo].from, spans[hi].to})
		out = append(out, spans[hi+1:]...)
		return out, true
	}
	return spans, false
}

// distance is the raw disability fraction of a span.
func distance(s span, p []float64) float64 {
	return 1 - mean(p[s.from:s.to+1])
}

// =============================================================================
// WARNINGS
// =============================================================================

func findCardGaps(cards []casetext.Meldekort) []CardGap {
	gaps := []CardGap{}
	for i := 1; i < len(cards); i++ {
		days := generic.DaysBetween(cards[i-1].To, cards[i].From)
		if days >= MeldekortGapDays {
			gaps = append(gaps, CardGap{PreviousTo: cards[i-1].To, NextFrom: cards[i].From, Days: days})
		}
	}
	return gaps
}

func warnings(cards []casetext.Meldekort, gaps []CardGap) []generic.Message {
	var out []generic.Message
	for _, g := range gaps {
		out = append(out, generic.Warning(CodeMeldekortGap,
			fmt.Sprintf("Opphold på %d dager mellom meldekort (%s - %s)", g.Days, g.PreviousTo, g.NextFrom)))
	}

	low := 0
	for _, c := range cards {
		if 100*(1-c.WorkFraction()) < LowGradeThreshold {
			low++
		}
	}
	if low >= LowGradeCardsLimit {
		out = append(out, generic.Warning(CodeLowGradeCards,
			fmt.Sprintf("%d meldekort tilsvarer uføregrad under %d %%", low, LowGradeThreshold)))
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func toGrade(pct float64) int {
	g := int(math.Round(pct/GradeStep)) * GradeStep
	return min(100, max(0, g))
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
