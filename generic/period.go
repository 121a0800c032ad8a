package generic

import "sort"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of days.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return p.Start.String() + " - " + p.End.String()
}

// =============================================================================
// GAPS - Uncovered days between consecutive periods
// =============================================================================

// Gap is a run of days not covered by either neighbouring period.
type Gap struct {
	Start             Date `json:"start"`
	End               Date `json:"end"`
	Days              int  `json:"days"`
	PreviousPeriodEnd Date `json:"previous_period_end"`
	NextPeriodStart   Date `json:"next_period_start"`
}

// FindGaps sorts the periods by start and reports every gap of at least one
// day between consecutive pairs. Overlapping or adjacent periods yield no gap.
// The input slice is not modified.
func FindGaps(periods []Period) []Gap {
	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	gaps := []Gap{}
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		start := prev.End.AddDays(1)
		end := next.Start.AddDays(-1)
		days := DaysBetween(start, end) + 1
		if days < 1 {
			continue
		}
		gaps = append(gaps, Gap{
			Start:             start,
			End:               end,
			Days:              days,
			PreviousPeriodEnd: prev.End,
			NextPeriodStart:   next.Start,
		})
	}
	return gaps
}
