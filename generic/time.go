package generic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Day-precision calendar date (no time-of-day component)
// =============================================================================

// Date is a calendar day. The zero value means "no date".
type Date struct {
	Time time.Time
}

// DateLayout is the case system's date format.
const DateLayout = "02.01.2006"

var (
	dateRe      = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	keystrokeRe = regexp.MustCompile(`^\d{8}$`)
)

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses DD.MM.YYYY. Impossible dates such as 31.02.2024 return false.
func ParseDate(s string) (Date, bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
		return Date{}, false
	}
	return NewDate(year, time.Month(month), day), true
}

// MustParseDate is for tests and fixed tables. It panics on malformed input.
func MustParseDate(s string) Date {
	d, ok := ParseDate(s)
	if !ok {
		panic(fmt.Sprintf("generic: invalid date %q", s))
	}
	return d
}

// ParseDatePtr returns nil for blank or invalid input.
func ParseDatePtr(s string) *Date {
	d, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &d
}

// FormatDate is the inverse of ParseDate.
func FormatDate(d Date) string { return d.String() }

// FormatInput turns an 8-digit keystroke string into DD.MM.YYYY.
// Anything else (already formatted, partial input) is returned unchanged.
func FormatInput(raw string) string {
	if !keystrokeRe.MatchString(raw) {
		return raw
	}
	return raw[0:2] + "." + raw[2:4] + "." + raw[4:8]
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// AddMonths shifts by whole calendar months, clamping to the last day of the
// target month (31.01 + 1 month = 29.02 in a leap year).
func (d Date) AddMonths(n int) Date {
	total := int(d.Month()) - 1 + n
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)
	day := d.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func (d Date) AddYears(n int) Date { return d.AddMonths(12 * n) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// Ptr returns a pointer to a copy of d.
func (d Date) Ptr() *Date { return &d }

// MarshalJSON writes DD.MM.YYYY, or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts DD.MM.YYYY, "" and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, ok := ParseDate(s)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = parsed
	return nil
}

// =============================================================================
// SPAN - Calendar-exact difference
// =============================================================================

// Span is a calendar difference in whole months plus remaining days.
type Span struct {
	Months int `json:"months"`
	Days   int `json:"days"`
}

// String renders the span the way caseworkers read it.
func (s Span) String() string {
	return fmt.Sprintf("%d måneder og %d dager", s.Months, s.Days)
}

// Diff returns the calendar-exact months/days from a to b (a <= b).
// When b is before a the result is the negated span from b to a.
func Diff(a, b Date) Span {
	if b.Before(a) {
		s := Diff(b, a)
		return Span{Months: -s.Months, Days: -s.Days}
	}
	months := MonthsBetween(a, b)
	return Span{Months: months, Days: DaysBetween(a.AddMonths(months), b)}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

// MonthsBetween counts whole calendar months from `from` to `to`.
func MonthsBetween(from, to Date) int {
	if to.Before(from) {
		return -MonthsBetween(to, from)
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	for months > 0 && from.AddMonths(months).After(to) {
		months--
	}
	return months
}

// YearsApprox measures years with a 365.25-day year. Only the foreldelse
// checks use this approximation.
func YearsApprox(from, to Date) float64 { return float64(DaysBetween(from, to)) / 365.25 }

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
