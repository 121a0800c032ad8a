/*
Package generic provides the domain-agnostic building blocks of the
benefit assessment engine.

PURPOSE:
  Dates, periods, amounts and diagnostics shared by every domain package.
  Nothing in here knows about AAP, meldekort or karens; the domain packages
  (casetext, salary, temporal, uforegrad, karens) build on these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amounts: decimal.Decimal with Norwegian number parsing and rounding
  - Message: a leveled, coded diagnostic attached to computed results

DESIGN PRINCIPLES:
  1. Immutability: results are recomputed, never patched
  2. Precision: salary arithmetic uses decimal.Decimal, rounded only for display
  3. No silent zeros: missing data is reported, never defaulted

SEE ALSO:
  - time.go: Date and calendar arithmetic
  - period.go: Period and gap detection
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNTS - decimal helpers
// =============================================================================

var (
	Hundred = decimal.NewFromInt(100)
	One     = decimal.NewFromInt(1)
)

var numberCleaner = strings.NewReplacer(
	" ", "", "\u00a0", "", "\u202f", "", "\t", "",
	"kr", "", "Kr", "", "NOK", "", "%", "",
)

// ParseNumber reads amounts as they appear in the case system:
// "45 000,50", "45.000,50", "45000", "37,5", "0.5", "50 %".
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		// The last separator is the decimal mark.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1 && isThousandsDot(s):
		s = strings.Replace(s, ".", "", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// isThousandsDot treats "45.000" as forty-five thousand but keeps "0.500" and "37.5".
func isThousandsDot(s string) bool {
	i := strings.Index(s, ".")
	intPart := strings.TrimPrefix(s[:i], "-")
	return len(s)-i-1 == 3 && intPart != "" && intPart != "0"
}

// PercentChange returns (to - from) / from * 100. from must be non-zero.
func PercentChange(from, to decimal.Decimal) decimal.Decimal {
	return to.Sub(from).Div(from).Mul(Hundred)
}

// =============================================================================
// MESSAGE - Leveled diagnostics on computed results
// =============================================================================

type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Message is a diagnostic the presentation layer shows next to a result.
type Message struct {
	Level Level  `json:"level"`
	Code  string `json:"code"`
	Text  string `json:"message"`
}

func Info(code, text string) Message     { return Message{Level: LevelInfo, Code: code, Text: text} }
func Warning(code, text string) Message  { return Message{Level: LevelWarning, Code: code, Text: text} }
func Critical(code, text string) Message { return Message{Level: LevelCritical, Code: code, Text: text} }
