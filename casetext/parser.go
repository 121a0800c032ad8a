package casetext

import (
	"regexp"
	"sort"
	"strings"

	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// PATTERNS
// =============================================================================

const (
	dateToken  = `(\d{2}\.\d{2}\.\d{4})`
	rangeSep   = `\s*(?:-|–|til)?\s*`
	hoursToken = `(\d+(?:[.,]\d+)?)\b`

	aapToken       = "arbeidsavklaringspenger"
	exclusionToken = "§11-5 nedsatt arbeidsevne"
)

var (
	dateTokenRe = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)

	sickDateRe     = regexp.MustCompile(`(?i)første\s+sykedag\s*:?\s*` + dateToken)
	registrationRe = regexp.MustCompile(`(?i)første\s+melding\s+om\s+uførhet\s*:?\s*` + dateToken)
	grantDateRe    = regexp.MustCompile(`(?i)første\s+virkningstidspunkt\s*:?\s*` + dateToken)
	uttrekkRe      = regexp.MustCompile(`(?i)uttrekksperiode\s*:?\s*` + dateToken + `\s*(?:til|-|–)\s*` + dateToken)

	numberedCardRe = regexp.MustCompile(`^\s*\d{1,3}\.?\s+` + dateToken + rangeSep + dateToken + `\s+` + hoursToken)
	allPeriodsRe   = regexp.MustCompile(`(?i)^\s*alle\s+perioder\s*:?\s+` + dateToken + rangeSep + dateToken + `\s+` + hoursToken)
)

// vedtakTypes are matched case-insensitively, first hit wins.
var vedtakTypes = []string{
	"Innvilgelse av søknad",
	"Endring",
	"Forlengelse",
	"Stans",
	"Opphør",
	"Gjenopptak",
	"Revurdering",
}

// meldekortPeriodDays is the length of one card period.
const meldekortPeriodDays = 14

// =============================================================================
// PARSE
// =============================================================================

// Parse extracts a Case from a pasted case dump. It never fails; see the
// package doc for the failure policy.
func Parse(text string) *Case {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	sections := splitSections(text)

	c := &Case{
		SickDate:            findLabelledDate(text, sickDateRe),
		RegistrationDate:    findLabelledDate(text, registrationRe),
		DisabilityGrantDate: findLabelledDate(text, grantDateRe),
		AAPPeriods:          parseVedtak(sections[sectionVedtak]),
		Meldekort:           parseMeldekort(sections[sectionMeldekort]),
	}

	if len(c.AAPPeriods) > 0 {
		c.Source = SourceVedtak
	} else if p, ok := findUttrekksperiode(text); ok {
		c.AAPPeriods = []BenefitPeriod{p}
		c.Source = SourceUttrekksperiode
	}
	return c
}

// =============================================================================
// SECTIONS
// =============================================================================

type section int

const (
	sectionNone section = iota
	sectionVedtak
	sectionMeldekort
)

// splitSections assigns every line after a marker line to that marker's
// section, up to the next marker. Repeated markers extend the same section.
func splitSections(text string) map[section][]string {
	out := make(map[section][]string)
	current := sectionNone
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "vedtak id"):
			current = sectionVedtak
			continue
		case strings.Contains(lower, "meldekort id"):
			current = sectionMeldekort
			continue
		}
		if current != sectionNone {
			out[current] = append(out[current], line)
		}
	}
	return out
}

// =============================================================================
// FIELDS
// =============================================================================

// findLabelledDate returns the first valid date that follows the label.
func findLabelledDate(text string, re *regexp.Regexp) *generic.Date {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if d := generic.ParseDatePtr(m[1]); d != nil {
			return d
		}
	}
	return nil
}

func findUttrekksperiode(text string) (BenefitPeriod, bool) {
	for _, m := range uttrekkRe.FindAllStringSubmatch(text, -1) {
		from, okFrom := generic.ParseDate(m[1])
		to, okTo := generic.ParseDate(m[2])
		if okFrom && okTo && from.BeforeOrEqual(to) {
			return BenefitPeriod{Kind: KindAAP, From: from, To: to, Status: StatusUttrekksperiode}, true
		}
	}
	return BenefitPeriod{}, false
}

// =============================================================================
// VEDTAK
// =============================================================================

func parseVedtak(lines []string) []BenefitPeriod {
	periods := []BenefitPeriod{}
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, aapToken) || strings.Contains(lower, exclusionToken) {
			continue
		}
		tokens := dateTokenRe.FindAllString(line, 2)
		if len(tokens) < 2 {
			continue
		}
		from, okFrom := generic.ParseDate(tokens[0])
		to, okTo := generic.ParseDate(tokens[1])
		if !okFrom || !okTo || to.Before(from) {
			continue
		}
		periods = append(periods, BenefitPeriod{
			Kind:   KindAAP,
			From:   from,
			To:     to,
			Status: vedtakStatus(lower),
		})
	}
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].From.Before(periods[j].From)
	})
	return periods
}

func vedtakStatus(lowerLine string) string {
	for _, t := range vedtakTypes {
		if strings.Contains(lowerLine, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}

// =============================================================================
// MELDEKORT
// =============================================================================

func parseMeldekort(lines []string) []Meldekort {
	cards := []Meldekort{}
	for _, line := range lines {
		if m := allPeriodsRe.FindStringSubmatch(line); m != nil {
			cards = append(cards, expandAllPeriods(m[1], m[2], m[3])...)
			continue
		}
		if m := numberedCardRe.FindStringSubmatch(line); m != nil {
			if card, ok := newCard(m[1], m[2], m[3]); ok {
				cards = append(cards, card)
			}
		}
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].From.Before(cards[j].From)
	})
	return dedupe(cards)
}

func newCard(fromStr, toStr, hoursStr string) (Meldekort, bool) {
	from, okFrom := generic.ParseDate(fromStr)
	to, okTo := generic.ParseDate(toStr)
	hours, okHours := generic.ParseNumber(hoursStr)
	if !okFrom || !okTo || !okHours || to.Before(from) {
		return Meldekort{}, false
	}
	return Meldekort{Hours: hours.InexactFloat64(), From: from, To: to}, true
}

// expandAllPeriods turns "Alle perioder <from> <to> <hours>" into consecutive
// 14-day cards with identical hours. The last card is clipped at <to>.
func expandAllPeriods(fromStr, toStr, hoursStr string) []Meldekort {
	span, ok := newCard(fromStr, toStr, hoursStr)
	if !ok {
		return nil
	}
	var out []Meldekort
	for start := span.From; start.BeforeOrEqual(span.To); start = start.AddDays(meldekortPeriodDays) {
		end := start.AddDays(meldekortPeriodDays - 1)
		if end.After(span.To) {
			end = span.To
		}
		out = append(out, Meldekort{Hours: span.Hours, From: start, To: end})
	}
	return out
}

// dedupe drops exact repeats, keeping the first occurrence.
func dedupe(cards []Meldekort) []Meldekort {
	out := make([]Meldekort, 0, len(cards))
	for _, c := range cards {
		seen := false
		for _, o := range out {
			if o.From.Equal(c.From) && o.To.Equal(c.To) && o.Hours == c.Hours {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, c)
		}
	}
	return out
}
