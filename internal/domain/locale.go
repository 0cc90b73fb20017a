package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Locale carries the language-dependent strings the ledger writes and matches.
type Locale struct {
	Tag    language.Tag
	Months [12]string
	// Showing formats pagination as "from, to, total".
	Showing string
}

var (
	// PortugueseBR is the default locale.
	PortugueseBR = Locale{
		Tag: language.BrazilianPortuguese,
		Months: [12]string{
			"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
		},
		Showing: "Mostrando %d a %d de %d",
	}

	// English is available for deployments outside Brazil.
	English = Locale{
		Tag: language.AmericanEnglish,
		Months: [12]string{
			"january", "february", "march", "april", "may", "june",
			"july", "august", "september", "october", "november", "december",
		},
		Showing: "Showing %d to %d of %d",
	}
)

// LocaleFor resolves a BCP 47 tag, falling back to PortugueseBR.
func LocaleFor(tag string) Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return PortugueseBR
	}
	if base, _ := t.Base(); base.String() == "en" {
		return English
	}
	return PortugueseBR
}

// MonthName returns the lower-case month name.
func (l Locale) MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return l.Months[m-1]
}

// MonthTitle returns the month name with its first letter capitalised.
func (l Locale) MonthTitle(m time.Month) string {
	return cases.Title(l.Tag).String(l.MonthName(m))
}

// ShowingLabel renders a pagination label.
func (l Locale) ShowingLabel(from, to, total int) string {
	return fmt.Sprintf(l.Showing, from, to, total)
}

// Fold lower-cases s and strips diacritics so "Março" and "marco" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// ContainsFold reports whether substr occurs in s after folding both.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
