package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName trims, collapses inner whitespace and title-cases each word.
// Product and customer names are keyed by this form.
func NormalizeName(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	// cases.Caser keeps state between calls, so one is built per call.
	return cases.Title(language.Und).String(strings.ToLower(strings.Join(fields, " ")))
}
