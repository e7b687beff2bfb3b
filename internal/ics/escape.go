package ics

import "strings"

// icsEscaper applies the RFC 5545 TEXT escapes in one pass, so an existing
// backslash is never re-escaped by the later substitutions. It must not be
// applied twice to the same value.
var icsEscaper = strings.NewReplacer(
	"\\", "\\\\",
	";", "\\;",
	",", "\\,",
	"\n", "\\n",
)

// EscapeText escapes a free-text value for SUMMARY/DESCRIPTION emission.
func EscapeText(s string) string {
	return icsEscaper.Replace(s)
}
