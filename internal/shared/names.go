package shared

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanName trims, collapses inner whitespace and NFC-normalises a display
// name so that unique-name checks compare canonical forms.
func CleanName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
