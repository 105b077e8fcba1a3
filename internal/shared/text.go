package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims and case-folds an e-mail address for lookups.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NormalizeName trims a display name and case-folds it for uniqueness checks.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
