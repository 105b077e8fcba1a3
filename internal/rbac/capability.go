package rbac

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// RootCapability is the universal ancestor of every capability.
const RootCapability = "admin"

func isDelimiter(b byte) bool {
	return b == ':' || b == '/'
}

func isSegmentChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	}
	return false
}

// Canonical rewrites every '/' delimiter in c to ':'. The two delimiters are
// interchangeable, so "phd/delete" and "phd:delete" name one capability.
func Canonical(c string) string {
	return strings.ReplaceAll(c, "/", ":")
}

// ValidateCapability checks capability syntax: lower-case segments separated
// by ':' or '/', no empty segments.
func ValidateCapability(c string) error {
	if c == "" {
		return fmt.Errorf("%w: capability is empty", shared.ErrValidation)
	}
	segment := 0
	for i := 0; i < len(c); i++ {
		if isDelimiter(c[i]) {
			if segment == 0 {
				return fmt.Errorf("%w: capability %q has an empty segment", shared.ErrValidation, c)
			}
			segment = 0
			continue
		}
		if !isSegmentChar(rune(c[i])) {
			return fmt.Errorf("%w: capability %q contains %q", shared.ErrValidation, c, c[i])
		}
		segment++
	}
	if segment == 0 {
		return fmt.Errorf("%w: capability %q has an empty segment", shared.ErrValidation, c)
	}
	return nil
}

// IsAncestorOrSelf reports whether capability a covers capability b.
// "admin" covers everything; otherwise b must equal a or continue it past a
// delimiter. Nothing but "admin" itself covers "admin".
func IsAncestorOrSelf(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = Canonical(a), Canonical(b)
	if a == b || a == RootCapability {
		return true
	}
	return len(b) > len(a) && strings.HasPrefix(b, a) && b[len(a)] == ':'
}

// Specificity returns the segment count of c; the root capability has
// specificity 0.
func Specificity(c string) int {
	if c == RootCapability || c == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(c); i++ {
		if isDelimiter(c[i]) {
			n++
		}
	}
	return n
}
