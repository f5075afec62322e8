// AngelaMos | 2026
// ids.go

package core

import (
	"fmt"
	"strings"
	"unicode"
)

const MaxEventIDLength = 128

// ValidateEventID rejects ids that cannot round-trip through a check-in
// code or a URL path segment.
func ValidateEventID(id string) error {
	if id == "" {
		return fmt.Errorf("empty event id: %w", ErrInvalidInput)
	}
	if len(id) > MaxEventIDLength {
		return fmt.Errorf("event id longer than %d bytes: %w", MaxEventIDLength, ErrInvalidInput)
	}
	if strings.ContainsRune(id, '/') || strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("event id %q: %w", id, ErrInvalidInput)
	}
	return nil
}
