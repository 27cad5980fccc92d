// Package validation checks user input before it reaches the services.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinThreadLength is the shortest accepted thread or reply text, in characters.
const MinThreadLength = 3

// ValidateThreadText rejects empty text and text shorter than MinThreadLength
// once surrounding whitespace is removed.
func ValidateThreadText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("thread text is required")
	}
	if utf8.RuneCountInString(trimmed) < MinThreadLength {
		return fmt.Errorf("thread text must be at least %d characters", MinThreadLength)
	}
	return nil
}
