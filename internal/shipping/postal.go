package shipping

import (
	"errors"
	"strings"
)

var ErrInvalidPostalCode = errors.New("invalid postal code")

// NormalizePostalCode strips everything but digits and requires exactly eight
// of them. Codes made of one repeated digit (00000000, 11111111, ...) are rejected.
func NormalizePostalCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 8 {
		return "", ErrInvalidPostalCode
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return "", ErrInvalidPostalCode
	}
	return digits, nil
}
