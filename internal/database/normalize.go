package database

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey trims surrounding whitespace and converts the key to Unicode NFC
// so visually identical keys compare equal. Case is preserved.
func NormalizeKey(key string) (string, error) {
	k := strings.TrimSpace(norm.NFC.String(key))
	if k == "" {
		return "", fmt.Errorf("%w: key is empty", ErrInvalidIdentityKey)
	}
	for _, r := range k {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: key contains control characters", ErrInvalidIdentityKey)
		}
	}
	return k, nil
}
