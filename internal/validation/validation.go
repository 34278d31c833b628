package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned for identifiers and process levels that are not
// positive integers.
var ErrInvalidID = errors.New("no valid ID provided")

// ParseID parses a positive integer identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w. ID: %s", ErrInvalidID, raw)
	}
	return id, nil
}

// ValidateIBAN only checks presence and the maximum IBAN length of 34.
// Checksums are not verified: external targets can be arbitrary strings.
func ValidateIBAN(iban string) error {
	if strings.TrimSpace(iban) == "" || len(iban) > 34 {
		return fmt.Errorf("%w. IBAN: %s", ErrInvalidID, iban)
	}
	return nil
}
