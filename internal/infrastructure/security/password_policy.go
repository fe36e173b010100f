package security

import (
	"fmt"
	"unicode/utf8"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// Password length bounds, counted in runes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// CheckPassword enforces the length policy and wraps domerrors.ErrWeakPassword on violation.
func CheckPassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < MinPasswordLength:
		return fmt.Errorf("%w: at least %d characters required", domerrors.ErrWeakPassword, MinPasswordLength)
	case n > MaxPasswordLength:
		return fmt.Errorf("%w: at most %d characters allowed", domerrors.ErrWeakPassword, MaxPasswordLength)
	}
	return nil
}
