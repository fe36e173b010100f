package domain

import (
	"strings"

	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// Username limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// NormalizeUsername returns the reservation key for a username: trimmed and lowercased.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateUsername checks the trimmed username and returns it in its original casing.
func ValidateUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < MinUsernameLength {
		return "", &domerrors.ValidationError{Field: "username", Reason: "must be at least 3 characters"}
	}
	if len(name) > MaxUsernameLength {
		return "", &domerrors.ValidationError{Field: "username", Reason: "must be at most 32 characters"}
	}
	for _, c := range name {
		if !isUsernameRune(c) {
			return "", &domerrors.ValidationError{Field: "username", Reason: "may contain only letters, digits and underscore"}
		}
	}
	return name, nil
}

// ASCII only: ToLower must not change the key's byte length or collapse distinct names.
func isUsernameRune(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
