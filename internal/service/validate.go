package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 100
	DescriptionMaxLen = 500
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateTitle checks the trimmed title length in runes.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n == 0 {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if n < TitleMinLen || n > TitleMaxLen {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be %d-%d characters", TitleMinLen, TitleMaxLen),
		}
	}
	return nil
}

// ValidateDescription checks the description length in runes.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > DescriptionMaxLen {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be at most %d characters", DescriptionMaxLen),
		}
	}
	return nil
}

// NormalizeEmail trims and lower-cases email and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "required"}
	}
	if !emailPattern.MatchString(email) {
		return "", &ValidationError{Field: "email", Reason: "not a valid address"}
	}
	return email, nil
}
