package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 6
	// bcrypt не принимает пароли длиннее 72 байт.
	maxPasswordBytes = 72
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError — ошибка конкретного поля. errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// normalizeEmail обрезает пробелы, приводит к нижнему регистру и проверяет формат.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email", "is required")
	}

	if !emailRe.MatchString(email) {
		return "", invalid("email", "is not a valid email address")
	}

	return email, nil
}

// validateRegistration проверяет поля регистрации и возвращает нормализованные name и email.
func validateRegistration(name, email, password string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", invalid("name", "is required")
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return "", "", err
	}

	if password == "" {
		return "", "", invalid("password", "is required")
	}

	if utf8.RuneCountInString(password) < minPasswordLen {
		return "", "", invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	if len(password) > maxPasswordBytes {
		return "", "", invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	return name, email, nil
}
