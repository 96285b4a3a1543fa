package validator

import (
	"errors"
	"regexp"
	"strings"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 8
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("username must be 3-30 letters, digits or underscores")
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
)

var usernameChars = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	domain := email[at+1:]
	if strings.ContainsAny(email, " \t") || strings.Contains(domain, "@") {
		return ErrInvalidEmail
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return ErrInvalidUsername
	}
	if !usernameChars.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return ErrInvalidPassword
	}
	return nil
}
