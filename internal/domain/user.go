// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	MaxEmailLen    = 254
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrEmailInvalid    = errors.New("email invalid")
)

type UserID int64

type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NormalizeEmail lowercases and trims an address so lookups and admin checks agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignIn checks the fields of a sign-in request and returns the normalized email.
func ValidateSignIn(name, email string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	email = NormalizeEmail(email)
	if email == "" || len(email) > MaxEmailLen {
		return "", ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrEmailInvalid
	}
	return email, nil
}
