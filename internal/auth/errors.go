package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPassword = errors.New("invalid password")
	// ErrSuperseded means a newer session operation started before this one finished.
	ErrSuperseded = errors.New("session operation superseded")
	errNoToken    = errors.New("auth response carried no token")
)

// PasswordError lists every password rule that failed.
type PasswordError struct {
	Problems []string
}

func (e *PasswordError) Error() string {
	return "invalid password: " + strings.Join(e.Problems, "; ")
}

func (e *PasswordError) Unwrap() error { return ErrInvalidPassword }
