package net

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrAuthFailed is returned when an observer presents a wrong password.
var ErrAuthFailed = errors.New("observer authentication failed")

// Authenticator checks the observer password against a bcrypt hash. An
// empty hash lets every observer in.
type Authenticator struct {
	hash []byte
}

func NewAuthenticator(hash string) *Authenticator {
	return &Authenticator{hash: []byte(hash)}
}

func (a *Authenticator) Required() bool { return len(a.hash) > 0 }

func (a *Authenticator) Verify(password string) error {
	if !a.Required() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrAuthFailed
	}
	return nil
}

// HashPassword returns the bcrypt hash to put in observer.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
