package auth

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrPinMismatch is returned when the supervisor PIN does not match.
var ErrPinMismatch = errors.New("supervisor pin mismatch")

// ErrPinNotConfigured is returned when no PIN hash is configured for this terminal.
var ErrPinNotConfigured = errors.New("supervisor pin not configured")

// PinGate verifies a supervisor PIN against the configured argon2id hash,
// letting a waiter temporarily act with elevated privileges.
type PinGate struct {
	Hash string
}

// Verify checks the PIN. It returns ErrPinNotConfigured when the terminal
// has no hash and ErrPinMismatch when the PIN is wrong.
func (g PinGate) Verify(pin string) error {
	hash := strings.TrimSpace(g.Hash)
	if hash == "" {
		return ErrPinNotConfigured
	}
	match, err := argon2id.ComparePasswordAndHash(pin, hash)
	if err != nil {
		return err
	}
	if !match {
		return ErrPinMismatch
	}
	return nil
}
