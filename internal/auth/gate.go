// Package auth implements the shared-secret session gate: one configured
// password, bcrypt-hashed at startup, exchanged for a session cookie. An
// empty password disables the gate entirely.
package auth

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"booktracker/internal/config"
)

var ErrInvalidPassword = errors.New("invalid password")

// Gate verifies the shared secret. The plaintext is hashed once at startup
// and discarded; every login compares against the hash at full bcrypt cost.
type Gate struct {
	hash    []byte
	enabled bool
}

// NewGate hashes the configured password. When no password is configured the
// gate is disabled and that fact is logged loudly, so an open instance is
// always a deliberate choice visible in the startup output.
func NewGate(cfg config.Auth) (*Gate, error) {
	if !cfg.Enabled() {
		log.Println("WARNING: no auth password configured, authentication is DISABLED and the API is open")
		return &Gate{enabled: false}, nil
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: hash, enabled: true}, nil
}

// Enabled reports whether a password is configured.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Verify compares a login attempt against the stored hash.
func (g *Gate) Verify(password string) error {
	if !g.enabled {
		return nil
	}
	err := bcrypt.CompareHashAndPassword(g.hash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}
