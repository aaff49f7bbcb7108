package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/quentin-drucker/snaphunt/internal/model"
)

// Errors
var (
	ErrInvalidCredentials = model.ErrInvalidCredentials
	ErrNoSecretConfigured = errors.New("no login password configured")
)

// Config holds the shared login secret. Either a plaintext password or a
// bcrypt hash of it may be configured; the hash wins when both are set.
type Config struct {
	Password     string
	PasswordHash string
}

// Service checks logins against the single shared secret. This is a shared
// party password, not per-user authentication: any username is accepted as
// long as the password matches.
type Service struct {
	cfg Config
}

// New creates an auth service with the given shared-secret config
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Check validates the supplied password against the configured secret.
// Returns ErrInvalidCredentials on mismatch, or ErrNoSecretConfigured when
// the server was started without any secret.
func (s *Service) Check(password string) error {
	if s.cfg.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	}

	if s.cfg.Password == "" {
		return ErrNoSecretConfigured
	}

	if subtle.ConstantTimeCompare([]byte(s.cfg.Password), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
