// Package auth implements the app-level PIN gate. A single PIN, stored
// bcrypt-hashed in the settings table, unlocks the API: verifying it issues a
// short-lived session token that the middleware checks on protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PINSettingKey is the settings-table key under which the PIN hash is stored.
const PINSettingKey = "app_pin"

var (
	ErrPINNotSet   = errors.New("pin not set")
	ErrPINMismatch = errors.New("pin mismatch")
	ErrPINInvalid  = errors.New("pin must be 4 to 8 digits")
)

// SettingsStore persists key/value settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error) // ErrSettingNotFound when absent
	Set(ctx context.Context, key, value string) error
}

// ErrSettingNotFound is returned by SettingsStore.Get for missing keys.
var ErrSettingNotFound = errors.New("setting not found")

// PINService manages the application PIN.
type PINService struct {
	settings SettingsStore
	sessions *SessionIssuer
}

func NewPINService(settings SettingsStore, sessions *SessionIssuer) *PINService {
	return &PINService{settings: settings, sessions: sessions}
}

// SetPIN validates and stores a new PIN, replacing any existing one.
func (s *PINService) SetPIN(ctx context.Context, pin string) error {
	if !validPIN(pin) {
		return ErrPINInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.settings.Set(ctx, PINSettingKey, string(hash)); err != nil {
		return fmt.Errorf("store pin: %w", err)
	}
	return nil
}

// IsSet reports whether a PIN has been configured.
func (s *PINService) IsSet(ctx context.Context) (bool, error) {
	_, err := s.settings.Get(ctx, PINSettingKey)
	if errors.Is(err, ErrSettingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyPIN checks the candidate against the stored hash and, on success,
// returns a signed session token.
func (s *PINService) VerifyPIN(ctx context.Context, pin string) (string, error) {
	hash, err := s.settings.Get(ctx, PINSettingKey)
	if errors.Is(err, ErrSettingNotFound) {
		return "", ErrPINNotSet
	}
	if err != nil {
		return "", fmt.Errorf("load pin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return "", ErrPINMismatch
	}
	return s.sessions.Issue()
}

func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
