// Package users handles account registration and lookup by phone number.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation wraps client input problems.
var ErrValidation = errors.New("invalid user input")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	PhoneNumber *string `json:"phone_number"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
}

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "users").Logger(),
		now:  time.Now,
	}
}

func normalizePhone(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
}

// Register creates a new account. Phone numbers are unique.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	phone := normalizePhone(in.PhoneNumber)
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone_number must be 7-15 digits", ErrValidation)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, fmt.Errorf("%w: first_name is required", ErrValidation)
	}

	u := &User{
		ID:          uuid.New(),
		PhoneNumber: phone,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// LookupByPhone finds an account by phone number.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (*User, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone_number is required", ErrValidation)
	}
	return s.repo.GetByPhone(ctx, phone)
}

// Update applies a partial update to a user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.PhoneNumber != nil {
		phone := normalizePhone(*in.PhoneNumber)
		if !phonePattern.MatchString(phone) {
			return nil, fmt.Errorf("%w: phone_number must be 7-15 digits", ErrValidation)
		}
		u.PhoneNumber = phone
	}
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, fmt.Errorf("%w: first_name must not be empty", ErrValidation)
		}
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
