package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/repository"
)

type VerifierConfig struct {
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Compare emails case-folded, exact match by default
	EmailCaseInsensitive bool
}

// Verifier checks user credentials
type Verifier struct {
	users           repository.UserRepo
	hasher          PasswordHasher
	caseInsensitive bool

	// Compared against when user not found, so unknown email costs the same as wrong password
	dummyHash string
}

func NewVerifier(cfg VerifierConfig, users repository.UserRepo) (*Verifier, error) {
	if users == nil {
		return nil, errors.New("user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	dummy, err := hasher.Hash("dummy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("dummy hash failed. Err: %w", err)
	}

	return &Verifier{
		users:           users,
		hasher:          hasher,
		caseInsensitive: cfg.EmailCaseInsensitive,
		dummyHash:       dummy,
	}, nil
}

// Verify returns principal for valid credentials
// Errors: apperrors.ErrCredentialNotFound, apperrors.ErrCredentialMismatch, apperrors.ErrUserDisabled
func (v *Verifier) Verify(ctx context.Context, email string, password string) (models.Principal, error) {
	user, err := v.users.GetUserByEmail(ctx, email, v.caseInsensitive)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = v.hasher.Compare(v.dummyHash, password)
		return models.Principal{}, apperrors.ErrCredentialNotFound
	default:
		return models.Principal{}, fmt.Errorf("user lookup failed. Err: %w", err)
	}

	err = v.hasher.Compare(user.HashedPassword, password)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrCredentialMismatch):
		return models.Principal{}, apperrors.ErrCredentialMismatch
	default:
		return models.Principal{}, fmt.Errorf("password compare failed. Err: %w", err)
	}

	if !user.IsActive {
		return models.Principal{}, apperrors.ErrUserDisabled
	}

	return user.Principal(), nil
}
