package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/allisson/go-pwdhash"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/tasktracker/internal/apperrors"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	// Has to return apperrors.ErrCredentialMismatch if password does not match
	Compare(hashedPassword string, password string) error
}

// NewHasher returns hasher by its name
func NewHasher(name string) (PasswordHasher, error) {
	switch name {
	case "", HasherBcrypt:
		return BcryptHasher{}, nil
	case HasherArgon2id:
		return NewArgon2Hasher()
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// Bcrypt password hasher
// Will be used as default one if user not provide it's own
// Password is pre-hashed with sha256 cause bcrypt ignores everything after 72 bytes
type BcryptHasher struct {
	// bcrypt.DefaultCost if not set
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperrors.ErrCredentialMismatch
	}
	return err
}

// Argon2id password hasher in PHC string format
type Argon2Hasher struct {
	hasher *pwdhash.PasswordHasher
}

func NewArgon2Hasher() (*Argon2Hasher, error) {
	h, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, fmt.Errorf("argon2id hasher init failed. Err: %w", err)
	}
	return &Argon2Hasher{hasher: h}, nil
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	return h.hasher.Hash([]byte(password))
}

func (h *Argon2Hasher) Compare(hashedPassword string, password string) error {
	ok, err := h.hasher.Verify([]byte(password), hashedPassword)
	switch {
	case err != nil:
		return err
	case !ok:
		return apperrors.ErrCredentialMismatch
	default:
		return nil
	}
}
