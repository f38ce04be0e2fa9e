package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nkiryanov/tasktracker/internal/models"
	"github.com/nkiryanov/tasktracker/internal/repository"
	"github.com/nkiryanov/tasktracker/internal/service/auth"
)

type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

// Register creates active user. It does not log the user in
// Has to return apperrors.ErrEmailTaken or apperrors.ErrUsernameTaken on conflicts
func (s *UserService) Register(ctx context.Context, username string, email string, password string) (models.User, error) {
	var user models.User
	if password == "" {
		return user, errors.New("password must not be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, strings.TrimSpace(username), NormalizeEmail(email), hash)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// NormalizeEmail trims spaces and lowercases the domain part
// Local part is kept as is, some mail servers treat it case sensitive
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}
