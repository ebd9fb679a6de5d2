package service

import (
	"context"

	"todolist/internal/apperrors"
	"todolist/internal/models"
	"todolist/internal/repository"
	"todolist/pkg/logger"
)

// AuthService registers accounts and checks credentials. It issues no
// session material; callers keep the returned user id.
type AuthService struct {
	users  repository.UserStore
	hasher PasswordHasher
}

func NewAuthService(users repository.UserStore, hasher PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Register creates a user. A taken username is a conflict.
func (s *AuthService) Register(ctx context.Context, username, password string) (user models.User, err error) {
	defer func() { observe("register", err) }()

	username, err = validateCredentials(username, password)
	if err != nil {
		return models.User{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, apperrors.Internal("hash password", err)
	}
	user = models.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}
	logger.Info(ctx, "User registered", "user_id", user.ID)
	return user, nil
}

// Login returns the user whose username and password match.
func (s *AuthService) Login(ctx context.Context, username, password string) (user models.User, err error) {
	defer func() { observe("login", err) }()

	username, err = validateCredentials(username, password)
	if err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	user, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return models.User{}, apperrors.ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	return user, nil
}
