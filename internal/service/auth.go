// Package service contains the business logic layer. Services take the
// repository and token interfaces, return domain errors from the apperror
// package, and know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/repository"
)

// AuthService handles registration and login. Every path through it ends in
// the same TokenService.GenerateAccess call, whether the caller proved their
// identity with a password or through the OAuth provider.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the self-service registration fields. Profile fields
// are optional; email and password are required.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Company   string
}

// AuthResult bundles the account record and its freshly issued access token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account and issues its first access token.
//
// The role is always RoleUser and the subscription always free; a caller
// cannot register themselves into privilege. Duplicate emails fail with
// apperror.ErrConflict and leave the store untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Company:      strings.TrimSpace(in.Company),
		Role:         model.RoleUser,
		Subscription: model.SubscriptionFree,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates an email/password pair and issues an access token.
//
// A missing account, an OAuth-only account (no password set), and a wrong
// password all produce the same unauthorized error, so login responses do
// not reveal which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, invalid
	}

	token, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub completes the identity-provider login: the account
// is resolved by the verified email from the provider profile, created on
// first login, and handed the same access token as a password login.
//
// Provider-created accounts are marked verified, since the provider has
// already confirmed the email, and have no password credential.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByEmail(ctx, ghUser.Email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
		}

		firstName, lastName := splitName(ghUser.Name)
		user = &model.User{
			Email:        ghUser.Email,
			FirstName:    firstName,
			LastName:     lastName,
			Role:         model.RoleUser,
			Subscription: model.SubscriptionFree,
			IsVerified:   true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user from GitHub profile: %w", err)
		}

		s.logger.Info("user registered via GitHub",
			slog.String("userID", user.ID),
			slog.String("login", ghUser.Login),
		)
	}

	token, err := s.tokens.GenerateAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// splitName splits a display name like "Ada Lovelace" into first and last
// name on the first space. A single word becomes the first name.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
