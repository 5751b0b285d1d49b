package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/repository"
)

// Pagination bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// UserService handles account profile management and the admin operations.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// GetByID returns the account for the given internal ID. Used by /user after
// the middleware resolves the principal; the account may have been deleted
// since the token was issued, which surfaces as apperror.ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "User ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// ProfileUpdate is the self-service update payload. Each field is
// independently present-or-absent: a nil pointer leaves the stored value
// untouched, while a pointer to the empty string clears it. Role,
// subscription, and every other privileged field have no representation
// here, so an account holder cannot change them no matter what they send.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Company   *string
}

// UpdateProfile applies the present fields of in to the caller's own record.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Company != nil {
		user.Company = *in.Company
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating profile of %s: %w", id, err)
	}

	s.logger.Info("profile updated", slog.String("userID", id))

	return user, nil
}

// ListParams controls the admin user listing.
type ListParams struct {
	Page         int
	Limit        int
	Search       string
	Subscription string
}

// Pagination describes the page returned by List.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// List returns a filtered page of accounts, newest first. Page numbers start
// at 1; limits are clamped to MaxListLimit. A page past the end is empty
// with the total unchanged.
func (s *UserService) List(ctx context.Context, p ListParams) ([]model.User, Pagination, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}

	sub := model.Subscription(p.Subscription)
	if p.Subscription != "" && !sub.Valid() {
		return nil, Pagination{}, apperror.ValidationFailed("subscription",
			fmt.Sprintf("Unknown subscription tier %q", p.Subscription))
	}

	users, total, err := s.users.List(ctx, repository.ListOptions{
		Search:       p.Search,
		Subscription: sub,
		Limit:        p.Limit,
		Offset:       (p.Page - 1) * p.Limit,
	})
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("service/user: listing users: %w", err)
	}

	return users, Pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: (total + p.Limit - 1) / p.Limit,
	}, nil
}

// AdminUpdate is the privileged update payload. Fields follow the same
// present-or-absent pointer convention as ProfileUpdate; IsVerified being a
// *bool means an explicit false is applied rather than ignored.
type AdminUpdate struct {
	Subscription *string
	Role         *string
	IsVerified   *bool
}

// UpdateUser applies the present fields of in to any target account.
// Enum fields are validated against their recognised sets.
func (s *UserService) UpdateUser(ctx context.Context, id string, in AdminUpdate) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Subscription != nil {
		sub := model.Subscription(*in.Subscription)
		if !sub.Valid() {
			return nil, apperror.ValidationFailed("subscription",
				fmt.Sprintf("Unknown subscription tier %q", *in.Subscription))
		}
		user.Subscription = sub
	}
	if in.Role != nil {
		role := model.Role(*in.Role)
		if !role.Valid() {
			return nil, apperror.ValidationFailed("role",
				fmt.Sprintf("Unknown role %q", *in.Role))
		}
		user.Role = role
	}
	if in.IsVerified != nil {
		user.IsVerified = *in.IsVerified
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated by admin", slog.String("userID", id))

	return user, nil
}

// DeleteUser removes an account unconditionally. The account is the only
// persistent entity, so there is nothing to cascade.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("userId", "User ID is required")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("userID", id))
	return nil
}
