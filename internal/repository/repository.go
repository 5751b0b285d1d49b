// Package repository defines the persistence interfaces consumed by the
// service layer. The sqlite subpackage provides the implementation; services
// depend only on these interfaces so tests can substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/intentflow/backend/internal/model"
)

// ListOptions controls filtered, paginated account listing.
//
// Search is a case-insensitive substring matched against email, first name,
// last name, and company. Subscription, when non-empty, narrows to accounts
// with that exact tier. Results are ordered newest first.
type ListOptions struct {
	Search       string
	Subscription model.Subscription
	Limit        int
	Offset       int
}

// UserRepository is the persistent account store.
//
// Create assigns ID and timestamps and fails with apperror.ErrConflict if
// the email is already taken (case-insensitive). Update saves the full
// record; partial-update semantics live in the service layer. Both Update
// and Delete fail with apperror.ErrNotFound for an absent ID.
//
// RecordDownload increments the account's download counter and overwrites
// its platform in a single statement, so concurrent issuance requests cannot
// lose an increment. It returns the updated record.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, int, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	RecordDownload(ctx context.Context, id, platform string) (*model.User, error)
}
