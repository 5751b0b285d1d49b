package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, first_name, last_name, company,
	role, subscription, is_verified, download_count, platform, created_at, updated_at`

// Create inserts a new account. The email is stored lowercased; a duplicate
// (case-insensitive) fails with apperror.ErrConflict. ID, CreatedAt, and
// UpdatedAt are assigned here and written back to the caller's struct.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	// Pre-check for a friendly conflict error. The UNIQUE constraint still
	// backstops the race between check and insert.
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, email,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: checking email %s: %w", email, err)
	}
	if existingID != "" {
		return apperror.Conflict("User with this email already exists")
	}

	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	if user.Subscription == "" {
		user.Subscription = model.SubscriptionFree
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Company,
		string(user.Role),
		string(user.Subscription),
		user.IsVerified,
		user.DownloadCount,
		user.Platform,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", email, err)
	}

	return nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves an account by email, case-insensitively.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// List returns a page of accounts matching opts, newest first, together
// with the total number of matches across all pages.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, int, error) {
	var (
		where []string
		args  []any
	)

	if opts.Search != "" {
		like := "%" + strings.ToLower(opts.Search) + "%"
		where = append(where,
			`(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if opts.Subscription != "" {
		where = append(where, `subscription = ?`)
		args = append(args, string(opts.Subscription))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`+clause, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting users: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+clause+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, total, nil
}

// Update saves all mutable fields of the given record.
// Returns apperror.ErrNotFound if the ID no longer exists.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, company = ?, role = ?,
		     subscription = ?, is_verified = ?, platform = ?, updated_at = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Company,
		string(user.Role),
		string(user.Subscription),
		user.IsVerified,
		user.Platform,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("User")
	}

	return nil
}

// Delete removes an account unconditionally.
// Returns apperror.ErrNotFound if no record existed.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of user %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("User")
	}

	return nil
}

// RecordDownload bumps the account's download counter and records the
// platform in one statement, then returns the updated record. The in-SQL
// increment means two concurrent issuance requests both land.
func (db *DB) RecordDownload(ctx context.Context, id, platform string) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET download_count = download_count + 1, platform = ?, updated_at = ?
		 WHERE id = ?`,
		platform, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recording download for user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking download update for user %s: %w", id, err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("User")
	}

	return db.GetByID(ctx, id)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u            model.User
		role         string
		subscription string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Company,
		&role,
		&subscription,
		&u.IsVerified,
		&u.DownloadCount,
		&u.Platform,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Subscription = model.Subscription(subscription)
	return &u, nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint error.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// message the engine produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
