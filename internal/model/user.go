// Package model defines the data structures used throughout the application.
package model

import "time"

// Role controls access to the admin endpoints. Self-service registration
// always produces RoleUser; only an existing admin can promote an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a recognised role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Subscription is the account's billing tier. It gates UI features only;
// the API does not restrict operations by tier.
type Subscription string

const (
	SubscriptionFree       Subscription = "free"
	SubscriptionPro        Subscription = "pro"
	SubscriptionEnterprise Subscription = "enterprise"
)

// Valid reports whether s is a recognised subscription tier.
func (s Subscription) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionPro, SubscriptionEnterprise:
		return true
	}
	return false
}

// User represents a registered account.
//
// Email is the login key and is unique case-insensitively; the repository
// stores it lowercased. PasswordHash holds the bcrypt hash of the account's
// password and is tagged `json:"-"` so marshalling a User always yields a
// sanitized record; the credential can never appear in a response body.
// Accounts created through the OAuth login path have an empty PasswordHash
// and cannot log in with a password.
//
// DownloadCount only ever grows; Platform is overwritten with the platform
// of the most recent download issuance.
type User struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Company       string       `json:"company"`
	Role          Role         `json:"role"`
	Subscription  Subscription `json:"subscription"`
	IsVerified    bool         `json:"isVerified"`
	DownloadCount int          `json:"downloadCount"`
	Platform      string       `json:"platform"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
