package service

import (
	"context"
	"errors"
	"testing"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/model"
)

// seedUser creates an account directly in the fake repo.
func seedUser(t *testing.T, repo *fakeUserRepo, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "$2a$04$fakehash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateProfile_PresentFieldsOnly(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()

	u := seedUser(t, repo, "alice@example.com")
	u.FirstName = "Alice"
	u.Company = "Wonderland Inc"
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	// Absent fields stay; a present empty string clears.
	got, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{
		LastName: strPtr("Liddell"),
		Company:  strPtr(""),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if got.FirstName != "Alice" {
		t.Errorf("FirstName = %q, absent field must be untouched", got.FirstName)
	}
	if got.LastName != "Liddell" {
		t.Errorf("LastName = %q, want Liddell", got.LastName)
	}
	if got.Company != "" {
		t.Errorf("Company = %q, explicit empty string must clear it", got.Company)
	}
}

func TestUpdateProfile_CannotTouchPrivilegedFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()

	u := seedUser(t, repo, "alice@example.com")

	// ProfileUpdate has no role or subscription fields at all; after any
	// profile update the stored values must be what they were.
	if _, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{FirstName: strPtr("Mallory")}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	stored, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Role != model.RoleUser {
		t.Errorf("Role = %q after profile update, want user", stored.Role)
	}
	if stored.Subscription != model.SubscriptionFree {
		t.Errorf("Subscription = %q after profile update, want free", stored.Subscription)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), testLogger())

	_, err := svc.UpdateProfile(context.Background(), "missing", ProfileUpdate{FirstName: strPtr("X")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

func TestList_DefaultsAndClamping(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedUser(t, repo, string(rune('a'+i))+"@example.com")
	}

	_, pagination, err := svc.List(ctx, ListParams{Page: 0, Limit: 0})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if pagination.Page != 1 || pagination.Limit != DefaultListLimit {
		t.Errorf("pagination = %+v, want page 1 and the default limit", pagination)
	}

	_, pagination, err = svc.List(ctx, ListParams{Page: 1, Limit: 10000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if pagination.Limit != MaxListLimit {
		t.Errorf("Limit = %d, want clamped to %d", pagination.Limit, MaxListLimit)
	}
}

func TestList_PaginationMath(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedUser(t, repo, string(rune('a'+i))+"@example.com")
	}

	// count=5, limit=2: last page (3) holds the remainder of 1.
	users, pagination, err := svc.List(ctx, ListParams{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if pagination.Pages != 3 || pagination.Total != 5 {
		t.Errorf("pagination = %+v, want total 5 across 3 pages", pagination)
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d on the last page, want 1", len(users))
	}

	// Beyond the last page: empty, total unchanged.
	users, pagination, err = svc.List(ctx, ListParams{Page: 9, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 0 || pagination.Total != 5 {
		t.Errorf("page past the end: users=%d total=%d, want 0 and 5", len(users), pagination.Total)
	}
}

func TestList_InvalidSubscription(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), testLogger())

	_, _, err := svc.List(context.Background(), ListParams{Subscription: "platinum"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("List() error = %v, want ErrValidation", err)
	}
}

func TestUpdateUser_AdminFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()

	u := seedUser(t, repo, "bob@example.com")

	got, err := svc.UpdateUser(ctx, u.ID, AdminUpdate{
		Subscription: strPtr("enterprise"),
		Role:         strPtr("admin"),
		IsVerified:   boolPtr(true),
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got.Subscription != model.SubscriptionEnterprise {
		t.Errorf("Subscription = %q, want enterprise", got.Subscription)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", got.Role)
	}
	if !got.IsVerified {
		t.Error("IsVerified should be true")
	}

	// An explicit false must be applied, not treated as omitted.
	got, err = svc.UpdateUser(ctx, u.ID, AdminUpdate{IsVerified: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got.IsVerified {
		t.Error("explicit isVerified=false was ignored")
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q changed by an update that did not include it", got.Role)
	}
}

func TestUpdateUser_RejectsUnknownEnums(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()
	u := seedUser(t, repo, "bob@example.com")

	if _, err := svc.UpdateUser(ctx, u.ID, AdminUpdate{Role: strPtr("superuser")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateUser(role=superuser) error = %v, want ErrValidation", err)
	}
	if _, err := svc.UpdateUser(ctx, u.ID, AdminUpdate{Subscription: strPtr("platinum")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateUser(subscription=platinum) error = %v, want ErrValidation", err)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), testLogger())

	_, err := svc.UpdateUser(context.Background(), "missing", AdminUpdate{Role: strPtr("admin")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testLogger())
	ctx := context.Background()
	u := seedUser(t, repo, "gone@example.com")

	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := svc.DeleteUser(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
}
