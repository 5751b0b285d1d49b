package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository. A fake rather
// than a mock framework: its behavior is fully visible here.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	order  []string               // IDs in creation order
	nextID int

	// set to simulate store failures
	createErr error
	getErr    error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range f.users {
		if u.Email == email {
			return apperror.Conflict("User with this email already exists")
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.Email = email
	user.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	if user.Subscription == "" {
		user.Subscription = model.SubscriptionFree
	}
	f.nextID++
	copied := *user
	f.users[user.ID] = &copied
	f.order = append(f.order, user.ID)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("User")
}

func (f *fakeUserRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.User, int, error) {
	var matched []model.User
	// newest first = reverse creation order
	for i := len(f.order) - 1; i >= 0; i-- {
		u := f.users[f.order[i]]
		if opts.Search != "" {
			s := strings.ToLower(opts.Search)
			hay := strings.ToLower(u.Email + " " + u.FirstName + " " + u.LastName + " " + u.Company)
			if !strings.Contains(hay, s) {
				continue
			}
		}
		if opts.Subscription != "" && u.Subscription != opts.Subscription {
			continue
		}
		matched = append(matched, *u)
	}
	total := len(matched)
	if opts.Offset >= total {
		return []model.User{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return matched[opts.Offset:end], total, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("User")
	}
	user.UpdatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("User")
	}
	delete(f.users, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeUserRepo) RecordDownload(ctx context.Context, id, platform string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	u.DownloadCount++
	u.Platform = platform
	copied := *u
	return &copied, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "intentflow-test", 7*24*time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()
	return NewAuthService(repo, newTestTokens(t), auth.NewPasswordServiceForTest(bcrypt.MinCost), testLogger())
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:     "Alice@Example.com",
		Password:  "password-123",
		FirstName: "Alice",
		Company:   "Wonderland Inc",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.Token == "" {
		t.Error("Register() returned an empty token")
	}
	if result.User.Role != model.RoleUser {
		t.Errorf("Role = %q, registration must always produce a plain user", result.User.Role)
	}
	if result.User.Subscription != model.SubscriptionFree {
		t.Errorf("Subscription = %q, want free", result.User.Subscription)
	}
	if result.User.PasswordHash == "password-123" {
		t.Error("password was stored in plaintext")
	}
	if result.User.PasswordHash == "" {
		t.Error("password hash was not stored")
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "password-123"}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "ALICE@EXAMPLE.COM", Password: "other-password"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("store holds %d users after duplicate registration, want 1", len(repo.users))
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	for _, in := range []RegisterInput{
		{Email: "", Password: "password-123"},
		{Email: "alice@example.com", Password: ""},
	} {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Register(%+v) error = %v, want ErrValidation", in, err)
		}
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password-123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "BOB@example.com", "password-123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("Login() returned an empty token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password-123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(ctx, "bob@example.com", "wrong-password")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Login(context.Background(), "nobody@example.com", "password-123")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized (not a not-found leak)", err)
	}
}

func TestLogin_OAuthOnlyAccountHasNoPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@example.com", Name: "Octo Cat",
	}); err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	_, err := svc.Login(ctx, "octo@example.com", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() on an OAuth-only account error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginOrRegisterGitHub_NewAndReturning(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@example.com", Name: "Octo Cat",
	})
	if err != nil {
		t.Fatalf("first login error = %v", err)
	}
	if first.User.FirstName != "Octo" || first.User.LastName != "Cat" {
		t.Errorf("name split = %q/%q, want Octo/Cat", first.User.FirstName, first.User.LastName)
	}
	if !first.User.IsVerified {
		t.Error("provider-created account should be verified")
	}

	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@example.com",
	})
	if err != nil {
		t.Fatalf("second login error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("returning login resolved to %q, want the original account %q", second.User.ID, first.User.ID)
	}
	if len(repo.users) != 1 {
		t.Errorf("store holds %d users, want 1", len(repo.users))
	}
}
