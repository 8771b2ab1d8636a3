package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	internaljwt "todo-app-backend/internal/jwt"
	"todo-app-backend/internal/model"
)

type memoryRepository struct {
	mu    sync.Mutex
	users map[string]model.UserItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]model.UserItem)}
}

func (m *memoryRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *memoryRepository) FindUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.UserItem{}, ErrNotFound
}

func (m *memoryRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	return user, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memoryRepository) {
	t.Helper()
	issuer, err := internaljwt.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	repo := newMemoryRepository()
	return NewWithRepository(repo, issuer, fixedNow), repo
}

func errorCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	return svcErr.Code
}

func TestRegisterCreatesUserAndToken(t *testing.T) {
	svc, repo := newTestService(t)

	result, err := svc.Register(context.Background(), RegisterParams{
		Name:     "Owner",
		Email:    " Owner@Example.com ",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.User.Email != "owner@example.com" {
		t.Fatalf("expected normalised email, got %s", result.User.Email)
	}
	if result.User.CreatedAt != "2024-01-01T12:00:00Z" {
		t.Fatalf("unexpected createdAt %s", result.User.CreatedAt)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if result.User.PasswordHash == "secret1" || result.User.PasswordHash == "" {
		t.Fatal("expected hashed password")
	}
	if _, err := repo.GetUser(context.Background(), result.User.UserID); err != nil {
		t.Fatalf("user not stored: %v", err)
	}

	identity, err := svc.IdentityFromAuthorizationHeader("Bearer " + result.AccessToken)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity.UserID != result.User.UserID || identity.Email != "owner@example.com" {
		t.Fatalf("unexpected identity %#v", identity)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	params := RegisterParams{Name: "A", Email: "a@example.com", Password: "secret1"}

	if _, err := svc.Register(context.Background(), params); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), params)
	if code := errorCode(t, err); code != ErrorCodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []RegisterParams{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	}
	for _, params := range cases {
		_, err := svc.Register(context.Background(), params)
		if code := errorCode(t, err); code != ErrorCodeValidation {
			t.Fatalf("%#v: expected validation error, got %s", params, code)
		}
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	registered, err := svc.Register(context.Background(), RegisterParams{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginParams{Email: "A@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.UserID != registered.User.UserID {
		t.Fatalf("expected user %s, got %s", registered.User.UserID, result.User.UserID)
	}

	_, err = svc.Login(context.Background(), LoginParams{Email: "a@example.com", Password: "wrong-password"})
	if code := errorCode(t, err); code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", code)
	}

	_, err = svc.Login(context.Background(), LoginParams{Email: "nobody@example.com", Password: "secret1"})
	if code := errorCode(t, err); code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %s", code)
	}
}

func TestMe(t *testing.T) {
	svc, _ := newTestService(t)
	registered, err := svc.Register(context.Background(), RegisterParams{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Me(context.Background(), Identity{UserID: registered.User.UserID})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.Name != "A" {
		t.Fatalf("unexpected user %#v", user)
	}

	_, err = svc.Me(context.Background(), Identity{UserID: "missing"})
	if code := errorCode(t, err); code != ErrorCodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
}

func TestIdentityFromAuthorizationHeaderRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		_, err := svc.IdentityFromAuthorizationHeader(header)
		if code := errorCode(t, err); code != ErrorCodeUnauthorized {
			t.Fatalf("%q: expected unauthorized, got %s", header, code)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	identity, ok := IdentityFrom(ctx)
	if !ok || identity.UserID != "u1" {
		t.Fatalf("unexpected identity %#v %v", identity, ok)
	}

	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatal("expected no identity on bare context")
	}
}
