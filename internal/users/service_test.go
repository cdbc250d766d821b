package users

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/quillworks/quill/backend/internal/auth"
	"github.com/quillworks/quill/backend/internal/identifier"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:users-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: identifier.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestRegisterCreatesAccount(t *testing.T) {
	service := newTestService(t)

	user, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated user id")
	}
	if user.Username != "alice" || user.Email != "alice@x.com" {
		t.Fatalf("unexpected account fields %#v", user)
	}
	if !user.IsActive {
		t.Fatalf("expected new account to be active")
	}
	if user.PasswordHash == "longenough1" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "longenough1",
	}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	_, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "other@x.com", Password: "longenough1",
	})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "longenough1",
	}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	_, err := service.Register(context.Background(), RegisterRequest{
		Username: "bob", Email: "alice@x.com", Password: "longenough1",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	service := newTestService(t)

	_, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "short",
	})
	if !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestAuthenticateAcceptsValidCredentials(t *testing.T) {
	service := newTestService(t)

	registered, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	user, err := service.Authenticate(context.Background(), "alice", "longenough1")
	if err != nil {
		t.Fatalf("unexpected authenticate error: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected same account, got %s and %s", user.ID, registered.ID)
	}
}

func TestAuthenticateFailsUniformly(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "longenough1",
	}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	_, unknownErr := service.Authenticate(context.Background(), "nobody", "longenough1")
	_, wrongErr := service.Authenticate(context.Background(), "alice", "wrongpassword")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected uniform ErrInvalidCredentials, got %v and %v", unknownErr, wrongErr)
	}
}

func TestGetByIDReturnsNotFound(t *testing.T) {
	service := newTestService(t)

	if _, err := service.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
