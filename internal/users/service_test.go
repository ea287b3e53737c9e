package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/auth"
	"gorm.io/gorm"
)

type sequentialIDProvider struct {
	counter int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.counter++
	return fmt.Sprintf("user-%d", p.counter), nil
}

var baseTime = time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)

func mustNewService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return baseTime },
		IDProvider: &sequentialIDProvider{},
		Hasher:     auth.NewPasswordHasherWithCost(4),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestRegisterNormalizesEmailAndHashesPassword(t *testing.T) {
	service := mustNewService(t)

	user, err := service.Register(context.Background(), "  Ada@Example.COM ", "correct-horse", "Ada")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}
	if !user.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected creation time %v", user.CreatedAt)
	}
}

func TestRegisterValidation(t *testing.T) {
	service := mustNewService(t)

	testCases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "missing email", email: "", password: "long-enough"},
		{name: "malformed email", email: "not-an-email", password: "long-enough"},
		{name: "short password", email: "ok@example.com", password: "short"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := service.Register(context.Background(), testCase.email, testCase.password, ""); !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service := mustNewService(t)

	if _, err := service.Register(context.Background(), "ada@example.com", "correct-horse", "Ada"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := service.Register(context.Background(), "ADA@example.com", "different-pass", "Imposter"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for duplicate, got %v", err)
	}
}

func TestAuthenticateDoesNotLeakWhichFactorFailed(t *testing.T) {
	service := mustNewService(t)

	if _, err := service.Register(context.Background(), "ada@example.com", "correct-horse", "Ada"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), "nobody@example.com", "correct-horse"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "ada@example.com", "wrong-password"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}

	user, err := service.Authenticate(context.Background(), "Ada@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("expected successful login: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %#v", user)
	}
}

func TestGetUser(t *testing.T) {
	service := mustNewService(t)

	registered, err := service.Register(context.Background(), "ada@example.com", "correct-horse", "Ada")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	fetched, err := service.Get(context.Background(), registered.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.DisplayName != "Ada" {
		t.Fatalf("unexpected display name %q", fetched.DisplayName)
	}

	if _, err := service.Get(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.Get(context.Background(), " "); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for blank id, got %v", err)
	}
}
