package service

import (
	"context"
	"testing"

	"github.com/spec-kit/fleet-helpdesk/internal/config"
	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

func newAuthService() (*AuthService, *repository.MemoryUserRepository) {
	users := repository.NewMemoryUserRepository()
	cfg := config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}
	return NewAuthService(cfg, users, nil), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, token, meta, err := svc.Register(ctx, "Ana", "Ana@Fleet.test", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Role != domain.UserRoleClient || user.Email != "ana@fleet.test" || token == "" || meta.SubjectID != user.ID {
		t.Fatalf("unexpected registration %+v %+v", user, meta)
	}

	_, _, _, err = svc.Register(ctx, "Ana", "ana@fleet.test", "s3cret-pass")
	expectCode(t, err, apperrors.CodeEmailTaken)

	_, _, _, err = svc.Register(ctx, "Bo", "bo@fleet.test", "short")
	expectCode(t, err, apperrors.CodeValidationFailed)

	logged, token, _, err := svc.Login(ctx, "ana@fleet.test", "s3cret-pass")
	if err != nil || logged.ID != user.ID {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil || claims.Subject != user.ID || claims.Role != domain.UserRoleClient {
		t.Fatalf("unexpected claims %+v %v", claims, err)
	}

	_, _, _, err = svc.Login(ctx, "ana@fleet.test", "wrong-pass")
	de := expectCode(t, err, apperrors.CodeInvalidCredentials)
	if de.HTTPStatus != 401 {
		t.Fatalf("expected 401, got %d", de.HTTPStatus)
	}
	_, _, _, err = svc.Login(ctx, "nobody@fleet.test", "whatever1")
	expectCode(t, err, apperrors.CodeInvalidCredentials)
}

func TestCreateUserRoles(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	dev, err := svc.CreateUser(ctx, CreateUserInput{Name: "Dev", Email: "dev@fleet.test", Password: "password1", Role: domain.UserRoleDeveloper})
	if err != nil || dev.Role != domain.UserRoleDeveloper {
		t.Fatalf("CreateUser failed: %+v %v", dev, err)
	}
	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "X", Email: "x@fleet.test", Password: "password1", Role: "ROOT"})
	expectCode(t, err, apperrors.CodeValidationFailed)

	got, err := svc.GetUser(ctx, dev.ID)
	if err != nil || got.Email != "dev@fleet.test" {
		t.Fatalf("GetUser failed: %+v %v", got, err)
	}
	_, err = svc.GetUser(ctx, "missing")
	expectCode(t, err, apperrors.CodeUserNotFound)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	svc, users := newAuthService()
	ctx := context.Background()

	if err := svc.EnsureBootstrapAdmin(ctx, "Admin", "", ""); err != nil {
		t.Fatalf("disabled bootstrap returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.EnsureBootstrapAdmin(ctx, "Admin", "root@fleet.test", "changeme!"); err != nil {
			t.Fatalf("EnsureBootstrapAdmin returned error: %v", err)
		}
	}
	admin, err := users.GetByEmail(ctx, "root@fleet.test")
	if err != nil || admin.Role != domain.UserRoleAdmin {
		t.Fatalf("bootstrap admin missing: %+v %v", admin, err)
	}
}
