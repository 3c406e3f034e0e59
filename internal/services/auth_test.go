package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func TestRegisterLoginRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := fmt.Sprintf("alice-%s@test.edu", uuid.New().String()[:8])

	user, token, err := env.auth.Register(ctx, RegisterInput{
		Email:         email,
		Password:      "hunter2hunter2",
		Name:          "Alice",
		Role:          types.RoleStudent,
		StudentNumber: "S" + uuid.New().String()[:8],
		Major:         "Physics",
		Year:          1,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatal("register returned no token")
	}
	if user.StudentProfile == nil {
		t.Fatal("student registration missing profile")
	}

	caller, err := env.auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if caller.ID != user.ID || caller.Role != types.RoleStudent {
		t.Errorf("claims = %+v, want id %s role student", caller, user.ID)
	}

	if _, _, err := env.auth.Login(ctx, email, "hunter2hunter2"); err != nil {
		t.Errorf("login: %v", err)
	}
	if _, _, err := env.auth.Login(ctx, email, "wrong"); apierr.StatusOf(err) != 401 {
		t.Errorf("expected 401 for bad password, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := fmt.Sprintf("dup-%s@test.edu", uuid.New().String()[:8])

	input := RegisterInput{
		Email:    email,
		Password: "password123",
		Name:     "First",
		Role:     types.RoleAdmin,
	}
	if _, _, err := env.auth.Register(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	input.Name = "Second"
	_, _, err := env.auth.Register(ctx, input)
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.auth.ParseToken("not-a-jwt"); apierr.StatusOf(err) != 401 {
		t.Fatalf("expected 401 for malformed token, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := fmt.Sprintf("carol-%s@test.edu", uuid.New().String()[:8])
	user, _, err := env.auth.Register(ctx, RegisterInput{
		Email:    email,
		Password: "oldpassword",
		Name:     "Carol",
		Role:     types.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := env.auth.ChangePassword(ctx, user.ID, "wrong", "newpassword"); apierr.StatusOf(err) != 401 {
		t.Fatalf("expected 401 for wrong current password, got %v", err)
	}
	if err := env.auth.ChangePassword(ctx, user.ID, "oldpassword", "newpassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := env.auth.Login(ctx, email, "newpassword"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, err := env.auth.Login(ctx, email, "oldpassword"); apierr.StatusOf(err) != 401 {
		t.Errorf("old password should no longer work, got %v", err)
	}
}
