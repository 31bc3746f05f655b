package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := &User{
		Username:     "marie",
		Email:        "marie@example.com",
		FirstName:    "Marie",
		LastName:     "Durand",
		Company:      "BrightMind",
		Language:     "francais",
		PasswordHash: "x",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Error("expected generated ID")
	}
	if user.Role != RoleUser {
		t.Errorf("role = %q, want user default", user.Role)
	}

	got, err := repo.GetByUsername(context.Background(), "marie")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.Email != "marie@example.com" || got.Language != "francais" {
		t.Errorf("got %+v", got)
	}
	if got.Verified || got.Blocked {
		t.Error("new accounts start unverified and unblocked")
	}

	byEmail, err := repo.GetByEmail(context.Background(), "marie@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("email lookup returned %s, want %s", byEmail.ID, user.ID)
	}
}

func TestUserRepository_DuplicateUsernameAndEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	seedTestUser(t, db, "marie", RoleUser)

	err := repo.Create(context.Background(), &User{
		Username: "marie", Email: "other@example.com", PasswordHash: "x",
	})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("duplicate username: got %v, want ErrUsernameExists", err)
	}

	err = repo.Create(context.Background(), &User{
		Username: "marie2", Email: "marie@example.com", PasswordHash: "x",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email: got %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_GetNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	if _, err := repo.GetByID(context.Background(), "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UpdateRoleAndBlock(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := seedTestUser(t, db, "jack", RoleUser)

	if err := repo.UpdateRole(context.Background(), user.ID, RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if err := repo.SetBlocked(context.Background(), user.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}
	if !got.Blocked {
		t.Error("expected blocked account")
	}
}

func TestUserRepository_ResetTokenLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := seedTestUser(t, db, "jack", RoleUser)

	expires := time.Now().UTC().Add(24 * time.Hour)
	if err := repo.SetResetToken(context.Background(), user.ID, "tok-abc", expires); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	got, err := repo.GetByResetToken(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("GetByResetToken: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("token lookup returned %s", got.ID)
	}
	if got.ResetExpires == nil || got.ResetExpires.Before(time.Now()) {
		t.Errorf("reset expiry = %v", got.ResetExpires)
	}

	// Setting the new password consumes the token.
	hash, err := HashPassword("new-password")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if err := repo.UpdatePassword(context.Background(), user.ID, hash); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := repo.GetByResetToken(context.Background(), "tok-abc"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("token survived password update: %v", err)
	}
}

func TestUserRepository_MarkVerified(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := &User{
		Username:          "newbie",
		Email:             "newbie@example.com",
		PasswordHash:      "x",
		VerificationToken: "ver-123",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByVerificationToken(context.Background(), "ver-123")
	if err != nil {
		t.Fatalf("GetByVerificationToken: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("lookup returned %s", found.ID)
	}

	if err := repo.MarkVerified(context.Background(), user.ID); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Verified {
		t.Error("account not verified")
	}
	if got.VerificationToken != "" {
		t.Errorf("verification token survived: %q", got.VerificationToken)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	seedTestUser(t, db, "a", RoleUser)
	seedTestUser(t, db, "b", RoleAdmin)

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := seedTestUser(t, db, "doomed", RoleUser)
	if err := repo.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(context.Background(), user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete: got %v, want ErrUserNotFound", err)
	}
}
