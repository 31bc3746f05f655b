package auth

import (
	"errors"
	"testing"
)

const testSecret = "test-secret-do-not-use"

func TestGenerateAndParseToken(t *testing.T) {
	user := &User{ID: "usr-abc12345", Role: RoleAdmin}

	token, err := GenerateAccessToken(user, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "usr-abc12345" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := &User{ID: "usr-abc12345", Role: RoleUser}

	token, err := GenerateAccessToken(user, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	user := &User{ID: "usr-abc12345", Role: RoleUser}

	token, err := GenerateAccessToken(user, testSecret, -1)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	// Negative TTL falls back to the default, so the token is valid.
	if _, err := ParseToken(token, testSecret); err != nil {
		t.Errorf("default TTL token rejected: %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := ParseToken(bad, testSecret); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ParseToken(%q): got %v, want ErrTokenInvalid", bad, err)
		}
	}
}

func TestGenerateMailToken(t *testing.T) {
	t1, err := GenerateMailToken()
	if err != nil {
		t.Fatalf("GenerateMailToken: %v", err)
	}
	t2, err := GenerateMailToken()
	if err != nil {
		t.Fatalf("GenerateMailToken: %v", err)
	}
	if len(t1) != mailTokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(t1), mailTokenBytes*2)
	}
	if t1 == t2 {
		t.Error("two tokens should never collide")
	}
}

func TestValidators(t *testing.T) {
	if !IsValidUsername("marie.durand-01") {
		t.Error("valid username rejected")
	}
	if IsValidUsername("") || IsValidUsername("has space") {
		t.Error("invalid username accepted")
	}
	if !IsValidEmail("a@b.co") {
		t.Error("valid email rejected")
	}
	if IsValidEmail("not-an-email") {
		t.Error("invalid email accepted")
	}
	if !IsValidRole(RoleAdmin) || IsValidRole("root") {
		t.Error("role validation broken")
	}
	if !IsValidLanguage("francais") || IsValidLanguage("klingon") {
		t.Error("language validation broken")
	}
}
