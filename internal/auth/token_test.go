package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(exp time.Time) Claims {
	return Claims{
		Name: "Dr. Kim",
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "adm_1",
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret-secret")
	issued, err := IssueToken(secret, testClaims(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "adm_1" || claims.Name != "Dr. Kim" || claims.Role != "admin" || claims.ID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.IssuedAt == nil {
		t.Fatal("expected iat to be set")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret-secret")
	issued, err := IssueToken(secret, testClaims(time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued); err != ErrExpiredToken {
		t.Fatalf("ParseToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issued, err := IssueToken([]byte("secret-one"), testClaims(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("secret-two"), issued); err != ErrInvalidToken {
		t.Fatalf("ParseToken() error = %v, want ErrInvalidToken", err)
	}
	if _, err := ParseToken([]byte("secret-one"), "not-a-token"); err != ErrInvalidToken {
		t.Fatalf("ParseToken(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestIssueTokenRequiresIdentity(t *testing.T) {
	claims := testClaims(time.Now().Add(time.Hour))
	claims.Subject = ""
	if _, err := IssueToken([]byte("secret-secret"), claims); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestCookies(t *testing.T) {
	c := SessionCookie("clinic_admin_session", "tok", time.Now().Add(time.Hour), true)
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.MaxAge <= 0 {
		t.Fatalf("unexpected session cookie: %+v", c)
	}
	cleared := ClearCookie("clinic_admin_session", false)
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Fatalf("unexpected cleared cookie: %+v", cleared)
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("HashToken should be deterministic and distinct")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(HashToken("abc")))
	}
}
