package auth

import (
	"errors"
	"testing"
	"time"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "itc-trainee-api",
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := testManager()

	token, jti, err := m.GenerateAccessToken(42, "amina@example.com", "company", "company-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token and jti must be non-empty")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "amina@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Role != "company" || claims.CompanyID != "company-1" {
		t.Errorf("role/company = %s/%s", claims.Role, claims.CompanyID)
	}
	if claims.TokenType != "access" {
		t.Errorf("token type = %q", claims.TokenType)
	}
	if claims.ID != jti {
		t.Errorf("jti mismatch: %q vs %q", claims.ID, jti)
	}
	if claims.Issuer != "itc-trainee-api" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := testManager()
	token, _, err := m.GenerateAccessToken(1, "a@b.c", "company", "c1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := NewJWTManager(JWTConfig{Secret: "different", Expiry: time.Hour, RefreshExpiry: time.Hour})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}

	if _, err := m.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s", Expiry: -time.Minute, RefreshExpiry: time.Hour})
	token, _, err := m.GenerateAccessToken(1, "a@b.c", "company", "c1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	m := testManager()

	refresh, _, err := m.GenerateRefreshToken(7, "chidi@example.com", "supervisor", "company-2")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	access, jti, err := m.RefreshAccessToken(refresh)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if jti == "" {
		t.Error("refreshed token must carry a new jti")
	}

	claims, err := m.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != "access" || claims.UserID != 7 || claims.CompanyID != "company-2" {
		t.Errorf("claims = %+v", claims)
	}

	// An access token cannot be used as a refresh token
	if _, _, err := m.RefreshAccessToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh with access token err = %v, want ErrInvalidToken", err)
	}
}

func TestGetTokenExpiry(t *testing.T) {
	m := testManager()
	token, _, err := m.GenerateAccessToken(1, "a@b.c", "company", "c1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	expiry, err := m.GetTokenExpiry(token)
	if err != nil {
		t.Fatalf("GetTokenExpiry: %v", err)
	}
	remaining := time.Until(expiry)
	if remaining < 55*time.Minute || remaining > time.Hour {
		t.Errorf("expiry %v not about an hour out", remaining)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("VerifyPassword with right password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Error("VerifyPassword should reject the wrong password")
	}

	if _, err := HashPassword("short"); err == nil {
		t.Error("HashPassword should reject passwords under the minimum length")
	}
}
