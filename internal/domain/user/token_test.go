package user

import (
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueToken(secret, "jdoe", RolePharmacist, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Username != "jdoe" {
		t.Errorf("expected username jdoe, got %q", claims.Username)
	}
	if claims.Role != RolePharmacist {
		t.Errorf("expected role pharmacist, got %q", claims.Role)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), "jdoe", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := ParseToken([]byte("secret-b"), token); err == nil {
		t.Fatal("expected a signature error")
	}
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueToken(secret, "jdoe", RoleAdmin, -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := ParseToken(secret, token); err == nil {
		t.Fatal("expected an expiry error")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken([]byte("test-secret"), "not-a-token"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestCheckPassword(t *testing.T) {
	u := &User{Username: "jdoe", PasswordHash: HashPassword("pharmacy123")}

	if !u.CheckPassword("pharmacy123") {
		t.Error("correct password rejected")
	}
	if u.CheckPassword("wrong") {
		t.Error("wrong password accepted")
	}
}
