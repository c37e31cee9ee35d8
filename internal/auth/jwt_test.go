package auth

import (
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken("profile-123", "0xabc")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.ProfileID != "profile-123" {
		t.Errorf("expected profile-123, got %s", claims.ProfileID)
	}
	if claims.WalletAddress != "0xabc" {
		t.Errorf("expected wallet 0xabc, got %s", claims.WalletAddress)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	InitJWT("secret-one")
	token, err := GenerateToken("profile-123", "0xabc")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	InitJWT("secret-two")
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("expected validation failure for malformed token")
	}
}
