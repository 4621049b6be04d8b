package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "stuhouses", time.Hour)
	token, err := m.GenerateToken(7, RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || !claims.IsAdmin() {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewTokenManager("secret", "stuhouses", time.Hour)

	other, _ := NewTokenManager("other-secret", "stuhouses", time.Hour).GenerateToken(1, RoleUser)
	if _, err := m.ValidateToken(other); err == nil {
		t.Error("expected signature failure")
	}

	foreign, _ := NewTokenManager("secret", "someone-else", time.Hour).GenerateToken(1, RoleUser)
	if _, err := m.ValidateToken(foreign); err == nil {
		t.Error("expected issuer failure")
	}

	expired, _ := NewTokenManager("secret", "stuhouses", -time.Minute).GenerateToken(1, RoleUser)
	if _, err := m.ValidateToken(expired); err == nil {
		t.Error("expected expiry failure")
	}

	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Error("expected parse failure")
	}
}
