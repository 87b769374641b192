package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/fieldstock/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"
	crewID := int64(3)
	user := &model.User{ID: 9, Username: "luis", Role: model.RoleInstaller, CrewID: &crewID}

	token, err := GenerateToken(secret, user, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 9 || claims.Username != "luis" || claims.Role != model.RoleInstaller {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.CrewID == nil || *claims.CrewID != 3 {
		t.Errorf("expected crew_id 3, got %v", claims.CrewID)
	}

	actor := claims.Actor()
	if actor.ExcludedFromNotifications() != 9 {
		t.Errorf("installer actor should be excluded from notifications")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}, time.Now())

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	secret := "test"
	token, _ := GenerateToken(secret, &model.User{ID: 1, Username: "old", Role: model.RoleAdmin}, time.Now().Add(-TokenExpiry-time.Hour))
	if _, err := ValidateToken(secret, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	now := time.Now()
	token, _ := GenerateToken(secret, &model.User{ID: 1, Username: "test", Role: model.RoleWarehouse}, now)
	claims, _ := ValidateToken(secret, token)

	diff := now.Add(TokenExpiry).Sub(claims.ExpiresAt.Time)
	if diff < -time.Second || diff > time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPassword(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short password, got %v", err)
	}

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}

func TestValidateTokenRejectsOtherMethods(t *testing.T) {
	claims := Claims{
		UserID: 1,
		Role:   model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	if _, err := ValidateToken("secret", token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}
