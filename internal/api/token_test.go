package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("ops", RoleOperator, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("Subject = %q, want ops", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI should not be empty")
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTokenTTL)
	}
}

func TestGenerateToken_Invalid(t *testing.T) {
	if _, err := GenerateToken("ops", RoleOperator, "", time.Minute); err == nil {
		t.Error("GenerateToken() with empty secret error = nil")
	}
	if _, err := GenerateToken("ops", Role("admin"), testSecret, time.Minute); err == nil {
		t.Error("GenerateToken() with unknown role error = nil")
	}
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(claims Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "ops",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: sign(Claims{RegisteredClaims: expired, Role: RoleViewer}, jwt.SigningMethodHS256, []byte(testSecret))},
		{name: "missing subject", token: sign(Claims{RegisteredClaims: noSubject, Role: RoleViewer}, jwt.SigningMethodHS256, []byte(testSecret))},
		{name: "unknown role", token: sign(Claims{RegisteredClaims: valid, Role: "root"}, jwt.SigningMethodHS256, []byte(testSecret))},
		{name: "wrong algorithm", token: sign(Claims{RegisteredClaims: valid, Role: RoleViewer}, jwt.SigningMethodHS512, []byte(testSecret))},
		{name: "garbage", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestRole_Allows(t *testing.T) {
	tests := []struct {
		role Role
		want Role
		ok   bool
	}{
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleOperator, false},
		{RoleOperator, RoleViewer, true},
		{RoleOperator, RoleOperator, true},
		{Role("guest"), RoleViewer, false},
	}
	for _, tt := range tests {
		if got := tt.role.Allows(tt.want); got != tt.ok {
			t.Errorf("%s.Allows(%s) = %v, want %v", tt.role, tt.want, got, tt.ok)
		}
	}
}
