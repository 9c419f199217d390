package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "42",
		"iss": "async-ledger",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTTokenService_Validate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, "async-ledger")

	claims, err := svc.Validate(signTestToken(t, testJWTSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.OwnerID)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, "async-ledger")

	tests := []struct {
		name   string
		secret string
		mutate func(jwt.MapClaims)
	}{
		{"expired", testJWTSecret, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }},
		{"no expiry", testJWTSecret, func(c jwt.MapClaims) { delete(c, "exp") }},
		{"wrong issuer", testJWTSecret, func(c jwt.MapClaims) { c["iss"] = "someone-else" }},
		{"wrong secret", "another-secret", func(jwt.MapClaims) {}},
		{"missing subject", testJWTSecret, func(c jwt.MapClaims) { delete(c, "sub") }},
		{"non numeric subject", testJWTSecret, func(c jwt.MapClaims) { c["sub"] = "merchant-1" }},
		{"zero subject", testJWTSecret, func(c jwt.MapClaims) { c["sub"] = "0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)

			got, err := svc.Validate(signTestToken(t, tt.secret, claims))
			assert.Nil(t, got)
			assert.Error(t, err)
		})
	}
}

func TestJWTTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, "")

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims())
	s, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = svc.Validate(s)
	assert.Error(t, err)
}

func TestJWTTokenService_IssuerOptional(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, "")
	claims := validClaims()
	claims["iss"] = "anyone"

	got, err := svc.Validate(signTestToken(t, testJWTSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.OwnerID)
}

func TestJWTTokenService_InvalidTokenString(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, "async-ledger")

	_, err := svc.Validate("not.a.valid.jwt")
	assert.Error(t, err)

	_, err = svc.Validate("")
	assert.Error(t, err)
}

func TestJWTTokenService_NoSecret(t *testing.T) {
	svc := NewJWTTokenService("", "async-ledger")

	_, err := svc.Validate(signTestToken(t, testJWTSecret, validClaims()))
	assert.Error(t, err)
}
