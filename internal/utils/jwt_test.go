package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-booking/internal/model"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(secret, 42, model.RoleProvider, time.Hour)
	require.NoError(t, err)
	assert.True(t, tok.Exp.After(time.Now()))

	p, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.ID)
	assert.Equal(t, model.RoleProvider, p.Role)
}

func TestParseAccessTokenNumericSubject(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"sub": 7, "role": "CUSTOMER", "exp": time.Now().Add(time.Minute).Unix()})
	p, err := ParseAccessToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.ID)
	assert.True(t, p.IsCustomer())
}

func TestParseAccessTokenRejects(t *testing.T) {
	exp := time.Now().Add(time.Minute).Unix()
	expired, err := NewAccessToken(secret, 1, model.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	other, err := NewAccessToken("another-secret", 1, model.RoleAdmin, time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired.Token,
		"wrong secret": other.Token,
		"unknown role": sign(t, jwt.MapClaims{"sub": "1", "role": "OWNER", "exp": exp}),
		"missing sub":  sign(t, jwt.MapClaims{"role": "ADMIN", "exp": exp}),
		"zero sub":     sign(t, jwt.MapClaims{"sub": "0", "role": "ADMIN", "exp": exp}),
		"fraction sub": sign(t, jwt.MapClaims{"sub": 1.5, "role": "ADMIN", "exp": exp}),
		"non-numeric":  sign(t, jwt.MapClaims{"sub": "alice", "role": "ADMIN", "exp": exp}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(secret, raw)
			assert.Error(t, err)
		})
	}
}
