package sdk_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("kindadmin-test-signing-key")

// signedToken returns an HS256 token carrying claims.
func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return token
}

// tokenExpiringIn returns a token whose exp claim is now+d.
func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	return signedToken(t, jwt.MapClaims{
		"sub":   "42",
		"email": "admin@bekind.network",
		"exp":   time.Now().Add(d).Unix(),
	})
}
