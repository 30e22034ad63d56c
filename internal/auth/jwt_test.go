package auth

import (
	"testing"
	"time"

	"billing-relay/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", JWTIssuer: "billing-relay", JWTTTL: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateToken("user-1", "u1@example.com", cfg)
	require.NoError(t, err)

	claims, err := ParseAndValidateToken(tok, cfg)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "u1@example.com", claims.Email)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateToken("user-1", "", cfg)
	require.NoError(t, err)

	other := cfg
	other.JWTSecret = "another-secret"
	_, err = ParseAndValidateToken(tok, other)
	assert.Error(t, err)

	other = cfg
	other.JWTIssuer = "someone-else"
	_, err = ParseAndValidateToken(tok, other)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.JWTTTL = -time.Hour
	tok, err := GenerateToken("user-1", "", cfg)
	require.NoError(t, err)

	_, err = ParseAndValidateToken(tok, cfg)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	cfg := testConfig()
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWTIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAndValidateToken(s, cfg)
	assert.Error(t, err)
}

func TestSecretRequired(t *testing.T) {
	_, err := GenerateToken("user-1", "", config.Config{})
	assert.ErrorIs(t, err, ErrSecretMissing)
	_, err = ParseAndValidateToken("x.y.z", config.Config{})
	assert.ErrorIs(t, err, ErrSecretMissing)
	_, err = GenerateToken(" ", "", testConfig())
	assert.Error(t, err)
}
