package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "+7 (495) 123-45-67", FormatPhone("74951234567"))
	assert.Equal(t, "+7 (916) 000-11-22", FormatPhone("89160001122"))
	assert.Equal(t, "12345", FormatPhone("12345"))
	assert.Equal(t, "7495123456x", FormatPhone("7495123456x"))
	assert.Equal(t, "", FormatPhone(""))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "500.00", FormatPrice(500))
	assert.Equal(t, "1 500.00", FormatPrice(1500))
	assert.Equal(t, "1 234 567.89", FormatPrice(1234567.891))
	assert.Equal(t, "-2 000.50", FormatPrice(-2000.5))
	assert.Equal(t, "0.00", FormatPrice(0))
}

func TestTokenRoundTrip(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)
	defer ConfigureJWT("", defaultTokenTTL)

	token, err := GenerateToken(42, "staff")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, tokenIssuer, claims.Issuer)

	ConfigureJWT("another-secret", time.Hour)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)
	defer ConfigureJWT("", defaultTokenTTL)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)

	otherIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = otherIssuer.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)
}

func TestBlacklist(t *testing.T) {
	token, err := GenerateToken(7, "customer")
	require.NoError(t, err)

	assert.False(t, IsTokenBlacklisted(token))
	BlacklistToken(token, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(token))
	_, err = ValidateToken(token)
	assert.Error(t, err)

	BlacklistToken("stale", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("stale"))
}
