package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingTokens_IssueParse(t *testing.T) {
	tt := NewTrackingTokens("secret", 30*time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tt.now = func() time.Time { return now }

	tok, exp, err := tt.Issue("ORD-20250101-001")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), exp)

	got, err := tt.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250101-001", got)
}

func TestTrackingTokens_Expired(t *testing.T) {
	tt := NewTrackingTokens("secret", 30*time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tt.now = func() time.Time { return now }

	tok, _, err := tt.Issue("ORD-20250101-001")
	require.NoError(t, err)

	tt.now = func() time.Time { return now.Add(31 * time.Minute) }
	_, err = tt.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTrackingTokens_WrongSecret(t *testing.T) {
	tok, _, err := NewTrackingTokens("secret", time.Minute).Issue("ORD-20250101-001")
	require.NoError(t, err)

	_, err = NewTrackingTokens("other", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTrackingTokens_RejectsOtherAlgorithmAndAudience(t *testing.T) {
	tt := NewTrackingTokens("secret", time.Minute)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "ORD-20250101-001",
		Audience:  jwt.ClaimStrings{trackingAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tt.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAud, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ORD-20250101-001",
		Audience:  jwt.ClaimStrings{"login"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tt.Parse(otherAud)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tt.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
