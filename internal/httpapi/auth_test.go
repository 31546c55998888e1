package httpapi

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dipclient/internal/api"
)

func TestMintedTokenRoundTrips(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	tok, err := tokens.Mint("alice")
	require.NoError(t, err)

	user, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	// the client reads the same subject without the secret
	user, err = api.Username(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	claims := jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejects(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	tok, err := tokens.Mint("alice")
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Verify(tok)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	expired := NewTokens("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Mint("alice")
	require.NoError(t, err)
	_, err = tokens.Verify(old)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Verify(unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGenerateCodeUsesAlphabet(t *testing.T) {
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, 4)
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
	}
}
