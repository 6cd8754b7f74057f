package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/token"
	"github.com/veraxlabs/go-access-server/users"
)

const (
	testAccessSecret  = "access-secret-1234"
	testRefreshSecret = "refresh-secret-5678"
)

func testUser() *users.User {
	return &users.User{
		ID:    "user-1",
		Email: "john.doe@example.com",
		Roles: []string{"moderator"},
	}
}

func newTestCodec(t *testing.T, options ...token.CodecOption) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(testAccessSecret, testRefreshSecret, options...)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRequiresDisjointSecrets(t *testing.T) {
	_, err := token.NewCodec("same", "same")
	require.Error(t, err)

	_, err = token.NewCodec("", testRefreshSecret)
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	raw, err := codec.IssueAccess(testUser())
	require.NoError(t, err)

	claims, err := codec.Verify(raw, token.ClassAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "john.doe@example.com", claims.Email)
	assert.Equal(t, []string{"moderator"}, claims.Roles)
	assert.Equal(t, token.ClassAccess, claims.Class)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	raw, err := codec.IssueRefresh(testUser(), "token-id-1")
	require.NoError(t, err)

	claims, err := codec.Verify(raw, token.ClassRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "token-id-1", claims.TokenID)
	assert.Equal(t, token.ClassRefresh, claims.Class)
}

func TestIssueRefreshRequiresTokenID(t *testing.T) {
	codec := newTestCodec(t)
	_, err := codec.IssueRefresh(testUser(), "")
	require.Error(t, err)
}

func TestVerifyRejectsCrossClassUse(t *testing.T) {
	codec := newTestCodec(t)

	access, err := codec.IssueAccess(testUser())
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(testUser(), "token-id-1")
	require.NoError(t, err)

	_, err = codec.Verify(access, token.ClassRefresh)
	require.ErrorIs(t, err, apperrors.ErrWrongTokenClass)

	_, err = codec.Verify(refresh, token.ClassAccess)
	require.ErrorIs(t, err, apperrors.ErrWrongTokenClass)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	issuedAt := now.Add(-time.Hour)
	codec := newTestCodec(t,
		token.WithTokenExpiry(15*time.Minute, 168*time.Hour),
		token.WithNowFunc(func() time.Time { return issuedAt }),
	)

	raw, err := codec.IssueAccess(testUser())
	require.NoError(t, err)

	// Verify with the real clock: the token is 45 minutes past expiry.
	verifier := newTestCodec(t, token.WithNowFunc(func() time.Time { return now }))
	_, err = verifier.Verify(raw, token.ClassAccess)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Verify("not-a-token", token.ClassAccess)
	require.ErrorIs(t, err, apperrors.ErrTokenMalformed)

	_, err = codec.Verify("", token.ClassRefresh)
	require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	codec := newTestCodec(t)
	other, err := token.NewCodec("other-access-secret", "other-refresh-secret")
	require.NoError(t, err)

	raw, err := other.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = codec.Verify(raw, token.ClassAccess)
	require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	raw, err := codec.IssueAccess(testUser())
	require.NoError(t, err)
	tampered := raw[:len(raw)-4] + "AAAA"

	_, err = codec.Verify(tampered, token.ClassAccess)
	require.Error(t, err)
}
