package token_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veraxlabs/go-access-server/token"
)

func TestIssuePairRegistersRefreshToken(t *testing.T) {
	f := setupRotationFixture(t)
	ctx := context.Background()

	pair := f.login(t)

	accessClaims, err := f.codec.Verify(pair.AccessToken, token.ClassAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", accessClaims.Subject)

	refreshClaims, err := f.codec.Verify(pair.RefreshToken, token.ClassRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.Subject)
	assert.NotEmpty(t, refreshClaims.TokenID)

	exists, err := f.store.Exists(ctx, "user-1", refreshClaims.TokenID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIssuePairYieldsIndependentSessions(t *testing.T) {
	f := setupRotationFixture(t)

	first := f.login(t)
	second := f.login(t)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	firstID := refreshTokenID(t, f.codec, first.RefreshToken)
	secondID := refreshTokenID(t, f.codec, second.RefreshToken)
	assert.NotEqual(t, firstID, secondID)
}

func TestIssuePairRecordsDeviceMetadata(t *testing.T) {
	f := setupRotationFixture(t)
	ctx := context.Background()

	user, err := f.users.GetByID("user-1")
	require.NoError(t, err)
	pair, err := f.issuer.IssuePair(ctx, user, token.DeviceInfo{UserAgent: "phone-app", IP: "10.0.0.9"})
	require.NoError(t, err)

	record, err := f.store.TakeIfPresent(ctx, "user-1", refreshTokenID(t, f.codec, pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, record.Token)
	assert.Equal(t, "phone-app", record.UserAgent)
	assert.Equal(t, "10.0.0.9", record.IP)
	assert.False(t, record.CreatedAt.IsZero())
}
