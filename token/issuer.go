package token

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/veraxlabs/go-access-server/token/refreshstore"
	"github.com/veraxlabs/go-access-server/users"
)

// DeviceInfo is the client metadata recorded alongside a refresh token.
type DeviceInfo struct {
	UserAgent string
	IP        string
}

// Pair is one freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Issuer creates token pairs and registers the refresh half in the store.
type Issuer struct {
	codec   *Codec
	store   refreshstore.Store
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(codec *Codec, store refreshstore.Store, options ...IssuerOption) *Issuer {
	i := &Issuer{
		codec:   codec,
		store:   store,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// IssuePair mints a fresh access token and a fresh refresh token for the
// user, and registers the refresh token's store entry under a new random
// token ID. The store entry's TTL matches the refresh token's own expiry.
func (i *Issuer) IssuePair(ctx context.Context, user *users.User, device DeviceInfo) (*Pair, error) {
	tokenID := uuid.New().String()

	accessToken, err := i.codec.IssueAccess(user)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.IssuePair IssueAccess")
	}

	refreshToken, err := i.codec.IssueRefresh(user, tokenID)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.IssuePair IssueRefresh")
	}

	now := i.nowFunc()
	record := &refreshstore.Record{
		Token:      refreshToken,
		UserAgent:  device.UserAgent,
		IP:         device.IP,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := i.store.Put(ctx, user.ID, tokenID, record, i.codec.RefreshExpiry()); err != nil {
		return nil, errors.Wrap(err, "Issuer.IssuePair Put")
	}

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
