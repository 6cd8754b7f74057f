package token

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
	"github.com/veraxlabs/go-access-server/users"
)

// Rotator validates incoming refresh tokens and exchanges them for a fresh
// pair. Consumption of the store entry happens before any business-state
// validation and is irreversible: any gap between checking and deleting would
// be an exploitable race.
type Rotator struct {
	codec   *Codec
	store   refreshstore.Store
	users   users.UserRepo
	issuer  *Issuer
	revoker *RevocationRegistry
}

func NewRotator(codec *Codec, store refreshstore.Store, userRepo users.UserRepo, issuer *Issuer) *Rotator {
	return &Rotator{
		codec:   codec,
		store:   store,
		users:   userRepo,
		issuer:  issuer,
		revoker: NewRevocationRegistry(store),
	}
}

// Refresh runs the rotation protocol:
//
//  1. Verify signature, expiry, and class.
//  2. Atomically consume the store entry.
//  3. Absent entry means the presented token was valid but already rotated,
//     logged out, or reaped. A legitimate client only ever holds the latest
//     token, so this is treated as theft: every outstanding refresh token for
//     the user is revoked and the call is rejected with ErrReuseDetected.
//  4. A consumed record whose stored token differs from the presented string
//     is treated identically.
//  5. Otherwise reload the current user (roles may have changed since the
//     claims were minted; claims are trusted for identity only) and issue a
//     brand-new pair.
func (r *Rotator) Refresh(ctx context.Context, rawRefresh string, device DeviceInfo) (*Pair, error) {
	claims, err := r.codec.Verify(rawRefresh, ClassRefresh)
	if err != nil {
		return nil, err
	}

	record, err := r.store.TakeIfPresent(ctx, claims.Subject, claims.TokenID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return nil, r.containReuse(ctx, claims.Subject)
		}
		return nil, errors.Wrap(err, "Rotator.Refresh TakeIfPresent")
	}

	if record.Token != rawRefresh {
		return nil, r.containReuse(ctx, claims.Subject)
	}

	user, err := r.users.GetByID(claims.Subject)
	if err != nil {
		// The entry is already consumed; contain rather than strand a
		// half-rotated chain for a user record we cannot load.
		if revokeErr := r.containReuse(ctx, claims.Subject); !errors.Is(revokeErr, apperrors.ErrReuseDetected) {
			return nil, revokeErr
		}
		return nil, apperrors.Wrapf(apperrors.ErrUserNotFound, "Rotator.Refresh GetByID: %v", err)
	}
	if user.Blocked {
		if _, revokeErr := r.revoker.RevokeAll(ctx, user.ID); revokeErr != nil {
			return nil, revokeErr
		}
		return nil, apperrors.ErrUserBlocked
	}

	pair, err := r.issuer.IssuePair(ctx, user, device)
	if err != nil {
		return nil, errors.Wrap(err, "Rotator.Refresh IssuePair")
	}
	return pair, nil
}

// containReuse revokes every outstanding refresh token for the user and
// returns ErrReuseDetected. The revocation side effect is never skipped: a
// reuse signal is never downgraded to a plain invalid-token response.
func (r *Rotator) containReuse(ctx context.Context, userID string) error {
	if _, err := r.revoker.RevokeAll(ctx, userID); err != nil {
		return errors.Wrap(err, "Rotator.containReuse RevokeAll")
	}
	return apperrors.ErrReuseDetected
}
