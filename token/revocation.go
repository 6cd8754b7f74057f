package token

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
)

// RevocationRegistry is a thin façade over the store's deletion operations,
// used for logout and theft response. Access tokens are never individually
// revocable; revocation is a property of the refresh token chain.
type RevocationRegistry struct {
	store refreshstore.Store
}

func NewRevocationRegistry(store refreshstore.Store) *RevocationRegistry {
	return &RevocationRegistry{store: store}
}

// RevokeOne deletes exactly one store entry: logout from one device.
// Revoking an already-absent entry is a no-op, not an error.
func (r *RevocationRegistry) RevokeOne(ctx context.Context, userID, tokenID string) error {
	_, err := r.store.TakeIfPresent(ctx, userID, tokenID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return nil
		}
		return errors.Wrap(err, "RevocationRegistry.RevokeOne")
	}
	return nil
}

// RevokeAll deletes every entry for the user: logout everywhere, password
// change, or reuse containment. Idempotent.
func (r *RevocationRegistry) RevokeAll(ctx context.Context, userID string) (int, error) {
	count, err := r.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return count, errors.Wrap(err, "RevocationRegistry.RevokeAll")
	}
	return count, nil
}
