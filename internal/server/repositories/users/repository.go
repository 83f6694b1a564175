package users

import (
	"context"

	"github.com/dkorolev/slateboard/internal/server/models"
)

// Repository persists registered identities. Create surfaces
// common.ErrConflict when the generated public key collides with an existing
// one; the caller is expected to regenerate and retry.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// ListCredentials returns id, moniker and private key hash for every
	// registered user. Authentication is a linear scan over these rows:
	// the bearer secret is stored only as a non-invertible hash, so there
	// is nothing to index on.
	ListCredentials(ctx context.Context) ([]*models.User, error)
}
