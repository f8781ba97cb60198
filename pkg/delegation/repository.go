package delegation

import (
	"context"

	"github.com/tendant/simple-delegation/pkg/asset"
)

// UpdateFunc computes the new record from the current one. found is false when
// the asset has never been stored. Returning an error aborts the update,
// leaves the stored record untouched and is returned from Update unchanged.
type UpdateFunc func(current Record, found bool) (Record, error)

// DelegationRepository stores one record per asset
type DelegationRepository interface {
	// Load returns the stored record, if any
	Load(ctx context.Context, id asset.ID) (Record, bool, error)
	// Update atomically reads, recomputes and writes the record of one asset
	Update(ctx context.Context, id asset.ID, fn UpdateFunc) (Record, error)
	// List returns every stored record ordered by asset key
	List(ctx context.Context) ([]Entry, error)
}
