package oracle

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendant/simple-delegation/pkg/asset"
)

var (
	// ErrAssetNotFound is returned when the asset does not exist (never minted or burned)
	ErrAssetNotFound = errors.New("asset not found")
	// ErrIncorrectOwner is returned when a transfer names a sender that does not own the asset
	ErrIncorrectOwner = errors.New("incorrect owner")
	// ErrInvalidReceiver is returned when minting or transferring to the zero address
	ErrInvalidReceiver = errors.New("invalid receiver")
)

// Oracle is the authoritative source of asset ownership.
// Implementations must answer from live state; callers never cache the result.
type Oracle interface {
	OwnerOf(ctx context.Context, id asset.ID) (common.Address, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, id asset.ID) (common.Address, error)

func (f OracleFunc) OwnerOf(ctx context.Context, id asset.ID) (common.Address, error) {
	return f(ctx, id)
}
