package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
	"github.com/tendant/simple-delegation/pkg/asset"
)

// Transfer mirrors the ERC-721 Transfer event. From is the zero address on mint.
type Transfer struct {
	Asset asset.ID
	From  common.Address
	To    common.Address
	At    int64
}

// InMemOracle implements Oracle using in-memory ownership maps.
// Token ids are assigned sequentially per collection starting at 0.
type InMemOracle struct {
	owners    map[asset.ID]common.Address
	nextID    map[common.Address]uint64
	transfers []Transfer
	clock     clock.Clock
	mu        sync.RWMutex
}

// NewInMemOracle creates a new in-memory oracle
func NewInMemOracle() *InMemOracle {
	return NewInMemOracleWithClock(clock.New())
}

// NewInMemOracleWithClock creates a new in-memory oracle stamping transfers with the given clock
func NewInMemOracleWithClock(clk clock.Clock) *InMemOracle {
	return &InMemOracle{
		owners: make(map[asset.ID]common.Address),
		nextID: make(map[common.Address]uint64),
		clock:  clk,
	}
}

// OwnerOf returns the current owner of the asset
func (o *InMemOracle) OwnerOf(ctx context.Context, id asset.ID) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	owner, exists := o.owners[id]
	if !exists {
		return common.Address{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return owner, nil
}

// Mint creates the next token of the collection and assigns it to the receiver
func (o *InMemOracle) Mint(ctx context.Context, collection, to common.Address) (asset.ID, error) {
	if to == asset.NoAccount {
		return asset.ID{}, ErrInvalidReceiver
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	id := asset.New(collection, o.nextID[collection])
	o.nextID[collection]++
	o.owners[id] = to
	o.transfers = append(o.transfers, Transfer{Asset: id, From: asset.NoAccount, To: to, At: o.clock.Now().Unix()})

	slog.Debug("Asset minted", "asset", id, "to", to.Hex())
	return id, nil
}

// TransferFrom moves the asset from one account to another. Only the current
// owner may transfer, and from must name that owner.
func (o *InMemOracle) TransferFrom(ctx context.Context, caller, from, to common.Address, id asset.ID) error {
	if to == asset.NoAccount {
		return ErrInvalidReceiver
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	owner, exists := o.owners[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if owner != from {
		return fmt.Errorf("%w: %s is not the owner of %s", ErrIncorrectOwner, from.Hex(), id)
	}
	if caller != owner {
		return fmt.Errorf("%w: caller %s is not the owner of %s", ErrIncorrectOwner, caller.Hex(), id)
	}

	o.owners[id] = to
	o.transfers = append(o.transfers, Transfer{Asset: id, From: from, To: to, At: o.clock.Now().Unix()})

	slog.Debug("Asset transferred", "asset", id, "from", from.Hex(), "to", to.Hex())
	return nil
}

// Transfers returns a copy of every transfer recorded so far, mints included
func (o *InMemOracle) Transfers() []Transfer {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Transfer, len(o.transfers))
	copy(out, o.transfers)
	return out
}
