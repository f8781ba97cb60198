// Package asset identifies the externally owned items (ERC-721 style NFTs)
// that the delegation registry keeps records for.
package asset

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NoAccount is the zero address. It never owns anything and is never a valid delegate.
var NoAccount = common.Address{}

// ID is the composite key of an asset: collection contract address plus token id.
// It is comparable and can be used directly as a map key.
type ID struct {
	Collection common.Address
	TokenID    uint256.Int
}

// New builds an asset identifier from a collection address and token id
func New(collection common.Address, tokenID uint64) ID {
	var id ID
	id.Collection = collection
	id.TokenID.SetUint64(tokenID)
	return id
}

// Parse builds an asset identifier from a hex collection address and a decimal token id
func Parse(collection, tokenID string) (ID, error) {
	addr, err := ParseAccount(collection)
	if err != nil {
		return ID{}, fmt.Errorf("invalid collection: %w", err)
	}
	tid, err := ParseTokenID(tokenID)
	if err != nil {
		return ID{}, err
	}
	return ID{Collection: addr, TokenID: *tid}, nil
}

// ParseTokenID parses a decimal uint256 token id
func ParseTokenID(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("token id is required")
	}
	if s[0] < '0' || s[0] > '9' {
		return nil, fmt.Errorf("invalid token id %q: must be an unsigned decimal", s)
	}
	tid, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	return tid, nil
}

// ParseAccount parses a 0x-prefixed hex account address. Checksum casing is not enforced.
func ParseAccount(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("not a hex address: %q", s)
	}
	return common.HexToAddress(s), nil
}

// TokenIDString returns the decimal form of the token id
func (id ID) TokenIDString() string {
	return id.TokenID.Dec()
}

// Key returns a stable string form usable for lock names and storage keys
func (id ID) Key() string {
	return strings.ToLower(id.Collection.Hex()) + ":" + id.TokenID.Dec()
}

func (id ID) String() string {
	return id.Collection.Hex() + "#" + id.TokenID.Dec()
}

func (id ID) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("collection", id.Collection.Hex()),
		slog.String("token_id", id.TokenID.Dec()),
	)
}
