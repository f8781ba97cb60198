package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tendant/simple-delegation/pkg/asset"
)

const erc721OwnerOfABI = `[{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the subset of *ethclient.Client the oracle needs
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthOracle implements Oracle by calling ownerOf on ERC-721 contracts at the latest block
type EthOracle struct {
	caller  ContractCaller
	abi     abi.ABI
	timeout time.Duration
	closer  func()
}

// NewEthOracle creates an oracle on top of an existing contract caller.
// A zero timeout leaves the caller's context deadline untouched.
func NewEthOracle(caller ContractCaller, timeout time.Duration) (*EthOracle, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller cannot be nil")
	}
	parsed, err := abi.JSON(strings.NewReader(erc721OwnerOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-721 ABI: %w", err)
	}
	return &EthOracle{
		caller:  caller,
		abi:     parsed,
		timeout: timeout,
		closer:  func() {},
	}, nil
}

// DialEthOracle connects to an Ethereum JSON-RPC endpoint and returns an oracle using it
func DialEthOracle(ctx context.Context, rpcURL string, timeout time.Duration) (*EthOracle, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}
	o, err := NewEthOracle(client, timeout)
	if err != nil {
		client.Close()
		return nil, err
	}
	o.closer = client.Close
	slog.Info("Ethereum ownership oracle connected", "rpc", rpcURL)
	return o, nil
}

// OwnerOf calls ownerOf(tokenId) on the collection contract
func (o *EthOracle) OwnerOf(ctx context.Context, id asset.ID) (common.Address, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	data, err := o.abi.Pack("ownerOf", id.TokenID.ToBig())
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf call: %w", err)
	}

	collection := id.Collection
	out, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &collection, Data: data}, nil)
	if err != nil {
		// ERC-721 reverts ownerOf for nonexistent tokens
		if isRevert(err) {
			return common.Address{}, fmt.Errorf("%w: ownerOf(%s) reverted: %w", ErrAssetNotFound, id, err)
		}
		return common.Address{}, fmt.Errorf("ownerOf(%s) call failed: %w", id, err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("%w: no contract code at %s", ErrAssetNotFound, collection.Hex())
	}

	values, err := o.abi.Unpack("ownerOf", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf result: %w", err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result length %d", len(values))
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type %T", values[0])
	}
	if owner == asset.NoAccount {
		return common.Address{}, fmt.Errorf("%w: %s has no owner", ErrAssetNotFound, id)
	}
	return owner, nil
}

// revertErrorCode is the JSON-RPC error code geth returns for reverted calls
const revertErrorCode = 3

func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// Close releases the underlying RPC connection when the oracle dialed it
func (o *EthOracle) Close() {
	o.closer()
}
