// Package oracle answers "who owns asset X" for the delegation registry.
//
// Two implementations are provided:
//   - InMemOracle: an ERC-721 style ledger with Mint and TransferFrom, used by
//     tests and the in-memory development server.
//   - EthOracle: calls ownerOf(tokenId) on an ERC-721 contract through any
//     go-ethereum ContractCaller (normally an *ethclient.Client).
//
// # Basic Usage
//
//	o := oracle.NewInMemOracle()
//	id, _ := o.Mint(ctx, collection, owner)
//	current, err := o.OwnerOf(ctx, id)
//
//	eth, err := oracle.DialEthOracle(ctx, "https://rpc.example.org", 5*time.Second)
//	defer eth.Close()
package oracle
