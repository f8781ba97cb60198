// Package delegation implements the NFT delegation registry.
//
// The owner of an asset (collection address plus token id) can grant one
// account time-limited usage rights over it and revoke them early. Ownership
// is never stored here: every privileged call asks the oracle who owns the
// asset right now. A record is active while the current time is before its
// expiry; expiry is evaluated when a record is read and never written back.
//
// # Basic Usage
//
//	repo, _ := delegation.NewDelegationRepository("memory", delegation.RepositoryConfig{})
//	svc := delegation.NewDelegationService(repo, owners,
//		delegation.WithEvents(eventLog),
//	)
//
//	record, err := svc.DelegateAsset(ctx, owner, id, renter, 3600)
//	ok, err := svc.IsDelegate(ctx, id, renter)
//	err = svc.RevokeDelegation(ctx, owner, id)
//
// Calls that touch the same asset are serialized by a per-asset lock, and the
// ownership check runs inside the repository's Update callback. The postgres
// repository holds a transaction scoped advisory lock and the row lock while
// that callback runs, so several registry processes can share one database.
package delegation
