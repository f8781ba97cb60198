package delegation

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendant/simple-delegation/pkg/asset"
)

// Record is the stored delegation of one asset. A revoked or never delegated
// asset has the zero delegate and expiry 0.
type Record struct {
	Delegate common.Address `json:"delegate"`
	Expiry   uint64         `json:"expiry"` // seconds since epoch
}

// IsActive reports whether the record grants rights at the given time
func (r Record) IsActive(now uint64) bool {
	return r.Delegate != asset.NoAccount && now < r.Expiry
}

// IsDelegate reports whether account holds active rights at the given time
func (r Record) IsDelegate(account common.Address, now uint64) bool {
	return account != asset.NoAccount && r.Delegate == account && now < r.Expiry
}

func (r Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("delegate", r.Delegate.Hex()),
		slog.Uint64("expiry", r.Expiry),
	)
}

// Entry pairs a stored record with its asset. Active is filled in by
// DelegationService.ListDelegations; repositories leave it false.
type Entry struct {
	Asset  asset.ID
	Record Record
	Active bool
}

// ListFilter narrows ListDelegations results
type ListFilter struct {
	Collection *common.Address
	Delegate   *common.Address
	ActiveOnly bool
}

func (f ListFilter) matches(e Entry, now uint64) bool {
	if f.Collection != nil && e.Asset.Collection != *f.Collection {
		return false
	}
	if f.Delegate != nil && e.Record.Delegate != *f.Delegate {
		return false
	}
	if f.ActiveOnly && !e.Record.IsActive(now) {
		return false
	}
	return true
}
