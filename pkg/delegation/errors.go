package delegation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendant/simple-delegation/pkg/asset"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/oracle"
)

var (
	ErrNotAssetOwner     = errors.New("delegator is not the owner")
	ErrInvalidDelegate   = errors.New("invalid delegate")
	ErrInvalidDuration   = errors.New("duration must be greater than zero")
	ErrDurationOverflow  = errors.New("expiry overflows the timestamp range")
	ErrAssetLookupFailed = errors.New("asset lookup failed")
)

func notAssetOwner(id asset.ID, caller, owner common.Address) error {
	return pkgerrors.Wrap(fmt.Errorf("%w: %s", ErrNotAssetOwner, id), pkgerrors.ErrCodeNotAssetOwner, "caller is not the current owner").
		WithDetail("asset", id.String()).
		WithDetail("caller", caller.Hex()).
		WithDetail("owner", owner.Hex())
}

func invalidDelegate(reason string) error {
	return pkgerrors.Wrap(fmt.Errorf("%w: %s", ErrInvalidDelegate, reason), pkgerrors.ErrCodeInvalidDelegate, "invalid delegate")
}

func invalidDuration() error {
	return pkgerrors.Wrap(ErrInvalidDuration, pkgerrors.ErrCodeInvalidDuration, "invalid duration")
}

func durationOverflow(now, duration uint64) error {
	return pkgerrors.Wrap(fmt.Errorf("%w: %d + %d", ErrDurationOverflow, now, duration), pkgerrors.ErrCodeDurationOverflow, "duration too large").
		WithDetail("duration", duration)
}

// assetLookupFailed reports a missing token as 404 and an unreachable
// oracle as 503
func assetLookupFailed(id asset.ID, err error) error {
	e := pkgerrors.Wrap(fmt.Errorf("%w: %s: %w", ErrAssetLookupFailed, id, err), pkgerrors.ErrCodeAssetLookupFailed, "could not resolve asset owner").
		WithDetail("asset", id.String())
	if errors.Is(err, oracle.ErrAssetNotFound) {
		return e.WithDetail("reason", "not_found")
	}
	return e.WithDetail("reason", "unavailable").WithStatus(http.StatusServiceUnavailable)
}
