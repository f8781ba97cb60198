package delegation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
	"github.com/tendant/simple-delegation/pkg/asset"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/notification"
	"github.com/tendant/simple-delegation/pkg/oracle"
)

const (
	OpDelegate = "delegate"
	OpRevoke   = "revoke"
	OpCheck    = "is_delegate"

	OutcomeOK = "ok"
)

// Recorder observes registry operations, for example as Prometheus metrics
type Recorder interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

// DelegationService is the delegation registry
type DelegationService struct {
	repo                DelegationRepository
	oracle              oracle.Oracle
	events              *notification.EventLog
	recorder            Recorder
	clock               clock.Clock
	locks               *KeyedMutex
	allowSelfDelegation bool
}

// Option configures a DelegationService
type Option func(*DelegationService)

// WithClock sets the clock used for expiry computation and checks
func WithClock(clk clock.Clock) Option {
	return func(s *DelegationService) {
		s.clock = clk
	}
}

// WithEvents sets the log Delegated and Revoked events are appended to
func WithEvents(events *notification.EventLog) Option {
	return func(s *DelegationService) {
		s.events = events
	}
}

// WithRecorder sets the operation recorder
func WithRecorder(recorder Recorder) Option {
	return func(s *DelegationService) {
		s.recorder = recorder
	}
}

// WithAllowSelfDelegation lets an owner name itself as delegate
func WithAllowSelfDelegation(allow bool) Option {
	return func(s *DelegationService) {
		s.allowSelfDelegation = allow
	}
}

// NewDelegationService creates a registry on top of a repository and an ownership oracle
func NewDelegationService(repo DelegationRepository, owners oracle.Oracle, opts ...Option) *DelegationService {
	s := &DelegationService{
		repo:   repo,
		oracle: owners,
		clock:  clock.New(),
		locks:  NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = notification.NewEventLog(notification.WithClock(s.clock))
	}
	return s
}

// Events returns the log the registry appends to
func (s *DelegationService) Events() *notification.EventLog {
	return s.events
}

// DelegateAsset records delegate as the holder of id's usage rights for
// duration seconds from now, replacing any previous record. Only the current
// owner may call it. The owner lookup runs inside the repository update, so
// it holds the same lock as the write.
func (s *DelegationService) DelegateAsset(ctx context.Context, caller common.Address, id asset.ID, delegate common.Address, duration uint64) (record Record, err error) {
	start := s.clock.Now()
	defer func() { s.observe(OpDelegate, start, err) }()

	if delegate == asset.NoAccount {
		return Record{}, invalidDelegate("delegate is the zero address")
	}
	if duration == 0 {
		return Record{}, invalidDuration()
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	var owner common.Address
	record, err = s.repo.Update(ctx, id, func(current Record, found bool) (Record, error) {
		var err error
		owner, err = s.authorize(ctx, caller, id)
		if err != nil {
			return Record{}, err
		}
		if delegate == owner && !s.allowSelfDelegation {
			return Record{}, invalidDelegate("delegate is the current owner")
		}

		now := s.now()
		if duration > math.MaxUint64-now {
			return Record{}, durationOverflow(now, duration)
		}
		if found && current.IsActive(now) {
			slog.Info("Overwriting active delegation", "asset", id, "previous", current)
		}
		return Record{Delegate: delegate, Expiry: now + duration}, nil
	})
	if err != nil {
		return Record{}, storeFailed(id, err, "failed to store delegation")
	}

	s.events.Append(ctx, notification.NewDelegatedEvent(id, record.Delegate, record.Expiry))
	slog.Info("Asset delegated", "asset", id, "owner", owner.Hex(), "record", record)
	return record, nil
}

// RevokeDelegation clears id's record. It succeeds whether or not a
// delegation existed, and always emits Revoked. Only the current owner may call it.
func (s *DelegationService) RevokeDelegation(ctx context.Context, caller common.Address, id asset.ID) (err error) {
	start := s.clock.Now()
	defer func() { s.observe(OpRevoke, start, err) }()

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	_, err = s.repo.Update(ctx, id, func(current Record, found bool) (Record, error) {
		if _, err := s.authorize(ctx, caller, id); err != nil {
			return Record{}, err
		}
		if !found || !current.IsActive(s.now()) {
			slog.Debug("Revoking inactive delegation", "asset", id, "found", found)
		}
		return Record{}, nil
	})
	if err != nil {
		return storeFailed(id, err, "failed to clear delegation")
	}

	s.events.Append(ctx, notification.NewRevokedEvent(id))
	slog.Info("Delegation revoked", "asset", id, "caller", caller.Hex())
	return nil
}

// IsDelegate reports whether account currently holds id's usage rights.
// It needs no authorization and never consults the oracle.
func (s *DelegationService) IsDelegate(ctx context.Context, id asset.ID, account common.Address) (ok bool, err error) {
	start := s.clock.Now()
	defer func() { s.observe(OpCheck, start, err) }()

	if account == asset.NoAccount {
		return false, nil
	}

	record, found, err := s.repo.Load(ctx, id)
	if err != nil {
		return false, pkgerrors.InternalWrap(err, "failed to load delegation")
	}
	return found && record.IsDelegate(account, s.now()), nil
}

// GetDelegation returns the stored record of id and whether it is active now.
// An asset that was never delegated returns the zero record.
func (s *DelegationService) GetDelegation(ctx context.Context, id asset.ID) (Record, bool, error) {
	record, _, err := s.repo.Load(ctx, id)
	if err != nil {
		return Record{}, false, pkgerrors.InternalWrap(err, "failed to load delegation")
	}
	return record, record.IsActive(s.now()), nil
}

// ListDelegations returns stored records matching filter, ordered by asset
func (s *DelegationService) ListDelegations(ctx context.Context, filter ListFilter) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.InternalWrap(err, "failed to list delegations")
	}

	now := s.now()
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if filter.matches(e, now) {
			e.Active = e.Record.IsActive(now)
			result = append(result, e)
		}
	}
	return result, nil
}

// authorize asks the oracle for the current owner and checks it is the caller
func (s *DelegationService) authorize(ctx context.Context, caller common.Address, id asset.ID) (common.Address, error) {
	owner, err := s.oracle.OwnerOf(ctx, id)
	if err != nil {
		slog.Warn("Owner lookup failed", "asset", id, "err", err)
		return asset.NoAccount, assetLookupFailed(id, err)
	}
	if caller == asset.NoAccount || caller != owner {
		slog.Info("Caller is not the asset owner", "asset", id, "caller", caller.Hex(), "owner", owner.Hex())
		return owner, notAssetOwner(id, caller, owner)
	}
	return owner, nil
}

// storeFailed passes registry errors raised inside an update through and
// reports anything else as an internal storage failure
func storeFailed(id asset.ID, err error, message string) error {
	var coded *pkgerrors.Error
	if errors.As(err, &coded) {
		return err
	}
	slog.Error("Delegation write failed", "asset", id, "err", err)
	return pkgerrors.InternalWrap(err, message)
}

func (s *DelegationService) now() uint64 {
	sec := s.clock.Now().Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}

func (s *DelegationService) observe(op string, start time.Time, err error) {
	if s.recorder == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = string(pkgerrors.GetCode(err))
	}
	s.recorder.ObserveOperation(op, outcome, s.clock.Now().Sub(start))
}
