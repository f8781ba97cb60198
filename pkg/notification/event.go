package notification

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tendant/simple-delegation/pkg/asset"
)

// EventKind names a registry notification
type EventKind string

const (
	Delegated EventKind = "Delegated"
	Revoked   EventKind = "Revoked"
)

// Event is one entry of the append-only notification log.
// ID, Seq and EmittedAt are assigned by the EventLog on Append.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Seq        uint64         `json:"seq"`
	Kind       EventKind      `json:"kind"`
	Asset      asset.ID       `json:"-"`
	Collection common.Address `json:"collection"`
	TokenID    string         `json:"token_id"`
	Delegate   common.Address `json:"delegate"`
	Expiry     uint64         `json:"expiry,omitempty"`
	EmittedAt  time.Time      `json:"emitted_at"`
}

// NewDelegatedEvent builds a Delegated(asset, delegate, expiry) event
func NewDelegatedEvent(id asset.ID, delegate common.Address, expiry uint64) Event {
	return Event{
		Kind:       Delegated,
		Asset:      id,
		Collection: id.Collection,
		TokenID:    id.TokenIDString(),
		Delegate:   delegate,
		Expiry:     expiry,
	}
}

// NewRevokedEvent builds a Revoked(asset) event
func NewRevokedEvent(id asset.ID) Event {
	return Event{
		Kind:       Revoked,
		Asset:      id,
		Collection: id.Collection,
		TokenID:    id.TokenIDString(),
	}
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("seq", e.Seq),
		slog.String("kind", string(e.Kind)),
		slog.String("collection", e.Collection.Hex()),
		slog.String("token_id", e.TokenID),
	}
	if e.Kind == Delegated {
		attrs = append(attrs,
			slog.String("delegate", e.Delegate.Hex()),
			slog.Uint64("expiry", e.Expiry),
		)
	}
	return slog.GroupValue(attrs...)
}
