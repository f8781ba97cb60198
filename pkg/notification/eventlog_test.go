package notification

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-delegation/pkg/asset"
)

var (
	testCollection = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testDelegate   = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func TestEventLog_AppendStampsEvents(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	log := NewEventLog(WithClock(mock))
	ctx := context.Background()

	assert.Equal(t, uint64(0), log.LastSeq())

	id := asset.New(testCollection, 7)
	first := log.Append(ctx, NewDelegatedEvent(id, testDelegate, 1_700_001_000))
	mock.Add(time.Second)
	second := log.Append(ctx, NewRevokedEvent(id))

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), first.EmittedAt)
	assert.Equal(t, time.Unix(1_700_000_001, 0).UTC(), second.EmittedAt)
	assert.Equal(t, uint64(2), log.LastSeq())

	assert.Equal(t, Delegated, first.Kind)
	assert.Equal(t, testDelegate, first.Delegate)
	assert.Equal(t, uint64(1_700_001_000), first.Expiry)
	assert.Equal(t, "7", first.TokenID)

	assert.Equal(t, Revoked, second.Kind)
	assert.Equal(t, asset.NoAccount, second.Delegate)
	assert.Equal(t, id, second.Asset)
}

func TestEventLog_List(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()
	for i := uint64(0); i < 5; i++ {
		log.Append(ctx, NewRevokedEvent(asset.New(testCollection, i)))
	}

	t.Run("all", func(t *testing.T) {
		events := log.List(0, 0)
		require.Len(t, events, 5)
		for i, e := range events {
			assert.Equal(t, uint64(i+1), e.Seq)
		}
	})

	t.Run("after", func(t *testing.T) {
		events := log.List(3, 0)
		require.Len(t, events, 2)
		assert.Equal(t, uint64(4), events[0].Seq)
	})

	t.Run("limit", func(t *testing.T) {
		events := log.List(1, 2)
		require.Len(t, events, 2)
		assert.Equal(t, uint64(2), events[0].Seq)
		assert.Equal(t, uint64(3), events[1].Seq)
	})

	t.Run("past end", func(t *testing.T) {
		assert.Empty(t, log.List(5, 0))
		assert.Empty(t, log.List(100, 10))
	})
}

func TestEventLog_Capacity(t *testing.T) {
	log := NewEventLog(WithCapacity(3))
	ctx := context.Background()
	for i := uint64(0); i < 10; i++ {
		log.Append(ctx, NewRevokedEvent(asset.New(testCollection, i)))
	}

	events := log.List(0, 0)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(8), events[0].Seq)
	assert.Equal(t, uint64(10), events[2].Seq)
	assert.Equal(t, uint64(10), log.LastSeq())
}

func TestEventLog_Subscribe(t *testing.T) {
	log := NewEventLog()
	ctx := context.Background()

	ch, cancel := log.Subscribe(1)
	log.Append(ctx, NewRevokedEvent(asset.New(testCollection, 1)))
	// buffer is full, live delivery of the second event is dropped
	log.Append(ctx, NewRevokedEvent(asset.New(testCollection, 2)))

	got := <-ch
	assert.Equal(t, uint64(1), got.Seq)

	// the log still has it
	missed := log.List(got.Seq, 0)
	require.Len(t, missed, 1)
	assert.Equal(t, uint64(2), missed[0].Seq)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	// appends after cancel do not panic
	log.Append(ctx, NewRevokedEvent(asset.New(testCollection, 3)))
}
