package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/notification"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("delegate", "ok", 5*time.Millisecond)
	m.ObserveOperation("delegate", "ok", 7*time.Millisecond)
	m.ObserveOperation("delegate", "NOT_ASSET_OWNER", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.operations.WithLabelValues("delegate", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("delegate", "NOT_ASSET_OWNER")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestNotify(t *testing.T) {
	m := New()
	id := asset.New(common.HexToAddress("0x1000000000000000000000000000000000000001"), 3)

	event := notification.NewRevokedEvent(id)
	event.Seq = 12
	require.NoError(t, m.Notify(context.Background(), event))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues("Revoked")))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.lastSeq))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOperation("revoke", "ok", time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `delegation_operations_total{op="revoke",outcome="ok"} 1`)
}
