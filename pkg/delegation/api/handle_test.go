package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/client"
	"github.com/tendant/simple-delegation/pkg/delegation"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/notification"
	"github.com/tendant/simple-delegation/pkg/openapi"
	"github.com/tendant/simple-delegation/pkg/oracle"
)

const (
	t0        = 1_700_000_000
	jwtSecret = "test-jwt-secret-key"
)

var (
	collection = common.HexToAddress("0xc011ec7100000000000000000000000000000001")
	ownerAcct  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	renterB    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	stranger   = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

type testServer struct {
	router http.Handler
	clock  *clock.Mock
	owners *oracle.InMemOracle
	id     asset.ID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Unix(t0, 0))

	owners := oracle.NewInMemOracleWithClock(mock)
	id, err := owners.Mint(context.Background(), collection, ownerAcct)
	require.NoError(t, err)

	svc := delegation.NewDelegationService(delegation.NewInMemoryDelegationRepository(), owners,
		delegation.WithClock(mock))

	doc, err := openapi.Load(context.Background())
	require.NoError(t, err)

	ja := jwtauth.New("HS256", []byte(jwtSecret), nil)
	r := chi.NewRouter()
	r.Use(client.Verifier(ja))
	r.Use(client.CallerMiddleware)
	r.Mount("/api/v1", Handler(NewDelegationHandler(svc, doc)))

	return &testServer{router: r, clock: mock, owners: owners, id: id}
}

func signToken(t *testing.T, account common.Address) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": account.Hex(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, caller *common.Address, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+signToken(t, *caller))
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) delegationPath() string {
	return fmt.Sprintf("/api/v1/assets/%s/%s/delegation", s.id.Collection.Hex(), s.id.TokenIDString())
}

func (s *testServer) checkPath(account common.Address) string {
	return fmt.Sprintf("/api/v1/assets/%s/%s/delegates/%s", s.id.Collection.Hex(), s.id.TokenIDString(), account.Hex())
}

func delegateBody(delegate common.Address, duration string) string {
	return fmt.Sprintf(`{"delegate":%q,"duration":%s}`, delegate.Hex(), duration)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) pkgerrors.ErrorResponse {
	t.Helper()
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func (s *testServer) isDelegate(t *testing.T, account common.Address) bool {
	t.Helper()
	rr := s.do(t, http.MethodGet, s.checkPath(account), nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var check DelegateCheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &check))
	return check.IsDelegate
}

func TestDelegationLifecycle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPut, s.delegationPath(), &ownerAcct, delegateBody(renterB, "3600"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created DelegationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, renterB.Hex(), created.Delegate)
	assert.Equal(t, uint64(t0+3600), created.Expiry)
	assert.True(t, created.Active)
	assert.Equal(t, "0", created.TokenID)

	s.clock.Set(time.Unix(t0+1000, 0))
	assert.True(t, s.isDelegate(t, renterB))
	assert.False(t, s.isDelegate(t, stranger))

	rr = s.do(t, http.MethodGet, s.delegationPath(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stored DelegationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stored))
	assert.Equal(t, created, stored)

	s.clock.Set(time.Unix(t0+3700, 0))
	assert.False(t, s.isDelegate(t, renterB))

	rr = s.do(t, http.MethodDelete, s.delegationPath(), &ownerAcct, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/events", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var events []notification.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, notification.Delegated, events[0].Kind)
	assert.Equal(t, renterB, events[0].Delegate)
	assert.Equal(t, notification.Revoked, events[1].Kind)

	rr = s.do(t, http.MethodGet, "/api/v1/events?after=1", nil, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].Seq)
}

func TestDelegateAsset_Errors(t *testing.T) {
	zero := common.Address{}

	tests := []struct {
		name       string
		caller     *common.Address
		body       string
		wantStatus int
		wantCode   pkgerrors.ErrorCode
	}{
		{"not owner", &stranger, delegateBody(renterB, "60"), http.StatusForbidden, pkgerrors.ErrCodeNotAssetOwner},
		{"zero delegate", &ownerAcct, delegateBody(zero, "60"), http.StatusBadRequest, pkgerrors.ErrCodeInvalidDelegate},
		{"self delegate", &ownerAcct, delegateBody(ownerAcct, "60"), http.StatusBadRequest, pkgerrors.ErrCodeInvalidDelegate},
		{"zero duration", &ownerAcct, delegateBody(renterB, "0"), http.StatusBadRequest, pkgerrors.ErrCodeInvalidDuration},
		{"negative duration", &ownerAcct, delegateBody(renterB, "-5"), http.StatusBadRequest, pkgerrors.ErrCodeInvalidDuration},
		{"overflow", &ownerAcct, delegateBody(renterB, "18446744073709551615"), http.StatusBadRequest, pkgerrors.ErrCodeDurationOverflow},
		{"beyond uint64", &ownerAcct, delegateBody(renterB, "36893488147419103232"), http.StatusBadRequest, pkgerrors.ErrCodeDurationOverflow},
		{"schema violation", &ownerAcct, `{"delegate":"bob","duration":60}`, http.StatusBadRequest, pkgerrors.ErrCodeValidation},
		{"no caller", nil, delegateBody(renterB, "60"), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rr := s.do(t, http.MethodPut, s.delegationPath(), tt.caller, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
			}
			assert.False(t, s.isDelegate(t, renterB))
		})
	}
}

func TestDelegateAsset_UnknownAsset(t *testing.T) {
	s := newTestServer(t)

	path := fmt.Sprintf("/api/v1/assets/%s/42/delegation", collection.Hex())
	rr := s.do(t, http.MethodPut, path, &ownerAcct, delegateBody(renterB, "60"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, pkgerrors.ErrCodeAssetLookupFailed, decodeError(t, rr).Code)

	rr = s.do(t, http.MethodDelete, path, &ownerAcct, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelegateAsset_AfterTransfer(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPut, s.delegationPath(), &ownerAcct, delegateBody(renterB, "3600"))
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, s.owners.TransferFrom(context.Background(), ownerAcct, ownerAcct, stranger, s.id))

	rr = s.do(t, http.MethodDelete, s.delegationPath(), &ownerAcct, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.True(t, s.isDelegate(t, renterB))

	rr = s.do(t, http.MethodDelete, s.delegationPath(), &stranger, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, s.isDelegate(t, renterB))
}

func TestListDelegations(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPut, s.delegationPath(), &ownerAcct, delegateBody(renterB, "60"))
	require.Equal(t, http.StatusOK, rr.Code)

	var items []DelegationResponse
	rr = s.do(t, http.MethodGet, "/api/v1/delegations?active=true&delegate="+renterB.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Active)

	s.clock.Set(time.Unix(t0+61, 0))
	rr = s.do(t, http.MethodGet, "/api/v1/delegations?active=true", nil, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	assert.Empty(t, items)

	rr = s.do(t, http.MethodGet, "/api/v1/delegations", nil, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.False(t, items[0].Active)

	rr = s.do(t, http.MethodGet, "/api/v1/delegations?active=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidPathParameters(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/assets/not-an-address/0/delegation", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, pkgerrors.ErrCodeInvalidInput, decodeError(t, rr).Code)

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/assets/%s/-1/delegation", collection.Hex()), nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/assets/%s/0/delegates/bob", collection.Hex()), nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/events?after=x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/v1/events?limit=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
