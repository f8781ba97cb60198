package tokengenerator

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-delegation/pkg/client"
)

var account = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func TestJwtTokenGenerator_RoundTrip(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-delegation", "registry")

	tokenStr, expiresAt, err := gen.GenerateToken(account, []string{"operator"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := gen.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, account.Hex(), claims.Subject)
	assert.Equal(t, []string{"operator"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)

	_, err = NewJwtTokenGenerator("other-secret", "", "").ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestJwtTokenGenerator_Expired(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "", "")
	tokenStr, _, err := gen.GenerateToken(account, nil, -time.Minute)
	require.NoError(t, err)

	_, err = gen.ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestJwtTokenGenerator_ZeroAccount(t *testing.T) {
	_, _, err := NewJwtTokenGenerator("test-secret", "", "").GenerateToken(common.Address{}, nil, time.Hour)
	assert.Error(t, err)
}

func TestJwtTokenGenerator_AcceptedByCallerMiddleware(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-delegation", "")
	tokenStr, _, err := gen.GenerateToken(account, []string{"operator"}, time.Hour)
	require.NoError(t, err)

	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	var got client.AuthCaller
	handler := client.Verifier(ja)(client.CallerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = client.CallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, account, got.Account)
	assert.True(t, got.HasRole("operator"))
}
