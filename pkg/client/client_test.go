package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

// CreateTestToken creates a signed JWT for the subject with optional roles
func CreateTestToken(t *testing.T, ja *jwtauth.JWTAuth, sub string, roles ...string) string {
	t.Helper()
	claims := map[string]interface{}{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	_, tokenString, err := ja.Encode(claims)
	require.NoError(t, err)
	return tokenString
}

func newTestServer(ja *jwtauth.JWTAuth, extra ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(caller.Account.Hex()))
	})
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	return Verifier(ja)(CallerMiddleware(h))
}

func TestCallerMiddleware(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-jwt-secret-key"), nil)
	server := newTestServer(ja)

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, ja, testAccount.Hex()))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, testAccount.Hex(), rr.Body.String())
	})

	t.Run("lowercase sub", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ACCESS_TOKEN_NAME, Value: CreateTestToken(t, ja, "0x00000000000000000000000000000000000a11ce")})
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)

		assert.Equal(t, testAccount.Hex(), rr.Body.String())
	})

	t.Run("no token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "anonymous", rr.Body.String())
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwtauth.New("HS256", []byte("another-secret"), nil)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, other, testAccount.Hex()))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		assert.Equal(t, "anonymous", rr.Body.String())
	})

	t.Run("sub is not an address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, ja, "alice"))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("zero address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, ja, common.Address{}.Hex()))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireCaller(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-jwt-secret-key"), nil)
	server := newTestServer(ja, RequireCaller)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, ja, testAccount.Hex()))
	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRole(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-jwt-secret-key"), nil)
	server := newTestServer(ja, RequireRole("minter"))

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"has role", []string{"viewer", "minter"}, http.StatusOK},
		{"missing role", []string{"viewer"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+CreateTestToken(t, ja, testAccount.Hex(), tt.roles...))
			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestCallerFromClaims(t *testing.T) {
	caller, err := CallerFromClaims(map[string]interface{}{
		"sub":   testAccount.Hex(),
		"roles": []interface{}{"minter", 7},
	})
	require.NoError(t, err)
	assert.Equal(t, testAccount, caller.Account)
	assert.Equal(t, []string{"minter"}, caller.Roles)
	assert.True(t, caller.HasRole("minter"))
	assert.False(t, caller.HasRole("admin"))

	_, err = CallerFromClaims(map[string]interface{}{})
	assert.Error(t, err)
}
