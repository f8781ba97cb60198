package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/jwtauth/v5"
	"github.com/tendant/simple-delegation/pkg/asset"
)

// AuthCaller is the account a request acts for. The token's "sub" claim carries
// the account address.
type AuthCaller struct {
	Account common.Address `json:"account"`
	Subject string         `json:"sub"`
	Roles   []string       `json:"roles,omitempty"`
}

func (c AuthCaller) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account", c.Account.Hex()),
		slog.Any("roles", c.Roles),
	)
}

// HasRole reports whether the caller carries any of the roles
func (c AuthCaller) HasRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "delegation context value " + k.name
}

const ACCESS_TOKEN_NAME = "access_token"

var (
	AuthCallerKey = &contextKey{"AuthCaller"}
)

// WithCaller returns a copy of ctx carrying the caller
func WithCaller(ctx context.Context, caller AuthCaller) context.Context {
	return context.WithValue(ctx, AuthCallerKey, caller)
}

// CallerFromContext returns the caller stored by CallerMiddleware
func CallerFromContext(ctx context.Context) (AuthCaller, bool) {
	caller, ok := ctx.Value(AuthCallerKey).(AuthCaller)
	return caller, ok
}

// CallerFromClaims builds the caller from verified token claims
func CallerFromClaims(claims map[string]interface{}) (AuthCaller, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return AuthCaller{}, fmt.Errorf("missing sub claim")
	}

	account, err := asset.ParseAccount(sub)
	if err != nil {
		return AuthCaller{}, fmt.Errorf("sub claim is not an account address: %w", err)
	}
	if account == asset.NoAccount {
		return AuthCaller{}, fmt.Errorf("sub claim is the zero address")
	}

	caller := AuthCaller{Account: account, Subject: sub}
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				caller.Roles = append(caller.Roles, role)
			}
		}
	}
	return caller, nil
}

// CallerMiddleware resolves the caller from a token verified by Verifier.
// Requests without a valid token pass through without a caller; use
// RequireCaller on routes that need one.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || claims == nil {
			if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
				slog.Debug("Ignoring invalid token", "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		caller, err := CallerFromClaims(claims)
		if err != nil {
			slog.Warn("Rejecting token claims", "err", err)
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		slog.Debug("authenticated caller", "caller", caller)
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ACCESS_TOKEN_NAME)
	if err != nil {
		return ""
	}
	return cookie.Value
}
