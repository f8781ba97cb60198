package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/client"
	"github.com/tendant/simple-delegation/pkg/delegation"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/notification"
	"github.com/tendant/simple-delegation/pkg/openapi"
)

const (
	maxBodyBytes     = 1 << 16
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// DelegationHandler handles HTTP requests for the delegation registry
type DelegationHandler struct {
	delegationService *delegation.DelegationService
	doc               *openapi.Document
}

// NewDelegationHandler creates a new delegation handler. doc may be nil, in
// which case request bodies are not checked against the API description.
func NewDelegationHandler(delegationService *delegation.DelegationService, doc *openapi.Document) *DelegationHandler {
	return &DelegationHandler{
		delegationService: delegationService,
		doc:               doc,
	}
}

// DelegateRequest represents the request body for delegating an asset.
// Duration is kept as a number literal so the full uint64 range survives decoding.
type DelegateRequest struct {
	Delegate string      `json:"delegate"`
	Duration json.Number `json:"duration"`
}

// DelegationResponse represents a stored delegation record
type DelegationResponse struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Delegate   string `json:"delegate"`
	Expiry     uint64 `json:"expiry"`
	Active     bool   `json:"active"`
}

// DelegateCheckResponse represents the answer to an isDelegate query
type DelegateCheckResponse struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Account    string `json:"account"`
	IsDelegate bool   `json:"is_delegate"`
}

func newDelegationResponse(id asset.ID, record delegation.Record, active bool) DelegationResponse {
	return DelegationResponse{
		Collection: id.Collection.Hex(),
		TokenID:    id.TokenIDString(),
		Delegate:   record.Delegate.Hex(),
		Expiry:     record.Expiry,
		Active:     active,
	}
}

// DelegateAsset handles PUT /assets/{collection}/{tokenId}/delegation
func (h *DelegationHandler) DelegateAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := client.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, pkgerrors.New(pkgerrors.ErrCodeMissingCaller, "authentication required"))
		return
	}

	id, err := assetFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("body", err.Error()))
		return
	}
	if h.doc != nil {
		if err := h.doc.ValidateBody(openapi.DelegateRequestSchema, body); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var req DelegateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, pkgerrors.InvalidInput("body", "invalid JSON"))
		return
	}

	delegate, err := asset.ParseAccount(req.Delegate)
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("delegate", err.Error()))
		return
	}

	duration, err := parseDuration(req.Duration)
	if err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.delegationService.DelegateAsset(r.Context(), caller.Account, id, delegate, duration)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, newDelegationResponse(id, record, true))
}

// RevokeDelegation handles DELETE /assets/{collection}/{tokenId}/delegation
func (h *DelegationHandler) RevokeDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := client.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, pkgerrors.New(pkgerrors.ErrCodeMissingCaller, "authentication required"))
		return
	}

	id, err := assetFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.delegationService.RevokeDelegation(r.Context(), caller.Account, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDelegation handles GET /assets/{collection}/{tokenId}/delegation
func (h *DelegationHandler) GetDelegation(w http.ResponseWriter, r *http.Request) {
	id, err := assetFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	record, active, err := h.delegationService.GetDelegation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, newDelegationResponse(id, record, active))
}

// CheckDelegate handles GET /assets/{collection}/{tokenId}/delegates/{account}
func (h *DelegationHandler) CheckDelegate(w http.ResponseWriter, r *http.Request) {
	id, err := assetFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := asset.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("account", err.Error()))
		return
	}

	ok, err := h.delegationService.IsDelegate(r.Context(), id, account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, DelegateCheckResponse{
		Collection: id.Collection.Hex(),
		TokenID:    id.TokenIDString(),
		Account:    account.Hex(),
		IsDelegate: ok,
	})
}

// ListDelegations handles GET /delegations?collection=&delegate=&active=
func (h *DelegationHandler) ListDelegations(w http.ResponseWriter, r *http.Request) {
	var filter delegation.ListFilter
	query := r.URL.Query()

	if v := query.Get("collection"); v != "" {
		addr, err := asset.ParseAccount(v)
		if err != nil {
			writeError(w, r, pkgerrors.InvalidInput("collection", err.Error()))
			return
		}
		filter.Collection = &addr
	}
	if v := query.Get("delegate"); v != "" {
		addr, err := asset.ParseAccount(v)
		if err != nil {
			writeError(w, r, pkgerrors.InvalidInput("delegate", err.Error()))
			return
		}
		filter.Delegate = &addr
	}
	if v := query.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, pkgerrors.InvalidInput("active", "must be true or false"))
			return
		}
		filter.ActiveOnly = active
	}

	entries, err := h.delegationService.ListDelegations(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]DelegationResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, newDelegationResponse(e.Asset, e.Record, e.Active))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, items)
}

// ListEvents handles GET /events?after=&limit=
func (h *DelegationHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var after uint64
	if v := query.Get("after"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, r, pkgerrors.InvalidInput("after", "must be a sequence number"))
			return
		}
		after = parsed
	}

	limit := defaultPageLimit
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, r, pkgerrors.InvalidInput("limit", "must be a positive integer"))
			return
		}
		limit = min(parsed, maxPageLimit)
	}

	events := h.delegationService.Events().List(after, limit)
	if events == nil {
		events = []notification.Event{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, events)
}

// Handler returns the registry routes. Routes that act for a caller require
// CallerMiddleware to run first.
func Handler(h *DelegationHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/assets/{collection}/{tokenId}/delegation", h.GetDelegation)
	r.Get("/assets/{collection}/{tokenId}/delegates/{account}", h.CheckDelegate)
	r.Get("/delegations", h.ListDelegations)
	r.Get("/events", h.ListEvents)

	r.Group(func(r chi.Router) {
		r.Use(client.RequireCaller)
		r.Put("/assets/{collection}/{tokenId}/delegation", h.DelegateAsset)
		r.Delete("/assets/{collection}/{tokenId}/delegation", h.RevokeDelegation)
	})

	return r
}

func assetFromPath(r *http.Request) (asset.ID, error) {
	id, err := asset.Parse(chi.URLParam(r, "collection"), chi.URLParam(r, "tokenId"))
	if err != nil {
		return asset.ID{}, pkgerrors.InvalidInput("asset", err.Error())
	}
	return id, nil
}

// parseDuration accepts a positive decimal number of seconds. Zero and
// negative values are reported as INVALID_DURATION, values beyond uint64
// as DURATION_OVERFLOW.
func parseDuration(n json.Number) (uint64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, pkgerrors.New(pkgerrors.ErrCodeInvalidDuration, "duration is required")
	}
	if strings.HasPrefix(s, "-") {
		return 0, pkgerrors.Wrap(delegation.ErrInvalidDuration, pkgerrors.ErrCodeInvalidDuration, "invalid duration")
	}

	d, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return 0, pkgerrors.Wrap(delegation.ErrDurationOverflow, pkgerrors.ErrCodeDurationOverflow, "duration too large")
		}
		return 0, pkgerrors.New(pkgerrors.ErrCodeInvalidDuration, "duration must be a whole number of seconds")
	}
	return d, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := pkgerrors.ToResponse(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		slog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "code", body.Code)
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
