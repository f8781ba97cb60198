package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/client"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/openapi"
	"github.com/tendant/simple-delegation/pkg/oracle"
)

const maxBodyBytes = 1 << 12

// DevRole is the token role that may mint and transfer dev tokens
const DevRole = "dev"

// OracleHandler exposes the in-memory ownership oracle for local development
type OracleHandler struct {
	oracle *oracle.InMemOracle
	doc    *openapi.Document
}

func NewOracleHandler(o *oracle.InMemOracle, doc *openapi.Document) *OracleHandler {
	return &OracleHandler{oracle: o, doc: doc}
}

// MintRequest represents the request body for minting a token. To defaults to the caller.
type MintRequest struct {
	To string `json:"to,omitempty"`
}

// TransferRequest represents the request body for transferring a token
type TransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// OwnerResponse represents the current owner of a token
type OwnerResponse struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner"`
}

// Mint handles POST /dev/collections/{collection}/mint
func (h *OracleHandler) Mint(w http.ResponseWriter, r *http.Request) {
	caller, ok := client.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, pkgerrors.New(pkgerrors.ErrCodeMissingCaller, "authentication required"))
		return
	}

	collection, err := asset.ParseAccount(chi.URLParam(r, "collection"))
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("collection", err.Error()))
		return
	}

	var req MintRequest
	if err := h.decode(r, openapi.MintRequestSchema, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	to := caller.Account
	if req.To != "" {
		to, err = asset.ParseAccount(req.To)
		if err != nil {
			writeError(w, r, pkgerrors.InvalidInput("to", err.Error()))
			return
		}
	}

	id, err := h.oracle.Mint(r.Context(), collection, to)
	if err != nil {
		writeError(w, r, mapOracleError(err))
		return
	}

	slog.Info("Token minted", "asset", id, "to", to.Hex(), "caller", caller)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, OwnerResponse{Collection: id.Collection.Hex(), TokenID: id.TokenIDString(), Owner: to.Hex()})
}

// Transfer handles POST /dev/collections/{collection}/tokens/{tokenId}/transfer
func (h *OracleHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := client.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, pkgerrors.New(pkgerrors.ErrCodeMissingCaller, "authentication required"))
		return
	}

	id, err := asset.Parse(chi.URLParam(r, "collection"), chi.URLParam(r, "tokenId"))
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("asset", err.Error()))
		return
	}

	var req TransferRequest
	if err := h.decode(r, openapi.TransferRequestSchema, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := asset.ParseAccount(req.From)
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("from", err.Error()))
		return
	}
	to, err := asset.ParseAccount(req.To)
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("to", err.Error()))
		return
	}

	if err := h.oracle.TransferFrom(r.Context(), caller.Account, from, to, id); err != nil {
		writeError(w, r, mapOracleError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, OwnerResponse{Collection: id.Collection.Hex(), TokenID: id.TokenIDString(), Owner: to.Hex()})
}

// OwnerOf handles GET /dev/collections/{collection}/tokens/{tokenId}/owner
func (h *OracleHandler) OwnerOf(w http.ResponseWriter, r *http.Request) {
	id, err := asset.Parse(chi.URLParam(r, "collection"), chi.URLParam(r, "tokenId"))
	if err != nil {
		writeError(w, r, pkgerrors.InvalidInput("asset", err.Error()))
		return
	}

	owner, err := h.oracle.OwnerOf(r.Context(), id)
	if err != nil {
		writeError(w, r, mapOracleError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, OwnerResponse{Collection: id.Collection.Hex(), TokenID: id.TokenIDString(), Owner: owner.Hex()})
}

func Handler(h *OracleHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/collections/{collection}/tokens/{tokenId}/owner", h.OwnerOf)
	r.Group(func(r chi.Router) {
		r.Use(client.RequireRole(DevRole))
		r.Post("/collections/{collection}/mint", h.Mint)
		r.Post("/collections/{collection}/tokens/{tokenId}/transfer", h.Transfer)
	})

	return r
}

func (h *OracleHandler) decode(r *http.Request, schema string, v interface{}, optional bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return pkgerrors.InvalidInput("body", err.Error())
	}
	if optional && strings.TrimSpace(string(body)) == "" {
		return nil
	}
	if h.doc != nil {
		if err := h.doc.ValidateBody(schema, body); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return pkgerrors.InvalidInput("body", "invalid JSON")
	}
	return nil
}

func mapOracleError(err error) error {
	switch {
	case errors.Is(err, oracle.ErrAssetNotFound):
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeNotFound, "token does not exist")
	case errors.Is(err, oracle.ErrIncorrectOwner):
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeIncorrectOwner, "sender is not the token owner")
	case errors.Is(err, oracle.ErrInvalidReceiver):
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInvalidInput, "invalid receiver")
	default:
		return pkgerrors.InternalWrap(err, "oracle failure")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := pkgerrors.ToResponse(err)
	slog.Debug("Dev oracle request rejected", "path", r.URL.Path, "code", body.Code, "err", err)
	render.Status(r, status)
	render.JSON(w, r, body)
}
