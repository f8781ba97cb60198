package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	delegationapi "github.com/tendant/simple-delegation/pkg/delegation/api"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
	"github.com/tendant/simple-delegation/pkg/notification"
	oracleapi "github.com/tendant/simple-delegation/pkg/oracle/api"
)

// APIError is a non-2xx answer from the registry
type APIError struct {
	Status int
	pkgerrors.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("registry returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Code, e.Message, e.Status)
}

// registryClient calls the registry HTTP API
type registryClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newRegistryClient(baseURL, token string, timeout time.Duration) *registryClient {
	return &registryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func assetPath(collection, tokenID string) string {
	return "/assets/" + url.PathEscape(collection) + "/" + url.PathEscape(tokenID)
}

func (c *registryClient) Delegate(ctx context.Context, collection, tokenID, delegate, duration string) (delegationapi.DelegationResponse, error) {
	var out delegationapi.DelegationResponse
	req := delegationapi.DelegateRequest{Delegate: delegate, Duration: json.Number(duration)}
	err := c.do(ctx, http.MethodPut, assetPath(collection, tokenID)+"/delegation", req, &out)
	return out, err
}

func (c *registryClient) Revoke(ctx context.Context, collection, tokenID string) error {
	return c.do(ctx, http.MethodDelete, assetPath(collection, tokenID)+"/delegation", nil, nil)
}

func (c *registryClient) Get(ctx context.Context, collection, tokenID string) (delegationapi.DelegationResponse, error) {
	var out delegationapi.DelegationResponse
	err := c.do(ctx, http.MethodGet, assetPath(collection, tokenID)+"/delegation", nil, &out)
	return out, err
}

func (c *registryClient) Check(ctx context.Context, collection, tokenID, account string) (delegationapi.DelegateCheckResponse, error) {
	var out delegationapi.DelegateCheckResponse
	err := c.do(ctx, http.MethodGet, assetPath(collection, tokenID)+"/delegates/"+url.PathEscape(account), nil, &out)
	return out, err
}

func (c *registryClient) List(ctx context.Context, query url.Values) ([]delegationapi.DelegationResponse, error) {
	var out []delegationapi.DelegationResponse
	err := c.do(ctx, http.MethodGet, "/delegations?"+query.Encode(), nil, &out)
	return out, err
}

func (c *registryClient) Events(ctx context.Context, after uint64, limit int) ([]notification.Event, error) {
	query := url.Values{}
	query.Set("after", fmt.Sprint(after))
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	var out []notification.Event
	err := c.do(ctx, http.MethodGet, "/events?"+query.Encode(), nil, &out)
	return out, err
}

func (c *registryClient) Mint(ctx context.Context, collection, to string) (oracleapi.OwnerResponse, error) {
	var out oracleapi.OwnerResponse
	err := c.do(ctx, http.MethodPost, "/dev/collections/"+url.PathEscape(collection)+"/mint", oracleapi.MintRequest{To: to}, &out)
	return out, err
}

func (c *registryClient) Transfer(ctx context.Context, collection, tokenID, from, to string) (oracleapi.OwnerResponse, error) {
	var out oracleapi.OwnerResponse
	path := "/dev/collections/" + url.PathEscape(collection) + "/tokens/" + url.PathEscape(tokenID) + "/transfer"
	err := c.do(ctx, http.MethodPost, path, oracleapi.TransferRequest{From: from, To: to}, &out)
	return out, err
}

func (c *registryClient) Owner(ctx context.Context, collection, tokenID string) (oracleapi.OwnerResponse, error) {
	var out oracleapi.OwnerResponse
	path := "/dev/collections/" + url.PathEscape(collection) + "/tokens/" + url.PathEscape(tokenID) + "/owner"
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *registryClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		// plain text bodies (401 from the caller middleware) leave Code empty
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.ErrorResponse)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
