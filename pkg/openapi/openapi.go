// Package openapi embeds the HTTP API description and validates request
// bodies against its schemas.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
)

//go:embed openapi.yaml
var specYAML []byte

const (
	DelegateRequestSchema = "DelegateRequest"
	MintRequestSchema     = "MintRequest"
	TransferRequestSchema = "TransferRequest"
)

// Document is the loaded and validated API description
type Document struct {
	doc *openapi3.T
	raw []byte
}

// Load parses the embedded document and validates it
func Load(ctx context.Context) (*Document, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &Document{doc: doc, raw: specYAML}, nil
}

// Version returns info.version of the document
func (d *Document) Version() string {
	return d.doc.Info.Version
}

// ValidateBody checks a JSON request body against a named component schema.
// Violations are returned as VALIDATION_FAILED errors.
func (d *Document) ValidateBody(schemaName string, body []byte) error {
	ref, ok := d.doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return pkgerrors.Newf(pkgerrors.ErrCodeInternal, "unknown schema %s", schemaName)
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeValidation, "request body is not valid JSON")
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeValidation, "request body does not match "+schemaName)
	}
	return nil
}

// Handler serves the raw document
func (d *Document) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(d.raw)
	}
}
