// Package errors provides structured error handling with error codes for simple-delegation.
//
// Every error returned across a package boundary (service to handler, handler to
// client) carries an ErrorCode so callers can branch on the failure kind without
// string matching, and the HTTP layer can map it to a status code.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-delegation/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeInvalidDuration, "duration must be positive")
//
//	// Wrap a sentinel so errors.Is keeps working
//	err := errors.Wrap(delegation.ErrNotAssetOwner, errors.ErrCodeNotAssetOwner, "caller is not the owner")
//
//	// Inspect
//	if errors.IsCode(err, errors.ErrCodeNotAssetOwner) {
//		// ...
//	}
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
