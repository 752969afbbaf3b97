package models

import "errors"

var (
	// ErrSizeExceeded rejects uploads over MaxDocumentBytes before any work.
	ErrSizeExceeded = errors.New("document exceeds the 20 MiB upload limit")

	// ErrAlreadyInFlight rejects a second pipeline run or chat request while
	// one is still active. Callers may retry once the current one settles.
	ErrAlreadyInFlight = errors.New("another request is already in flight")

	// ErrServiceUnavailable covers network and service failures on either
	// the analysis or the chat endpoint. There is no automatic retry.
	ErrServiceUnavailable = errors.New("analysis service unavailable")

	// ErrSchemaMismatch marks a service response that failed structural
	// validation. The run is failed hard; nothing is coerced or clamped.
	ErrSchemaMismatch = errors.New("analysis response does not match the result schema")

	// ErrNoAnalysis rejects chat or export calls while no result is active.
	ErrNoAnalysis = errors.New("no analysis result is active")
)
