package engine

import "errors"

// Failure taxonomy for an analysis. Input and malformed-response failures are
// terminal for the current analysis and never produce a partial report;
// enrichment failures are absorbed before they reach this level.
var (
	// ErrEmptyInput rejects missing or blank incident logs before any
	// external call is made.
	ErrEmptyInput = errors.New("incident logs are empty")

	// ErrUpstream wraps model or enrichment transport failures.
	ErrUpstream = errors.New("upstream model failure")

	// ErrMalformedResponse wraps model text that lacks a parseable JSON
	// payload.
	ErrMalformedResponse = errors.New("malformed model response")
)
