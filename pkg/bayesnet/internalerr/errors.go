package internalerr

import "errors"

// Sentinel errors for inference failures. Callers match with errors.Is;
// the wrapping message carries the offending variable or value.
var (
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrUnknownValue      = errors.New("unknown value")
	ErrMissingCPTEntry   = errors.New("missing cpt entry")
	ErrZeroLikelihood    = errors.New("evidence has zero likelihood")
	ErrNoAcceptedSamples = errors.New("no samples accepted")
	ErrMalformedFile     = errors.New("malformed network file")
	ErrInvalidNetwork    = errors.New("invalid network")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrNoNetwork         = errors.New("no network loaded")
	ErrNotFound          = errors.New("not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
