package gateway

import "errors"

var (
	// ErrValidation is returned before any network call when the input is unusable.
	ErrValidation = errors.New("invalid analysis input")
	// ErrMissingCredential means the gateway was built without a Gemini API key.
	ErrMissingCredential = errors.New("Gemini API key not configured")
	// ErrInvalidResponseFormat means the AI reply held no JSON of the expected shape.
	ErrInvalidResponseFormat = errors.New("invalid response format from Gemini")
	// ErrUpstream wraps transport and service failures of the AI call.
	ErrUpstream = errors.New("AI service request failed")
)
