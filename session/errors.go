package session

import "errors"

// Input validation errors. Transitions that are merely not applicable in the
// current state are reported through a false "applied" result instead.
var (
	ErrInvalidIntensity = errors.New("intensity must be between 1 and 10")
	ErrInvalidPainType  = errors.New("pain type must be one of point, radiating, diffuse, referred")
	ErrInvalidView      = errors.New("body view must be anterior or posterior")
)
