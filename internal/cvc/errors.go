package cvc

import "errors"

// Certificate profile errors. They signal malformed payloads or certificate
// data and are never retried.
var (
	// ErrProfileMismatch is returned when the profile identifier byte does not
	// belong to the profile parsing the payload.
	ErrProfileMismatch = errors.New("cvc: certificate profile identifier mismatch")

	// ErrUnknownProfile is returned for a profile identifier no profile is
	// registered for.
	ErrUnknownProfile = errors.New("cvc: unknown certificate profile")

	// ErrOIDMismatch is returned when the embedded object identifier is not the
	// one registered for the profile.
	ErrOIDMismatch = errors.New("cvc: object identifier mismatch")

	// ErrTrailingData is returned when bytes remain after a fixed layout payload.
	ErrTrailingData = errors.New("cvc: data remaining after payload")

	// ErrFieldSize is returned when a field has the wrong length or padding it
	// to size would drop non-zero bytes.
	ErrFieldSize = errors.New("cvc: invalid field size")

	// ErrMissingField is returned when a field is absent but required, or
	// present but not allowed.
	ErrMissingField = errors.New("cvc: missing or unexpected field")

	// ErrExponentPolicy is returned when the public exponent is not 65537.
	ErrExponentPolicy = errors.New("cvc: public exponent must be 65537")
)
