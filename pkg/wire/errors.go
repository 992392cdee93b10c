package wire

import (
	"encoding/json"
	"fmt"
)

// ErrorEnvelope is the tagged-union error shape every route returns on
// failure (spec §6): exactly one of the named top-level kinds is set, or
// Endpoint carries a route-specific error payload. Grounded on the
// teacher's pkg/api.Response error field, generalized from a single
// string into a closed set of variants since the spec requires the
// client to branch on error kind rather than match on message text.
type ErrorEnvelope struct {
	ClientUpdateRequired bool            `json:"client_update_required,omitempty"`
	InvalidAuth          bool            `json:"invalid_auth,omitempty"`
	ExpiredAuth          bool            `json:"expired_auth,omitempty"`
	InternalError        string          `json:"internal_error,omitempty"`
	BadRequest           string          `json:"bad_request,omitempty"`
	Endpoint             json.RawMessage `json:"endpoint,omitempty"`
}

func (e *ErrorEnvelope) Error() string {
	switch {
	case e.ClientUpdateRequired:
		return "client update required"
	case e.InvalidAuth:
		return "invalid auth"
	case e.ExpiredAuth:
		return "expired auth"
	case e.InternalError != "":
		return "internal error: " + e.InternalError
	case e.BadRequest != "":
		return "bad request: " + e.BadRequest
	case len(e.Endpoint) > 0:
		return "endpoint error: " + string(e.Endpoint)
	default:
		return "unknown error"
	}
}

func ClientUpdateRequiredError() *ErrorEnvelope { return &ErrorEnvelope{ClientUpdateRequired: true} }
func InvalidAuthError() *ErrorEnvelope          { return &ErrorEnvelope{InvalidAuth: true} }
func ExpiredAuthError() *ErrorEnvelope          { return &ErrorEnvelope{ExpiredAuth: true} }

func InternalErrorf(format string, args ...any) *ErrorEnvelope {
	return &ErrorEnvelope{InternalError: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...any) *ErrorEnvelope {
	return &ErrorEnvelope{BadRequest: fmt.Sprintf(format, args...)}
}

// EndpointErrorOf encodes a route-specific error value (e.g. a
// DiffRejection) into the Endpoint slot.
func EndpointErrorOf(v any) (*ErrorEnvelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &ErrorEnvelope{Endpoint: raw}, nil
}

// DiffRejectionKind is the closed set of reasons Upsert/ChangeDoc can
// reject a single FileDiff (spec §4.3 Phase 4).
type DiffRejectionKind int

const (
	RejectOldVersionIncorrect DiffRejectionKind = iota
	RejectOldFileNotFound
	RejectValidation
	RejectNotPermissioned
)

func (k DiffRejectionKind) String() string {
	switch k {
	case RejectOldVersionIncorrect:
		return "OldVersionIncorrect"
	case RejectOldFileNotFound:
		return "OldFileNotFound"
	case RejectValidation:
		return "Validation"
	case RejectNotPermissioned:
		return "NotPermissioned"
	default:
		return "Unknown"
	}
}

// DiffRejection reports why the server refused one diff in an Upsert
// batch. ValidationKind is populated only when Kind == RejectValidation.
type DiffRejection struct {
	Kind           DiffRejectionKind `json:"kind"`
	ValidationKind string            `json:"validation_kind,omitempty"`
	Message        string            `json:"message,omitempty"`
}
