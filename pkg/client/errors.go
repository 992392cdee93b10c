package client

import (
	"fmt"

	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/wire"
)

// ServerError is a failed route call: the HTTP status plus the decoded
// tagged-union ErrorEnvelope (spec §6), grounded on apiclient.APIError's
// Code/Message shape but carrying the closed error variants instead of a
// free-text code string.
type ServerError struct {
	StatusCode int
	Envelope   wire.ErrorEnvelope
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (http %d): %s", e.StatusCode, e.Envelope.Error())
}

// ToCoreError translates a ServerError into the stable model.CoreError
// taxonomy pkg/core surfaces to callers (mirrors apiclient.APIError's
// IsAuthError/IsNotFound helpers, generalized to a Kind switch since this
// error set is closed rather than an open string code).
func ToCoreError(err error) *model.CoreError {
	se, ok := err.(*ServerError)
	if !ok {
		return model.Unexpected(err)
	}
	switch {
	case se.Envelope.ClientUpdateRequired:
		return model.E(model.KindClientUpdateRequired, "server requires a newer client")
	case se.Envelope.InvalidAuth, se.Envelope.ExpiredAuth:
		return model.E(model.KindInsufficientPermission, "%s", se.Envelope.Error())
	default:
		return model.E(model.KindUnexpected, "%s", se.Envelope.Error())
	}
}
