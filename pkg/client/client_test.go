package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T) *crypto.AccountKey {
	t.Helper()
	a, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	return a
}

func TestNewAccountSignsRequestAndDecodesResponse(t *testing.T) {
	account := newTestAccount(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, wire.RouteNewAccount, r.URL.Path)

		var envelope wire.SignedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		assert.Equal(t, account.PublicKey(), envelope.PublicKey)

		var req wire.NewAccountRequest
		require.NoError(t, wire.Decode(envelope.Body, &req))
		assert.Equal(t, model.Username("alice"), req.Username)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(wire.NewAccountResponse{LastSynced: 1})
	}))
	defer server.Close()

	c := New(server.URL, account)
	resp, err := c.NewAccount("alice", model.SignedFile{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.LastSynced)
}

func TestDoSurfacesServerErrorEnvelope(t *testing.T) {
	account := newTestAccount(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(wire.ErrorEnvelope{InvalidAuth: true})
	}))
	defer server.Close()

	c := New(server.URL, account)
	_, err := c.GetPublicKey("bob")
	require.Error(t, err)

	serverErr, ok := err.(*ServerError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, serverErr.StatusCode)
	assert.True(t, serverErr.Envelope.InvalidAuth)

	coreErr := ToCoreError(err)
	assert.Equal(t, model.KindInsufficientPermission, coreErr.Kind)
}

func TestToCoreErrorMapsClientUpdateRequired(t *testing.T) {
	err := &ServerError{StatusCode: http.StatusUpgradeRequired, Envelope: wire.ErrorEnvelope{ClientUpdateRequired: true}}
	coreErr := ToCoreError(err)
	assert.Equal(t, model.KindClientUpdateRequired, coreErr.Kind)
}

func TestToCoreErrorWrapsNonServerError(t *testing.T) {
	coreErr := ToCoreError(assert.AnError)
	assert.Equal(t, model.KindUnexpected, coreErr.Kind)
}

func TestWithAccountSwitchesSigner(t *testing.T) {
	a1 := newTestAccount(t)
	a2 := newTestAccount(t)

	var seenKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope wire.SignedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		seenKey = envelope.PublicKey
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(wire.GetPublicKeyResponse{})
	}))
	defer server.Close()

	c := New(server.URL, a1).WithAccount(a2)
	_, err := c.GetPublicKey("anyone")
	require.NoError(t, err)
	assert.Equal(t, a2.PublicKey(), seenKey)
}
