// Package client is the HTTP client pkg/core and pkg/sync use to talk to
// a lockbook server (spec §4.6). Grounded on pkg/apiclient/client.go's
// do/get/post/put/patch/delete shape, with the teacher's Bearer-token
// auth replaced by per-request Ed25519 signing (pkg/wire.Sign) since
// lockbook accounts have no password or session token — every request
// authenticates itself.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/wire"
)

// ClientVersion is sent with every request so the server can reject
// clients older than it supports (spec §6 ErrorEnvelope.ClientUpdateRequired).
const ClientVersion = "0.1.0"

// Client is a signed-request HTTP client for the lockbook wire API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	account    *crypto.AccountKey
}

// New creates a client that signs every request with account.
func New(baseURL string, account *crypto.AccountKey) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		account: account,
	}
}

// WithAccount returns a new client that signs as a different account,
// e.g. when pkg/core switches between a freshly imported account and the
// one already active (mirrors apiclient.Client.WithToken's copy-on-write
// shape).
func (c *Client) WithAccount(account *crypto.AccountKey) *Client {
	return &Client{baseURL: c.baseURL, httpClient: c.httpClient, account: account}
}

// do signs body, posts it to path, and decodes the response into result.
// Every route is a POST: the wire contract has no notion of idempotent
// GETs once every request carries a signature and timestamp.
func (c *Client) do(path string, body, result any) error {
	signed, err := wire.Sign(c.account, body, ClientVersion)
	if err != nil {
		return fmt.Errorf("client: sign request: %w", err)
	}

	data, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("client: marshal envelope: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env wire.ErrorEnvelope
		if jsonErr := json.Unmarshal(respBody, &env); jsonErr != nil {
			return &ServerError{StatusCode: resp.StatusCode, Envelope: wire.ErrorEnvelope{InternalError: string(respBody)}}
		}
		return &ServerError{StatusCode: resp.StatusCode, Envelope: env}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}
