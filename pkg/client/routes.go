package client

import (
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/wire"
)

// NewAccount registers username/publicKey and plants root (spec §6).
func (c *Client) NewAccount(username model.Username, root model.SignedFile) (*wire.NewAccountResponse, error) {
	req := wire.NewAccountRequest{Username: username, PublicKey: c.account.PublicKey(), Root: root}
	var resp wire.NewAccountResponse
	if err := c.do(wire.RouteNewAccount, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPublicKey resolves username to its current public key.
func (c *Client) GetPublicKey(username model.Username) (string, error) {
	var resp wire.GetPublicKeyResponse
	if err := c.do(wire.RouteGetPublicKey, wire.GetPublicKeyRequest{Username: username}, &resp); err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

// GetUpdates fetches every record changed strictly after sinceVersion
// (spec §4.3 Phase 1).
func (c *Client) GetUpdates(sinceVersion uint64) (*wire.GetUpdatesResponse, error) {
	var resp wire.GetUpdatesResponse
	if err := c.do(wire.RouteGetUpdates, wire.GetUpdatesRequest{SinceVersion: sinceVersion}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upsert submits a batch of metadata diffs (spec §4.3 Phase 4).
func (c *Client) Upsert(diffs []wire.FileDiff) (*wire.UpsertResponse, error) {
	var resp wire.UpsertResponse
	if err := c.do(wire.RouteUpsert, wire.UpsertRequest{Diffs: diffs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangeDoc uploads new document content with its metadata diff.
func (c *Client) ChangeDoc(diff wire.FileDiff, newContent []byte) (*wire.ChangeDocResponse, error) {
	req := wire.ChangeDocRequest{Diff: diff, NewContent: newContent}
	var resp wire.ChangeDocResponse
	if err := c.do(wire.RouteChangeDoc, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDoc fetches a document's encrypted bytes by content address.
func (c *Client) GetDoc(id model.FileId, hmac model.DocHmac) ([]byte, error) {
	var resp wire.GetDocResponse
	if err := c.do(wire.RouteGetDoc, wire.GetDocRequest{Id: id, Hmac: hmac}, &resp); err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// GetUsage reports the caller's storage usage and cap.
func (c *Client) GetUsage() (*wire.GetUsageResponse, error) {
	var resp wire.GetUsageResponse
	if err := c.do(wire.RouteGetUsage, wire.GetUsageRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpgradeAccountStripe(req wire.UpgradeAccountStripeRequest) error {
	return c.do(wire.RouteUpgradeAccountStripe, req, &wire.UpgradeAccountResponse{})
}

func (c *Client) UpgradeAccountGooglePlay(req wire.UpgradeAccountGooglePlayRequest) error {
	return c.do(wire.RouteUpgradeAccountGooglePlay, req, &wire.UpgradeAccountResponse{})
}

func (c *Client) UpgradeAccountAppStore(req wire.UpgradeAccountAppStoreRequest) error {
	return c.do(wire.RouteUpgradeAccountAppStore, req, &wire.UpgradeAccountResponse{})
}

func (c *Client) CancelSubscription() error {
	return c.do(wire.RouteCancelSubscription, wire.CancelSubscriptionRequest{}, &wire.CancelSubscriptionResponse{})
}

func (c *Client) GetSubscriptionInfo() (*wire.GetSubscriptionInfoResponse, error) {
	var resp wire.GetSubscriptionInfoResponse
	if err := c.do(wire.RouteGetSubscriptionInfo, wire.GetSubscriptionInfoRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteAccount() error {
	return c.do(wire.RouteDeleteAccount, wire.DeleteAccountRequest{}, &wire.DeleteAccountResponse{})
}
