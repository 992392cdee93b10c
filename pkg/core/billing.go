package core

import (
	"github.com/lockbook/lockbook-core/pkg/client"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/wire"
)

// toCoreError translates a server round trip's error into the stable
// CoreError taxonomy, covering both ServerError rejections and plain
// transport failures.
func toCoreError(err error) *model.CoreError {
	return client.ToCoreError(err)
}

// UpgradeAccountStripe starts or changes a Stripe-billed subscription
// (spec §6 "upgrade_account_stripe").
func (c *Core) UpgradeAccountStripe(req wire.UpgradeAccountStripeRequest) *model.CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}
	if err := c.server.UpgradeAccountStripe(req); err != nil {
		return toCoreError(err)
	}
	return nil
}

// UpgradeAccountGooglePlay validates a Google Play purchase token against
// the subscription tier (spec §6 "upgrade_account_google_play").
func (c *Core) UpgradeAccountGooglePlay(req wire.UpgradeAccountGooglePlayRequest) *model.CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}
	if err := c.server.UpgradeAccountGooglePlay(req); err != nil {
		return toCoreError(err)
	}
	return nil
}

// UpgradeAccountAppStore validates an App Store transaction (spec §6
// "upgrade_account_app_store").
func (c *Core) UpgradeAccountAppStore(req wire.UpgradeAccountAppStoreRequest) *model.CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}
	if err := c.server.UpgradeAccountAppStore(req); err != nil {
		return toCoreError(err)
	}
	return nil
}

// CancelSubscription cancels the caller's paid tier (spec §6
// "cancel_subscription"); App Store subscriptions can't be cancelled
// server-side and are rejected with KindCannotCancelSubscriptionForAppStore.
func (c *Core) CancelSubscription() *model.CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}
	if err := c.server.CancelSubscription(); err != nil {
		return toCoreError(err)
	}
	return nil
}

// GetSubscriptionInfo reports the caller's current tier and renewal/usage
// details (spec §6 "get_subscription_info").
func (c *Core) GetSubscriptionInfo() (*wire.GetSubscriptionInfoResponse, *model.CoreError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return nil, cerr
	}
	resp, err := c.server.GetSubscriptionInfo()
	if err != nil {
		return nil, toCoreError(err)
	}
	return resp, nil
}
