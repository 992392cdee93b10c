package core

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lockbook/lockbook-core/pkg/localstore"
	"github.com/lockbook/lockbook-core/pkg/model"
	lbsync "github.com/lockbook/lockbook-core/pkg/sync"
)

// WorkSummary reports pending sync work without performing any of it
// (spec §6 "calculate_work"): how many local edits are waiting to push,
// and the version the server is currently ahead to.
type WorkSummary struct {
	LocalChanges    int
	ServerAsOf      uint64
	LastPulledAsOf  uint64
}

// CalculateWork reports the work a Sync call would do, read-only (spec §6
// "calculate_work" is a dry run: UIs poll it to decide whether to show a
// sync button or a spinner).
func (c *Core) CalculateWork() (*WorkSummary, *model.CoreError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return nil, cerr
	}

	var localCount int
	var sinceVersion uint64
	err := c.local.WithTransaction(func(tx *localstore.Transaction) error {
		local, err := tx.LoadLocalTree()
		if err != nil {
			return err
		}
		localCount = len(local.Ids())

		base, err := tx.LoadBaseTree()
		if err != nil {
			return err
		}
		for _, id := range base.Ids() {
			if rec, ok := base.Get(id); ok && rec.File.Version > sinceVersion {
				sinceVersion = rec.File.Version
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.Unexpected(err)
	}

	resp, netErr := c.server.GetUpdates(sinceVersion)
	if netErr != nil {
		return nil, model.Unexpected(netErr)
	}

	return &WorkSummary{
		LocalChanges:   localCount,
		ServerAsOf:     resp.AsOfVersion,
		LastPulledAsOf: sinceVersion,
	}, nil
}

// Sync runs one full pull/merge/push/promote cycle (spec §6 "sync"),
// delegating to the account's Engine. Concurrent Sync calls collapse onto
// one in-flight cycle (spec §5).
func (c *Core) Sync(ctx context.Context) *model.CoreError {
	c.mu.RLock()
	if cerr := c.requireAccount(); cerr != nil {
		c.mu.RUnlock()
		return cerr
	}
	engine := c.engine
	c.mu.RUnlock()

	if _, err := engine.Sync(ctx); err != nil {
		return model.Unexpected(err)
	}

	c.mu.Lock()
	c.lastSyncedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// GetLastSyncedHuman renders the time since the last successful Sync call
// as a relative phrase (spec §6 "get_last_synced_human"), e.g. "3 minutes
// ago" or "never" if this process has not yet synced.
func (c *Core) GetLastSyncedHuman() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastSyncedAt.IsZero() {
		return "never"
	}
	return humanize.Time(c.lastSyncedAt)
}

// Subscribe returns a channel of sync/document events and an unsubscribe
// function (spec §6 "subscribe"), delegating to the process-wide
// broadcaster so every caller observes the same stream regardless of
// which account triggered a cycle.
func (c *Core) Subscribe() (<-chan lbsync.Event, func()) {
	return c.events.Subscribe()
}

// Status summarizes sync state for a UI status bar (spec §6 "status"):
// whether an account exists, local pending-change count, and the
// human-readable last-sync phrase.
type Status struct {
	HasAccount      bool
	LocalChanges    int
	LastSyncedHuman string
}

func (c *Core) Status() (*Status, *model.CoreError) {
	c.mu.RLock()
	hasAccount := c.account != nil
	c.mu.RUnlock()
	if !hasAccount {
		return &Status{HasAccount: false, LastSyncedHuman: "never"}, nil
	}

	work, cerr := c.CalculateWork()
	if cerr != nil {
		return nil, cerr
	}
	return &Status{
		HasAccount:      true,
		LocalChanges:    work.LocalChanges,
		LastSyncedHuman: c.GetLastSyncedHuman(),
	}, nil
}
