// Package core is the single process-wide handle every lockbook frontend
// (CLI, desktop, mobile FFI) is built against: it owns the collaborators
// pkg/sync, pkg/localstore, pkg/docstore, and pkg/client need and exposes
// the full account/file/path/share/sync/billing/search surface spec §6
// names as plain methods (spec §9 "global state as an explicit handle
// rather than a process-wide singleton" — grounded on the teacher never
// reaching for a package-level registry either; every collaborator here is
// a field, not a var).
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lockbook/lockbook-core/internal/logger"
	"github.com/lockbook/lockbook-core/pkg/client"
	"github.com/lockbook/lockbook-core/pkg/config"
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/docstore"
	"github.com/lockbook/lockbook-core/pkg/localstore"
	"github.com/lockbook/lockbook-core/pkg/model"
	lbsync "github.com/lockbook/lockbook-core/pkg/sync"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// Core is the root handle returned by New. Every method is safe for
// concurrent use; mu guards the account/rootId/collaborator fields that
// CreateAccount, ImportAccount, and DeleteAccount swap in and out.
type Core struct {
	mu sync.RWMutex

	cfg   *config.Config
	local *localstore.Store
	docs  *docstore.Store
	events *lbsync.Broadcaster

	account  *crypto.AccountKey
	username model.Username
	rootId   model.FileId

	server *client.Client
	engine *lbsync.Engine

	lastSyncedAt time.Time
}

// New opens the local store and document cache under cfg.WritableDir and
// loads any previously-created account, wiring a Client/Engine pair for it
// if one is found.
func New(cfg *config.Config) (*Core, error) {
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, fmt.Errorf("core: init logger: %w", err)
	}

	dbDir := filepath.Join(cfg.WritableDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("core: create db dir: %w", err)
	}
	local, err := localstore.Open(dbDir)
	if err != nil {
		return nil, fmt.Errorf("core: open localstore: %w", err)
	}

	docsDir := filepath.Join(cfg.WritableDir, "documents")
	docs, err := docstore.New(docstore.DefaultConfig(docsDir))
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("core: open docstore: %w", err)
	}

	c := &Core{
		cfg:    cfg,
		local:  local,
		docs:   docs,
		events: lbsync.NewBroadcaster(),
	}

	if err := c.loadAccount(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("core: load account: %w", err)
	}

	logger.Info("core initialized", "writable_dir", cfg.WritableDir, "has_account", c.account != nil)
	return c, nil
}

// Close releases the local store and document cache.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if err := c.local.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.docs.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("core: close: %v", errs)
	}
	return nil
}

// loadAccount populates account/username/rootId from the persisted seed,
// if one was ever saved (spec §4.5 "the seed alone is sufficient to
// reconstruct the account").
func (c *Core) loadAccount() error {
	var acct localstore.Account
	var hasAccount bool
	var rootId model.FileId
	err := c.local.WithTransaction(func(tx *localstore.Transaction) error {
		var ok bool
		var err error
		acct, ok, err = tx.LoadAccount()
		if err != nil || !ok {
			return err
		}
		hasAccount = true
		rootId, _, err = tx.GetRootId()
		return err
	})
	if err != nil {
		return err
	}
	if !hasAccount {
		return nil
	}

	key, err := crypto.AccountKeyFromSeed(acct.Seed)
	if err != nil {
		return fmt.Errorf("rebuild account key: %w", err)
	}
	c.account = key
	c.username = acct.Username
	c.rootId = rootId
	c.wireCollaborators()
	return nil
}

// wireCollaborators builds the Client/Engine pair for the currently-loaded
// account. Called once an account becomes known, whether from loadAccount,
// CreateAccount, or ImportAccount.
func (c *Core) wireCollaborators() {
	c.server = client.New(c.cfg.API.URL, c.account)
	c.engine = lbsync.NewEngine(lbsync.Config{
		Local:    c.local,
		Docs:     c.docs,
		Server:   c.server,
		Account:  c.account,
		Username: c.username,
		Events:   c.events,
	})
}

// requireAccount is the guard every operation that needs a live account
// calls first (spec §7 KindAccountNonexistent).
func (c *Core) requireAccount() *model.CoreError {
	if c.account == nil {
		return model.E(model.KindAccountNonexistent, "no account has been created or imported")
	}
	return nil
}

// withReadTree builds the base+local staged view and a LazyTree over it
// for operations that only read the tree, without persisting anything
// back (spec §4.1/§4.2's view types, read-only use).
func (c *Core) withReadTree(fn func(lt *tree.LazyTree, view tree.Store) *model.CoreError) *model.CoreError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}

	var result *model.CoreError
	err := c.local.WithTransaction(func(tx *localstore.Transaction) error {
		base, err := tx.LoadBaseTree()
		if err != nil {
			return err
		}
		local, err := tx.LoadLocalTree()
		if err != nil {
			return err
		}
		view := tree.NewStagedTree(base, local)
		lt := tree.NewLazyTree(view, c.account, c.username)
		result = fn(lt, view)
		return nil
	})
	if err != nil {
		return model.Unexpected(err)
	}
	return result
}

// withWorkTree is the mutating counterpart: fn is handed the same staged
// view plus delta, the local (unpushed) MemoryStore fn may Insert into.
// Every id left in delta is persisted back into the local tree atomically
// with the rest of the transaction, and only if fn succeeds.
func (c *Core) withWorkTree(fn func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError) *model.CoreError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}

	var result *model.CoreError
	err := c.local.WithTransaction(func(tx *localstore.Transaction) error {
		base, err := tx.LoadBaseTree()
		if err != nil {
			return err
		}
		local, err := tx.LoadLocalTree()
		if err != nil {
			return err
		}
		view := tree.NewStagedTree(base, local)
		lt := tree.NewLazyTree(view, c.account, c.username)

		result = fn(lt, view, local)
		if result != nil {
			return result
		}

		for _, id := range local.Ids() {
			rec, ok := local.Get(id)
			if !ok {
				continue
			}
			if err := tx.PutLocal(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ce, ok := err.(*model.CoreError); ok {
			return ce
		}
		return model.Unexpected(err)
	}
	return result
}
