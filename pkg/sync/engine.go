// Package sync implements the client-side sync & merge engine (spec
// §4.3): a five-phase cycle (pull metadata, merge, pull documents, push,
// promote) that reconciles the local unpushed tree against the server's
// authoritative state. Grounded on the teacher's pkg/payload/transfer
// queue/worker idiom for the phase pipeline and golang.org/x/sync's
// singleflight (already an indirect dependency of the pack via otel
// tooling, promoted to direct use here) for collapsing concurrent sync
// attempts (spec §5 "a second caller observes the first's result").
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lockbook/lockbook-core/internal/logger"
	"github.com/lockbook/lockbook-core/pkg/client"
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/docstore"
	"github.com/lockbook/lockbook-core/pkg/localstore"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
	"github.com/lockbook/lockbook-core/pkg/wire"
)

// Engine drives sync cycles for one account.
type Engine struct {
	local    *localstore.Store
	docs     *docstore.Store
	server   *client.Client
	account  *crypto.AccountKey
	username model.Username

	events *Broadcaster
	group  singleflight.Group
}

// Config bundles the collaborators a sync Engine needs.
type Config struct {
	Local    *localstore.Store
	Docs     *docstore.Store
	Server   *client.Client
	Account  *crypto.AccountKey
	Username model.Username
	Events   *Broadcaster
}

// NewEngine builds an Engine ready to run sync cycles.
func NewEngine(cfg Config) *Engine {
	events := cfg.Events
	if events == nil {
		events = NewBroadcaster()
	}
	return &Engine{
		local:    cfg.Local,
		docs:     cfg.Docs,
		server:   cfg.Server,
		account:  cfg.Account,
		username: cfg.Username,
		events:   events,
	}
}

// Events returns the broadcaster sync cycles report progress and
// completion events on.
func (e *Engine) Events() *Broadcaster { return e.events }

// Result summarizes one completed sync cycle.
type Result struct {
	AsOfVersion uint64
	Notes       []string
}

// Sync runs one full cycle. Concurrent callers collapse onto a single
// in-flight cycle (spec §5): only the first caller's network exchange and
// merge actually run; the rest observe its result.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	v, err, _ := e.group.Do("sync", func() (any, error) {
		return e.syncOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (e *Engine) syncOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger.Info("sync cycle starting", logger.Username(string(e.username)), logger.Source("sync"))

	e.progress(PhasePullMetadata, 0, 5)
	pulled, asOfVersion, err := e.pullMetadata(ctx)
	if err != nil {
		logger.Warn("sync: pull metadata failed", logger.Username(string(e.username)), logger.Err(err))
		return nil, fmt.Errorf("sync: pull metadata: %w", err)
	}

	e.progress(PhaseMerge, 1, 5)
	result, base, err := e.runMerge(pulled)
	if err != nil {
		logger.Warn("sync: merge failed", logger.Username(string(e.username)), logger.Err(err))
		return nil, fmt.Errorf("sync: merge: %w", err)
	}

	e.progress(PhasePullDocuments, 2, 5)
	if err := e.pullDocuments(ctx, base, result); err != nil {
		logger.Warn("sync: pull documents failed", logger.Username(string(e.username)), logger.Err(err))
		return nil, fmt.Errorf("sync: pull documents: %w", err)
	}

	e.progress(PhasePush, 3, 5)
	if err := e.push(ctx, base, result); err != nil {
		logger.Warn("sync: push failed", logger.Username(string(e.username)), logger.Err(err))
		return nil, fmt.Errorf("sync: push: %w", err)
	}

	e.progress(PhasePromote, 4, 5)
	if err := e.promote(result, asOfVersion); err != nil {
		logger.Warn("sync: promote failed", logger.Username(string(e.username)), logger.Err(err))
		return nil, fmt.Errorf("sync: promote: %w", err)
	}
	e.progress(PhasePromote, 5, 5)

	e.events.emit(Event{Kind: EventMetadataChanged})
	e.events.emit(Event{Kind: EventStatusChanged, Status: "up to date"})

	logger.Info("sync cycle complete",
		logger.Username(string(e.username)),
		logger.AsOfVersion(asOfVersion),
		logger.WorkUnits(len(result.needsPush)),
		logger.DurationMs(logger.Duration(start)),
		logger.Source("sync"),
	)

	return &Result{AsOfVersion: asOfVersion, Notes: result.notes}, nil
}

func (e *Engine) progress(phase Phase, completed, total int) {
	e.events.emit(Event{Kind: EventSyncProgress, Phase: phase, Completed: completed, Total: total})
}

// pullMetadata is Phase 1: request every record changed since the
// largest version present in the base tree.
func (e *Engine) pullMetadata(ctx context.Context) (*tree.MemoryStore, uint64, error) {
	var sinceVersion uint64
	err := e.local.WithTransaction(func(tx *localstore.Transaction) error {
		baseTree, err := tx.LoadBaseTree()
		if err != nil {
			return err
		}
		for _, id := range baseTree.Ids() {
			rec, ok := baseTree.Get(id)
			if ok && rec.File.Version > sinceVersion {
				sinceVersion = rec.File.Version
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	resp, err := e.server.GetUpdates(sinceVersion)
	if err != nil {
		return nil, 0, err
	}

	pulled := tree.NewMemoryStore()
	for i := range resp.Records {
		rec := resp.Records[i]
		pulled.Insert(&rec)
	}
	return pulled, resp.AsOfVersion, nil
}

// runMerge is Phase 2: build base/local/remote views and resolve them to
// a fixpoint.
func (e *Engine) runMerge(remoteDelta *tree.MemoryStore) (*mergeResult, *tree.MemoryStore, error) {
	var (
		baseTree  *tree.MemoryStore
		localTree *tree.MemoryStore
		rootId    model.FileId
	)
	err := e.local.WithTransaction(func(tx *localstore.Transaction) error {
		var err error
		baseTree, err = tx.LoadBaseTree()
		if err != nil {
			return err
		}
		localTree, err = tx.LoadLocalTree()
		if err != nil {
			return err
		}
		rootId, _, err = tx.GetRootId()
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	localView := tree.NewStagedTree(baseTree, localTree)
	localLazy := tree.NewLazyTree(localView, e.account, e.username)

	m := &merger{
		account:  e.account,
		username: e.username,
		rootId:   rootId,
		keyAndName: func(id model.FileId) (crypto.FileKey, string, error) {
			key, cerr := localLazy.DecryptedKey(id)
			if cerr != nil {
				return crypto.FileKey{}, "", cerr
			}
			name, cerr := localLazy.DecryptedName(id)
			if cerr != nil {
				return crypto.FileKey{}, "", cerr
			}
			return key, name, nil
		},
		parentKey: func(parentId model.FileId) (crypto.FileKey, error) {
			key, cerr := localLazy.DecryptedKey(parentId)
			if cerr != nil {
				return crypto.FileKey{}, cerr
			}
			return key, nil
		},
	}

	result, cerr := m.merge(baseTree, localTree, remoteDelta)
	if cerr != nil {
		return nil, nil, cerr
	}
	return result, baseTree, nil
}

// pullDocuments is Phase 3: fetch the blob for every Document whose
// merged hmac differs from its base hmac and isn't already cached.
func (e *Engine) pullDocuments(ctx context.Context, base *tree.MemoryStore, result *mergeResult) error {
	for _, fc := range result.forkCopies {
		data, ok, err := e.docs.Get(fc.OldId, fc.Hmac)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := e.docs.Insert(fc.NewId, fc.Hmac, data); err != nil {
			return err
		}
	}

	for _, id := range result.delta.Ids() {
		rec, ok := result.delta.Get(id)
		if !ok || rec.File.Type != model.FileTypeDocument || rec.File.DocumentHmac == nil {
			continue
		}
		hmac := *rec.File.DocumentHmac

		var baseHmac *model.DocHmac
		if baseRec, ok := base.Get(id); ok {
			baseHmac = baseRec.File.DocumentHmac
		}
		if baseHmac != nil && *baseHmac == hmac {
			continue
		}
		if _, ok, err := e.docs.Get(id, hmac); err != nil {
			return err
		} else if ok {
			continue
		}

		content, err := e.server.GetDoc(id, hmac)
		if err != nil {
			return err
		}
		if err := e.docs.Insert(id, hmac, content); err != nil {
			return err
		}
		e.events.emit(Event{Kind: EventDocumentWritten, DocumentId: id})
	}
	return nil
}

// push is Phase 4: send every locally-authored diff in one batch, then
// the changed document bodies.
func (e *Engine) push(ctx context.Context, base *tree.MemoryStore, result *mergeResult) error {
	if len(result.needsPush) == 0 {
		return nil
	}

	diffs := make([]wire.FileDiff, 0, len(result.needsPush))
	ids := make([]model.FileId, 0, len(result.needsPush))
	for id := range result.needsPush {
		ids = append(ids, id)
	}
	for _, id := range ids {
		rec, ok := result.delta.Get(id)
		if !ok {
			continue
		}
		var old *model.SignedFile
		if baseRec, ok := base.Get(id); ok {
			old = baseRec
		}
		diffs = append(diffs, wire.FileDiff{Old: old, New: *rec})
	}

	resp, err := e.server.Upsert(diffs)
	if err != nil {
		return err
	}
	if len(resp.Rejections) > 0 {
		return fmt.Errorf("sync: server rejected %d of %d diffs", len(resp.Rejections), len(diffs))
	}

	for _, id := range ids {
		rec, ok := result.delta.Get(id)
		if !ok || rec.File.Type != model.FileTypeDocument || rec.File.DocumentHmac == nil {
			continue
		}
		baseRec, _ := base.Get(id)
		if baseRec != nil && baseRec.File.DocumentHmac != nil && *baseRec.File.DocumentHmac == *rec.File.DocumentHmac {
			continue
		}
		content, ok, err := e.docs.Get(id, *rec.File.DocumentHmac)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var old *model.SignedFile
		if baseRec != nil {
			old = baseRec
		}
		if _, err := e.server.ChangeDoc(wire.FileDiff{Old: old, New: *rec}, content); err != nil {
			return err
		}
	}
	return nil
}

// promote is Phase 5: atomically write accepted records into base, clear
// their local entries, and persist the new last-synced version.
func (e *Engine) promote(result *mergeResult, asOfVersion uint64) error {
	return e.local.WithTransaction(func(tx *localstore.Transaction) error {
		for _, id := range result.delta.Ids() {
			rec, ok := result.delta.Get(id)
			if !ok {
				continue
			}
			if err := tx.PutBase(rec); err != nil {
				return err
			}
			if err := tx.DeleteLocal(id); err != nil {
				return err
			}
		}
		return tx.SetLastSynced(asOfVersion)
	})
}
