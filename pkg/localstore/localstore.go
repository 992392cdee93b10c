// Package localstore is the client's crash-consistent persistent store
// (spec §4.5): the account record, base tree, local (unpushed) tree,
// last-synced version, root id, and a public-key -> username cache. A
// transaction groups a set of tree mutations and a version bump so that
// either all survive a crash or none do — grounded on the teacher's
// BadgerDB-backed metadata store (pkg/metadata/store/badger), including
// its db.Update/db.View transaction wrapping and JSON record encoding.
package localstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// Account is the persisted account record: the seed is sufficient to
// reconstruct the full AccountKey via crypto.AccountKeyFromSeed.
type Account struct {
	Username model.Username
	Seed     [32]byte
}

// Store wraps a BadgerDB handle, grounded on
// pkg/metadata/store/badger.BadgerMetadataStore.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if absent) the BadgerDB database at dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("localstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Transaction is the set of operations available within a WithTransaction
// call (spec §4.5 "a transaction groups a set of tree mutations and a
// version bump"), grounded on the teacher's badgerTransaction.
type Transaction struct {
	txn *badgerdb.Txn
}

// WithTransaction runs fn atomically: if fn returns an error the
// transaction is discarded, otherwise it is committed.
func (s *Store) WithTransaction(fn func(tx *Transaction) error) error {
	return s.db.Update(func(btxn *badgerdb.Txn) error {
		return fn(&Transaction{txn: btxn})
	})
}

// SaveAccount persists the account record.
func (tx *Transaction) SaveAccount(acct Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return tx.txn.Set(keyAccount(), data)
}

// LoadAccount reads the account record, ok=false if none has been saved.
func (tx *Transaction) LoadAccount() (acct Account, ok bool, err error) {
	item, err := tx.txn.Get(keyAccount())
	if err == badgerdb.ErrKeyNotFound {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &acct)
	})
	if err != nil {
		return Account{}, false, err
	}
	return acct, true, nil
}

// DeleteAccount removes the persisted account record, used when a caller
// deletes the account entirely (spec §6 "delete_account") rather than
// merely signing out.
func (tx *Transaction) DeleteAccount() error {
	err := tx.txn.Delete(keyAccount())
	if err == badgerdb.ErrKeyNotFound {
		return nil
	}
	return err
}

// PutBase upserts a record in the base tree.
func (tx *Transaction) PutBase(rec *model.SignedFile) error {
	return tx.putRecord(keyBase(rec.File.Id), rec)
}

// GetBase reads a base-tree record.
func (tx *Transaction) GetBase(id model.FileId) (*model.SignedFile, bool, error) {
	return tx.getRecord(keyBase(id))
}

// DeleteBase removes a base-tree record.
func (tx *Transaction) DeleteBase(id model.FileId) error {
	return tx.deleteRecord(keyBase(id))
}

// IdsBase lists every id held in the base tree.
func (tx *Transaction) IdsBase() ([]model.FileId, error) {
	return tx.scanIds(prefixBaseTree, fileIdFromBaseKey)
}

// PutLocal upserts a record in the local (unpushed) tree.
func (tx *Transaction) PutLocal(rec *model.SignedFile) error {
	return tx.putRecord(keyLocal(rec.File.Id), rec)
}

// GetLocal reads a local-tree record.
func (tx *Transaction) GetLocal(id model.FileId) (*model.SignedFile, bool, error) {
	return tx.getRecord(keyLocal(id))
}

// DeleteLocal removes a local-tree record, e.g. once Phase 5 promotes it
// into base (spec §4.3).
func (tx *Transaction) DeleteLocal(id model.FileId) error {
	return tx.deleteRecord(keyLocal(id))
}

// IdsLocal lists every id held in the local tree.
func (tx *Transaction) IdsLocal() ([]model.FileId, error) {
	return tx.scanIds(prefixLocalTree, fileIdFromLocalKey)
}

func (tx *Transaction) putRecord(key []byte, rec *model.SignedFile) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.txn.Set(key, data)
}

func (tx *Transaction) getRecord(key []byte) (*model.SignedFile, bool, error) {
	item, err := tx.txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec model.SignedFile
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (tx *Transaction) deleteRecord(key []byte) error {
	err := tx.txn.Delete(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil
	}
	return err
}

func (tx *Transaction) scanIds(prefix string, decode func([]byte) model.FileId) ([]model.FileId, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var ids []model.FileId
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		ids = append(ids, decode(key))
	}
	return ids, nil
}

// SetRootId persists the account's root FileId.
func (tx *Transaction) SetRootId(id model.FileId) error {
	return tx.txn.Set([]byte(keyRootId), id[:])
}

// GetRootId reads the account's root FileId, ok=false if unset.
func (tx *Transaction) GetRootId() (id model.FileId, ok bool, err error) {
	item, err := tx.txn.Get([]byte(keyRootId))
	if err == badgerdb.ErrKeyNotFound {
		return model.FileId{}, false, nil
	}
	if err != nil {
		return model.FileId{}, false, err
	}
	err = item.Value(func(val []byte) error {
		copy(id[:], val)
		return nil
	})
	return id, err == nil, err
}

// SetLastSynced persists the server-assigned version last promoted into
// base (spec §4.3 Phase 5 "persist the new last_synced timestamp").
func (tx *Transaction) SetLastSynced(version uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], version)
	return tx.txn.Set([]byte(keyLastSynced), buf[:])
}

// GetLastSynced reads the last-synced version, defaulting to 0 (never
// synced) if unset.
func (tx *Transaction) GetLastSynced() (uint64, error) {
	item, err := tx.txn.Get([]byte(keyLastSynced))
	if err == badgerdb.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		version = binary.BigEndian.Uint64(val)
		return nil
	})
	return version, err
}

// PutUsernameForPublicKey records a resolved public-key -> username
// mapping, so path/display code doesn't need a round trip to GetPublicKey
// for every previously-seen collaborator.
func (tx *Transaction) PutUsernameForPublicKey(publicKey string, username model.Username) error {
	return tx.txn.Set(keyPubKeyUser(publicKey), []byte(username))
}

// GetUsernameForPublicKey reads a cached username for publicKey, ok=false
// if not yet cached.
func (tx *Transaction) GetUsernameForPublicKey(publicKey string) (username model.Username, ok bool, err error) {
	item, err := tx.txn.Get(keyPubKeyUser(publicKey))
	if err == badgerdb.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	err = item.Value(func(val []byte) error {
		username = model.Username(val)
		return nil
	})
	return username, err == nil, err
}

// LoadTree materializes every record under prefix into a fresh
// tree.MemoryStore, used to build the base/local tree.Store views a sync
// cycle or lazy tree operates over.
func (tx *Transaction) loadTree(ids []model.FileId, get func(model.FileId) (*model.SignedFile, bool, error)) (*tree.MemoryStore, error) {
	store := tree.NewMemoryStore()
	for _, id := range ids {
		rec, ok, err := get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		store.Insert(rec)
	}
	return store, nil
}

// LoadBaseTree materializes the base tree into a tree.MemoryStore.
func (tx *Transaction) LoadBaseTree() (*tree.MemoryStore, error) {
	ids, err := tx.IdsBase()
	if err != nil {
		return nil, err
	}
	return tx.loadTree(ids, tx.GetBase)
}

// LoadLocalTree materializes the local (unpushed) tree into a
// tree.MemoryStore.
func (tx *Transaction) LoadLocalTree() (*tree.MemoryStore, error) {
	ids, err := tx.IdsLocal()
	if err != nil {
		return nil, err
	}
	return tx.loadTree(ids, tx.GetLocal)
}
