package tree

import (
	"sync"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
)

// LazyTree wraps a Store with the memoized derivations spec §4.2 describes:
// decrypted key, decrypted name, effective deletion, children, descendants,
// ancestors, and the three-check validate(). All caches are invalidated by
// Invalidate, which callers must call after mutating the underlying Store.
type LazyTree struct {
	store    Store
	account  *crypto.AccountKey
	username model.Username

	mu          sync.Mutex
	keys        map[model.FileId]crypto.FileKey
	names       map[model.FileId]string
	deleted     map[model.FileId]bool
	childrenIdx map[model.FileId][]model.FileId
	indexBuilt  bool
}

// NewLazyTree wraps store with the derivations resolved on behalf of
// account/username.
func NewLazyTree(store Store, account *crypto.AccountKey, username model.Username) *LazyTree {
	return &LazyTree{
		store:    store,
		account:  account,
		username: username,
		keys:     make(map[model.FileId]crypto.FileKey),
		names:    make(map[model.FileId]string),
		deleted:  make(map[model.FileId]bool),
	}
}

// Invalidate clears every memoized derivation. Call after any mutation to
// the underlying Store.
func (t *LazyTree) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys = make(map[model.FileId]crypto.FileKey)
	t.names = make(map[model.FileId]string)
	t.deleted = make(map[model.FileId]bool)
	t.childrenIdx = nil
	t.indexBuilt = false
}

// DecryptedKey resolves id's symmetric file key (spec §4.2 "Decrypted
// key"): walk ancestors until a user_access_keys entry addressed to the
// account is found, or a cached key is hit, then decrypt back down.
// Implemented as straight recursion: the first call for a deep id recurses
// to the nearest share root or cached ancestor, then each stack frame
// decrypts and caches its own level on the way back down — exactly the
// walk-up-then-decrypt-down spec describes.
func (t *LazyTree) DecryptedKey(id model.FileId) (crypto.FileKey, *model.CoreError) {
	t.mu.Lock()
	if key, ok := t.keys[id]; ok {
		t.mu.Unlock()
		return key, nil
	}
	t.mu.Unlock()

	rec, ok := t.store.Get(id)
	if !ok {
		return crypto.FileKey{}, model.E(model.KindFileNonexistent, "file %s not found", id)
	}
	f := &rec.File

	if entry, ok := f.UserAccessKeys[t.username]; ok && !entry.Deleted {
		secret, err := crypto.SharedSecret(t.account, entry.EncryptedBy)
		if err != nil {
			return crypto.FileKey{}, model.Unexpected(err)
		}
		wrapKey, err := crypto.DeriveSharedKey(secret)
		if err != nil {
			return crypto.FileKey{}, model.Unexpected(err)
		}
		raw, err := crypto.Open(wrapKey, entry.AccessKey)
		if err != nil {
			return crypto.FileKey{}, model.E(model.KindInsufficientPermission, "unwrap access key for %s: %v", id, err)
		}
		var key crypto.FileKey
		copy(key[:], raw)
		t.cacheKey(id, key)
		return key, nil
	}

	if f.IsRoot() {
		return crypto.FileKey{}, model.E(model.KindInsufficientPermission, "no share or cached key for root %s", id)
	}

	parentKey, cerr := t.DecryptedKey(f.Parent)
	if cerr != nil {
		return crypto.FileKey{}, cerr
	}
	raw, err := crypto.Open(parentKey, f.FolderAccessKey)
	if err != nil {
		return crypto.FileKey{}, model.E(model.KindInsufficientPermission, "decrypt folder key for %s: %v", id, err)
	}
	var key crypto.FileKey
	copy(key[:], raw)
	t.cacheKey(id, key)
	return key, nil
}

func (t *LazyTree) cacheKey(id model.FileId, key crypto.FileKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys[id] = key
}

// DecryptedName resolves and caches id's plaintext name.
func (t *LazyTree) DecryptedName(id model.FileId) (string, *model.CoreError) {
	t.mu.Lock()
	if name, ok := t.names[id]; ok {
		t.mu.Unlock()
		return name, nil
	}
	t.mu.Unlock()

	rec, ok := t.store.Get(id)
	if !ok {
		return "", model.E(model.KindFileNonexistent, "file %s not found", id)
	}
	key, cerr := t.DecryptedKey(id)
	if cerr != nil {
		return "", cerr
	}
	name, err := crypto.DecryptName(key, rec.File.Name)
	if err != nil {
		return "", model.Unexpected(err)
	}

	t.mu.Lock()
	t.names[id] = name
	t.mu.Unlock()
	return name, nil
}

// EffectiveDeletion walks ancestors until a cached status is found or a
// root is reached, propagating the OR'd result back to every file visited.
func (t *LazyTree) EffectiveDeletion(id model.FileId) (bool, *model.CoreError) {
	t.mu.Lock()
	if del, ok := t.deleted[id]; ok {
		t.mu.Unlock()
		return del, nil
	}
	t.mu.Unlock()

	rec, ok := t.store.Get(id)
	if !ok {
		return false, model.E(model.KindFileNonexistent, "file %s not found", id)
	}
	f := &rec.File

	if f.IsDeleted {
		t.cacheDeleted(id, true)
		return true, nil
	}
	if f.IsRoot() {
		t.cacheDeleted(id, false)
		return false, nil
	}
	parentDeleted, cerr := t.EffectiveDeletion(f.Parent)
	if cerr != nil {
		return false, cerr
	}
	t.cacheDeleted(id, parentDeleted)
	return parentDeleted, nil
}

func (t *LazyTree) cacheDeleted(id model.FileId, v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted[id] = v
}

// Children returns id's direct children, computing and caching the full
// parent->children index on first call.
func (t *LazyTree) Children(id model.FileId) []model.FileId {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.indexBuilt {
		idx := make(map[model.FileId][]model.FileId)
		for _, fid := range t.store.Ids() {
			rec, ok := t.store.Get(fid)
			if !ok || rec.File.IsRoot() {
				continue
			}
			idx[rec.File.Parent] = append(idx[rec.File.Parent], fid)
		}
		t.childrenIdx = idx
		t.indexBuilt = true
	}
	return append([]model.FileId(nil), t.childrenIdx[id]...)
}

// Descendants returns every id reachable from id via Children, BFS,
// tolerating cycles defensively (spec §4.2) even though they violate
// invariants.
func (t *LazyTree) Descendants(id model.FileId) []model.FileId {
	visited := map[model.FileId]struct{}{id: {}}
	queue := []model.FileId{id}
	var out []model.FileId
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range t.Children(cur) {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Ancestors walks parents and returns the set excluding the starting id,
// bounded defensively by the total id count in case of a cycle.
func (t *LazyTree) Ancestors(id model.FileId) []model.FileId {
	limit := len(t.store.Ids())
	var out []model.FileId
	visited := map[model.FileId]struct{}{id: {}}
	cur := id
	for i := 0; i < limit; i++ {
		rec, ok := t.store.Get(cur)
		if !ok {
			break
		}
		if rec.File.IsRoot() {
			break
		}
		parent := rec.File.Parent
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		out = append(out, parent)
		cur = parent
	}
	return out
}
