package core

import (
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/share"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// Metadata is the decrypted, UI-shaped view of a file record (spec §6
// "list_metadatas"/"get_file_by_id"/"get_children"): everything a caller
// needs to render a tree without ever touching a FileKey or ciphertext.
type Metadata struct {
	Id        model.FileId
	Parent    model.FileId
	Name      string
	Type      model.FileType
	IsRoot    bool
	IsDeleted bool

	LinkTarget model.FileId

	DocumentHmac *model.DocHmac
	DocumentSize uint64

	Owner          model.Owner
	LastModifiedBy model.Username
	SharedWith     []model.Username

	// Version and ModifiedAt come straight off the signed record: the
	// server-assigned version for a base record, 0 for an unsynced local
	// edit, and the client-signed timestamp respectively. SuggestedDocs
	// uses ModifiedAt as its recency signal.
	Version    uint64
	ModifiedAt int64
}

func toMetadata(lt *tree.LazyTree, id model.FileId, rec *model.SignedFile) (Metadata, *model.CoreError) {
	name, cerr := lt.DecryptedName(id)
	if cerr != nil {
		return Metadata{}, cerr
	}
	deleted, cerr := lt.EffectiveDeletion(id)
	if cerr != nil {
		return Metadata{}, cerr
	}

	var shared []model.Username
	for username, access := range rec.File.UserAccessKeys {
		if !access.Deleted {
			shared = append(shared, username)
		}
	}

	return Metadata{
		Id:             id,
		Parent:         rec.File.Parent,
		Name:           name,
		Type:           rec.File.Type,
		IsRoot:         rec.File.IsRoot(),
		IsDeleted:      deleted,
		LinkTarget:     rec.File.LinkTarget,
		DocumentHmac:   rec.File.DocumentHmac,
		DocumentSize:   rec.File.DocumentSize,
		Owner:          rec.File.Owner,
		LastModifiedBy: rec.File.LastModifiedBy,
		SharedWith:     shared,
		Version:        rec.File.Version,
		ModifiedAt:     rec.Timestamp,
	}, nil
}

// CreateFile creates a Folder, Document, or Link directly under parent
// (spec §6 "create_file"), reusing the same key-wrapping logic path
// creation does.
func (c *Core) CreateFile(parent model.FileId, name string, ft model.FileType) (model.FileId, *model.CoreError) {
	if cerr := model.ValidateFileName(name); cerr != nil {
		return model.FileId{}, cerr
	}

	var id model.FileId
	cerr := c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		deleted, cerr := lt.EffectiveDeletion(parent)
		if cerr != nil {
			return cerr
		}
		if deleted {
			return model.E(model.KindFileNonexistent, "parent %s is deleted", parent)
		}
		for _, child := range lt.Children(parent) {
			childName, cerr := lt.DecryptedName(child)
			if cerr != nil {
				return cerr
			}
			if childName == name {
				if childDeleted, cerr := lt.EffectiveDeletion(child); cerr == nil && !childDeleted {
					return model.E(model.KindPathTaken, "a file named %q already exists under %s", name, parent)
				}
			}
		}

		created, cerr := share.CreateChild(lt, delta, c.account, c.username, parent, name, ft)
		if cerr != nil {
			return cerr
		}
		id = created
		return nil
	})
	return id, cerr
}

// mutateFile loads id's current record, lets fn mutate a clone of it,
// re-signs the result, and inserts it into delta — the small direct
// tree.Store shape rename/move/delete share, following the same
// clone-mutate-sign-insert-invalidate pattern share.ShareFile/RejectShare
// use for their own field-level rewrites.
func mutateFile(lt *tree.LazyTree, view tree.Store, delta tree.Store, account *crypto.AccountKey, username model.Username, id model.FileId, fn func(f *model.File)) *model.CoreError {
	rec, ok := view.Get(id)
	if !ok {
		return model.E(model.KindFileNonexistent, "file %s not found", id)
	}
	f := rec.File.Clone()
	fn(f)
	f.LastModifiedBy = username
	signed, err := crypto.SignFile(account, *f)
	if err != nil {
		return model.Unexpected(err)
	}
	delta.Insert(signed)
	lt.Invalidate()
	return nil
}

// RenameFile re-encrypts id's name under its existing file key and stages
// the rewritten record (spec §6 "rename_file").
func (c *Core) RenameFile(id model.FileId, newName string) *model.CoreError {
	if cerr := model.ValidateFileName(newName); cerr != nil {
		return cerr
	}
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		if rec, ok := view.Get(id); ok && rec.File.IsRoot() {
			return model.E(model.KindRootModificationInvalid, "cannot rename the root")
		}
		key, cerr := lt.DecryptedKey(id)
		if cerr != nil {
			return cerr
		}
		encName, err := crypto.EncryptName(key, newName)
		if err != nil {
			return model.Unexpected(err)
		}
		return mutateFile(lt, view, delta, c.account, c.username, id, func(f *model.File) {
			f.Name = encName
		})
	})
}

// MoveFile rewraps id's file key under newParent's key and reparents the
// record (spec §6 "move_file"); validation of cycles and cross-share
// moves happens in tree.Validate at promote time.
func (c *Core) MoveFile(id model.FileId, newParent model.FileId) *model.CoreError {
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		if rec, ok := view.Get(id); ok && rec.File.IsRoot() {
			return model.E(model.KindRootModificationInvalid, "cannot move the root")
		}

		key, cerr := lt.DecryptedKey(id)
		if cerr != nil {
			return cerr
		}
		newParentKey, cerr := lt.DecryptedKey(newParent)
		if cerr != nil {
			return cerr
		}
		wrapped, err := crypto.Seal(newParentKey, key[:])
		if err != nil {
			return model.Unexpected(err)
		}

		return mutateFile(lt, view, delta, c.account, c.username, id, func(f *model.File) {
			f.Parent = newParent
			f.FolderAccessKey = wrapped
		})
	})
}

// Delete marks id (and, implicitly via EffectiveDeletion, every
// descendant) deleted (spec §6 "delete"). Folders are deleted by a single
// field flip rather than a recursive walk: descendants inherit deletion
// from their nearest deleted ancestor (spec §4.2 "EffectiveDeletion").
func (c *Core) Delete(id model.FileId) *model.CoreError {
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		if rec, ok := view.Get(id); ok && rec.File.IsRoot() {
			return model.E(model.KindRootModificationInvalid, "cannot delete the root")
		}
		return mutateFile(lt, view, delta, c.account, c.username, id, func(f *model.File) {
			f.IsDeleted = true
		})
	})
}

// ReadDocument decrypts and returns id's current content (spec §6
// "read_document").
func (c *Core) ReadDocument(id model.FileId) ([]byte, *model.CoreError) {
	var content []byte
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		rec, ok := view.Get(id)
		if !ok {
			return model.E(model.KindFileNonexistent, "file %s not found", id)
		}
		if rec.File.Type != model.FileTypeDocument {
			return model.E(model.KindFileNonexistent, "file %s is not a document", id)
		}
		if rec.File.DocumentHmac == nil {
			content = nil
			return nil
		}

		key, cerr := lt.DecryptedKey(id)
		if cerr != nil {
			return cerr
		}
		blob, ok, err := c.docs.Get(id, *rec.File.DocumentHmac)
		if err != nil {
			return model.Unexpected(err)
		}
		if !ok {
			return model.E(model.KindUnexpected, "document %s content missing from local cache; sync first", id)
		}
		plaintext, err := crypto.DecryptDocument(key, blob, *rec.File.DocumentHmac)
		if err != nil {
			return model.Unexpected(err)
		}
		content = plaintext
		return nil
	})
	return content, cerr
}

// WriteDocument overwrites id's content unconditionally (spec §6
// "write_document"): encrypt, cache the new blob, and stage a record
// carrying the new hmac/size.
func (c *Core) WriteDocument(id model.FileId, content []byte) *model.CoreError {
	return c.writeDocument(id, content)
}

// SafeWrite is write_document's optimistic-concurrency sibling (spec §6
// "safe_write"): it only writes if id's document hasn't changed since
// oldHmac was observed, guarding against silently clobbering a concurrent
// writer's content.
func (c *Core) SafeWrite(id model.FileId, oldHmac model.DocHmac, content []byte) *model.CoreError {
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		rec, ok := view.Get(id)
		if !ok {
			return model.E(model.KindFileNonexistent, "file %s not found", id)
		}
		current := rec.File.DocumentHmac
		if current == nil || *current != oldHmac {
			return model.E(model.KindValidationHmacModificationInvalid, "document %s was modified since oldHmac was read", id)
		}
		return c.stageDocumentWrite(lt, view, delta, id, content)
	})
}

func (c *Core) writeDocument(id model.FileId, content []byte) *model.CoreError {
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		return c.stageDocumentWrite(lt, view, delta, id, content)
	})
}

func (c *Core) stageDocumentWrite(lt *tree.LazyTree, view tree.Store, delta tree.Store, id model.FileId, content []byte) *model.CoreError {
	rec, ok := view.Get(id)
	if !ok {
		return model.E(model.KindFileNonexistent, "file %s not found", id)
	}
	if rec.File.Type != model.FileTypeDocument {
		return model.E(model.KindFileNonexistent, "file %s is not a document", id)
	}

	key, cerr := lt.DecryptedKey(id)
	if cerr != nil {
		return cerr
	}
	blob, hmac, err := crypto.EncryptDocument(key, content)
	if err != nil {
		return model.Unexpected(err)
	}
	if err := c.docs.Insert(id, hmac, blob); err != nil {
		return model.Unexpected(err)
	}

	return mutateFile(lt, view, delta, c.account, c.username, id, func(f *model.File) {
		f.DocumentHmac = &hmac
		f.DocumentSize = uint64(len(content))
	})
}

// ListMetadatas returns every non-deleted file reachable in the caller's
// tree (spec §6 "list_metadatas").
func (c *Core) ListMetadatas() ([]Metadata, *model.CoreError) {
	var out []Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		for _, id := range view.Ids() {
			rec, ok := view.Get(id)
			if !ok {
				continue
			}
			md, cerr := toMetadata(lt, id, rec)
			if cerr != nil {
				return cerr
			}
			out = append(out, md)
		}
		return nil
	})
	return out, cerr
}

// GetFileById returns id's decrypted metadata (spec §6 "get_file_by_id").
func (c *Core) GetFileById(id model.FileId) (Metadata, *model.CoreError) {
	var out Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		rec, ok := view.Get(id)
		if !ok {
			return model.E(model.KindFileNonexistent, "file %s not found", id)
		}
		md, cerr := toMetadata(lt, id, rec)
		if cerr != nil {
			return cerr
		}
		out = md
		return nil
	})
	return out, cerr
}

// GetChildren returns id's direct, non-deleted children (spec §6
// "get_children").
func (c *Core) GetChildren(id model.FileId) ([]Metadata, *model.CoreError) {
	var out []Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		for _, child := range lt.Children(id) {
			rec, ok := view.Get(child)
			if !ok {
				continue
			}
			deleted, cerr := lt.EffectiveDeletion(child)
			if cerr != nil {
				return cerr
			}
			if deleted {
				continue
			}
			md, cerr := toMetadata(lt, child, rec)
			if cerr != nil {
				return cerr
			}
			out = append(out, md)
		}
		return nil
	})
	return out, cerr
}

// GetAndGetChildrenRecursively returns id plus every non-deleted
// descendant (spec §6 "get_and_get_children_recursively").
func (c *Core) GetAndGetChildrenRecursively(id model.FileId) ([]Metadata, *model.CoreError) {
	var out []Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		rec, ok := view.Get(id)
		if !ok {
			return model.E(model.KindFileNonexistent, "file %s not found", id)
		}
		md, cerr := toMetadata(lt, id, rec)
		if cerr != nil {
			return cerr
		}
		out = append(out, md)

		for _, descendant := range lt.Descendants(id) {
			drec, ok := view.Get(descendant)
			if !ok {
				continue
			}
			deleted, cerr := lt.EffectiveDeletion(descendant)
			if cerr != nil {
				return cerr
			}
			if deleted {
				continue
			}
			dmd, cerr := toMetadata(lt, descendant, drec)
			if cerr != nil {
				return cerr
			}
			out = append(out, dmd)
		}
		return nil
	})
	return out, cerr
}
