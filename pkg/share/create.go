package share

import (
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// CreateAtPath creates every missing folder along p and, unless p ends in
// "/", a document at the leaf (spec §4.7 "create_at_path"). Existing
// segments are walked rather than recreated; a segment that already
// exists but isn't a Folder — including the leaf, when p names a
// document — fails with PathTaken, since the call is only meaningful to
// create something new. delta is the caller's write-side local staging
// store; view is the base+delta composite lt was built from.
func CreateAtPath(
	lt *tree.LazyTree, view tree.Store, delta tree.Store, account *crypto.AccountKey, username model.Username,
	rootId model.FileId, p string,
) (model.FileId, *model.CoreError) {
	segments := splitPath(p)
	if len(segments) == 0 {
		return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path %q", p)
	}
	leafIsFolder := len(p) > 0 && p[len(p)-1] == '/'

	cur := rootId
	for i, seg := range segments {
		if seg == "" {
			return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path segment in %q", p)
		}
		isLeaf := i == len(segments)-1
		wantType := model.FileTypeFolder
		if isLeaf && !leafIsFolder {
			wantType = model.FileTypeDocument
		}

		child, existingType, found, cerr := findChild(lt, view, cur, seg)
		if cerr != nil {
			return model.FileId{}, cerr
		}
		if found {
			if existingType != wantType {
				return model.FileId{}, model.E(model.KindPathTaken, "path %q: %q exists as %s, not %s", p, seg, existingType, wantType)
			}
			if isLeaf {
				return model.FileId{}, model.E(model.KindPathTaken, "path %q already exists", p)
			}
			cur = child
			continue
		}

		created, cerr := createChild(lt, delta, account, username, cur, seg, wantType)
		if cerr != nil {
			return model.FileId{}, cerr
		}
		cur = created
	}
	return cur, nil
}

func findChild(lt *tree.LazyTree, view tree.Store, parent model.FileId, name string) (model.FileId, model.FileType, bool, *model.CoreError) {
	for _, child := range lt.Children(parent) {
		childName, cerr := lt.DecryptedName(child)
		if cerr != nil {
			return model.FileId{}, 0, false, cerr
		}
		if childName != name {
			continue
		}
		deleted, cerr := lt.EffectiveDeletion(child)
		if cerr != nil {
			return model.FileId{}, 0, false, cerr
		}
		if deleted {
			continue
		}
		rec, ok := view.Get(child)
		if !ok {
			return model.FileId{}, 0, false, model.E(model.KindUnexpected, "child %s listed but missing from store", child)
		}
		return child, rec.File.Type, true, nil
	}
	return model.FileId{}, 0, false, nil
}

// CreateChild creates a single Folder or Document directly under parent,
// wrapping a fresh file key under parent's key. Exported so pkg/core's
// create_file operation (which addresses a parent by id, not a path) can
// reuse the same key-wrapping logic CreateAtPath builds each segment with.
func CreateChild(
	lt *tree.LazyTree, delta tree.Store, account *crypto.AccountKey, username model.Username,
	parent model.FileId, name string, ft model.FileType,
) (model.FileId, *model.CoreError) {
	return createChild(lt, delta, account, username, parent, name, ft)
}

func createChild(
	lt *tree.LazyTree, delta tree.Store, account *crypto.AccountKey, username model.Username,
	parent model.FileId, name string, ft model.FileType,
) (model.FileId, *model.CoreError) {
	parentKey, cerr := lt.DecryptedKey(parent)
	if cerr != nil {
		return model.FileId{}, cerr
	}

	key, err := crypto.GenerateFileKey()
	if err != nil {
		return model.FileId{}, model.Unexpected(err)
	}
	wrapped, err := crypto.Seal(parentKey, key[:])
	if err != nil {
		return model.FileId{}, model.Unexpected(err)
	}
	encName, err := crypto.EncryptName(key, name)
	if err != nil {
		return model.FileId{}, model.Unexpected(err)
	}

	f := model.File{
		Id:              model.NewFileId(),
		Parent:          parent,
		Type:            ft,
		Name:            encName,
		Owner:           model.Owner(account.PublicKey()),
		FolderAccessKey: wrapped,
		LastModifiedBy:  username,
	}
	signed, err := crypto.SignFile(account, f)
	if err != nil {
		return model.FileId{}, model.Unexpected(err)
	}
	delta.Insert(signed)
	lt.Invalidate()
	return f.Id, nil
}
