package share

import (
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// ShareFile grants recipient access to fileId by wrapping its file key
// under the ECDH secret shared between account and recipientPublicKey
// (spec §4.7 "Share produces a new user_access_keys entry"). The result
// is staged into delta for the caller to sync; the server is the
// enforcement point for "only a Write-mode holder may share."
func ShareFile(
	lt *tree.LazyTree, view, delta tree.Store, account *crypto.AccountKey,
	fileId model.FileId, recipientUsername model.Username, recipientPublicKey string, mode model.AccessMode,
) (*model.SignedFile, *model.CoreError) {
	rec, ok := view.Get(fileId)
	if !ok {
		return nil, model.E(model.KindFileNonexistent, "file %s not found", fileId)
	}
	if _, alreadyShared := rec.File.UserAccessKeys[recipientUsername]; alreadyShared {
		return nil, model.E(model.KindShareAlreadyExists, "file %s already shared with %s", fileId, recipientUsername)
	}

	key, cerr := lt.DecryptedKey(fileId)
	if cerr != nil {
		return nil, cerr
	}
	secret, err := crypto.SharedSecret(account, recipientPublicKey)
	if err != nil {
		return nil, model.Unexpected(err)
	}
	wrapKey, err := crypto.DeriveSharedKey(secret)
	if err != nil {
		return nil, model.Unexpected(err)
	}
	wrapped, err := crypto.Seal(wrapKey, key[:])
	if err != nil {
		return nil, model.Unexpected(err)
	}

	f := *rec.File.Clone()
	if f.UserAccessKeys == nil {
		f.UserAccessKeys = make(map[model.Username]model.UserAccessKey)
	}
	f.UserAccessKeys[recipientUsername] = model.UserAccessKey{
		EncryptedBy: account.PublicKey(),
		AccessKey:  wrapped,
		Mode:       mode,
	}
	signed, err := crypto.SignFile(account, f)
	if err != nil {
		return nil, model.Unexpected(err)
	}
	delta.Insert(signed)
	lt.Invalidate()
	return signed, nil
}

// RejectShare marks username's own UserAccessKeys entry on fileId deleted
// (spec §4.7 "reject by marking the entry deleted = true in their local
// tree and pushing it") rather than removing it outright, so the owner's
// next sync observes the rejection as a regular field-level change.
func RejectShare(
	lt *tree.LazyTree, view, delta tree.Store, account *crypto.AccountKey,
	fileId model.FileId, username model.Username,
) (*model.SignedFile, *model.CoreError) {
	rec, ok := view.Get(fileId)
	if !ok {
		return nil, model.E(model.KindFileNonexistent, "file %s not found", fileId)
	}
	access, ok := rec.File.UserAccessKeys[username]
	if !ok {
		return nil, model.E(model.KindShareNonexistent, "file %s is not shared with %s", fileId, username)
	}

	f := *rec.File.Clone()
	access.Deleted = true
	f.UserAccessKeys[username] = access
	signed, err := crypto.SignFile(account, f)
	if err != nil {
		return nil, model.Unexpected(err)
	}
	delta.Insert(signed)
	lt.Invalidate()
	return signed, nil
}

// PendingShares lists every share-root file that is shared with username,
// not owned by account, and not yet accepted via a Link account owns
// (spec §4.7 "the recipient observes the shared file root in
// pending_shares until they accept").
func PendingShares(view tree.Store, account *crypto.AccountKey, username model.Username) []model.FileId {
	linked := make(map[model.FileId]struct{})
	self := model.Owner(account.PublicKey())

	for _, id := range view.Ids() {
		rec, ok := view.Get(id)
		if !ok || rec.File.Owner != self || rec.File.Type != model.FileTypeLink || rec.File.IsDeleted {
			continue
		}
		linked[rec.File.LinkTarget] = struct{}{}
	}

	var pending []model.FileId
	for _, id := range view.Ids() {
		rec, ok := view.Get(id)
		if !ok || rec.File.Owner == self {
			continue
		}
		access, shared := rec.File.UserAccessKeys[username]
		if !shared || access.Deleted {
			continue
		}
		if _, accepted := linked[id]; accepted {
			continue
		}
		pending = append(pending, id)
	}
	return pending
}

// CreateLinkAtPath creates a Link at p pointing at targetId, creating
// intermediate folders as CreateAtPath does. Fails with
// ValidationSharedLink-shaped rejection up front if targetId is an
// ancestor of the link's parent — spec §4.7's "cycles across share
// boundaries are prevented by forbidding a link whose target is an
// ancestor of the link" — rather than letting the cycle surface later out
// of tree.Validate.
func CreateLinkAtPath(
	lt *tree.LazyTree, view, delta tree.Store, account *crypto.AccountKey, username model.Username,
	rootId model.FileId, p string, targetId model.FileId,
) (model.FileId, *model.CoreError) {
	segments := splitPath(p)
	if len(segments) == 0 {
		return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path %q", p)
	}

	cur := rootId
	for i, seg := range segments[:len(segments)-1] {
		if seg == "" {
			return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path segment in %q", p)
		}
		child, existingType, found, cerr := findChild(lt, view, cur, seg)
		if cerr != nil {
			return model.FileId{}, cerr
		}
		if found {
			if existingType != model.FileTypeFolder {
				return model.FileId{}, model.E(model.KindPathTaken, "path %q: segment %d exists as %s, not Folder", p, i, existingType)
			}
			cur = child
			continue
		}
		created, cerr := createChild(lt, delta, account, username, cur, seg, model.FileTypeFolder)
		if cerr != nil {
			return model.FileId{}, cerr
		}
		cur = created
	}

	leaf := segments[len(segments)-1]
	if leaf == "" {
		return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path segment in %q", p)
	}
	if _, _, found, cerr := findChild(lt, view, cur, leaf); cerr != nil {
		return model.FileId{}, cerr
	} else if found {
		return model.FileId{}, model.E(model.KindPathTaken, "path %q already exists", p)
	}

	if cerr := checkLinkCycle(lt, cur, targetId); cerr != nil {
		return model.FileId{}, cerr
	}

	linkId, cerr := createLinkChild(lt, delta, account, username, cur, leaf, targetId)
	if cerr != nil {
		return model.FileId{}, cerr
	}
	return linkId, nil
}

// checkLinkCycle rejects a link whose target is linkParent itself or one
// of linkParent's ancestors — placing the link there would make link
// resolution recurse into its own subtree.
func checkLinkCycle(lt *tree.LazyTree, linkParent, targetId model.FileId) *model.CoreError {
	if linkParent == targetId {
		return model.E(model.KindValidationSharedLink, "link target %s is its own parent", targetId)
	}
	for _, ancestor := range lt.Ancestors(linkParent) {
		if ancestor == targetId {
			return model.E(model.KindValidationSharedLink, "link target %s is an ancestor of %s", targetId, linkParent)
		}
	}
	return nil
}

func createLinkChild(
	lt *tree.LazyTree, delta tree.Store, account *crypto.AccountKey, username model.Username,
	parent model.FileId, name string, targetId model.FileId,
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
		Type:            model.FileTypeLink,
		LinkTarget:      targetId,
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
