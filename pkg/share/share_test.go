package share_test

import (
	"testing"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/share"
	"github.com/lockbook/lockbook-core/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRoot creates an owned root folder whose own key is wrapped via a
// self-share, the same bootstrap buildShareRoot in pkg/tree's tests uses.
func buildRoot(t *testing.T, owner *crypto.AccountKey, username model.Username, rootKey crypto.FileKey) *model.SignedFile {
	t.Helper()
	rootId := model.NewFileId()
	secret, err := crypto.SharedSecret(owner, owner.PublicKey())
	require.NoError(t, err)
	wrapKey, err := crypto.DeriveSharedKey(secret)
	require.NoError(t, err)
	wrapped, err := crypto.Seal(wrapKey, rootKey[:])
	require.NoError(t, err)
	name, err := crypto.EncryptName(rootKey, "root")
	require.NoError(t, err)

	f := model.File{
		Id:     rootId,
		Parent: rootId,
		Type:   model.FileTypeFolder,
		Owner:  model.Owner(owner.PublicKey()),
		Name:   name,
		UserAccessKeys: map[model.Username]model.UserAccessKey{
			username: {EncryptedBy: owner.PublicKey(), AccessKey: wrapped, Mode: model.AccessWrite},
		},
	}
	signed, err := crypto.SignFile(owner, f)
	require.NoError(t, err)
	return signed
}

func TestResolveFullPathAndListPaths(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, owner, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, owner, "alice")

	docId, cerr := share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "docs/notes.md")
	require.Nil(t, cerr)

	resolved, cerr := share.Resolve(lt, root.File.Id, "docs/notes.md")
	require.Nil(t, cerr)
	assert.Equal(t, docId, resolved)

	full, cerr := share.FullPath(lt, root.File.Id, docId)
	require.Nil(t, cerr)
	assert.Equal(t, "/docs/notes.md", full)

	paths, cerr := share.ListPaths(lt, root.File.Id)
	require.Nil(t, cerr)
	assert.Equal(t, "/docs/notes.md", paths[docId])
}

func TestCreateAtPathCreatesIntermediateFolders(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, owner, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, owner, "alice")

	folderId, cerr := share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "/a/b/")
	require.Nil(t, cerr)

	rec, ok := store.Get(folderId)
	require.True(t, ok)
	assert.Equal(t, model.FileTypeFolder, rec.File.Type)

	aId, cerr := share.Resolve(lt, root.File.Id, "/a")
	require.Nil(t, cerr)
	aRec, ok := store.Get(aId)
	require.True(t, ok)
	assert.Equal(t, model.FileTypeFolder, aRec.File.Type)
}

func TestCreateAtPathFailsWhenIntermediateIsDocument(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, owner, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, owner, "alice")

	_, cerr := share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "a")
	require.Nil(t, cerr)

	_, cerr = share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "a/b")
	require.NotNil(t, cerr)
	assert.Equal(t, model.KindPathTaken, cerr.Kind)
}

func TestCreateAtPathFailsWhenLeafAlreadyExists(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, owner, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, owner, "alice")

	_, cerr := share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "note.md")
	require.Nil(t, cerr)

	_, cerr = share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "note.md")
	require.NotNil(t, cerr)
	assert.Equal(t, model.KindPathTaken, cerr.Kind)
}

func TestShareFilePendingSharesAndAcceptViaLink(t *testing.T) {
	store := tree.NewMemoryStore()
	alice, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	bob, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	aliceRootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	aliceRoot := buildRoot(t, alice, "alice", aliceRootKey)
	store.Insert(aliceRoot)
	aliceLt := tree.NewLazyTree(store, alice, "alice")

	folderId, cerr := share.CreateAtPath(aliceLt, store, store, alice, "alice", aliceRoot.File.Id, "/shared/")
	require.Nil(t, cerr)

	_, cerr = share.ShareFile(aliceLt, store, store, alice, folderId, "bob", bob.PublicKey(), model.AccessWrite)
	require.Nil(t, cerr)

	pending := share.PendingShares(store, bob, "bob")
	assert.ElementsMatch(t, []model.FileId{folderId}, pending)

	bobRootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	bobRoot := buildRoot(t, bob, "bob", bobRootKey)
	store.Insert(bobRoot)
	bobLt := tree.NewLazyTree(store, bob, "bob")

	linkId, cerr := share.CreateLinkAtPath(bobLt, store, store, bob, "bob", bobRoot.File.Id, "/from_alice", folderId)
	require.Nil(t, cerr)
	linkRec, ok := store.Get(linkId)
	require.True(t, ok)
	assert.Equal(t, model.FileTypeLink, linkRec.File.Type)
	assert.Equal(t, folderId, linkRec.File.LinkTarget)

	assert.Empty(t, share.PendingShares(store, bob, "bob"), "accepted share should no longer be pending")
}

func TestCreateLinkAtPathRejectsAncestorCycle(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, owner, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, owner, "alice")

	childId, cerr := share.CreateAtPath(lt, store, store, owner, "alice", root.File.Id, "/a/")
	require.Nil(t, cerr)

	_, cerr = share.CreateLinkAtPath(lt, store, store, owner, "alice", childId, "/loop", root.File.Id)
	require.NotNil(t, cerr)
	assert.Equal(t, model.KindValidationSharedLink, cerr.Kind)
}

func TestRejectShareMarksAccessDeleted(t *testing.T) {
	store := tree.NewMemoryStore()
	alice, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	bob, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	root := buildRoot(t, alice, "alice", rootKey)
	store.Insert(root)
	lt := tree.NewLazyTree(store, alice, "alice")

	folderId, cerr := share.CreateAtPath(lt, store, store, alice, "alice", root.File.Id, "/shared/")
	require.Nil(t, cerr)
	_, cerr = share.ShareFile(lt, store, store, alice, folderId, "bob", bob.PublicKey(), model.AccessRead)
	require.Nil(t, cerr)

	bobLt := tree.NewLazyTree(store, bob, "bob")
	_, cerr = share.RejectShare(bobLt, store, store, bob, folderId, "bob")
	require.Nil(t, cerr)

	rec, ok := store.Get(folderId)
	require.True(t, ok)
	assert.True(t, rec.File.UserAccessKeys["bob"].Deleted)
}
