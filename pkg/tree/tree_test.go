package tree_test

import (
	"testing"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSignedFolder builds a minimal SignedFile for a folder, wrapping key
// under parentKey (or leaving FolderAccessKey zero for a root/share-root).
func newSignedFolder(t *testing.T, id, parent model.FileId, key, parentKey *crypto.FileKey, name string, isRoot bool) *model.SignedFile {
	t.Helper()
	en, err := crypto.EncryptName(*key, name)
	require.NoError(t, err)

	f := model.File{
		Id:     id,
		Parent: parent,
		Type:   model.FileTypeFolder,
		Name:   en,
	}
	if !isRoot {
		ev, err := crypto.Seal(*parentKey, key[:])
		require.NoError(t, err)
		f.FolderAccessKey = ev
	}
	return &model.SignedFile{File: f}
}

// buildShareRoot creates a root file with a UserAccessKeys entry wrapping
// rootKey for owner, via ECDH between owner and itself (self-share, the
// simplest way to bootstrap an owned root's key graph in a test).
func buildShareRoot(t *testing.T, owner *crypto.AccountKey, ownerUsername model.Username, id model.FileId, rootKey crypto.FileKey, name string) *model.SignedFile {
	t.Helper()
	secret, err := crypto.SharedSecret(owner, owner.PublicKey())
	require.NoError(t, err)
	wrapKey, err := crypto.DeriveSharedKey(secret)
	require.NoError(t, err)
	wrapped, err := crypto.Seal(wrapKey, rootKey[:])
	require.NoError(t, err)

	en, err := crypto.EncryptName(rootKey, name)
	require.NoError(t, err)

	f := model.File{
		Id:     id,
		Parent: id,
		Type:   model.FileTypeFolder,
		Owner:  model.Owner(owner.PublicKey()),
		Name:   en,
		UserAccessKeys: map[model.Username]model.UserAccessKey{
			ownerUsername: {EncryptedBy: owner.PublicKey(), AccessKey: wrapped, Mode: model.AccessWrite},
		},
	}
	return &model.SignedFile{File: f}
}

func TestMemoryStoreInsertGetRemove(t *testing.T) {
	s := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	rootId := model.NewFileId()
	root := buildShareRoot(t, owner, "alice", rootId, rootKey, "root")
	s.Insert(root)

	assert.True(t, s.Contains(rootId))
	got, ok := s.Get(rootId)
	require.True(t, ok)
	assert.Equal(t, rootId, got.File.Id)

	s.Remove(rootId)
	assert.False(t, s.Contains(rootId))
}

func TestMemoryStoreChildrenIndexTracksReparenting(t *testing.T) {
	s := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	rootId := model.NewFileId()
	root := buildShareRoot(t, owner, "alice", rootId, rootKey, "root")
	s.Insert(root)

	childId := model.NewFileId()
	childKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	child := newSignedFolder(t, childId, rootId, &childKey, &rootKey, "dir-a", false)
	s.Insert(child)

	assert.ElementsMatch(t, []model.FileId{childId}, s.Children(rootId))

	otherParentId := model.NewFileId()
	otherParentKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	otherParent := newSignedFolder(t, otherParentId, rootId, &otherParentKey, &rootKey, "dir-b", false)
	s.Insert(otherParent)

	moved := child.Clone()
	moved.File.Parent = otherParentId
	s.Insert(moved)

	assert.Empty(t, s.Children(rootId))
	assert.ElementsMatch(t, []model.FileId{otherParentId}, s.Children(rootId))
}

func TestStagedTreeReadThroughAndUnion(t *testing.T) {
	base := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	rootId := model.NewFileId()
	base.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	delta := tree.NewMemoryStore()
	childId := model.NewFileId()
	childKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	delta.Insert(newSignedFolder(t, childId, rootId, &childKey, &rootKey, "new-dir", false))

	staged := tree.NewStagedTree(base, delta)

	_, ok := staged.Get(rootId)
	assert.True(t, ok, "read-through to base")
	_, ok = staged.Get(childId)
	assert.True(t, ok, "delta entry visible")

	assert.ElementsMatch(t, []model.FileId{rootId, childId}, staged.Ids())
	assert.ElementsMatch(t, []model.FileId{childId}, staged.Children(rootId))
}

func TestStagedTreeComposesOverStage(t *testing.T) {
	base := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	rootId := model.NewFileId()
	base.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	remote := tree.NewStagedTree(base, tree.NewMemoryStore())
	local := tree.NewStagedTree(remote, tree.NewMemoryStore())

	_, ok := local.Get(rootId)
	assert.True(t, ok, "double-staged read-through reaches base")
}

func TestLazyTreeDecryptsKeyNameAndDeletion(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	rootId := model.NewFileId()
	store.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	childId := model.NewFileId()
	childKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	child := newSignedFolder(t, childId, rootId, &childKey, &rootKey, "documents", false)
	store.Insert(child)

	lt := tree.NewLazyTree(store, owner, "alice")

	key, cerr := lt.DecryptedKey(childId)
	require.Nil(t, cerr)
	assert.Equal(t, childKey, key)

	name, cerr := lt.DecryptedName(childId)
	require.Nil(t, cerr)
	assert.Equal(t, "documents", name)

	deleted, cerr := lt.EffectiveDeletion(childId)
	require.Nil(t, cerr)
	assert.False(t, deleted)

	t.Run("deleting the root propagates to children", func(t *testing.T) {
		root, _ := store.Get(rootId)
		root = root.Clone()
		root.File.IsDeleted = true
		store.Insert(root)
		lt.Invalidate()

		childDeleted, cerr := lt.EffectiveDeletion(childId)
		require.Nil(t, cerr)
		assert.True(t, childDeleted)
	})
}

func TestLazyTreeDecryptedKeyFailsWithoutShareOrCache(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	stranger, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	rootId := model.NewFileId()
	store.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	lt := tree.NewLazyTree(store, stranger, "mallory")
	_, cerr := lt.DecryptedKey(rootId)
	require.NotNil(t, cerr)
	assert.Equal(t, model.KindInsufficientPermission, cerr.Kind)
}

func TestLazyTreeChildrenDescendantsAncestors(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	rootId := model.NewFileId()
	store.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	aId := model.NewFileId()
	aKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	store.Insert(newSignedFolder(t, aId, rootId, &aKey, &rootKey, "a", false))

	bId := model.NewFileId()
	bKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	store.Insert(newSignedFolder(t, bId, aId, &bKey, &aKey, "b", false))

	lt := tree.NewLazyTree(store, owner, "alice")

	assert.ElementsMatch(t, []model.FileId{aId}, lt.Children(rootId))
	assert.ElementsMatch(t, []model.FileId{aId, bId}, lt.Descendants(rootId))
	assert.ElementsMatch(t, []model.FileId{aId, rootId}, lt.Ancestors(bId))
}

func TestValidateDetectsOrphan(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	rootId := model.NewFileId()
	store.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	orphanId := model.NewFileId()
	orphanKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	orphan := newSignedFolder(t, orphanId, model.NewFileId(), &orphanKey, &rootKey, "lost", false)
	store.Insert(orphan)

	lt := tree.NewLazyTree(store, owner, "alice")
	failure := lt.Validate()
	require.NotNil(t, failure)
	assert.Equal(t, tree.ValidationOrphan, failure.Kind)
	assert.Contains(t, failure.Ids, orphanId)
}

func TestValidateDetectsCycle(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	key, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	aId, bId := model.NewFileId(), model.NewFileId()
	a := newSignedFolder(t, aId, bId, &key, &key, "a", false)
	b := newSignedFolder(t, bId, aId, &key, &key, "b", false)
	store.Insert(a)
	store.Insert(b)

	lt := tree.NewLazyTree(store, owner, "alice")
	failure := lt.Validate()
	require.NotNil(t, failure)
	assert.Equal(t, tree.ValidationCycle, failure.Kind)
}

func TestValidateDetectsPathConflict(t *testing.T) {
	store := tree.NewMemoryStore()
	owner, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	rootKey, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	rootId := model.NewFileId()
	store.Insert(buildShareRoot(t, owner, "alice", rootId, rootKey, "root"))

	aId := model.NewFileId()
	bId := model.NewFileId()
	same, err := crypto.GenerateFileKey()
	require.NoError(t, err)
	a := newSignedFolder(t, aId, rootId, &same, &rootKey, "notes.md", false)
	b := newSignedFolder(t, bId, rootId, &same, &rootKey, "notes.md", false)
	store.Insert(a)
	store.Insert(b)

	lt := tree.NewLazyTree(store, owner, "alice")
	failure := lt.Validate()
	require.NotNil(t, failure)
	assert.Equal(t, tree.ValidationPathConflict, failure.Kind)
	assert.ElementsMatch(t, []model.FileId{aId, bId}, failure.Ids)
}
