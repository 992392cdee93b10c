package sync

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// ErrIdCollision is returned when an id is present in both the local and
// remote deltas with no common base record — two clients independently
// minted the same FileId (spec §4.3 Phase 2 "fail with
// DiffError::OldVersionRequired"). The caller should restart the sync
// cycle from Phase 1.
type ErrIdCollision struct{ Id model.FileId }

func (e *ErrIdCollision) Error() string {
	return fmt.Sprintf("sync: id %s present in both local and remote deltas with no base record", e.Id)
}

// ForkCopy instructs the caller to duplicate a cached document blob under
// a new id, produced when Merge forks a concurrently-written document
// (spec §4.3 Phase 2 "document_hmac... forked").
type ForkCopy struct {
	OldId   model.FileId
	NewId   model.FileId
	Hmac    model.DocHmac
}

// mergeResult is everything Merge produces: the resolved overlay to stage
// over base, which of its ids still need to be pushed to the server, any
// document forks to replicate locally, and human-readable notes about
// remediations taken (dropped moves/renames) for diagnostics.
type mergeResult struct {
	delta      *tree.MemoryStore
	needsPush  map[model.FileId]struct{}
	forkCopies []ForkCopy
	notes      []string
}

// merger resolves a three-way merge (spec §4.3 Phase 2). keyAndName and
// parentKey are resolved against the pre-merge local view (the only view
// in which the local side's key graph is guaranteed decryptable) by the
// caller — see Engine.newMerger.
type merger struct {
	account  *crypto.AccountKey
	username model.Username
	rootId   model.FileId

	keyAndName func(id model.FileId) (crypto.FileKey, string, error)
	parentKey  func(parentId model.FileId) (crypto.FileKey, error)
}

// merge runs classification, field-level merge, and the remediation loop
// to a fixpoint, returning the staged delta ready to overlay on base.
func (m *merger) merge(base, localDelta, remoteDelta tree.Store) (*mergeResult, *model.CoreError) {
	baseSet := idSet(base.Ids())
	localSet := idSet(localDelta.Ids())
	remoteSet := idSet(remoteDelta.Ids())

	delta := tree.NewMemoryStore()
	needsPush := make(map[model.FileId]struct{})
	var forkCopies []ForkCopy
	var notes []string

	touched := unionIds(localSet, remoteSet)
	sort.Slice(touched, func(i, j int) bool { return lessId(touched[i], touched[j]) })

	for _, id := range touched {
		inBase := baseSet[id]
		inLocal := localSet[id]
		inRemote := remoteSet[id]

		switch {
		case !inBase && !inLocal && inRemote:
			rec, _ := remoteDelta.Get(id)
			delta.Insert(rec)

		case !inBase && inLocal && !inRemote:
			rec, _ := localDelta.Get(id)
			delta.Insert(rec)
			needsPush[id] = struct{}{}

		case !inBase && inLocal && inRemote:
			return nil, model.Unexpected(&ErrIdCollision{Id: id})

		case inBase && inLocal && !inRemote:
			rec, _ := localDelta.Get(id)
			delta.Insert(rec)
			needsPush[id] = struct{}{}

		case inBase && !inLocal && inRemote:
			rec, _ := remoteDelta.Get(id)
			delta.Insert(rec)

		case inBase && inLocal && inRemote:
			baseRec, _ := base.Get(id)
			localRec, _ := localDelta.Get(id)
			remoteRec, _ := remoteDelta.Get(id)
			merged, fork, note, cerr := m.mergeFields(baseRec, localRec, remoteRec)
			if cerr != nil {
				return nil, cerr
			}
			delta.Insert(merged)
			needsPush[id] = struct{}{}
			if note != "" {
				notes = append(notes, note)
			}
			if fork != nil {
				delta.Insert(fork.rec)
				needsPush[fork.rec.File.Id] = struct{}{}
				forkCopies = append(forkCopies, ForkCopy{OldId: id, NewId: fork.rec.File.Id, Hmac: fork.hmac})
			}
		}
	}

	result := &mergeResult{delta: delta, needsPush: needsPush, forkCopies: forkCopies, notes: notes}
	if cerr := m.remediate(base, result); cerr != nil {
		return nil, cerr
	}
	return result, nil
}

type fork struct {
	rec  *model.SignedFile
	hmac model.DocHmac
}

// mergeFields resolves one concurrently-modified file's fields (spec
// §4.3 Phase 2 "Field-level merge").
func (m *merger) mergeFields(base, local, remote *model.SignedFile) (*model.SignedFile, *fork, string, *model.CoreError) {
	f := *remote.File.Clone()
	var note string

	localMovedParent := local.File.Parent != base.File.Parent
	remoteMovedParent := remote.File.Parent != base.File.Parent
	switch {
	case localMovedParent && !remoteMovedParent:
		f.Parent = local.File.Parent
	case !localMovedParent && remoteMovedParent:
		f.Parent = remote.File.Parent
	case localMovedParent && remoteMovedParent && local.File.Parent == remote.File.Parent:
		f.Parent = local.File.Parent
	case localMovedParent && remoteMovedParent:
		f.Parent = remote.File.Parent
		note = fmt.Sprintf("file %s: both sides moved it to different parents, server wins; local move dropped", f.Id)
	default:
		f.Parent = base.File.Parent
	}

	f.IsDeleted = local.File.IsDeleted || remote.File.IsDeleted

	localRenamed := local.File.Name.Hmac != base.File.Name.Hmac
	remoteRenamed := remote.File.Name.Hmac != base.File.Name.Hmac
	switch {
	case localRenamed && !remoteRenamed:
		f.Name = local.File.Name
	case !localRenamed && remoteRenamed:
		f.Name = remote.File.Name
	case localRenamed && remoteRenamed && local.File.Name.Hmac == remote.File.Name.Hmac:
		f.Name = remote.File.Name
	case localRenamed && remoteRenamed:
		f.Name = remote.File.Name
		if note == "" {
			note = fmt.Sprintf("file %s: both sides renamed it, server wins; local rename dropped", f.Id)
		}
	default:
		f.Name = base.File.Name
	}

	f.FolderAccessKey = remote.File.FolderAccessKey

	f.UserAccessKeys = mergeUserAccessKeys(base.File.UserAccessKeys, local.File.UserAccessKeys, remote.File.UserAccessKeys)

	var fk *fork
	if f.Type == model.FileTypeDocument && local.File.DocumentHmac != nil && remote.File.DocumentHmac != nil {
		localHmac, remoteHmac := *local.File.DocumentHmac, *remote.File.DocumentHmac
		baseHmac := base.File.DocumentHmac
		localChanged := baseHmac == nil || *baseHmac != localHmac
		remoteChanged := baseHmac == nil || *baseHmac != remoteHmac
		if localChanged && remoteChanged && localHmac != remoteHmac {
			f.DocumentHmac = &remoteHmac
			f.DocumentSize = remote.File.DocumentSize

			forkedFile, err := m.synthesizeFork(&f, local)
			if err != nil {
				return nil, nil, "", model.Unexpected(err)
			}
			signed, err := crypto.SignFile(m.account, *forkedFile)
			if err != nil {
				return nil, nil, "", model.Unexpected(err)
			}
			fk = &fork{rec: signed, hmac: localHmac}
		} else if localChanged {
			f.DocumentHmac = &localHmac
			f.DocumentSize = local.File.DocumentSize
		} else {
			f.DocumentHmac = &remoteHmac
			f.DocumentSize = remote.File.DocumentSize
		}
	}

	signed, err := crypto.SignFile(m.account, f)
	if err != nil {
		return nil, nil, "", model.Unexpected(err)
	}
	return signed, fk, note, nil
}

// synthesizeFork builds the new sibling Document that preserves the
// local side's content under a fresh id and a disambiguated name (spec
// §4.3 Phase 2 "synthesize a new Document sibling named
// <stem>-<username>-<short-id>.<ext>").
func (m *merger) synthesizeFork(resolved *model.File, local *model.SignedFile) (*model.File, error) {
	newId := model.NewFileId()
	newKey, err := crypto.GenerateFileKey()
	if err != nil {
		return nil, fmt.Errorf("generate fork key: %w", err)
	}

	// The fork needs the resolved parent's key to wrap its own key and the
	// local side's plaintext name to build the disambiguated name; both
	// require decrypting under the local account's view of the key graph,
	// which the caller is assumed to have access to (the file was locally
	// writable, or it couldn't have been locally modified).
	localKey, localName, err := m.localFileKeyAndName(local)
	if err != nil {
		return nil, err
	}
	_ = localKey

	stem, ext := splitExt(localName)
	forkName := fmt.Sprintf("%s-%s-%s%s", stem, m.username, shortId(newId), ext)

	parentKey, err := m.parentKeyOf(resolved)
	if err != nil {
		return nil, err
	}
	encName, err := crypto.EncryptName(newKey, forkName)
	if err != nil {
		return nil, fmt.Errorf("encrypt fork name: %w", err)
	}
	wrappedKey, err := crypto.Seal(parentKey, newKey[:])
	if err != nil {
		return nil, fmt.Errorf("wrap fork key: %w", err)
	}

	localHmac := *local.File.DocumentHmac
	return &model.File{
		Id:              newId,
		Parent:          resolved.Parent,
		Type:            model.FileTypeDocument,
		Name:            encName,
		Owner:           resolved.Owner,
		DocumentHmac:    &localHmac,
		DocumentSize:    local.File.DocumentSize,
		FolderAccessKey: wrappedKey,
		LastModifiedBy:  m.username,
	}, nil
}

// localFileKeyAndName, parentKeyOf: placeholders resolved by the caller
// supplying a key-resolution hook, since merger itself has no tree.Store
// to walk — see Engine.newMerger which closes over a LazyTree.
func (m *merger) localFileKeyAndName(local *model.SignedFile) (crypto.FileKey, string, error) {
	if m.keyAndName == nil {
		return crypto.FileKey{}, "", fmt.Errorf("merger: no key resolver configured")
	}
	return m.keyAndName(local.File.Id)
}

func (m *merger) parentKeyOf(f *model.File) (crypto.FileKey, error) {
	if m.parentKey == nil {
		return crypto.FileKey{}, fmt.Errorf("merger: no parent-key resolver configured")
	}
	return m.parentKey(f.Parent)
}

func mergeUserAccessKeys(base, local, remote map[model.Username]model.UserAccessKey) map[model.Username]model.UserAccessKey {
	out := make(map[model.Username]model.UserAccessKey)
	for u, v := range local {
		out[u] = v
	}
	for u, rv := range remote {
		if lv, ok := out[u]; ok {
			rv.Deleted = lv.Deleted || rv.Deleted
		}
		out[u] = rv
	}
	return out
}

func splitExt(name string) (stem, ext string) {
	ext = path.Ext(name)
	stem = strings.TrimSuffix(name, ext)
	return stem, ext
}

func shortId(id model.FileId) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func idSet(ids []model.FileId) map[model.FileId]bool {
	out := make(map[model.FileId]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func unionIds(sets ...map[model.FileId]bool) []model.FileId {
	seen := make(map[model.FileId]struct{})
	var out []model.FileId
	for _, set := range sets {
		for id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func lessId(a, b model.FileId) bool {
	return a.String() < b.String()
}
