package sync

import (
	"fmt"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// maxRemediationRounds bounds the fixpoint loop defensively; spec §4.3
// guarantees termination via a well-founded measure (contested local
// mutations strictly decrease each round), so this is a backstop against
// a remediation bug looping forever rather than an expected ceiling.
const maxRemediationRounds = 1000

// remediate drives result.delta toward a validation-passing fixpoint,
// mutating result in place (spec §4.3 Phase 2 "Repeat until validation
// passes").
func (m *merger) remediate(base tree.Store, result *mergeResult) *model.CoreError {
	for round := 0; ; round++ {
		if round >= maxRemediationRounds {
			return model.E(model.KindUnexpected, "merge remediation did not converge after %d rounds", round)
		}

		view := tree.NewStagedTree(base, result.delta)
		lt := tree.NewLazyTree(view, m.account, m.username)
		failure := lt.Validate()
		if failure == nil {
			return nil
		}

		switch failure.Kind {
		case tree.ValidationPathConflict:
			if err := m.fixPathConflict(view, result, failure); err != nil {
				return err
			}
		case tree.ValidationCycle:
			if err := m.fixCycle(base, result, failure); err != nil {
				return err
			}
		case tree.ValidationOrphan:
			if err := m.fixOrphan(result, failure); err != nil {
				return err
			}
		default:
			return model.E(model.KindUnexpected, "merge produced unrecoverable validation failure: %s", failure.Kind)
		}
	}
}

// fixPathConflict renames whichever of the two clashing ids is locally
// authored by appending a numeric suffix before the extension (spec §4.3
// "Name clash").
func (m *merger) fixPathConflict(view tree.Store, result *mergeResult, failure *tree.ValidationFailure) *model.CoreError {
	if len(failure.Ids) < 2 {
		return model.E(model.KindUnexpected, "path conflict failure missing ids")
	}
	target := failure.Ids[1]
	if _, ok := result.needsPush[failure.Ids[0]]; ok {
		if _, alsoLocal := result.needsPush[failure.Ids[1]]; !alsoLocal {
			target = failure.Ids[0]
		}
	}

	rec, ok := view.Get(target)
	if !ok {
		return model.E(model.KindUnexpected, "path conflict target %s not found", target)
	}

	lt := tree.NewLazyTree(view, m.account, m.username)
	key, cerr := lt.DecryptedKey(target)
	if cerr != nil {
		return cerr
	}
	name, cerr := lt.DecryptedName(target)
	if cerr != nil {
		return cerr
	}

	stem, ext := splitExt(name)
	var renamed string
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !siblingHasName(view, rec.File.Parent, target, key, candidate) {
			renamed = candidate
			break
		}
	}

	encName, err := crypto.EncryptName(key, renamed)
	if err != nil {
		return model.Unexpected(err)
	}

	f := *rec.File.Clone()
	f.Name = encName
	signed, err := crypto.SignFile(m.account, f)
	if err != nil {
		return model.Unexpected(err)
	}
	result.delta.Insert(signed)
	result.needsPush[target] = struct{}{}
	result.notes = append(result.notes, fmt.Sprintf("file %s: renamed to %q to resolve a path conflict", target, renamed))
	return nil
}

func siblingHasName(view tree.Store, parent, exclude model.FileId, key crypto.FileKey, name string) bool {
	hmac := crypto.NameHMAC(key, name)
	lt := tree.NewLazyTree(view, nil, "")
	for _, id := range lt.Children(parent) {
		if id == exclude {
			continue
		}
		rec, ok := view.Get(id)
		if !ok {
			continue
		}
		if rec.File.Name.Hmac == hmac {
			return true
		}
	}
	return false
}

// fixCycle undoes the local move implicated in the cycle: the offending
// id whose merged parent differs from its base parent is reverted to its
// base parent (spec §4.3 "Cycle").
func (m *merger) fixCycle(base tree.Store, result *mergeResult, failure *tree.ValidationFailure) *model.CoreError {
	for _, id := range failure.Ids {
		if _, local := result.needsPush[id]; !local {
			continue
		}
		rec, ok := result.delta.Get(id)
		if !ok {
			continue
		}
		baseRec, ok := base.Get(id)
		if !ok {
			continue
		}
		if rec.File.Parent == baseRec.File.Parent {
			continue
		}
		f := *rec.File.Clone()
		f.Parent = baseRec.File.Parent
		signed, err := crypto.SignFile(m.account, f)
		if err != nil {
			return model.Unexpected(err)
		}
		result.delta.Insert(signed)
		result.notes = append(result.notes, fmt.Sprintf("file %s: local move undone to break a cycle", id))
		return nil
	}
	return model.E(model.KindUnexpected, "cycle detected with no locally-moved id to undo: %v", failure.Ids)
}

// fixOrphan marks an orphan effectively deleted under the account's own
// root, since its parent must have been deleted remotely (spec §4.3
// "Orphan").
func (m *merger) fixOrphan(result *mergeResult, failure *tree.ValidationFailure) *model.CoreError {
	if len(failure.Ids) == 0 {
		return model.E(model.KindUnexpected, "orphan failure missing id")
	}
	id := failure.Ids[0]
	rec, ok := result.delta.Get(id)
	if !ok {
		return model.E(model.KindUnexpected, "orphan %s not found in merged delta", id)
	}
	f := *rec.File.Clone()
	f.Parent = m.rootId
	f.IsDeleted = true
	signed, err := crypto.SignFile(m.account, f)
	if err != nil {
		return model.Unexpected(err)
	}
	result.delta.Insert(signed)
	result.needsPush[id] = struct{}{}
	result.notes = append(result.notes, fmt.Sprintf("file %s: orphaned by a remote delete, moved under root and marked deleted", id))
	return nil
}
