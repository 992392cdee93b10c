package tree

import "github.com/lockbook/lockbook-core/pkg/model"

// Validate runs the three checks spec §4.2 names, returning the first
// ValidationFailure found (nil if the tree is well-formed). The merge
// engine remediates one failure at a time and calls Validate again, so
// returning only the first failure is sufficient and keeps each call cheap.
func (t *LazyTree) Validate() *ValidationFailure {
	ids := t.store.Ids()
	n := len(ids)

	if f := t.checkOrphans(ids); f != nil {
		return f
	}
	if f := t.checkCycles(ids, n); f != nil {
		return f
	}
	return t.checkPathConflicts(ids)
}

// checkOrphans verifies every non-root id's parent resolves (spec §4.2
// check 1: "No orphans").
func (t *LazyTree) checkOrphans(ids []model.FileId) *ValidationFailure {
	for _, id := range ids {
		rec, ok := t.store.Get(id)
		if !ok || rec.File.IsRoot() {
			continue
		}
		if !t.store.Contains(rec.File.Parent) {
			return &ValidationFailure{Kind: ValidationOrphan, Ids: []model.FileId{id}}
		}
	}
	return nil
}

// checkCycles verifies every ancestor walk terminates at a root in ≤ n
// steps, n being the number of files (spec §4.2 check 2).
func (t *LazyTree) checkCycles(ids []model.FileId, n int) *ValidationFailure {
	for _, id := range ids {
		visited := map[model.FileId]struct{}{id: {}}
		cur := id
		reachedRoot := false
		for i := 0; i < n; i++ {
			rec, ok := t.store.Get(cur)
			if !ok {
				break
			}
			if rec.File.IsRoot() {
				reachedRoot = true
				break
			}
			parent := rec.File.Parent
			if _, seen := visited[parent]; seen {
				break
			}
			visited[parent] = struct{}{}
			cur = parent
		}
		if !reachedRoot {
			offending := make([]model.FileId, 0, len(visited))
			for v := range visited {
				offending = append(offending, v)
			}
			return &ValidationFailure{Kind: ValidationCycle, Ids: offending}
		}
	}
	return nil
}

// checkPathConflicts verifies that among a parent's non-effectively-deleted
// children, no two share a name HMAC (spec §4.2 check 3). Comparing the
// stored HMAC needs no decryption.
func (t *LazyTree) checkPathConflicts(ids []model.FileId) *ValidationFailure {
	byParent := make(map[model.FileId][]model.FileId)
	for _, id := range ids {
		rec, ok := t.store.Get(id)
		if !ok || rec.File.IsRoot() {
			continue
		}
		byParent[rec.File.Parent] = append(byParent[rec.File.Parent], id)
	}

	for _, siblings := range byParent {
		seen := make(map[[32]byte]model.FileId)
		for _, id := range siblings {
			rec, ok := t.store.Get(id)
			if !ok {
				continue
			}
			deleted, cerr := t.EffectiveDeletion(id)
			if cerr != nil || deleted {
				continue
			}
			hmac := rec.File.Name.Hmac
			if other, clash := seen[hmac]; clash {
				return &ValidationFailure{Kind: ValidationPathConflict, Ids: []model.FileId{other, id}}
			}
			seen[hmac] = id
		}
	}
	return nil
}
