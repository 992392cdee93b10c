package tree

import "github.com/lockbook/lockbook-core/pkg/model"

// StagedTree is a read-through overlay (spec §4.1): a lookup falls through
// to base iff delta has no entry for the id, and Ids yields ids(base) ∪
// ids(delta) deduplicated. StagedTree itself implements Store, so staged
// views compose (stage over stage) — e.g. remote-over-base, then
// merged-over-remote-over-base.
type StagedTree struct {
	base  Store
	delta Store
}

// NewStagedTree overlays delta on top of base.
func NewStagedTree(base, delta Store) *StagedTree {
	return &StagedTree{base: base, delta: delta}
}

// Insert writes to delta; base is never mutated by a staged view.
func (s *StagedTree) Insert(rec *model.SignedFile) {
	s.delta.Insert(rec)
}

// Remove records a tombstone in delta. A plain Store has no tombstone
// concept, so Remove on a staged id whose base record should be hidden
// must itself be staged in delta via its own id-presence; callers that
// need "remove visible through staging" should use a Store whose Remove
// also marks deletion (model.File.IsDeleted), not this low-level Remove.
func (s *StagedTree) Remove(id model.FileId) {
	s.delta.Remove(id)
}

// Get checks delta first, falling through to base.
func (s *StagedTree) Get(id model.FileId) (*model.SignedFile, bool) {
	if rec, ok := s.delta.Get(id); ok {
		return rec, true
	}
	return s.base.Get(id)
}

// Children merges delta's and base's children of parent, preferring
// delta's view of any id present in both (an id whose parent moved in
// delta should not also appear under its base parent).
func (s *StagedTree) Children(parent model.FileId) []model.FileId {
	seen := make(map[model.FileId]struct{})
	out := make([]model.FileId, 0)
	for _, id := range s.delta.Children(parent) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range s.base.Children(parent) {
		if _, ok := seen[id]; ok {
			continue
		}
		// Skip ids delta has moved elsewhere: delta holds a record for id
		// but with a different parent, so base's view is stale.
		if rec, ok := s.delta.Get(id); ok && rec.File.Parent != parent {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Ids returns the deduplicated union of base and delta ids.
func (s *StagedTree) Ids() []model.FileId {
	seen := make(map[model.FileId]struct{})
	out := make([]model.FileId, 0)
	for _, id := range s.delta.Ids() {
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range s.base.Ids() {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports presence in either layer.
func (s *StagedTree) Contains(id model.FileId) bool {
	if s.delta.Contains(id) {
		return true
	}
	return s.base.Contains(id)
}
