// Package share implements path resolution/creation, sharing, link
// accept/reject, and the link-cycle guard spec §4.7 describes — the
// helpers pkg/core's path- and share-shaped operations are built from.
// Grounded on pkg/tree's LazyTree (Children/DecryptedName/DecryptedKey)
// and pkg/crypto's key-wrapping primitives; no new storage or transport
// concerns, so no new third-party dependency.
package share

import (
	"strings"

	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// Resolve walks path (e.g. "docs/notes.md", trailing "/" denotes a
// folder) from rootId using decrypted names (spec §4.7 "Path
// resolution"). Duplicate sibling names are impossible by invariant, so
// resolution is deterministic.
func Resolve(lt *tree.LazyTree, rootId model.FileId, p string) (model.FileId, *model.CoreError) {
	segments := splitPath(p)
	cur := rootId
	for _, seg := range segments {
		if seg == "" {
			return model.FileId{}, model.E(model.KindPathContainsEmptyFileName, "empty path segment in %q", p)
		}
		found := false
		for _, child := range lt.Children(cur) {
			name, cerr := lt.DecryptedName(child)
			if cerr != nil {
				return model.FileId{}, cerr
			}
			if name == seg {
				deleted, cerr := lt.EffectiveDeletion(child)
				if cerr != nil {
					return model.FileId{}, cerr
				}
				if deleted {
					continue
				}
				cur = child
				found = true
				break
			}
		}
		if !found {
			return model.FileId{}, model.E(model.KindPathNonexistent, "path %q not found", p)
		}
	}
	return cur, nil
}

// FullPath reconstructs id's slash-separated path from rootId by walking
// ancestors and decrypting each segment's name.
func FullPath(lt *tree.LazyTree, rootId, id model.FileId) (string, *model.CoreError) {
	if id == rootId {
		return "/", nil
	}
	var segments []string
	cur := id
	for cur != rootId {
		name, cerr := lt.DecryptedName(cur)
		if cerr != nil {
			return "", cerr
		}
		segments = append([]string{name}, segments...)
		ancestors := lt.Ancestors(cur)
		if len(ancestors) == 0 {
			return "", model.E(model.KindFileNonexistent, "file %s has no ancestors reaching root %s", id, rootId)
		}
		cur = ancestors[0]
	}
	return "/" + strings.Join(segments, "/"), nil
}

// ListPaths returns every descendant's full path, keyed by id (spec §4.7
// "list_paths").
func ListPaths(lt *tree.LazyTree, rootId model.FileId) (map[model.FileId]string, *model.CoreError) {
	out := map[model.FileId]string{rootId: "/"}
	for _, id := range lt.Descendants(rootId) {
		deleted, cerr := lt.EffectiveDeletion(id)
		if cerr != nil {
			return nil, cerr
		}
		if deleted {
			continue
		}
		p, cerr := FullPath(lt, rootId, id)
		if cerr != nil {
			return nil, cerr
		}
		out[id] = p
	}
	return out, nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
