package core

import (
	"sort"
	"strings"

	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/share"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// SearchResult pairs a matched file with the path the match was found in
// — the path itself, since full-text content indexing is out of scope
// (spec "Non-goals: full-text search indexing; specified only as an
// event consumer").
type SearchResult struct {
	Id   model.FileId
	Path string
}

// Search returns every non-deleted file whose path contains query,
// case-insensitively (spec §6 "search"). This is the decrypted-path
// substring search the spec's Non-goals leave as the only kind in scope;
// indexing document bodies is explicitly out of scope.
func (c *Core) Search(query string) ([]SearchResult, *model.CoreError) {
	needle := strings.ToLower(query)
	var out []SearchResult
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		paths, cerr := share.ListPaths(lt, c.rootId)
		if cerr != nil {
			return cerr
		}
		for id, p := range paths {
			if id == c.rootId {
				continue
			}
			if strings.Contains(strings.ToLower(p), needle) {
				out = append(out, SearchResult{Id: id, Path: p})
			}
		}
		return nil
	})
	if cerr != nil {
		return nil, cerr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SuggestedDocs returns the caller's most recently modified documents
// (spec §6 "suggested_docs"), a cheap recency heuristic rather than a
// usage-frequency model.
func (c *Core) SuggestedDocs(limit int) ([]Metadata, *model.CoreError) {
	var docs []Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		for _, id := range view.Ids() {
			rec, ok := view.Get(id)
			if !ok || rec.File.Type != model.FileTypeDocument {
				continue
			}
			deleted, cerr := lt.EffectiveDeletion(id)
			if cerr != nil {
				return cerr
			}
			if deleted {
				continue
			}
			md, cerr := toMetadata(lt, id, rec)
			if cerr != nil {
				return cerr
			}
			docs = append(docs, md)
		}
		return nil
	})
	if cerr != nil {
		return nil, cerr
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ModifiedAt > docs[j].ModifiedAt })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}
