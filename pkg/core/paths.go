package core

import (
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/share"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// GetByPath resolves a slash-separated path to its file id, rooted at the
// caller's own root (spec §6 "get_by_path").
func (c *Core) GetByPath(path string) (model.FileId, *model.CoreError) {
	var id model.FileId
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		resolved, cerr := share.Resolve(lt, c.rootId, path)
		if cerr != nil {
			return cerr
		}
		id = resolved
		return nil
	})
	return id, cerr
}

// CreateAtPath creates every missing folder along path and, unless path
// ends in "/", a document at the leaf (spec §6 "create_at_path").
func (c *Core) CreateAtPath(path string) (model.FileId, *model.CoreError) {
	var id model.FileId
	cerr := c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		created, cerr := share.CreateAtPath(lt, view, delta, c.account, c.username, c.rootId, path)
		if cerr != nil {
			return cerr
		}
		id = created
		return nil
	})
	return id, cerr
}

// CreateLinkAtPath creates a Link at path pointing at targetId (spec §6
// "create_link_at_path").
func (c *Core) CreateLinkAtPath(path string, targetId model.FileId) (model.FileId, *model.CoreError) {
	var id model.FileId
	cerr := c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		created, cerr := share.CreateLinkAtPath(lt, view, delta, c.account, c.username, c.rootId, path, targetId)
		if cerr != nil {
			return cerr
		}
		id = created
		return nil
	})
	return id, cerr
}

// ListPaths returns every reachable file's full path, keyed by id (spec
// §6 "list_paths").
func (c *Core) ListPaths() (map[model.FileId]string, *model.CoreError) {
	var out map[model.FileId]string
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		paths, cerr := share.ListPaths(lt, c.rootId)
		if cerr != nil {
			return cerr
		}
		out = paths
		return nil
	})
	return out, cerr
}

// GetPathById reconstructs id's full path from the caller's root (spec §6
// "get_path_by_id").
func (c *Core) GetPathById(id model.FileId) (string, *model.CoreError) {
	var path string
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		p, cerr := share.FullPath(lt, c.rootId, id)
		if cerr != nil {
			return cerr
		}
		path = p
		return nil
	})
	return path, cerr
}
