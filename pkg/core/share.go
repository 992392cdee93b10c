package core

import (
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/lockbook/lockbook-core/pkg/share"
	"github.com/lockbook/lockbook-core/pkg/tree"
)

// ShareFile grants recipientUsername access to fileId (spec §6
// "share_file"). The recipient's current public key is resolved from the
// server first, since the local tree only ever caches keys it has already
// seen in a share or collaborator record.
func (c *Core) ShareFile(fileId model.FileId, recipientUsername string, mode model.AccessMode) *model.CoreError {
	username := model.NormalizeUsername(recipientUsername)
	if cerr := model.ValidateUsername(string(username)); cerr != nil {
		return cerr
	}

	publicKey, err := c.server.GetPublicKey(username)
	if err != nil {
		return model.Unexpected(err)
	}

	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		_, cerr := share.ShareFile(lt, view, delta, c.account, fileId, username, publicKey, mode)
		return cerr
	})
}

// GetPendingShares lists every share root shared with the caller that
// hasn't yet been accepted via a Link (spec §6 "get_pending_shares").
func (c *Core) GetPendingShares() ([]Metadata, *model.CoreError) {
	var out []Metadata
	cerr := c.withReadTree(func(lt *tree.LazyTree, view tree.Store) *model.CoreError {
		for _, id := range share.PendingShares(view, c.account, c.username) {
			rec, ok := view.Get(id)
			if !ok {
				continue
			}
			md, cerr := toMetadata(lt, id, rec)
			if cerr != nil {
				return cerr
			}
			out = append(out, md)
		}
		return nil
	})
	return out, cerr
}

// RejectShare marks the caller's own access-key entry on fileId deleted,
// declining a pending share (spec §6 "reject_share").
func (c *Core) RejectShare(fileId model.FileId) *model.CoreError {
	return c.withWorkTree(func(lt *tree.LazyTree, view tree.Store, delta tree.Store) *model.CoreError {
		_, cerr := share.RejectShare(lt, view, delta, c.account, fileId, c.username)
		return cerr
	})
}
