package localstore

// Key namespace design (grounded on pkg/metadata/store/badger/encoding.go's
// prefixed-key scheme): prefixed keys partition the account record, the
// base tree, the local (unpushed) tree, sync bookkeeping, and the
// public-key -> username cache into independent range scans.
//
// Data Type             Prefix      Key Format                  Value
// ====================================================================
// Account record        "acct:"     acct:self                   Account (JSON)
// Base tree record      "base:"     base:<fileid>                SignedFile (JSON)
// Local tree record     "local:"    local:<fileid>                SignedFile (JSON)
// Root id               "meta:"     meta:root_id                 FileId (raw bytes)
// Last synced version   "meta:"     meta:last_synced              uint64 (binary)
// Username cache        "pk2user:"  pk2user:<publickey>           Username (utf8)

import "github.com/lockbook/lockbook-core/pkg/model"

const (
	prefixAccount    = "acct:"
	prefixBaseTree   = "base:"
	prefixLocalTree  = "local:"
	keyRootId        = "meta:root_id"
	keyLastSynced    = "meta:last_synced"
	prefixPubKeyUser = "pk2user:"
)

func keyAccount() []byte {
	return []byte(prefixAccount + "self")
}

func keyBase(id model.FileId) []byte {
	return append([]byte(prefixBaseTree), id[:]...)
}

func keyLocal(id model.FileId) []byte {
	return append([]byte(prefixLocalTree), id[:]...)
}

func keyPubKeyUser(publicKey string) []byte {
	return append([]byte(prefixPubKeyUser), publicKey...)
}

func fileIdFromBaseKey(key []byte) model.FileId {
	var id model.FileId
	copy(id[:], key[len(prefixBaseTree):])
	return id
}

func fileIdFromLocalKey(key []byte) model.FileId {
	var id model.FileId
	copy(id[:], key[len(prefixLocalTree):])
	return id
}
