package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lockbook/lockbook-core/internal/logger"
	"github.com/lockbook/lockbook-core/pkg/client"
	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/localstore"
	"github.com/lockbook/lockbook-core/pkg/model"
)

// accountRecord is the payload exported/imported by the "full account
// record" format (spec §6 export format 1). The spec names bincode for
// this record; no bincode/msgpack equivalent is grounded anywhere in the
// retrieved pack (see pkg/wire's doc comment), so it is JSON-marshaled and
// base64-encoded the same way the rest of the wire surface serializes,
// which keeps the encoding self-describing and round-trippable without
// inventing a binary format with no precedent in the corpus.
type accountRecord struct {
	Username model.Username `json:"username"`
	Seed     [32]byte       `json:"seed"`
	APIURL   string         `json:"api_url"`
}

// CreateAccount registers username against apiURL, mints a fresh account
// key and self-share-wrapped root folder, and persists the result (spec
// §6 "create_account"). Fails with KindAccountExists if an account is
// already loaded.
func (c *Core) CreateAccount(username string, apiURL string) *model.CoreError {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.account != nil {
		return model.E(model.KindAccountExists, "an account already exists in this profile")
	}
	normalized := model.NormalizeUsername(username)
	if cerr := model.ValidateUsername(string(normalized)); cerr != nil {
		return cerr
	}

	accountKey, err := crypto.GenerateAccountKey()
	if err != nil {
		return model.Unexpected(fmt.Errorf("generate account key: %w", err))
	}

	root, rootId, cerr := buildRoot(accountKey, normalized)
	if cerr != nil {
		return cerr
	}

	server := client.New(apiURL, accountKey)
	resp, err := server.NewAccount(normalized, *root)
	if err != nil {
		return toCoreError(err)
	}

	err = c.local.WithTransaction(func(tx *localstore.Transaction) error {
		if err := tx.SaveAccount(localstore.Account{Username: normalized, Seed: accountKey.Seed}); err != nil {
			return err
		}
		if err := tx.SetRootId(rootId); err != nil {
			return err
		}
		if err := tx.PutBase(root); err != nil {
			return err
		}
		return tx.SetLastSynced(resp.LastSynced)
	})
	if err != nil {
		return model.Unexpected(err)
	}

	c.cfg.API.URL = apiURL
	c.account = accountKey
	c.username = normalized
	c.rootId = rootId
	c.wireCollaborators()

	logger.Info("account created", "username", string(normalized))
	return nil
}

// buildRoot mints a root Folder whose own key is wrapped via a self-share
// entry (account -> account), the same bootstrap pkg/share's tests use: a
// root has no parent to derive its key from, so it must be its own
// share-root.
func buildRoot(account *crypto.AccountKey, username model.Username) (*model.SignedFile, model.FileId, *model.CoreError) {
	rootId := model.NewFileId()
	rootKey, err := crypto.GenerateFileKey()
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}
	secret, err := crypto.SharedSecret(account, account.PublicKey())
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}
	wrapKey, err := crypto.DeriveSharedKey(secret)
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}
	wrappedKey, err := crypto.Seal(wrapKey, rootKey[:])
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}
	name, err := crypto.EncryptName(rootKey, string(username))
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}

	f := model.File{
		Id:     rootId,
		Parent: rootId,
		Type:   model.FileTypeFolder,
		Owner:  model.Owner(account.PublicKey()),
		Name:   name,
		UserAccessKeys: map[model.Username]model.UserAccessKey{
			username: {EncryptedBy: account.PublicKey(), AccessKey: wrappedKey, Mode: model.AccessWrite},
		},
		LastModifiedBy: username,
	}
	signed, err := crypto.SignFile(account, f)
	if err != nil {
		return nil, model.FileId{}, model.Unexpected(err)
	}
	return signed, rootId, nil
}

// ImportAccount reconstructs an account from one of the three string
// formats spec §6 describes, auto-detecting which: a 24-word mnemonic
// phrase or a bare base64 32-byte seed (neither carries a server address
// or username, so both apiURL and username must be supplied), or the
// base64 accountRecord blob (carries its own username and apiURL; both
// arguments are ignored for this format since trusting the embedded
// values is fine — the subsequent GetUpdates round trip against the
// embedded key fails closed if they're wrong).
func (c *Core) ImportAccount(input string, apiURL string, username string) *model.CoreError {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.account != nil {
		return model.E(model.KindAccountExists, "an account already exists in this profile")
	}

	seed, resolvedURL, resolvedUsername, cerr := decodeImport(input, apiURL, model.NormalizeUsername(username))
	if cerr != nil {
		return cerr
	}

	accountKey, err := crypto.AccountKeyFromSeed(seed)
	if err != nil {
		return model.Unexpected(fmt.Errorf("rebuild account key: %w", err))
	}

	server := client.New(resolvedURL, accountKey)
	rootId, err := resolveRootId(server, accountKey, resolvedUsername)
	if err != nil {
		return model.Unexpected(err)
	}

	err = c.local.WithTransaction(func(tx *localstore.Transaction) error {
		if err := tx.SaveAccount(localstore.Account{Username: resolvedUsername, Seed: seed}); err != nil {
			return err
		}
		return tx.SetRootId(rootId)
	})
	if err != nil {
		return model.Unexpected(err)
	}

	c.cfg.API.URL = resolvedURL
	c.account = accountKey
	c.username = resolvedUsername
	c.rootId = rootId
	c.wireCollaborators()

	if _, err := c.engine.Sync(context.Background()); err != nil {
		logger.Warn("initial sync after import failed", "error", err.Error())
	}

	logger.Info("account imported", "username", string(resolvedUsername))
	return nil
}

// decodeImport resolves input to a seed, server URL, and username. The
// record format carries its own URL/username and ignores the arguments;
// the mnemonic and raw-key formats carry neither and require both.
func decodeImport(input string, apiURL string, username model.Username) (seed [32]byte, resolvedURL string, resolvedUsername model.Username, cerr *model.CoreError) {
	trimmed := strings.TrimSpace(input)

	if rec, ok := decodeAccountRecord(trimmed); ok {
		return rec.Seed, rec.APIURL, rec.Username, nil
	}

	if apiURL == "" {
		return seed, "", "", model.E(model.KindUsernameInvalid, "this import format requires an explicit server URL")
	}
	if username == "" {
		return seed, "", "", model.E(model.KindUsernameInvalid, "this import format requires an explicit username")
	}

	if words := strings.Fields(trimmed); len(words) == 24 {
		s, err := crypto.DecodeMnemonic(words)
		if err != nil {
			return seed, "", "", model.E(model.KindUsernameInvalid, "invalid mnemonic: %v", err)
		}
		return s, apiURL, username, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil || len(raw) != 32 {
		return seed, "", "", model.E(model.KindUsernameInvalid, "unrecognized account import format")
	}
	copy(seed[:], raw)
	return seed, apiURL, username, nil
}

func decodeAccountRecord(input string) (accountRecord, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(input)
	if err != nil {
		return accountRecord{}, false
	}
	var rec accountRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Username == "" {
		return accountRecord{}, false
	}
	return rec, true
}

// resolveRootId asks the server for every update since version 0 and
// takes the first record that is its own parent as the account's root — a
// fresh import has no local tree to consult yet.
func resolveRootId(server *client.Client, account *crypto.AccountKey, username model.Username) (model.FileId, error) {
	resp, err := server.GetUpdates(0)
	if err != nil {
		return model.FileId{}, err
	}
	owner := model.Owner(account.PublicKey())
	for _, rec := range resp.Records {
		if rec.File.Owner == owner && rec.File.IsRoot() {
			return rec.File.Id, nil
		}
	}
	return model.FileId{}, fmt.Errorf("no root file found for %s on server", username)
}

// ExportAccountRecord renders the full account-record format (spec §6
// export format 1): base64 of a JSON object carrying the username, seed,
// and server URL, sufficient on its own to import.
func (c *Core) ExportAccountRecord() (string, *model.CoreError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return "", cerr
	}
	rec := accountRecord{Username: c.username, Seed: c.account.Seed, APIURL: c.cfg.API.URL}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", model.Unexpected(err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ExportAccountPrivateKey renders the raw 32-byte seed format (spec §6
// export format 2); the caller must separately carry the server URL.
func (c *Core) ExportAccountPrivateKey() (string, *model.CoreError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return "", cerr
	}
	return base64.RawURLEncoding.EncodeToString(c.account.Seed[:]), nil
}

// ExportAccountPhrase renders the 24-word mnemonic format (spec §6 export
// format 3).
func (c *Core) ExportAccountPhrase() ([]string, *model.CoreError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cerr := c.requireAccount(); cerr != nil {
		return nil, cerr
	}
	return crypto.EncodeMnemonic(c.account.Seed), nil
}

// ExportAccountQRPayload returns the string a QR code of the account
// record format would encode (spec §6 "export offers... a QR PNG of
// format 1"). No QR/barcode rendering library is grounded anywhere in the
// retrieved example pack (checked: no repo imports one), and this
// exercise's dependencies must all trace to something actually used in
// the corpus rather than be invented — so this stops at the payload a QR
// encoder would consume rather than rendering a PNG. See DESIGN.md.
func (c *Core) ExportAccountQRPayload() (string, *model.CoreError) {
	return c.ExportAccountRecord()
}

// DeleteAccount tells the server to delete the account, then wipes every
// local trace of it (spec §6 "delete_account").
func (c *Core) DeleteAccount() *model.CoreError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cerr := c.requireAccount(); cerr != nil {
		return cerr
	}

	if err := c.server.DeleteAccount(); err != nil {
		return toCoreError(err)
	}

	err := c.local.WithTransaction(func(tx *localstore.Transaction) error {
		ids, err := tx.IdsBase()
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.DeleteBase(id); err != nil {
				return err
			}
		}
		localIds, err := tx.IdsLocal()
		if err != nil {
			return err
		}
		for _, id := range localIds {
			if err := tx.DeleteLocal(id); err != nil {
				return err
			}
		}
		if err := tx.DeleteAccount(); err != nil {
			return err
		}
		return tx.SetLastSynced(0)
	})
	if err != nil {
		return model.Unexpected(err)
	}
	if err := c.docs.Retain(nil); err != nil {
		return model.Unexpected(err)
	}

	c.account = nil
	c.username = ""
	c.rootId = model.FileId{}
	c.server = nil
	c.engine = nil

	logger.Info("account deleted")
	return nil
}
