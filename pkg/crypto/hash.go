package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"github.com/lockbook/lockbook-core/pkg/model"
)

func sha256New() hash.Hash {
	return sha256.New()
}

// NameHMAC is HMAC-SHA256 of the UTF-8 name under the enclosing file's
// key (spec §4.4), stored alongside the encrypted name so siblings can be
// compared for equality without decrypting either.
func NameHMAC(key FileKey, name string) [32]byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(name))
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// DocumentHMAC is HMAC-SHA256 of the compressed plaintext under the
// file's key (spec §4.4); it identifies the document body and doubles as
// an optimistic-concurrency token.
func DocumentHMAC(key FileKey, compressed []byte) model.DocHmac {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(compressed)
	var out model.DocHmac
	copy(out[:], mac.Sum(nil))
	return out
}

// EncryptName seals a plaintext filename under key and attaches its HMAC.
func EncryptName(key FileKey, name string) (model.EncryptedName, error) {
	ev, err := Seal(key, []byte(name))
	if err != nil {
		return model.EncryptedName{}, err
	}
	return model.EncryptedName{Value: ev, Hmac: NameHMAC(key, name)}, nil
}

// DecryptName recovers the plaintext filename.
func DecryptName(key FileKey, en model.EncryptedName) (string, error) {
	pt, err := Open(key, en.Value)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
