package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// FileKey is a 256-bit AES key generated on file creation and never
// rotated (spec §4.4 "File keys").
type FileKey [32]byte

// GenerateFileKey produces a fresh random 256-bit symmetric key.
func GenerateFileKey() (FileKey, error) {
	var k FileKey
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("generate file key: %w", err)
	}
	return k, nil
}

// DeriveSharedKey expands a raw ECDH secret into a FileKey-sized key via
// HKDF (spec §4.4 "ECDH shared key is HKDF(secp256k1_ecdh(...))").
func DeriveSharedKey(secret [32]byte) (FileKey, error) {
	var out FileKey
	r := hkdf.New(sha256New, secret[:], nil, []byte("lockbook-share-key-v1"))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// Seal encrypts plaintext under key with a fresh random 96-bit nonce,
// returning nonce||ciphertext as spec §4.4/§6 "Document AEAD"/"Document
// blob format" describes. It is used both for document bodies (after
// compression) and for wrapping file/access keys.
func Seal(key FileKey, plaintext []byte) (model.EncryptedValue, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return model.EncryptedValue{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return model.EncryptedValue{}, err
	}
	var nonce [12]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return model.EncryptedValue{}, err
	}
	ct := gcm.Seal(nil, nonce[:], plaintext, nil)
	return model.EncryptedValue{Nonce: nonce, Ciphertext: ct}, nil
}

// Open reverses Seal, returning the original plaintext.
func Open(key FileKey, ev model.EncryptedValue) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	pt, err := gcm.Open(nil, ev.Nonce[:], ev.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("aead open: %w", err)
	}
	return pt, nil
}
