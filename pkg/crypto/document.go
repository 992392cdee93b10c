package crypto

import (
	"fmt"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// EncryptDocument implements the write path of spec §4.4/§6: compress,
// HMAC the compressed plaintext (the content identifier), then AEAD-seal
// under a fresh nonce. It returns the wire/disk blob
// (nonce || ciphertext, spec §6 "Document blob format") and the hmac.
//
// The hmac is taken over the *compressed plaintext*, not the sealed blob:
// spec §4.4 requires it to double as a deduplication/conflict-detection
// token (merge classifies two writes as the same content iff their hmacs
// match), which only holds if the hmac is independent of the per-write
// random nonce. See DESIGN.md for this resolution of the §4.4 vs §6
// phrasing.
func EncryptDocument(key FileKey, plaintext []byte) (blob []byte, hmac model.DocHmac, err error) {
	compressed, err := Compress(plaintext)
	if err != nil {
		return nil, model.DocHmac{}, fmt.Errorf("compress document: %w", err)
	}
	hmac = DocumentHMAC(key, compressed)
	ev, err := Seal(key, compressed)
	if err != nil {
		return nil, model.DocHmac{}, fmt.Errorf("seal document: %w", err)
	}
	blob = make([]byte, 0, 12+len(ev.Ciphertext))
	blob = append(blob, ev.Nonce[:]...)
	blob = append(blob, ev.Ciphertext...)
	return blob, hmac, nil
}

// DecryptDocument reverses EncryptDocument and verifies the hmac matches
// expected, returning a transport/cache-shaped error rather than silently
// returning the wrong content (spec §8 testable property 6).
func DecryptDocument(key FileKey, blob []byte, expected model.DocHmac) ([]byte, error) {
	if len(blob) < 12 {
		return nil, fmt.Errorf("document blob too short: %d bytes", len(blob))
	}
	var ev model.EncryptedValue
	copy(ev.Nonce[:], blob[:12])
	ev.Ciphertext = blob[12:]

	compressed, err := Open(key, ev)
	if err != nil {
		return nil, fmt.Errorf("decrypt document: %w", err)
	}
	if got := DocumentHMAC(key, compressed); got != expected {
		return nil, fmt.Errorf("document hmac mismatch: content does not match metadata hmac")
	}
	return Decompress(compressed)
}
