package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
)

// encodePublicKey packs the signing and agreement public keys into the
// single opaque string used everywhere a public key is referenced
// (Owner, last_modified_by, UserAccessKey.EncryptedBy).
func encodePublicKey(signPub ed25519.PublicKey, agreePub [32]byte) string {
	buf := make([]byte, 0, ed25519.PublicKeySize+32)
	buf = append(buf, signPub...)
	buf = append(buf, agreePub[:]...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func decodePublicKey(s string) (ed25519.PublicKey, [32]byte, bool) {
	var agree [32]byte
	buf, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(buf) != ed25519.PublicKeySize+32 {
		return nil, agree, false
	}
	signPub := ed25519.PublicKey(buf[:ed25519.PublicKeySize])
	copy(agree[:], buf[ed25519.PublicKeySize:])
	return signPub, agree, true
}
