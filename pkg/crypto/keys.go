// Package crypto provides the primitives spec §4.4 names: symmetric AEAD,
// asymmetric key agreement, signatures, compression, and the two HMACs
// used as name/content identifiers.
//
// The spec names secp256k1 for the account key. No secp256k1 binding is
// grounded in the retrieved pack (AKJUS-bsc-erigon references one via a
// cgo module that isn't vendored, so importing it would be unverifiable).
// Account keys here are instead a single 32-byte seed that deterministically
// derives an Ed25519 signing keypair (crypto/ed25519, stdlib) and an X25519
// agreement keypair (golang.org/x/crypto/curve25519) — the same two
// operations §4.4 asks of the account key, just over curves with first-class
// Go support. See DESIGN.md.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// AccountKey is the root of a user's key graph (spec §4.4).
type AccountKey struct {
	Seed      [32]byte
	signPriv  ed25519.PrivateKey
	signPub   ed25519.PublicKey
	agreePriv [32]byte
	agreePub  [32]byte
}

// GenerateAccountKey creates a fresh account key from system randomness.
func GenerateAccountKey() (*AccountKey, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}
	return AccountKeyFromSeed(seed)
}

// AccountKeyFromSeed deterministically derives both keypairs from a
// 32-byte seed, so the seed alone is sufficient to reconstruct the
// account (used by the mnemonic and raw-key import formats, spec §6).
func AccountKeyFromSeed(seed [32]byte) (*AccountKey, error) {
	signPriv := ed25519.NewKeyFromSeed(seed[:])
	signPub := signPriv.Public().(ed25519.PublicKey)

	// Derive an independent X25519 seed via SHA-512 domain separation so
	// the agreement key isn't a bit-for-bit reuse of the signing seed.
	h := sha512.Sum512(append([]byte("lockbook-x25519-v1:"), seed[:]...))
	var agreePriv [32]byte
	copy(agreePriv[:], h[:32])
	clampX25519(&agreePriv)

	var agreePub [32]byte
	pub, err := curve25519.X25519(agreePriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive agreement key: %w", err)
	}
	copy(agreePub[:], pub)

	return &AccountKey{
		Seed:      seed,
		signPriv:  signPriv,
		signPub:   signPub,
		agreePriv: agreePriv,
		agreePub:  agreePub,
	}, nil
}

func clampX25519(k *[32]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// PublicKey is the stable string identifier for this account: its Ed25519
// public key, used as Owner / last_modified_by / share addressing.
func (a *AccountKey) PublicKey() string {
	return encodePublicKey(a.signPub, a.agreePub)
}

// Sign produces an Ed25519 signature over msg.
func (a *AccountKey) Sign(msg []byte) []byte {
	return ed25519.Sign(a.signPriv, msg)
}

// AgreementPrivate exposes the raw X25519 scalar for ECDH.
func (a *AccountKey) AgreementPrivate() [32]byte {
	return a.agreePriv
}

// VerifySignature checks an Ed25519 signature against a public key string
// produced by PublicKey.
func VerifySignature(publicKey string, msg, sig []byte) bool {
	signPub, _, ok := decodePublicKey(publicKey)
	if !ok {
		return false
	}
	return ed25519.Verify(signPub, msg, sig)
}

// SharedSecret derives the ECDH shared key between this account's
// agreement private key and a counterparty's public key string (spec
// §4.4 "ECDH shared key"). HKDF expansion happens in hkdf.go.
func SharedSecret(a *AccountKey, counterpartyPublicKey string) ([32]byte, error) {
	_, agreePub, ok := decodePublicKey(counterpartyPublicKey)
	if !ok {
		return [32]byte{}, fmt.Errorf("malformed public key")
	}
	priv := a.AgreementPrivate()
	raw, err := curve25519.X25519(priv[:], agreePub[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("ecdh: %w", err)
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}
