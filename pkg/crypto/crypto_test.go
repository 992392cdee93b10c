package crypto_test

import (
	"testing"
	"time"

	"github.com/lockbook/lockbook-core/pkg/crypto"
	"github.com/lockbook/lockbook-core/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountKeySignAndVerify(t *testing.T) {
	key, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	msg := []byte("canonical file record bytes")
	sig := key.Sign(msg)

	assert.True(t, crypto.VerifySignature(key.PublicKey(), msg, sig))

	t.Run("tampered message fails", func(t *testing.T) {
		assert.False(t, crypto.VerifySignature(key.PublicKey(), []byte("different bytes"), sig))
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other, err := crypto.GenerateAccountKey()
		require.NoError(t, err)
		assert.False(t, crypto.VerifySignature(other.PublicKey(), msg, sig))
	})
}

func TestAccountKeyFromSeedIsDeterministic(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}

	a, err := crypto.AccountKeyFromSeed(seed)
	require.NoError(t, err)
	b, err := crypto.AccountKeyFromSeed(seed)
	require.NoError(t, err)

	assert.Equal(t, a.PublicKey(), b.PublicKey())
}

func TestSharedSecretAgreement(t *testing.T) {
	alice, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	bob, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	aliceSecret, err := crypto.SharedSecret(alice, bob.PublicKey())
	require.NoError(t, err)
	bobSecret, err := crypto.SharedSecret(bob, alice.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, aliceSecret, bobSecret)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	plaintext := []byte("hello lockbook")
	ev, err := crypto.Seal(key, plaintext)
	require.NoError(t, err)

	got, err := crypto.Open(key, ev)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	t.Run("wrong key fails to open", func(t *testing.T) {
		other, err := crypto.GenerateFileKey()
		require.NoError(t, err)
		_, err = crypto.Open(other, ev)
		assert.Error(t, err)
	})
}

func TestEncryptDecryptName(t *testing.T) {
	key, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	en, err := crypto.EncryptName(key, "notes.md")
	require.NoError(t, err)

	name, err := crypto.DecryptName(key, en)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", name)

	assert.Equal(t, crypto.NameHMAC(key, "notes.md"), en.Hmac)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	plaintext := []byte("repeated repeated repeated content for compression")
	compressed, err := crypto.Compress(plaintext)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(plaintext))

	got, err := crypto.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptDecryptDocumentRoundTrip(t *testing.T) {
	key, err := crypto.GenerateFileKey()
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	blob, hmac, err := crypto.EncryptDocument(key, plaintext)
	require.NoError(t, err)

	got, err := crypto.DecryptDocument(key, blob, hmac)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	t.Run("identical content hmacs identical", func(t *testing.T) {
		_, hmac2, err := crypto.EncryptDocument(key, plaintext)
		require.NoError(t, err)
		assert.Equal(t, hmac, hmac2, "hmac must be nonce-independent to support merge dedup")
	})

	t.Run("hmac mismatch rejected", func(t *testing.T) {
		var wrong model.DocHmac
		_, err := crypto.DecryptDocument(key, blob, wrong)
		assert.Error(t, err)
	})
}

func TestRecordSignatureSkewWindow(t *testing.T) {
	key, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	canonical := []byte("canonical bytes")
	now := time.Now()
	ts := now.UnixMilli()
	sig := crypto.SignRecord(key, canonical, ts)

	err = crypto.VerifyRecordSignature(key.PublicKey(), canonical, ts, sig, now, model.DefaultSkewWindow)
	assert.NoError(t, err)

	t.Run("outside skew rejected", func(t *testing.T) {
		stale := now.Add(-time.Hour).UnixMilli()
		staleSig := crypto.SignRecord(key, canonical, stale)
		err := crypto.VerifyRecordSignature(key.PublicKey(), canonical, stale, staleSig, now, model.DefaultSkewWindow)
		assert.Error(t, err)
	})
}

func TestMnemonicEncodeDecodeRoundTrip(t *testing.T) {
	key, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	words := crypto.EncodeMnemonic(key.Seed)
	assert.Len(t, words, 24)

	seed, err := crypto.DecodeMnemonic(words)
	require.NoError(t, err)
	assert.Equal(t, key.Seed, seed)

	t.Run("recovered seed reproduces the same account key", func(t *testing.T) {
		recovered, err := crypto.AccountKeyFromSeed(seed)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey(), recovered.PublicKey())
	})

	t.Run("corrupted word rejected", func(t *testing.T) {
		bad := append([]string(nil), words...)
		bad[0] = "zzznotaword"
		_, err := crypto.DecodeMnemonic(bad)
		assert.Error(t, err)
	})

	t.Run("wrong word count rejected", func(t *testing.T) {
		_, err := crypto.DecodeMnemonic(words[:23])
		assert.Error(t, err)
	})
}
