package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lockbook/lockbook-core/pkg/crypto"
)

// SignedRequest wraps a route's request body with the signature the
// server verifies before doing any work (spec §6 "every request is signed
// by the caller's account key"): the signature covers the raw body bytes
// plus a little-endian timestamp, the same shape pkg/crypto uses for
// record signatures (crypto.SignRecord/VerifyRecordSignature).
type SignedRequest struct {
	PublicKey     string          `json:"public_key"`
	Timestamp     int64           `json:"timestamp"`
	Signature     []byte          `json:"signature"`
	Body          json.RawMessage `json:"body"`
	ClientVersion string          `json:"client_version"`
}

// Sign encodes body and signs it under account, producing the envelope a
// client sends for every authenticated route.
func Sign(account *crypto.AccountKey, body any, clientVersion string) (*SignedRequest, error) {
	raw, err := Encode(body)
	if err != nil {
		return nil, fmt.Errorf("wire: encode body: %w", err)
	}
	ts := crypto.NowMillis()
	sig := crypto.SignRecord(account, raw, ts)
	return &SignedRequest{
		PublicKey:     account.PublicKey(),
		Timestamp:     ts,
		Signature:     sig,
		Body:          raw,
		ClientVersion: clientVersion,
	}, nil
}

// Verify checks the envelope's signature against its own claimed public
// key within skew of now, then decodes Body into out. The caller is
// responsible for checking that PublicKey is the one actually authorized
// to perform the requested action (e.g. matches the account owning the
// file being modified) — Verify only proves the envelope wasn't forged or
// replayed outside the skew window.
func Verify(req *SignedRequest, now time.Time, skew time.Duration, out any) error {
	if err := crypto.VerifyRecordSignature(req.PublicKey, req.Body, req.Timestamp, req.Signature, now, skew); err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	if out == nil {
		return nil
	}
	return Decode(req.Body, out)
}
