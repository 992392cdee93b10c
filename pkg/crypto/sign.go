package crypto

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// SignRecord signs canonical (the caller-supplied canonical serialization
// of the unsigned File record) concatenated with a little-endian u64
// millisecond timestamp (spec §4.4 "Record signature").
func SignRecord(a *AccountKey, canonical []byte, timestampMs int64) []byte {
	msg := appendTimestamp(canonical, timestampMs)
	return a.Sign(msg)
}

// VerifyRecordSignature checks a record signature against the signer's
// public key and rejects timestamps outside the accepted skew window
// (spec §4.4, §6 "the server accepts only timestamps within a bounded
// skew of its clock"; the skew check is parameterized per §9's open
// question rather than hardcoded).
func VerifyRecordSignature(publicKey string, canonical []byte, timestampMs int64, sig []byte, now time.Time, skew time.Duration) error {
	ts := time.UnixMilli(timestampMs)
	if ts.Before(now.Add(-skew)) || ts.After(now.Add(skew)) {
		return fmt.Errorf("signature timestamp %s outside skew window %s of %s", ts, skew, now)
	}
	msg := appendTimestamp(canonical, timestampMs)
	if !VerifySignature(publicKey, msg, sig) {
		return fmt.Errorf("invalid record signature")
	}
	return nil
}

func appendTimestamp(canonical []byte, timestampMs int64) []byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(timestampMs))
	msg := make([]byte, 0, len(canonical)+8)
	msg = append(msg, canonical...)
	msg = append(msg, ts[:]...)
	return msg
}

// NowMillis returns the current time in unix milliseconds, the unit
// SignedFile.Timestamp is stored in.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// SignFile signs f as of now under account, producing a fresh SignedFile.
// Used whenever the client authors or mutates a record: creation, rename,
// move, deletion, and every merge remediation that rewrites a record
// locally (spec §4.3 Phase 2) must re-sign since the signature covers the
// full record content.
func SignFile(account *AccountKey, f model.File) (*model.SignedFile, error) {
	canonical, err := f.Canonical()
	if err != nil {
		return nil, fmt.Errorf("sign file: canonical: %w", err)
	}
	ts := NowMillis()
	sig := SignRecord(account, canonical, ts)
	return &model.SignedFile{
		File:      f,
		Timestamp: ts,
		PublicKey: account.PublicKey(),
		Signature: sig,
	}, nil
}
