package model

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// FileId is a 128-bit opaque identifier, generated client-side and
// globally unique (spec §3.1). It is a plain value type so it can be used
// as a map key throughout pkg/tree.
type FileId [16]byte

// NewFileId allocates a fresh, random FileId.
func NewFileId() FileId {
	return FileId(uuid.New())
}

func (id FileId) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value, used as a "no parent"/"not
// set" sentinel in a few places (e.g. an unresolved ".." at a root).
func (id FileId) IsZero() bool {
	return id == FileId{}
}

// DocHmac is the 32-byte HMAC-SHA256 over a document's compressed
// plaintext (spec §3.1, §4.4); it is both the content identifier and the
// optimistic-concurrency token for a document body.
type DocHmac [32]byte

func (h DocHmac) String() string {
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// Username is lowercase ASCII, bounded length, unique per server (spec §3.1).
type Username string

// Owner is the public key of the owning account, used as the map key for
// share addressing.
type Owner string

// ValidateUsername enforces the bounded-length lowercase-ASCII shape
// spec §3.1 requires, returning KindUsernameInvalid on violation.
func ValidateUsername(u string) *CoreError {
	if len(u) == 0 || len(u) > 64 {
		return E(KindUsernameInvalid, "username must be 1-64 characters: %q", u)
	}
	for _, r := range u {
		if r < 'a' || r > 'z' {
			if r >= '0' && r <= '9' {
				continue
			}
			return E(KindUsernameInvalid, "username must be lowercase ascii/digits: %q", u)
		}
	}
	return nil
}

// NormalizeUsername lowercases a username for comparison, mirroring the
// server's canonical form.
func NormalizeUsername(u string) Username {
	return Username(strings.ToLower(u))
}
