package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"shelfsync/internal/textutil"
)

// Fingerprint derives a deterministic cache key from a provider name, an
// operation, and the query parts. All inputs are normalized (lowercased,
// whitespace collapsed) first, so equivalent queries share one key.
func Fingerprint(providerName, operation string, parts ...string) string {
	h := sha256.New()
	io.WriteString(h, textutil.Normalize(providerName))
	h.Write([]byte{0})
	io.WriteString(h, textutil.Normalize(operation))
	for _, part := range parts {
		h.Write([]byte{0})
		io.WriteString(h, textutil.Normalize(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
