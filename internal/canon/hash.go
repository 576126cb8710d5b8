package canon

import (
	"crypto/sha256"
	"fmt"
)

// Digest computes a domain-separated SHA-256 digest over the canonical
// encoding of v.
//
// Layout: SHA256(domain || 0x00 || canonical(v)). The null separator
// prevents domain/payload boundary ambiguity. Domains carry a version
// suffix (e.g. "noughts/feechange/v1") so the algorithm can migrate
// without silently colliding with old digests.
func Digest(domain string, v any) ([32]byte, error) {
	payload, err := Marshal(v)
	if err != nil {
		return [32]byte{}, fmt.Errorf("digest %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
