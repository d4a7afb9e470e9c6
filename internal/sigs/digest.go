package sigs

import (
	"crypto/sha512"
	"encoding/base64"
	"strings"

	"github.com/fedcore/federation/internal/crypto"
)

// Digests is the set of algorithm -> raw digest bytes parsed from a legacy
// Digest header or an RFC-9530 Content-Digest header (§4.3.3).
type Digests map[string][]byte

// ParseLegacyDigest parses the comma-separated alg=base64 form of the
// legacy Digest header.
func ParseLegacyDigest(header string) Digests {
	out := make(Digests)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		alg := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		raw, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			continue
		}
		out[normalizeDigestAlg(alg)] = raw
	}
	return out
}

// ParseContentDigest parses the RFC-9530 structured-dictionary form:
// sha-256=:base64:, sha-512=:base64:, comma-separated.
func ParseContentDigest(header string) Digests {
	out := make(Digests)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		alg := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		val = strings.Trim(val, ":")
		raw, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			continue
		}
		out[normalizeDigestAlg(alg)] = raw
	}
	return out
}

func normalizeDigestAlg(alg string) string {
	switch alg {
	case "sha-256":
		return "sha256"
	case "sha-512":
		return "sha512"
	default:
		return alg
	}
}

// Matches reports whether any shared known algorithm between d and the
// digest recomputed from body is equal. §4.3.3: "equality over digests is
// by set membership on known-algorithm entries."
func (d Digests) Matches(body []byte) bool {
	if want, ok := d["sha256"]; ok && equalBytes(want, crypto.SHA256(body)) {
		return true
	}
	if want, ok := d["sha512"]; ok {
		sum := sha512.Sum512(body)
		if equalBytes(want, sum[:]) {
			return true
		}
	}
	return false
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
