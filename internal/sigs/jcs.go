// Package sigs implements spec.md §4.3: HTTP message signatures (Draft-Cavage
// and RFC-9421), content digests, and JSON data integrity proofs over
// JCS-canonicalized documents. There is no teacher equivalent for any of this
// (Synnergy signs raw transaction bytes, not JSON-LD documents), so it is
// built fresh, grounded on the algorithms in
// original_source/apx_core/src/json_signatures and
// original_source/apx_core/src/http_signatures, using the teacher's crypto
// stack (internal/crypto, itself adapted from core/security.go and
// core/wallet.go) for the underlying sign/verify primitives.
package sigs

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CanonicalizeJCS renders v as JSON Canonicalization Scheme text (RFC 8785):
// object keys sorted by UTF-16 code unit, no insignificant whitespace,
// numbers serialized per the ECMAScript Number::toString algorithm. No
// third-party JCS implementation appears anywhere in the reference corpus,
// so this is a direct, from-scratch stdlib implementation: justified in
// DESIGN.md as an unavoidable stdlib fallback.
func CanonicalizeJCS(v any) (string, error) {
	var generic any
	switch vv := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(vv, &generic); err != nil {
			return "", fmt.Errorf("jcs: decode: %w", err)
		}
	case []byte:
		if err := json.Unmarshal(vv, &generic); err != nil {
			return "", fmt.Errorf("jcs: decode: %w", err)
		}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("jcs: encode: %w", err)
		}
		if err := json.Unmarshal(encoded, &generic); err != nil {
			return "", fmt.Errorf("jcs: decode: %w", err)
		}
	}
	var b strings.Builder
	if err := writeCanonical(&b, generic); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch vv := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if vv {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		encoded, err := json.Marshal(vv)
		if err != nil {
			return err
		}
		b.Write(encoded)
	case float64:
		b.WriteString(canonicalNumber(vv))
	case []any:
		b.WriteByte('[')
		for i, item := range vv {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return utf16Less(keys[i], keys[j]) })
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyEnc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyEnc)
			b.WriteByte(':')
			if err := writeCanonical(b, vv[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("jcs: unsupported type %T", v)
	}
	return nil
}

// utf16Less orders a, b by their UTF-16 code unit sequences, as RFC 8785
// requires for object key ordering.
func utf16Less(a, b string) bool {
	ua, ub := toUTF16(a), toUTF16(b)
	n := len(ua)
	if len(ub) < n {
		n = len(ub)
	}
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

func toUTF16(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			r -= 0x10000
			out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
		} else {
			out = append(out, uint16(r))
		}
	}
	return out
}

// canonicalNumber renders f per the ECMAScript Number::toString algorithm
// used by RFC 8785 §3.2.2.3. Integral values within safe-integer range print
// without a decimal point or exponent.
func canonicalNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		panic("jcs: non-finite number")
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.Contains(s, "e") {
		s = strings.Replace(s, "e+0", "e+", 1)
		s = strings.Replace(s, "e-0", "e-", 1)
	}
	return s
}
