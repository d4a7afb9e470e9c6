package sigs

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
)

// RFC9421Signature is one entry of the RFC-9421 Signature-Input dictionary,
// plus its associated raw signature bytes from Signature (§4.3.2).
type RFC9421Signature struct {
	Label      string
	Components []string // derived names (@method, ...) or lowercase header names, in order
	Params     string   // the serialized parameter list, e.g. ;created=123;keyid="..."
	KeyID      string
	Signature  []byte
}

// ParseRFC9421SignatureInput parses the first dictionary entry of a
// Signature-Input header and the matching entry of a Signature header.
// Only the first entry is used, per §4.3.2.
func ParseRFC9421SignatureInput(signatureInput, signature string) (*RFC9421Signature, error) {
	label, componentsPart, params, err := splitSignatureInputEntry(signatureInput)
	if err != nil {
		return nil, err
	}
	components, err := parseInnerList(componentsPart)
	if err != nil {
		return nil, err
	}
	keyID := extractParam(params, "keyid")

	sigBytes, err := extractSignatureBytes(signature, label)
	if err != nil {
		return nil, err
	}

	return &RFC9421Signature{
		Label:      label,
		Components: components,
		Params:     params,
		KeyID:      keyID,
		Signature:  sigBytes,
	}, nil
}

// splitSignatureInputEntry extracts the first "label=(...);params" entry.
func splitSignatureInputEntry(header string) (label, list, params string, err error) {
	header = strings.TrimSpace(header)
	idx := strings.Index(header, ",")
	entry := header
	if idx >= 0 {
		entry = header[:idx]
	}
	eq := strings.Index(entry, "=")
	if eq < 0 {
		return "", "", "", aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "no signature-input entry")
	}
	label = strings.TrimSpace(entry[:eq])
	rest := strings.TrimSpace(entry[eq+1:])
	if !strings.HasPrefix(rest, "(") {
		return "", "", "", aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "signature-input not a list")
	}
	close := strings.Index(rest, ")")
	if close < 0 {
		return "", "", "", aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "unterminated inner list")
	}
	list = rest[1:close]
	params = rest[close+1:]
	return label, list, params, nil
}

func parseInnerList(s string) ([]string, error) {
	var out []string
	for _, f := range strings.Fields(s) {
		out = append(out, strings.Trim(f, `"`))
	}
	return out, nil
}

func extractParam(params, name string) string {
	for _, part := range strings.Split(params, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		if strings.TrimSpace(part[:eq]) == name {
			return strings.Trim(strings.TrimSpace(part[eq+1:]), `"`)
		}
	}
	return ""
}

func extractSignatureBytes(signatureHeader, label string) ([]byte, error) {
	prefix := label + "="
	idx := strings.Index(signatureHeader, prefix)
	if idx < 0 {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeNoSignature, "label not found in Signature header")
	}
	rest := signatureHeader[idx+len(prefix):]
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "signature not a byte sequence")
	}
	rest = rest[1:]
	end := strings.Index(rest, ":")
	if end < 0 {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "unterminated byte sequence")
	}
	return decodeBase64(rest[:end])
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// RFC9421SignatureBase reconstructs the signature base for req given the
// component list and the raw @signature-params line appended last (§4.3.2).
func RFC9421SignatureBase(req *http.Request, components []string, signatureParamsLine string) (string, error) {
	var lines []string
	for _, name := range components {
		val, err := rfc9421ComponentValue(req, name)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%q: %s", name, val))
	}
	lines = append(lines, fmt.Sprintf("%q: %s", "@signature-params", signatureParamsLine))
	return strings.Join(lines, "\n"), nil
}

func rfc9421ComponentValue(req *http.Request, name string) (string, error) {
	switch name {
	case "@method":
		return req.Method, nil
	case "@target-uri":
		return req.URL.String(), nil
	case "@path":
		return req.URL.Path, nil
	case "@query":
		if req.URL.RawQuery == "" {
			return "?", nil
		}
		return "?" + req.URL.RawQuery, nil
	case "@authority":
		if req.Host != "" {
			return req.Host, nil
		}
		return req.URL.Host, nil
	default:
		values := req.Header.Values(http.CanonicalHeaderKey(name))
		if len(values) == 0 {
			return "", aperrors.New(aperrors.KindAuth, aperrors.CodeMissingHeader, name)
		}
		return strings.Join(values, ", "), nil
	}
}

// SerializeInnerList renders components as the RFC-8941 structured-field
// inner list used inside Signature-Input, e.g. ("date" "@method").
func SerializeInnerList(components []string) string {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = strconv.Quote(c)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// SignatureParamsLine reconstructs the @signature-params value: the
// component inner list followed by the verbatim parameter suffix
// (;created=...;keyid="...") copied from the Signature-Input entry.
func (s *RFC9421Signature) SignatureParamsLine() string {
	return SerializeInnerList(s.Components) + s.Params
}

// VerifyRFC9421Signature reconstructs the base for sig's components and
// verifies it with verify. For POST requests a Content-Digest header must
// be present and must match the request body (§4.3.2, §4.3.3).
func VerifyRFC9421Signature(req *http.Request, body []byte, sig *RFC9421Signature, verify func(base string, signature []byte) error) (string, error) {
	if req.Method == http.MethodPost {
		cd := req.Header.Get("Content-Digest")
		if cd == "" {
			return "", aperrors.New(aperrors.KindAuth, aperrors.CodeNoDigest, "POST requires Content-Digest")
		}
		digests := ParseContentDigest(cd)
		if !digests.Matches(body) {
			return "", aperrors.New(aperrors.KindAuth, aperrors.CodeDigestMismatch, "content-digest mismatch")
		}
	}
	base, err := RFC9421SignatureBase(req, sig.Components, sig.SignatureParamsLine())
	if err != nil {
		return "", err
	}
	if err := verify(base, sig.Signature); err != nil {
		return base, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeInvalid, "signature verification failed", err)
	}
	return base, nil
}
