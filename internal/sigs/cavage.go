package sigs

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
)

// CavageSignature is a parsed Draft-Cavage Signature header (§4.3.1).
type CavageSignature struct {
	KeyID     string
	Algorithm string
	Headers   []string // component order, lowercase
	Signature []byte
	Created   *time.Time
	Expires   *time.Time
}

// ParseCavageSignature parses the Signature header's key="value" params.
func ParseCavageSignature(header string) (*CavageSignature, error) {
	params := parseSigParams(header)
	sig := &CavageSignature{
		KeyID:     params["keyId"],
		Algorithm: params["algorithm"],
	}
	if sig.KeyID == "" {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "missing keyId")
	}
	if h, ok := params["headers"]; ok && h != "" {
		sig.Headers = strings.Fields(h)
	} else {
		sig.Headers = []string{"(created)"}
	}
	sigB64, ok := params["signature"]
	if !ok {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "missing signature")
	}
	raw, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "signature not base64", err)
	}
	sig.Signature = raw
	if c, ok := params["created"]; ok {
		t, err := parseUnixSeconds(c)
		if err != nil {
			return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "bad created", err)
		}
		sig.Created = &t
	}
	if e, ok := params["expires"]; ok {
		t, err := parseUnixSeconds(e)
		if err != nil {
			return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "bad expires", err)
		}
		sig.Expires = &t
	}
	return sig, nil
}

func parseSigParams(header string) map[string]string {
	out := make(map[string]string)
	for _, field := range splitSigParams(header) {
		eq := strings.Index(field, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(field[:eq])
		val := strings.TrimSpace(field[eq+1:])
		val = strings.Trim(val, `"`)
		out[key] = val
	}
	return out
}

// splitSigParams splits on commas that are outside double quotes.
func splitSigParams(s string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	for _, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case ',':
			if inQuotes {
				b.WriteRune(r)
			} else {
				fields = append(fields, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		fields = append(fields, b.String())
	}
	return fields
}

func parseUnixSeconds(s string) (time.Time, error) {
	var secs int64
	if _, err := fmt.Sscanf(s, "%d", &secs); err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}

// CavageSignatureBase builds the signature base string for the given
// request, components list, and created/expires parameter strings (§4.3.1).
// created and expires are the literal parameter strings (unix-seconds or
// absent) and are written verbatim into the "(created)" and "(expires)"
// lines; this function does not read the Date header. VerifyCavageSignature
// handles a missing created parameter by requiring a Date header (parsed as
// RFC-2822) and passing that header's text as created.
func CavageSignatureBase(req *http.Request, components []string, created, expires string) (string, error) {
	var lines []string
	for _, name := range components {
		switch name {
		case "(request-target)":
			lines = append(lines, fmt.Sprintf("(request-target): %s %s", strings.ToLower(req.Method), req.URL.Path))
		case "(created)":
			lines = append(lines, fmt.Sprintf("(created): %s", created))
		case "(expires)":
			lines = append(lines, fmt.Sprintf("(expires): %s", expires))
		default:
			val, err := cavageHeaderValue(req, name)
			if err != nil {
				return "", err
			}
			lines = append(lines, fmt.Sprintf("%s: %s", name, val))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func cavageHeaderValue(req *http.Request, name string) (string, error) {
	if strings.EqualFold(name, "host") {
		if h := req.Header.Get("Host"); h != "" {
			return h, nil
		}
		return req.Host, nil
	}
	values := req.Header.Values(http.CanonicalHeaderKey(name))
	if len(values) == 0 {
		return "", aperrors.New(aperrors.KindAuth, aperrors.CodeMissingHeader, name)
	}
	return strings.Join(values, ", "), nil
}

// VerifyCavageResult is the outcome of VerifyCavageSignature: the base that
// was verified and the effective expiry, for caller-side logging.
type VerifyCavageResult struct {
	Base    string
	Expires time.Time
}

// VerifyCavageSignature validates a Draft-Cavage request per §4.3.1 and
// §4.3.5, given the already-parsed signature and a function that resolves a
// keyId to a public-key verifier. now is the reference clock for expiry.
func VerifyCavageSignature(req *http.Request, sig *CavageSignature, verify func(base string, signature []byte) error, now time.Time) (*VerifyCavageResult, error) {
	if sig.Algorithm != "" && !isSupportedCavageAlgorithm(sig.Algorithm) {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeUnsupportedAlgorithm, sig.Algorithm)
	}

	created := sig.Created
	createdParam := ""
	if created != nil {
		createdParam = fmt.Sprintf("%d", created.Unix())
	} else {
		dateHeader := req.Header.Get("Date")
		if dateHeader == "" {
			return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeMissingHeader, "date")
		}
		t, err := mail.ParseDate(dateHeader)
		if err != nil {
			return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "bad date header", err)
		}
		created = &t
		createdParam = dateHeader
	}

	expires := sig.Expires
	expiresParam := ""
	if expires != nil {
		expiresParam = fmt.Sprintf("%d", expires.Unix())
	} else {
		e := created.Add(12 * time.Hour)
		expires = &e
	}

	if req.Method == http.MethodPost {
		digestHeader := req.Header.Get("Digest")
		contentDigestHeader := req.Header.Get("Content-Digest")
		if digestHeader == "" && contentDigestHeader == "" {
			return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeNoDigest, "POST requires a digest header")
		}
	}

	base, err := CavageSignatureBase(req, sig.Headers, createdParam, expiresParam)
	if err != nil {
		return nil, err
	}

	if now.After(*expires) {
		return &VerifyCavageResult{Base: base, Expires: *expires}, aperrors.New(aperrors.KindAuth, aperrors.CodeExpired, "signature expired")
	}

	if err := verify(base, sig.Signature); err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeInvalid, "signature verification failed", err)
	}

	return &VerifyCavageResult{Base: base, Expires: *expires}, nil
}

func isSupportedCavageAlgorithm(alg string) bool {
	switch alg {
	case "hs2019", "rsa-sha256", "ed25519", "":
		return true
	default:
		return false
	}
}
