// Package ids implements canonical HTTP(S) URI validation, DID parsing
// (did:key, did:pkh), the portable ap:// URI, and actor-address (user@host)
// parsing, per spec.md §4.2. No teacher equivalent exists (Synnergy
// addresses nodes by multiaddr, not HTTP URI); this package is built fresh
// in the teacher's idiom: small value types, an origin() accessor, flat
// errors.New-style failures (see DESIGN.md).
package ids

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
)

// Origin identifies the (scheme, host, port) triple used for signature and
// same-origin comparisons.
type Origin struct {
	Scheme string
	Host   string
	Port   int
}

// HttpUri is a parsed, validated http(s) URI with a lowercased host.
type HttpUri struct {
	raw *url.URL
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// ParseHttpUri validates s as an http(s) URI: scheme must be http or https,
// authority must be non-empty, and the host is normalized to lowercase. Per
// spec.md §3.6, a host that was ORIGINALLY mixed-case is rejected outright
// rather than silently normalized — ambiguous casing in a URI that ends up
// inside a signature base string is a smuggling vector, not cosmetics.
// Percent-encoding in the path/query is preserved as written.
func ParseHttpUri(s string) (*HttpUri, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "parse http uri", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "unsupported scheme: "+u.Scheme)
	}
	if u.Host == "" {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "empty authority")
	}
	lower := strings.ToLower(u.Host)
	if lower != u.Host && hasUpper(u.Host) && hasLower(u.Host) {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "mixed-case host rejected: "+u.Host)
	}
	u.Host = lower
	return &HttpUri{raw: u}, nil
}

func hasUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func hasLower(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

func (h *HttpUri) Scheme() string { return h.raw.Scheme }

// Host returns the hostname without port.
func (h *HttpUri) Host() string { return h.raw.Hostname() }

// Port returns the explicit port, or the scheme default (80/443) if none
// was specified.
func (h *HttpUri) Port() int {
	if p := h.raw.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err == nil {
			return n
		}
	}
	return defaultPort(h.raw.Scheme)
}

func (h *HttpUri) Authority() string { return h.raw.Host }
func (h *HttpUri) Path() string      { return h.raw.Path }
func (h *HttpUri) Query() string     { return h.raw.RawQuery }
func (h *HttpUri) Fragment() string  { return h.raw.Fragment }
func (h *HttpUri) String() string    { return h.raw.String() }

// Origin returns the (scheme, host, port) triple of the URI.
func (h *HttpUri) Origin() Origin {
	return Origin{Scheme: h.raw.Scheme, Host: h.Host(), Port: h.Port()}
}

// SameOrigin reports whether h and other share scheme, host and port.
func (h *HttpUri) SameOrigin(other *HttpUri) bool {
	return h.Origin() == other.Origin()
}
