package ids

import "strings"

const gatewayWellKnownPrefix = "/.well-known/apgateway/"

// CanonicalizeID implements §4.2's canonicalize_id: it returns the canonical
// URI used for signatures and DB keys, plus the HTTP origin to remember as a
// gateway candidate when the input was a gateway URL for a portable actor.
//
// If input is HTTP and its path starts with the gateway well-known prefix
// followed by a did:, the HTTP origin is rewritten to ap://did:.../path and
// the HTTP origin is returned as a learned gateway. Otherwise the input is
// normalized and returned as-is in HTTP form.
func CanonicalizeID(rawURL string) (canonical string, gateway string, err error) {
	if strings.HasPrefix(rawURL, apScheme) {
		if _, err := ParseApUri(rawURL); err != nil {
			return "", "", err
		}
		return rawURL, "", nil
	}

	h, err := ParseHttpUri(rawURL)
	if err != nil {
		return "", "", err
	}

	if i := strings.Index(h.Path(), gatewayWellKnownPrefix); i >= 0 {
		rest := h.Path()[i+len(gatewayWellKnownPrefix):]
		if strings.HasPrefix(rest, "did:") {
			ap := apScheme + rest
			if h.Query() != "" {
				ap += "?" + h.Query()
			}
			if h.Fragment() != "" {
				ap += "#" + h.Fragment()
			}
			gw := h.Scheme() + "://" + h.Authority()
			return ap, gw, nil
		}
	}

	return h.String(), "", nil
}

// IsCanonicalizationIdempotent re-applies CanonicalizeID to its own output
// and reports whether the result is stable — used by the property test for
// invariant 3 in spec.md §8.
func IsCanonicalizationIdempotent(rawURL string) (bool, error) {
	first, _, err := CanonicalizeID(rawURL)
	if err != nil {
		return false, err
	}
	second, _, err := CanonicalizeID(first)
	if err != nil {
		return false, err
	}
	return first == second, nil
}
