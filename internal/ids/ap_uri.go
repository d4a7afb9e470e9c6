package ids

import (
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
)

// ApUri is the portable `ap://<did>/path?query#frag` URI form (§4.2). Its
// origin is the Did itself; the gateway is a transport detail, not identity.
type ApUri struct {
	DidPart  string // the did:... segment, verbatim
	Path     string
	Query    string
	Fragment string
}

const apScheme = "ap://"

// ParseApUri parses a `ap://did:.../path?query#frag` URI.
func ParseApUri(s string) (*ApUri, error) {
	if !strings.HasPrefix(s, apScheme) {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "not an ap:// uri")
	}
	rest := s[len(apScheme):]

	frag := ""
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		frag = rest[i+1:]
		rest = rest[:i]
	}
	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		query = rest[i+1:]
		rest = rest[:i]
	}
	path := ""
	didPart := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		didPart = rest[:i]
		path = rest[i:]
	}
	if !strings.HasPrefix(didPart, "did:") {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "ap:// authority is not a did")
	}
	return &ApUri{DidPart: didPart, Path: path, Query: query, Fragment: frag}, nil
}

func (a *ApUri) String() string {
	var b strings.Builder
	b.WriteString(apScheme)
	b.WriteString(a.DidPart)
	b.WriteString(a.Path)
	if a.Query != "" {
		b.WriteByte('?')
		b.WriteString(a.Query)
	}
	if a.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(a.Fragment)
	}
	return b.String()
}

// ToHttpUrl converts the portable URI to its HTTP gateway form:
// https://<gateway>/.well-known/apgateway/<did>/path.
func (a *ApUri) ToHttpUrl(gateway string) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(gateway)
	b.WriteString("/.well-known/apgateway/")
	b.WriteString(a.DidPart)
	b.WriteString(a.Path)
	if a.Query != "" {
		b.WriteByte('?')
		b.WriteString(a.Query)
	}
	if a.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(a.Fragment)
	}
	return b.String()
}
