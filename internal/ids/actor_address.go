package ids

import (
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
)

// ActorAddress is `user@host` with a lowercased host (§4.2).
type ActorAddress struct {
	User string
	Host string
}

// ParseActorAddress parses "user@host", lowercasing host.
func ParseActorAddress(s string) (ActorAddress, error) {
	s = strings.TrimPrefix(s, "acct:")
	i := strings.LastIndexByte(s, '@')
	if i <= 0 || i == len(s)-1 {
		return ActorAddress{}, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "expected user@host")
	}
	return ActorAddress{User: s[:i], Host: strings.ToLower(s[i+1:])}, nil
}

func (a ActorAddress) String() string { return a.User + "@" + a.Host }

// ToAcctURI yields the WebFinger "acct:" resource string.
func (a ActorAddress) ToAcctURI() string { return "acct:" + a.User + "@" + a.Host }
