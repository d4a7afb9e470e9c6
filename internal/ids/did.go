package ids

import (
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/crypto"
)

// DidUrl is `did:method:specific#fragment?params` (§4.2).
type DidUrl struct {
	Method   string
	Specific string
	Fragment string
	Params   string
}

// ParseDidUrl parses a generic DID URL without interpreting the method.
func ParseDidUrl(s string) (*DidUrl, error) {
	if !strings.HasPrefix(s, "did:") {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "not a did")
	}
	rest := s[len("did:"):]
	params := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		params = rest[i+1:]
		rest = rest[:i]
	}
	frag := ""
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		frag = rest[i+1:]
		rest = rest[:i]
	}
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "did missing method separator")
	}
	return &DidUrl{Method: rest[:i], Specific: rest[i+1:], Fragment: frag, Params: params}, nil
}

func (d *DidUrl) String() string {
	var b strings.Builder
	b.WriteString("did:")
	b.WriteString(d.Method)
	b.WriteByte(':')
	b.WriteString(d.Specific)
	if d.Params != "" {
		b.WriteByte('?')
		b.WriteString(d.Params)
	}
	if d.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(d.Fragment)
	}
	return b.String()
}

// Did is the sum type {DidKey, DidPkh} (§3.1).
type Did interface {
	isDid()
	String() string
}

// DidKey is `did:key:<multibase-encoded-pubkey>`, currently Ed25519-only.
type DidKey struct {
	PubKey []byte // raw Ed25519 public key
	Codec  uint64 // multicodec tag, CodecEd25519Pub today
}

func (DidKey) isDid() {}

func (k DidKey) String() string {
	enc, _ := crypto.MultibaseBase58BTCEncode(crypto.MulticodecEncode(k.Codec, k.PubKey))
	return "did:key:" + enc
}

// DidPkh is `did:pkh:<chainId>:<address>`, used for Ethereum accounts.
type DidPkh struct {
	ChainID string
	Address string
}

func (DidPkh) isDid() {}

func (p DidPkh) String() string {
	return "did:pkh:" + p.ChainID + ":" + p.Address
}

// ParseDid parses a did:key or did:pkh string into the Did sum type.
func ParseDid(s string) (Did, error) {
	u, err := ParseDidUrl(s)
	if err != nil {
		return nil, err
	}
	switch u.Method {
	case "key":
		raw, err := crypto.DecodeEd25519PublicKeyMultibase(u.Specific)
		if err != nil {
			return nil, err
		}
		return DidKey{PubKey: raw, Codec: crypto.CodecEd25519Pub}, nil
	case "pkh":
		parts := strings.SplitN(u.Specific, ":", 2)
		if len(parts) != 2 {
			return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "did:pkh requires chainId:address")
		}
		return DidPkh{ChainID: parts[0], Address: parts[1]}, nil
	default:
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeUnsupportedAlgorithm, "unsupported did method: "+u.Method)
	}
}
