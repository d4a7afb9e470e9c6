package ids_test

import (
	"testing"

	"github.com/fedcore/federation/internal/ids"
)

func TestCanonicalizeGatewayURL(t *testing.T) {
	canonical, gw, err := ids.CanonicalizeID("https://relay.example/.well-known/apgateway/did:key:z6Mk.../inbox")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if canonical != "ap://did:key:z6Mk.../inbox" {
		t.Fatalf("unexpected canonical id: %s", canonical)
	}
	if gw != "https://relay.example" {
		t.Fatalf("unexpected gateway: %s", gw)
	}
}

func TestCanonicalizeOrdinaryURL(t *testing.T) {
	canonical, gw, err := ids.CanonicalizeID("https://EXAMPLE.COM/users/alice")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if canonical != "https://example.com/users/alice" {
		t.Fatalf("host should be lowercased, got %s", canonical)
	}
	if gw != "" {
		t.Fatalf("expected no gateway, got %s", gw)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	for _, u := range []string{
		"https://relay.example/.well-known/apgateway/did:key:z6Mk.../inbox",
		"https://example.com/users/alice",
		"ap://did:key:z6Mk.../inbox",
	} {
		ok, err := ids.IsCanonicalizationIdempotent(u)
		if err != nil {
			t.Fatalf("%s: %v", u, err)
		}
		if !ok {
			t.Fatalf("canonicalization not idempotent for %s", u)
		}
	}
}

func TestParseHttpUriRejectsMixedCaseHost(t *testing.T) {
	if _, err := ids.ParseHttpUri("https://Example.COM/x"); err == nil {
		t.Fatal("expected mixed-case host to be rejected")
	}
}

func TestParseHttpUriOrigin(t *testing.T) {
	u, err := ids.ParseHttpUri("https://example.com:8443/x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := u.Origin()
	if o.Scheme != "https" || o.Host != "example.com" || o.Port != 8443 {
		t.Fatalf("unexpected origin: %+v", o)
	}
}

func TestParseActorAddress(t *testing.T) {
	addr, err := ids.ParseActorAddress("Alice@Example.com")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.Host != "example.com" {
		t.Fatalf("host not lowercased: %s", addr.Host)
	}
	if addr.ToAcctURI() != "acct:Alice@example.com" {
		t.Fatalf("unexpected acct uri: %s", addr.ToAcctURI())
	}
}

func TestParseDidKeyRoundTrip(t *testing.T) {
	const didStr = "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
	d, err := ids.ParseDid(didStr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != didStr {
		t.Fatalf("round trip mismatch: got %s want %s", d.String(), didStr)
	}
	key, ok := d.(ids.DidKey)
	if !ok {
		t.Fatalf("expected DidKey, got %T", d)
	}
	if len(key.PubKey) != 32 {
		t.Fatalf("expected 32-byte ed25519 pubkey, got %d", len(key.PubKey))
	}
}
