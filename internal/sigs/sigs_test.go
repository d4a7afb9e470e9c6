package sigs

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"testing"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/crypto"
)

// S1 — Cavage GET verification (spec.md §8).
func TestCavageS1Scenario(t *testing.T) {
	req := &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: "/user/123/inbox"},
		Header: http.Header{},
	}
	req.Header.Set("Host", "example.com")
	req.Header.Set("Date", "20 Oct 2022 20:00:00 GMT")
	sigHeader := `keyId="https://myserver.org/actor#main-key",algorithm=hs2019,headers="(request-target) host date",signature="test"`

	sig, err := ParseCavageSignature(sigHeader)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	base, err := CavageSignatureBase(req, sig.Headers, "", "")
	if err != nil {
		t.Fatalf("base: %v", err)
	}
	want := "(request-target): get /user/123/inbox\nhost: example.com\ndate: 20 Oct 2022 20:00:00 GMT"
	if base != want {
		t.Fatalf("base mismatch:\n got: %q\nwant: %q", base, want)
	}

	_, err = VerifyCavageSignature(req, sig, func(base string, signature []byte) error { return nil }, time.Now())
	if err == nil {
		t.Fatal("expected Expired error against current time")
	}
	if code, _ := aperrors.CodeOf(err); code != aperrors.CodeExpired {
		t.Fatalf("expected expired code, got %v", err)
	}
}

// S2 — RFC-9421 POST base reconstruction (spec.md §8).
func TestRFC9421S2Scenario(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	digest := crypto.SHA256(body)
	contentDigestVal := "sha-256=:" + base64.StdEncoding.EncodeToString(digest) + ":"

	req := &http.Request{
		Method: http.MethodPost,
		URL:    &url.URL{Path: "/foo", RawQuery: "param=Value&Pet=dog"},
		Host:   "example.com",
		Header: http.Header{},
	}
	req.Header.Set("Date", "Tue, 20 Apr 2021 02:07:55 GMT")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", "18")
	req.Header.Set("Content-Digest", contentDigestVal)

	sigInputHeader := `sig-b26=("date" "@method" "@path" "@authority" "content-type" "content-length");created=1618884473;keyid="https://example.com/actor#test-key-ed25519"`
	sig, err := ParseRFC9421SignatureInput(sigInputHeader, `sig-b26=:`+base64.StdEncoding.EncodeToString([]byte("x"))+`:`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	base, err := RFC9421SignatureBase(req, sig.Components, sig.SignatureParamsLine())
	if err != nil {
		t.Fatalf("base: %v", err)
	}
	want := `"date": Tue, 20 Apr 2021 02:07:55 GMT` + "\n" +
		`"@method": POST` + "\n" +
		`"@path": /foo` + "\n" +
		`"@authority": example.com` + "\n" +
		`"content-type": application/json` + "\n" +
		`"content-length": 18` + "\n" +
		`"@signature-params": ("date" "@method" "@path" "@authority" "content-type" "content-length");created=1618884473;keyid="https://example.com/actor#test-key-ed25519"`
	if base != want {
		t.Fatalf("base mismatch:\n got: %q\nwant: %q", base, want)
	}
}

// S3 — EdDSA-JCS-2022 FEP-8b32 test vector (spec.md §8), reproduced from
// apx_core/src/json_signatures/verify.rs
// test_create_and_verify_eddsa_signature_fep_8b32_test_vector.
func TestEddsaJCSFep8b32Vector(t *testing.T) {
	seed, err := crypto.DecodeEd25519SeedMultibase("z3u2en7t5LR2WtQH5PfFqMqwVHBeXouLzo6haApm8XHqvjxq")
	if err != nil {
		t.Fatalf("decode seed: %v", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	keyID := "https://server.example/users/alice#ed25519-key"
	createdAt, err := time.Parse(time.RFC3339, "2023-02-24T23:36:38Z")
	if err != nil {
		t.Fatal(err)
	}

	object := json.RawMessage(`{
		"@context": ["https://www.w3.org/ns/activitystreams", "https://w3id.org/security/data-integrity/v2"],
		"id": "https://server.example/activities/1",
		"type": "Create",
		"actor": "https://server.example/users/alice",
		"object": {
			"id": "https://server.example/objects/1",
			"type": "Note",
			"attributedTo": "https://server.example/users/alice",
			"content": "Hello world",
			"location": {
				"type": "Place",
				"longitude": -71.184902,
				"latitude": 25.273962
			}
		}
	}`)

	proofContext := json.RawMessage(`["https://www.w3.org/ns/activitystreams", "https://w3id.org/security/data-integrity/v2"]`)
	proofConfig := ProofConfig{
		Type:               TypeDataIntegrityProof,
		Cryptosuite:        CryptosuiteEddsaJCS,
		ProofPurpose:       PurposeAssertionMethod,
		VerificationMethod: keyID,
		Created:            createdAt,
		Context:            proofContext,
	}

	proofValue, err := SignEddsaJCS(priv, object, proofConfig)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	want := "z42ffGu6AUKPCFcFPiabmUvnGLPJzC7e4DGWC52NUasSSH37UMa9c58tdgVszUcZfytxa4fQ5TYHaJENCxUDe9SdL"
	if proofValue != want {
		t.Fatalf("proofValue mismatch:\n got: %s\nwant: %s", proofValue, want)
	}

	// Verify round-trip through ExtractProof/VerifyEddsaJCS.
	pub := priv.Public().(ed25519.PublicKey)
	signed := buildSignedObject(t, object, proofConfig, proofValue)
	extracted, err := ExtractProof(signed)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := VerifyEddsaJCS(pub, extracted); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Re-serializing with different key order does not invalidate the
	// signature (invariant 5): reorder top-level keys of the signed object.
	var m map[string]json.RawMessage
	if err := json.Unmarshal(signed, &m); err != nil {
		t.Fatal(err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	reordered := []byte("{")
	for i, k := range keys {
		if i > 0 {
			reordered = append(reordered, ',')
		}
		kj, _ := json.Marshal(k)
		reordered = append(append(append(reordered, kj...), ':'), m[k]...)
	}
	reordered = append(reordered, '}')
	extracted2, err := ExtractProof(reordered)
	if err != nil {
		t.Fatalf("extract reordered: %v", err)
	}
	if err := VerifyEddsaJCS(pub, extracted2); err != nil {
		t.Fatalf("verify reordered: %v", err)
	}
}

func buildSignedObject(t *testing.T, object json.RawMessage, cfg ProofConfig, proofValue string) json.RawMessage {
	t.Helper()
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(object, &obj); err != nil {
		t.Fatal(err)
	}
	proof := map[string]any{
		"@context":           cfg.Context,
		"type":               cfg.Type,
		"cryptosuite":        cfg.Cryptosuite,
		"proofPurpose":       cfg.ProofPurpose,
		"verificationMethod": cfg.VerificationMethod,
		"created":            cfg.Created.Format(time.RFC3339),
		"proofValue":         proofValue,
	}
	proofJSON, err := json.Marshal(proof)
	if err != nil {
		t.Fatal(err)
	}
	obj["proof"] = proofJSON
	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

