package crypto_test

import (
	"bytes"
	"testing"

	"github.com/fedcore/federation/internal/crypto"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateEd25519Keypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	msg := []byte("hello federation")
	sig := crypto.Ed25519Sign(kp.Private, msg)
	if err := crypto.Ed25519Verify(kp.Public, msg, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// flipping a bit of the signature must fail verification.
	bad := bytes.Clone(sig)
	bad[0] ^= 0x01
	if err := crypto.Ed25519Verify(kp.Public, msg, bad); err == nil {
		t.Fatal("expected verification failure for flipped signature")
	}

	// flipping a bit of the message must fail verification.
	badMsg := bytes.Clone(msg)
	badMsg[0] ^= 0x01
	if err := crypto.Ed25519Verify(kp.Public, badMsg, sig); err == nil {
		t.Fatal("expected verification failure for flipped message")
	}
}

func TestRSASignVerifyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateRSAKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	msg := []byte("hello federation")
	sig, err := crypto.RSASignSHA256(kp.Private, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := crypto.RSAVerifySHA256(kp.PublicKey(), msg, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
	bad := bytes.Clone(sig)
	bad[0] ^= 0x01
	if err := crypto.RSAVerifySHA256(kp.PublicKey(), msg, bad); err == nil {
		t.Fatal("expected verification failure for flipped signature")
	}
}

func TestRSAPEMRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateRSAKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pemStr, err := kp.ToPKCS8PEM()
	if err != nil {
		t.Fatalf("to pem: %v", err)
	}
	parsed, err := crypto.RSAKeypairFromPKCS8PEM(pemStr)
	if err != nil {
		t.Fatalf("from pem: %v", err)
	}
	if parsed.Private.D.Cmp(kp.Private.D) != 0 {
		t.Fatal("round-tripped key differs")
	}
}

func TestMultibaseEd25519RoundTrip(t *testing.T) {
	kp, err := crypto.GenerateEd25519Keypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	enc, err := crypto.EncodeEd25519PublicKeyMultibase(kp.Public)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc[0] != 'z' {
		t.Fatalf("expected z-prefix, got %q", enc)
	}
	dec, err := crypto.DecodeEd25519PublicKeyMultibase(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(dec, kp.Public) {
		t.Fatal("round-tripped public key differs")
	}
}

func TestMulticodecTagMismatch(t *testing.T) {
	tagged := crypto.MulticodecEncode(crypto.CodecRSAPub, []byte("not ed25519"))
	if _, _, err := crypto.MulticodecDecode(tagged, crypto.CodecEd25519Pub); err == nil {
		t.Fatal("expected tag mismatch error")
	}
}
