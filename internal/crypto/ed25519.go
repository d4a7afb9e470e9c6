package crypto

import (
	"crypto/ed25519"
	crand "crypto/rand"

	"github.com/fedcore/federation/internal/aperrors"
)

// Ed25519Keypair is a 32-byte secret / 32-byte public Ed25519 key, used for
// the DID-key style portable identity and for EdDSA-JCS-2022 proofs.
type Ed25519Keypair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateEd25519Keypair creates a fresh Ed25519 keypair.
func GenerateEd25519Keypair() (*Ed25519Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "generate ed25519 key", err)
	}
	return &Ed25519Keypair{Private: priv, Public: pub}, nil
}

// Ed25519KeypairFromSeed reconstructs a keypair from its 32-byte seed.
func Ed25519KeypairFromSeed(seed []byte) (*Ed25519Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "invalid ed25519 seed length")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519Keypair{Private: priv, Public: pub}, nil
}

// Seed returns the 32-byte seed backing the private key.
func (k *Ed25519Keypair) Seed() []byte { return k.Private.Seed() }

// Ed25519Sign signs msg, returning a 64-byte signature.
func Ed25519Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Ed25519Verify verifies a 64-byte signature over msg.
func Ed25519Verify(pub ed25519.PublicKey, msg, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return aperrors.New(aperrors.KindAuth, aperrors.CodeBadEncoding, "invalid ed25519 signature length")
	}
	if !ed25519.Verify(pub, msg, sig) {
		return aperrors.New(aperrors.KindAuth, aperrors.CodeVerificationFailed, "ed25519 signature mismatch")
	}
	return nil
}
