// Package crypto implements the cryptographic primitives fedcore depends on:
// RSA and Ed25519 keygen/sign/verify, multibase/multicodec framing, and
// content hashing. Grounded on the Sign/Verify dispatch and per-package
// logger pattern of the teacher's core/security.go and core/wallet.go,
// generalized to RSA-PKCS1 + Ed25519 only (BLS/Dilithium dropped: not named
// by the spec — see DESIGN.md).
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"github.com/fedcore/federation/internal/aperrors"
)

const RSAKeyBits = 2048

// RsaKeypair is a 2048-bit RSA key used for the legacy actor publicKey and
// for MitraJcsRsaSignature2022 proofs.
type RsaKeypair struct {
	Private *rsa.PrivateKey
}

// GenerateRSAKeypair creates a fresh 2048-bit RSA keypair.
func GenerateRSAKeypair() (*RsaKeypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "generate rsa key", err)
	}
	return &RsaKeypair{Private: priv}, nil
}

// PublicKey returns the RSA public key.
func (k *RsaKeypair) PublicKey() *rsa.PublicKey { return &k.Private.PublicKey }

// ToPKCS1DER serializes the private key as PKCS#1 DER.
func (k *RsaKeypair) ToPKCS1DER() []byte {
	return x509.MarshalPKCS1PrivateKey(k.Private)
}

// ToPKCS8PEM serializes the private key as PKCS#8 PEM.
func (k *RsaKeypair) ToPKCS8PEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return "", aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "marshal pkcs8", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// RSAKeypairFromPKCS8PEM parses a PKCS#8 PEM-encoded RSA private key.
func RSAKeypairFromPKCS8PEM(pemData string) (*RsaKeypair, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "parse pkcs8", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "not an rsa key")
	}
	return &RsaKeypair{Private: rsaKey}, nil
}

// RSAPublicKeyFromPKIXPEM parses an RSA public key from a PKIX PEM block
// (the form used in an actor document's publicKeyPem).
func RSAPublicKeyFromPKIXPEM(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "parse pkix", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeBadEncoding, "not an rsa key")
	}
	return rsaPub, nil
}

// RSAPublicKeyToPKIXPEM serializes pub as a PKIX PEM block.
func RSAPublicKeyToPKIXPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "marshal pkix", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// RSASignSHA256 signs msg with RSASSA-PKCS1-v1_5 over its SHA-256 digest.
func RSASignSHA256(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "rsa sign", err)
	}
	return sig, nil
}

// RSAVerifySHA256 verifies sig over msg using RSASSA-PKCS1-v1_5 / SHA-256.
func RSAVerifySHA256(pub *rsa.PublicKey, msg, sig []byte) error {
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return aperrors.Wrap(aperrors.KindAuth, aperrors.CodeVerificationFailed, "rsa verify", err)
	}
	return nil
}
