package sigs

import (
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/crypto"
)

// Cryptosuite/proof type tags (§4.3.4).
const (
	TypeDataIntegrityProof = "DataIntegrityProof"
	CryptosuiteEddsaJCS    = "eddsa-jcs-2022"

	TypeMitraJcsRsa             = "MitraJcsRsaSignature2022"
	TypeMitraJcsEip191          = "MitraJcsEip191Signature2022"
	TypeMitraJcsBlake2Ed25519   = "MitraJcsBlake2Ed25519Signature2022"

	PurposeAssertionMethod = "assertionMethod"
	PurposeAuthentication  = "authentication"
)

const (
	proofKey      = "proof"
	ldSignatureKey = "signature"
	proofValueKey  = "proofValue"
)

// ProofConfig is the proof object minus proofValue (§4.3.4).
type ProofConfig struct {
	Type                string          `json:"type"`
	Cryptosuite         string          `json:"cryptosuite,omitempty"`
	ProofPurpose        string          `json:"proofPurpose"`
	VerificationMethod  string          `json:"verificationMethod"`
	Created             time.Time       `json:"created"`
	Context             json.RawMessage `json:"@context,omitempty"`
}

// ExtractedProof is a parsed proof ready for type-dispatched verification.
type ExtractedProof struct {
	ProofType          string
	Cryptosuite        string
	VerificationMethod string
	ProofConfigJSON    json.RawMessage // the proof object, proofValue removed
	ObjectWithoutProof json.RawMessage // the signed object, proof/signature stripped
	Signature          []byte
}

// ExtractProof parses an object's embedded proof per §4.3.4: the legacy LD
// "signature" key is stripped before verification, and the proofConfig is
// the proof object minus proofValue.
func ExtractProof(object json.RawMessage) (*ExtractedProof, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(object, &generic); err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "not a JSON object", err)
	}
	delete(generic, ldSignatureKey)

	proofRaw, ok := generic[proofKey]
	if !ok {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeNoSignature, "no proof")
	}
	delete(generic, proofKey)

	var proofFields map[string]json.RawMessage
	if err := json.Unmarshal(proofRaw, &proofFields); err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "invalid proof", err)
	}

	var cfg ProofConfig
	if err := json.Unmarshal(proofRaw, &cfg); err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "invalid proof configuration", err)
	}
	if cfg.ProofPurpose != PurposeAssertionMethod && cfg.ProofPurpose != PurposeAuthentication {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeInvalidProof, "invalid proof purpose")
	}

	proofValueRaw, ok := proofFields[proofValueKey]
	if !ok {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeInvalidProof, "proofValue is missing")
	}
	var proofValue string
	if err := json.Unmarshal(proofValueRaw, &proofValue); err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "invalid proof value", err)
	}
	delete(proofFields, proofValueKey)

	proofType := cfg.Type
	if proofType == TypeDataIntegrityProof && cfg.Cryptosuite == "" {
		return nil, aperrors.New(aperrors.KindAuth, aperrors.CodeInvalidProof, "cryptosuite is not specified")
	}

	proofConfigJSON, err := json.Marshal(proofFields)
	if err != nil {
		return nil, err
	}
	objectJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.MultibaseBase58BTCDecode(proofValue)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "invalid multibase proof value", err)
	}

	return &ExtractedProof{
		ProofType:          proofType,
		Cryptosuite:        cfg.Cryptosuite,
		VerificationMethod: cfg.VerificationMethod,
		ProofConfigJSON:    proofConfigJSON,
		ObjectWithoutProof: objectJSON,
		Signature:          sig,
	}, nil
}

// eddsaSigningInput builds the SHA256(proofConfig) || SHA256(object) input
// hashed by the eddsa-jcs-2022 cryptosuite (§4.3.4).
func eddsaSigningInput(object, proofConfig any) ([]byte, error) {
	canonicalObject, err := CanonicalizeJCS(object)
	if err != nil {
		return nil, err
	}
	canonicalProofConfig, err := CanonicalizeJCS(proofConfig)
	if err != nil {
		return nil, err
	}
	objectHash := crypto.SHA256([]byte(canonicalObject))
	proofConfigHash := crypto.SHA256([]byte(canonicalProofConfig))
	out := make([]byte, 0, len(proofConfigHash)+len(objectHash))
	out = append(out, proofConfigHash...)
	out = append(out, objectHash...)
	return out, nil
}

// SignEddsaJCS signs object with the eddsa-jcs-2022 cryptosuite and returns
// the multibase-encoded proofValue (§4.3.4, FEP-8b32).
func SignEddsaJCS(priv ed25519.PrivateKey, object, proofConfig any) (string, error) {
	input, err := eddsaSigningInput(object, proofConfig)
	if err != nil {
		return "", err
	}
	sig := crypto.Ed25519Sign(priv, input)
	return crypto.MultibaseBase58BTCEncode(sig)
}

// VerifyEddsaJCS verifies an eddsa-jcs-2022 proof. VerifyProof routes only
// the "eddsa-jcs-2022" cryptosuite tag here; no legacy tag for this suite is
// recognized.
func VerifyEddsaJCS(pub []byte, p *ExtractedProof) error {
	input, err := eddsaSigningInputRaw(p.ObjectWithoutProof, p.ProofConfigJSON)
	if err != nil {
		return err
	}
	return crypto.Ed25519Verify(pub, input, p.Signature)
}

func eddsaSigningInputRaw(object, proofConfig json.RawMessage) ([]byte, error) {
	return eddsaSigningInput(object, proofConfig)
}

// SignMitraJcsRSA signs object with the legacy MitraJcsRsaSignature2022
// proof type: RSA-SHA256 directly over the canonical object, no
// digest-of-digests (§4.3.4).
func SignMitraJcsRSA(priv *rsa.PrivateKey, object any) ([]byte, error) {
	canonical, err := CanonicalizeJCS(object)
	if err != nil {
		return nil, err
	}
	return crypto.RSASignSHA256(priv, []byte(canonical))
}

// VerifyMitraJcsRSA verifies a MitraJcsRsaSignature2022 proof: RSA-SHA256
// over the canonical object, using the object with proof/signature removed.
func VerifyMitraJcsRSA(pub *rsa.PublicKey, p *ExtractedProof) error {
	canonical, err := CanonicalizeJCS(p.ObjectWithoutProof)
	if err != nil {
		return err
	}
	return crypto.RSAVerifySHA256(pub, []byte(canonical), p.Signature)
}

// VerifyMitraJcsEip191 verifies a MitraJcsEip191Signature2022 proof: the
// signer is a did:pkh Ethereum account, verified with EIP-191 personal_sign
// recovery over the canonical object.
func VerifyMitraJcsEip191(expectedAddress string, p *ExtractedProof) error {
	canonical, err := CanonicalizeJCS(p.ObjectWithoutProof)
	if err != nil {
		return err
	}
	hash := accounts.TextHash([]byte(canonical))
	recoveredPub, err := ethcrypto.SigToPub(hash, p.Signature)
	if err != nil {
		return aperrors.Wrap(aperrors.KindAuth, aperrors.CodeVerificationFailed, "ecrecover failed", err)
	}
	recoveredAddr := ethcrypto.PubkeyToAddress(*recoveredPub).Hex()
	if !addressesEqual(recoveredAddr, expectedAddress) {
		return aperrors.New(aperrors.KindAuth, aperrors.CodeVerificationFailed, "recovered address mismatch")
	}
	return nil
}

func addressesEqual(a, b string) bool {
	return foldCase(a) == foldCase(b)
}

func foldCase(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// KeyResolver resolves a verification method id to the appropriate key
// material for the proof type being checked. Exactly one of the returned
// values is non-nil/non-empty, matching the proof's expected key kind.
type KeyResolver interface {
	ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error)
	ResolveRSA(verificationMethod string) (*rsa.PublicKey, error)
	ResolveEthereumAddress(verificationMethod string) (string, error)
}

// VerifyProof extracts object's embedded proof and dispatches to the
// correct cryptosuite verifier (§4.3.4). This is the entry point fetch and
// ingress use to authenticate a portable or federated document.
func VerifyProof(object json.RawMessage, resolver KeyResolver) error {
	p, err := ExtractProof(object)
	if err != nil {
		return err
	}
	switch {
	case p.ProofType == TypeDataIntegrityProof && p.Cryptosuite == CryptosuiteEddsaJCS:
		pub, err := resolver.ResolveEd25519(p.VerificationMethod)
		if err != nil {
			return err
		}
		return VerifyEddsaJCS(pub, p)
	case p.ProofType == TypeMitraJcsRsa:
		pub, err := resolver.ResolveRSA(p.VerificationMethod)
		if err != nil {
			return err
		}
		return VerifyMitraJcsRSA(pub, p)
	case p.ProofType == TypeMitraJcsEip191:
		addr, err := resolver.ResolveEthereumAddress(p.VerificationMethod)
		if err != nil {
			return err
		}
		return VerifyMitraJcsEip191(addr, p)
	case p.ProofType == TypeMitraJcsBlake2Ed25519:
		pub, err := resolver.ResolveEd25519(p.VerificationMethod)
		if err != nil {
			return err
		}
		return VerifyMitraJcsBlake2Ed25519(pub, p)
	default:
		return aperrors.New(aperrors.KindAuth, aperrors.CodeUnsupportedAlgorithm, p.ProofType)
	}
}

// HasProof reports whether object already carries a proof or legacy LD
// signature (§4.6 step 4: "if the activity is not already signed").
func HasProof(object json.RawMessage) bool {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(object, &generic); err != nil {
		return false
	}
	_, hasProof := generic[proofKey]
	_, hasSignature := generic[ldSignatureKey]
	return hasProof || hasSignature
}

// AttachEddsaProof signs object with the sender's Ed25519 key and returns a
// copy carrying an eddsa-jcs-2022 DataIntegrityProof (§4.6 step 4). The
// proof's @context is copied from the object's, per FEP-8b32.
func AttachEddsaProof(object json.RawMessage, priv ed25519.PrivateKey, keyID string, createdAt time.Time) (json.RawMessage, error) {
	var withContext struct {
		Context json.RawMessage `json:"@context,omitempty"`
	}
	if err := json.Unmarshal(object, &withContext); err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "not a JSON object", err)
	}

	cfg := ProofConfig{
		Type:               TypeDataIntegrityProof,
		Cryptosuite:        CryptosuiteEddsaJCS,
		ProofPurpose:       PurposeAssertionMethod,
		VerificationMethod: keyID,
		Created:            createdAt,
		Context:            withContext.Context,
	}
	proofValue, err := SignEddsaJCS(priv, object, cfg)
	if err != nil {
		return nil, err
	}

	proof := map[string]any{
		"type":               cfg.Type,
		"cryptosuite":        cfg.Cryptosuite,
		"proofPurpose":       cfg.ProofPurpose,
		"verificationMethod": cfg.VerificationMethod,
		"created":            cfg.Created.UTC().Format(time.RFC3339),
		"proofValue":         proofValue,
	}
	if len(cfg.Context) > 0 {
		proof["@context"] = cfg.Context
	}
	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return nil, err
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(object, &generic); err != nil {
		return nil, err
	}
	generic[proofKey] = proofJSON
	return json.Marshal(generic)
}

// VerifyMitraJcsBlake2Ed25519 verifies a MitraJcsBlake2Ed25519Signature2022
// proof: the signer is a did:key Ed25519 account; the canonical object is
// hashed with Blake2b-256 before Ed25519 verification, Minisign-compatible
// (§4.3.4).
func VerifyMitraJcsBlake2Ed25519(pub []byte, p *ExtractedProof) error {
	canonical, err := CanonicalizeJCS(p.ObjectWithoutProof)
	if err != nil {
		return err
	}
	hash, err := crypto.Blake2b256([]byte(canonical))
	if err != nil {
		return aperrors.Wrap(aperrors.KindAuth, aperrors.CodeBadEncoding, "blake2b hash failed", err)
	}
	return crypto.Ed25519Verify(pub, hash, p.Signature)
}
