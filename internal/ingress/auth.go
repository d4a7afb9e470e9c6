package ingress

import (
	"encoding/json"
	"strings"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/model"
	"github.com/fedcore/federation/internal/sigs"
)

// Authenticate implements the §4.5 authentication rule. isHTTPAuthenticated
// reports whether the transport already verified an HTTP signature whose
// keyId's actor matched claimedActor — if so, the actor claim is trusted
// and any embedded JSON signature is checked best-effort only. Otherwise
// the activity is accepted only if it carries a valid JSON signature whose
// signer matches claimedActor.
func Authenticate(raw json.RawMessage, claimedActor string, resolver sigs.KeyResolver, actor *model.Actor, isHTTPAuthenticated bool) error {
	jsonSigErr := verifyJSONSignatureSigner(raw, claimedActor, resolver, actor)
	if isHTTPAuthenticated {
		return nil
	}
	return jsonSigErr
}

// verifyJSONSignatureSigner verifies the activity's embedded proof and
// checks its signer matches claimedActor: either the verification method's
// actor-id portion equals claimedActor, or the verification method
// resolves through one of actor's identityProofs.
func verifyJSONSignatureSigner(raw json.RawMessage, claimedActor string, resolver sigs.KeyResolver, actor *model.Actor) error {
	extracted, err := sigs.ExtractProof(raw)
	if err != nil {
		return aperrors.New(aperrors.KindAuth, aperrors.CodeNoSignature, "no JSON signature present")
	}
	if err := sigs.VerifyProof(raw, resolver); err != nil {
		return err
	}
	if signerMatchesActor(extracted.VerificationMethod, claimedActor, actor) {
		return nil
	}
	return aperrors.New(aperrors.KindAuth, aperrors.CodeVerificationFailed, "signer does not match activity actor")
}

func signerMatchesActor(verificationMethod, claimedActor string, actor *model.Actor) bool {
	if idx := strings.IndexByte(verificationMethod, '#'); idx >= 0 && verificationMethod[:idx] == claimedActor {
		return true
	}
	if actor == nil {
		return false
	}
	for _, attachment := range actor.Attachments {
		if attachment.IdentityProof != nil && strings.HasPrefix(verificationMethod, attachment.IdentityProof.Issuer) {
			return true
		}
	}
	return false
}
