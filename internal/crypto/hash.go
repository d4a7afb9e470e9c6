package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"

	"github.com/fedcore/federation/internal/aperrors"
)

// SHA256 hashes data, used for content digests and JCS hashing (§4.3.3,
// §4.3.4).
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Blake2b256 hashes data with Blake2b-256, used by Minisign-compatible
// Blake2-Ed25519 signatures (§4.3.4).
func Blake2b256(data []byte) ([]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "blake2b init", err)
	}
	h.Write(data)
	return h.Sum(nil), nil
}
