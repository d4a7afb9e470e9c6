package crypto

import (
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"

	"github.com/fedcore/federation/internal/aperrors"
)

// Multicodec tags used by did:key and Multikey encodings (the subset fedcore
// needs; see https://github.com/multiformats/multicodec/blob/master/table.csv).
const (
	CodecEd25519Pub  uint64 = 0xed
	CodecEd25519Priv uint64 = 0x1300
	CodecRSAPub      uint64 = 0x1205
)

// MulticodecEncode prefixes data with a varint-encoded multicodec tag.
func MulticodecEncode(code uint64, data []byte) []byte {
	prefix := varint.ToUvarint(code)
	out := make([]byte, 0, len(prefix)+len(data))
	out = append(out, prefix...)
	out = append(out, data...)
	return out
}

// MulticodecDecode reads the varint tag off buf. If expected is non-zero, the
// decoded tag must equal it exactly or DecodingMismatch is returned.
func MulticodecDecode(buf []byte, expected uint64) (code uint64, data []byte, err error) {
	code, n, err := varint.FromUvarint(buf)
	if err != nil {
		return 0, nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "multicodec varint", err)
	}
	if expected != 0 && code != expected {
		return 0, nil, aperrors.New(aperrors.KindValidation, aperrors.CodeDecodingMismatch, "multicodec tag mismatch")
	}
	return code, buf[n:], nil
}

// MultibaseBase58BTCEncode encodes data as multibase base58btc ("z" prefix).
func MultibaseBase58BTCEncode(data []byte) (string, error) {
	s, err := multibase.Encode(multibase.Base58BTC, data)
	if err != nil {
		return "", aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "multibase encode", err)
	}
	return s, nil
}

// MultibaseBase58BTCDecode decodes a "z"-prefixed multibase base58btc string.
func MultibaseBase58BTCDecode(s string) ([]byte, error) {
	enc, data, err := multibase.Decode(s)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindValidation, aperrors.CodeBadEncoding, "multibase decode", err)
	}
	if enc != multibase.Base58BTC {
		return nil, aperrors.New(aperrors.KindValidation, aperrors.CodeDecodingMismatch, "not base58btc")
	}
	return data, nil
}

// EncodeEd25519PublicKeyMultibase encodes an Ed25519 public key as
// multicodec(ed25519-pub) || key, multibase base58btc.
func EncodeEd25519PublicKeyMultibase(pub []byte) (string, error) {
	return MultibaseBase58BTCEncode(MulticodecEncode(CodecEd25519Pub, pub))
}

// DecodeEd25519PublicKeyMultibase recovers the raw 32-byte Ed25519 public key
// from its multibase form, enforcing the ed25519-pub multicodec tag.
func DecodeEd25519PublicKeyMultibase(s string) ([]byte, error) {
	raw, err := MultibaseBase58BTCDecode(s)
	if err != nil {
		return nil, err
	}
	_, pub, err := MulticodecDecode(raw, CodecEd25519Pub)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// DecodeEd25519SeedMultibase recovers the raw 32-byte Ed25519 seed from its
// multikey form, enforcing the ed25519-priv multicodec tag. Used to load
// "secret key multibase" test vectors (FEP-8b32) and operator-supplied
// signing keys.
func DecodeEd25519SeedMultibase(s string) ([]byte, error) {
	raw, err := MultibaseBase58BTCDecode(s)
	if err != nil {
		return nil, err
	}
	_, seed, err := MulticodecDecode(raw, CodecEd25519Priv)
	if err != nil {
		return nil, err
	}
	return seed, nil
}
