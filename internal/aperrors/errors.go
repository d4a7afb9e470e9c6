// Package aperrors holds the error taxonomy of spec.md §7 as a single
// exported type, *Error, carrying a Kind and a stable string Code. New and
// Wrap build it; KindOf and CodeOf read it back through errors.As. This
// follows the teacher's flat error style (pkg/utils.Wrap) rather than a
// third-party errors package the teacher does not otherwise use.
package aperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy's top-level categories.
type Kind string

const (
	KindValidation Kind = "validation"
	KindFetch      Kind = "fetch"
	KindAuth       Kind = "auth"
	KindHandler    Kind = "handler"
	KindDatabase   Kind = "database"
	KindPayment    Kind = "payment"
)

// Error wraps an underlying error with a taxonomy Kind and a stable Code
// used to distinguish sibling errors within the same Kind (e.g. "expired",
// "no_signature").
type Error struct {
	K      Kind
	Code   string
	Msg    string
	Err    error
	Status int // HTTP status; New and Wrap leave it zero and no code in this module sets it
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.K, e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.K, e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the taxonomy kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.K, true
	}
	return "", false
}

// CodeOf returns the stable code of err if it is (or wraps) an *Error.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func New(k Kind, code, msg string) *Error {
	return &Error{K: k, Code: code, Msg: msg}
}

func Wrap(k Kind, code, msg string, err error) *Error {
	return &Error{K: k, Code: code, Msg: msg, Err: err}
}

// IsRetriable reports whether err is the one retriable class at the ingress
// queue boundary: a network-retriable fetch error (spec.md §4.5, §7).
func IsRetriable(err error) bool {
	k, ok := KindOf(err)
	if !ok || k != KindFetch {
		return false
	}
	code, _ := CodeOf(err)
	return code == "http_error" || code == "timeout"
}

// Sentinel codes referenced by name across packages (§4.3.5, §4.4, §4.5, §4.6).
const (
	CodeBadEncoding          = "bad_encoding"
	CodeUnsupportedAlgorithm = "unsupported_algorithm"
	CodeVerificationFailed   = "verification_failed"
	CodeDecodingMismatch     = "decoding_mismatch"

	CodeInvalid         = "invalid"
	CodeExpired         = "expired"
	CodeNoSignature     = "no_signature"
	CodeMissingHeader   = "missing_header"
	CodeMethodNotSupported = "method_not_supported"
	CodeNoDigest        = "no_digest"
	CodeDigestMismatch  = "digest_mismatch"

	CodeURLInvalid        = "url_invalid"
	CodeNoGateway         = "no_gateway"
	CodeHTTPError         = "http_error"
	CodeTooLarge          = "too_large"
	CodeMediaTypeMismatch = "media_type_mismatch"
	CodeTimeout           = "timeout"
	CodeRecursionLimit    = "recursion_limit"
	CodeInvalidProof      = "invalid_proof"
	CodeParseError        = "parse_error"

	CodeLocalObject       = "local_object"
	CodeUnsolicitedMsg    = "unsolicited_message"
	CodeServiceError      = "service_error"

	CodeNotFound     = "not_found"
	CodeAlreadyExists = "already_exists"
	CodeTypeError     = "type_error"
	CodeIntegrity     = "integrity"

	CodeWalletRPC        = "wallet_rpc"
	CodeDust             = "dust"
	CodeMisconfiguration = "misconfiguration"
)
