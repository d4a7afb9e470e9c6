// Package fetch implements the outbound fetch/import resolver of
// spec.md §4.4: a FetchAgent for signed/unsigned GETs, WebFinger lookup,
// portable-gateway resolution, collection walking and post-thread import.
// The HTTP transport is grounded on the teacher's IPFSService
// (core/ipfs.go): a *http.Client{Timeout: ...} plus
// http.NewRequestWithContext/client.Do, not a third-party HTTP client —
// the teacher never reaches for one even for its own outbound gateway
// calls, so this is a stdlib concern by the teacher's own precedent.
package fetch

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/crypto"
	"github.com/fedcore/federation/internal/sigs"
)

// Signer is the optional authenticated-GET identity a FetchAgent signs
// requests with (§4.4: "optional signer (keypair + key id)").
type Signer struct {
	KeyID      string
	PrivateKey ed25519.PrivateKey
}

// FetchAgent owns the outbound fetch configuration of §4.4.
type FetchAgent struct {
	UserAgent        string
	Timeout          time.Duration
	WebfingerTimeout time.Duration
	MaxResponseBytes int64
	AllowedMimes     []string
	Signer           *Signer

	client *http.Client
}

// NewFetchAgent constructs a FetchAgent with its own bounded http.Client.
func NewFetchAgent(userAgent string, timeout, webfingerTimeout time.Duration, maxResponseBytes int64, allowedMimes []string, signer *Signer) *FetchAgent {
	return &FetchAgent{
		UserAgent:        userAgent,
		Timeout:          timeout,
		WebfingerTimeout: webfingerTimeout,
		MaxResponseBytes: maxResponseBytes,
		AllowedMimes:     allowedMimes,
		Signer:           signer,
		client:           &http.Client{Timeout: timeout},
	}
}

const activityJSONAccept = `application/activity+json, application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// FetchJSON issues a GET for url, signing per Draft-Cavage with
// "(request-target) host date" when a signer is configured (§4.4).
func (a *FetchAgent) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeURLInvalid, url, err)
	}
	req.Header.Set("Accept", activityJSONAccept)
	req.Header.Set("User-Agent", a.UserAgent)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	if a.Signer != nil {
		if err := a.signRequest(req); err != nil {
			return nil, err
		}
	}

	return a.do(req)
}

// FetchObject fetches url and unmarshals the JSON response as T (§4.4:
// "fetch_object<T>(url) -> T").
func FetchObject[T any](ctx context.Context, a *FetchAgent, url string) (T, error) {
	var zero T
	body, err := a.FetchJSON(ctx, url)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return zero, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeParseError, url, err)
	}
	return v, nil
}

// FetchFile fetches url, validating the Content-Type prefix against
// allowedMimes (and, if non-empty, matching expectedMime), streaming with
// a hard byte cap at maxSize (§4.4).
func (a *FetchAgent) FetchFile(ctx context.Context, url, expectedMime string, allowedMimes []string, maxSize int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", aperrors.Wrap(aperrors.KindFetch, aperrors.CodeURLInvalid, url, err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", aperrors.New(aperrors.KindFetch, aperrors.CodeHTTPError, resp.Status)
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	mime = strings.TrimSpace(mime)
	if expectedMime != "" && mime != expectedMime {
		return nil, "", aperrors.New(aperrors.KindFetch, aperrors.CodeMediaTypeMismatch, mime)
	}
	if !mimeAllowed(mime, allowedMimes) {
		return nil, "", aperrors.New(aperrors.KindFetch, aperrors.CodeMediaTypeMismatch, mime)
	}

	limited := io.LimitReader(resp.Body, maxSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", aperrors.Wrap(aperrors.KindFetch, aperrors.CodeHTTPError, "read body", err)
	}
	if int64(len(body)) > maxSize {
		return nil, "", aperrors.New(aperrors.KindFetch, aperrors.CodeTooLarge, url)
	}
	return body, mime, nil
}

func mimeAllowed(mime string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if m == mime {
			return true
		}
	}
	return false
}

func (a *FetchAgent) signRequest(req *http.Request) error {
	base, err := sigs.CavageSignatureBase(req, []string{"(request-target)", "host", "date"}, "", "")
	if err != nil {
		return err
	}
	sig := crypto.Ed25519Sign(a.Signer.PrivateKey, []byte(base))
	req.Header.Set("Signature", buildCavageSignatureHeader(a.Signer.KeyID, sig))
	return nil
}

func buildCavageSignatureHeader(keyID string, sig []byte) string {
	var b strings.Builder
	b.WriteString(`keyId="`)
	b.WriteString(keyID)
	b.WriteString(`",algorithm="hs2019",headers="(request-target) host date",signature="`)
	b.WriteString(base64.StdEncoding.EncodeToString(sig))
	b.WriteString(`"`)
	return b.String()
}

func (a *FetchAgent) do(req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, aperrors.New(aperrors.KindFetch, aperrors.CodeHTTPError, resp.Status)
	}

	max := a.MaxResponseBytes
	if max <= 0 {
		max = 2 << 20
	}
	limited := io.LimitReader(resp.Body, max+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, aperrors.Wrap(aperrors.KindFetch, aperrors.CodeHTTPError, "read body", err)
	}
	if int64(len(body)) > max {
		return nil, aperrors.New(aperrors.KindFetch, aperrors.CodeTooLarge, req.URL.String())
	}
	return body, nil
}

func classifyTransportError(err error) error {
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return aperrors.Wrap(aperrors.KindFetch, aperrors.CodeTimeout, "request timed out", err)
	}
	return aperrors.Wrap(aperrors.KindFetch, aperrors.CodeHTTPError, "transport error", err)
}
