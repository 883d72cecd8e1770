package pkgpush

import (
	"crypto/hmac"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxSkew bounds how far a request timestamp may drift from the
// verifier's clock before the request is rejected.
const DefaultMaxSkew = 5 * time.Minute

// Authorization holds the parsed fields of an Authorization header value.
type Authorization struct {
	Key       string
	Timestamp int64
	Cnonce    string
	Signature string
}

// ParseAuthorization parses an Authorization header value produced by
// Signer.Authorize. The scheme token and all four fields are required.
func ParseAuthorization(value string) (*Authorization, error) {
	scheme, rest, found := strings.Cut(value, " ")
	if !found || scheme != SignatureScheme {
		return nil, fmt.Errorf("unexpected authorization scheme: %w", ErrBadSignature)
	}

	auth := &Authorization{Timestamp: -1}
	for _, field := range strings.Split(rest, ", ") {
		name, val, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("malformed authorization field %q: %w", field, ErrBadSignature)
		}
		switch name {
		case "Key":
			auth.Key = val
		case "Timestamp":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp: %w", ErrBadSignature)
			}
			auth.Timestamp = ts
		case "Cnonce":
			auth.Cnonce = val
		case "Signature":
			auth.Signature = val
		default:
			return nil, fmt.Errorf("unknown authorization field %q: %w", name, ErrBadSignature)
		}
	}

	if auth.Key == "" || auth.Timestamp < 0 || auth.Cnonce == "" || auth.Signature == "" {
		return nil, fmt.Errorf("missing required authorization fields: %w", ErrBadSignature)
	}
	return auth, nil
}

// Verifier checks Authorization headers against the signature scheme. It is
// the server side of the protocol, used by the registrytest package and by
// any service accepting signed requests.
type Verifier struct {
	// Lookup returns the secret for an API key, or false when the key is
	// unknown.
	Lookup func(key string) (secret string, found bool)

	// MaxSkew bounds the timestamp drift accepted from clients. Zero means
	// DefaultMaxSkew.
	MaxSkew time.Duration
}

// NewVerifier creates a verifier with the given key lookup.
func NewVerifier(lookup func(string) (string, bool)) *Verifier {
	return &Verifier{Lookup: lookup}
}

// Verify checks the Authorization header of r against the request body.
//
// It parses the header, bounds the timestamp skew, resolves the secret for
// the presented key and recomputes the signature over the request's method,
// host, path and signing parameters. The body must be the exact bytes the
// client sent; an empty body omits the body parameter, matching the signing
// side. All failures wrap ErrBadSignature.
//
// Nonce replay is not tracked here. A verifier is stateless; callers that
// need replay protection keep their own seen-nonce set, as the registrytest
// server does.
func (v *Verifier) Verify(r *http.Request, body []byte) (*Authorization, error) {
	auth, err := ParseAuthorization(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	maxSkew := v.MaxSkew
	if maxSkew == 0 {
		maxSkew = DefaultMaxSkew
	}
	drift := time.Since(time.Unix(auth.Timestamp, 0))
	if drift > maxSkew || drift < -maxSkew {
		return nil, fmt.Errorf("timestamp outside accepted window: %w", ErrBadSignature)
	}

	secret, found := v.Lookup(auth.Key)
	if !found {
		return nil, fmt.Errorf("unknown key: %w", ErrBadSignature)
	}

	params := map[string]string{
		"key":       auth.Key,
		"timestamp": strconv.FormatInt(auth.Timestamp, 10),
		"cnonce":    auth.Cnonce,
	}
	if len(body) > 0 {
		params["body"] = string(body)
	}

	base := BuildBaseString(r.Method, requestHost(r), r.URL.EscapedPath(), params)
	expected := Sign(secret, base)

	if !hmac.Equal([]byte(expected), []byte(auth.Signature)) {
		return nil, fmt.Errorf("signature mismatch: %w", ErrBadSignature)
	}

	return auth, nil
}

// requestHost canonicalizes an inbound request's host the same way the
// signing side canonicalizes the target URL's host.
func requestHost(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host, port, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		return host
	}
	return r.Host
}
