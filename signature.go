package pkgpush

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// SignatureScheme is the scheme token that prefixes every Authorization
	// header value produced and accepted by this package.
	SignatureScheme = "PACKAGIST"

	// CnonceBytes is the number of random bytes drawn for a client nonce.
	// Rendered as lowercase hex, a nonce is twice this many characters.
	CnonceBytes = 20
)

const upperhex = "0123456789ABCDEF"

// Signer computes Authorization header values for registry requests.
//
// The scheme is HMAC-SHA256 over a canonical representation of the request.
// The registry recomputes the same signature independently from the received
// parameters, so every byte of the canonicalization is part of the wire
// contract: sort order, separators and percent-encoding must not deviate.
//
// A Signer holds only immutable credentials and is safe for concurrent use;
// each Authorize call draws its own timestamp and nonce.
type Signer struct {
	Key    string
	Secret string
}

// NewSigner creates a new signer for the given credential pair.
func NewSigner(key, secret string) *Signer {
	return &Signer{Key: key, Secret: secret}
}

// Authorize produces the Authorization header value for a single request.
//
// The value has the form:
//
//	PACKAGIST Key=<key>, Timestamp=<unix seconds>, Cnonce=<40 hex chars>, Signature=<base64 HMAC>
//
// The signature covers the request method, the URL's host and path, and a
// canonical parameter set holding the key, the timestamp, the cnonce and,
// when the request carries a body, the raw body bytes. A zero-length body is
// the same case as no body: both omit the body parameter.
//
// Every call generates a fresh timestamp and nonce, so two headers for the
// same request never repeat and a captured header cannot be replayed. The
// routine performs no I/O and fails only on an unparseable URL.
func (s *Signer) Authorize(method, rawURL string, body []byte) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	timestamp := time.Now().Unix()
	cnonce := newCnonce()

	params := map[string]string{
		"key":       s.Key,
		"timestamp": strconv.FormatInt(timestamp, 10),
		"cnonce":    cnonce,
	}
	if len(body) > 0 {
		params["body"] = string(body)
	}

	base := BuildBaseString(method, CanonicalHost(u), u.EscapedPath(), params)
	signature := Sign(s.Secret, base)

	return fmt.Sprintf("%s Key=%s, Timestamp=%d, Cnonce=%s, Signature=%s",
		SignatureScheme, s.Key, timestamp, cnonce, signature), nil
}

// PercentEncode encodes s following the RFC 3986 unreserved character rules.
//
// Unreserved characters (A-Z, a-z, 0-9, "-", ".", "_", "~") pass through
// unchanged. Every other byte, including space, reserved punctuation and
// bytes above 0x7F, becomes %XX with exactly two uppercase hex digits. Space
// is never encoded as "+". The input is treated as raw bytes, one byte per
// character, so arbitrary binary content maps losslessly.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// CanonicalQuery serializes params into the canonical query string used for
// signing. Parameter names are sorted by byte-wise ordinal comparison, then
// each pair is rendered as name=value with both sides percent-encoded and the
// pairs joined with "&". An empty parameter set yields an empty string.
//
// The result exists only inside the signature base string; it is never sent
// as an actual URL query.
func CanonicalQuery(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = PercentEncode(name) + "=" + PercentEncode(params[name])
	}
	return strings.Join(pairs, "&")
}

// BuildBaseString assembles the message the HMAC covers: the upper-cased
// method, the host, the path and the canonical query joined by bare newlines.
// Four segments, no trailing newline.
func BuildBaseString(method, host, path string, params map[string]string) string {
	return strings.ToUpper(method) + "\n" + host + "\n" + path + "\n" + CanonicalQuery(params)
}

// Sign computes the HMAC-SHA256 of base keyed with secret and returns it
// base64-encoded (standard alphabet, with padding). Deterministic: identical
// inputs always yield an identical signature.
func Sign(secret, base string) string {
	return base64.StdEncoding.EncodeToString(hmacSHA256([]byte(secret), []byte(base)))
}

// CanonicalHost returns the URL's host as it appears in the signature base
// string: the hostname alone when the port is the scheme default, host:port
// otherwise.
func CanonicalHost(u *url.URL) string {
	port := u.Port()
	if port == "" {
		return u.Host
	}
	if (u.Scheme == "https" && port == "443") || (u.Scheme == "http" && port == "80") {
		return u.Hostname()
	}
	return u.Host
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// newCnonce returns CnonceBytes of cryptographic randomness as lowercase hex.
func newCnonce() string {
	buf := make([]byte, CnonceBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
