package pkgpush_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgpush/pkgpush"
)

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "unreserved characters pass through",
			input: "AZaz09-._~",
			want:  "AZaz09-._~",
		},
		{
			name:  "space is escaped not plus",
			input: "a b",
			want:  "a%20b",
		},
		{
			name:  "reserved punctuation",
			input: ":/?#[]@!$&'()*+,;=",
			want:  "%3A%2F%3F%23%5B%5D%40%21%24%26%27%28%29%2A%2B%2C%3B%3D",
		},
		{
			name:  "mixed text",
			input: "test!*()'data",
			want:  "test%21%2A%28%29%27data",
		},
		{
			name:  "zip header bytes",
			input: string([]byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00, 0x08, 0x00}),
			want:  "PK%03%04%14%00%00%00%08%00",
		},
		{
			name:  "high bytes",
			input: string([]byte{0x80, 0xAB, 0xFF}),
			want:  "%80%AB%FF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pkgpush.PercentEncode(tt.input))
		})
	}
}

func TestPercentEncode_AllBytes(t *testing.T) {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

	for i := 0; i < 256; i++ {
		c := byte(i)
		got := pkgpush.PercentEncode(string([]byte{c}))

		if strings.ContainsRune(unreserved, rune(c)) {
			assert.Equal(t, string([]byte{c}), got, "byte 0x%02X must pass through", c)
			continue
		}
		assert.Equal(t, fmt.Sprintf("%%%02X", c), got, "byte 0x%02X must be escaped", c)
	}
}

func TestCanonicalQuery(t *testing.T) {
	t.Run("sorts names by ordinal byte comparison", func(t *testing.T) {
		params := map[string]string{
			"z_last":   "value",
			"a_first":  "value",
			"m_middle": "value",
		}
		assert.Equal(t, "a_first=value&m_middle=value&z_last=value", pkgpush.CanonicalQuery(params))
	})

	t.Run("empty set yields empty string", func(t *testing.T) {
		assert.Equal(t, "", pkgpush.CanonicalQuery(nil))
		assert.Equal(t, "", pkgpush.CanonicalQuery(map[string]string{}))
	})

	t.Run("encodes names and values", func(t *testing.T) {
		params := map[string]string{"body": "test!*()'data"}
		assert.Equal(t, "body=test%21%2A%28%29%27data", pkgpush.CanonicalQuery(params))
	})
}

func TestBuildBaseString(t *testing.T) {
	t.Run("four segments joined by newlines", func(t *testing.T) {
		got := pkgpush.BuildBaseString("POST", "example.com", "/test/path", map[string]string{"test": "value"})
		assert.Equal(t, "POST\nexample.com\n/test/path\ntest=value", got)
	})

	t.Run("method is upper-cased", func(t *testing.T) {
		got := pkgpush.BuildBaseString("post", "example.com", "/test/path", map[string]string{"test": "value"})
		assert.Equal(t, "POST\nexample.com\n/test/path\ntest=value", got)
	})

	t.Run("empty parameters keep an empty fourth segment", func(t *testing.T) {
		got := pkgpush.BuildBaseString("GET", "example.com", "/", nil)
		assert.Equal(t, "GET\nexample.com\n/\n", got)
	})
}

func TestSign(t *testing.T) {
	base := pkgpush.BuildBaseString("POST", "example.com", "/test/path", map[string]string{"test": "value"})

	t.Run("known answer", func(t *testing.T) {
		assert.Equal(t, "Q5bDZ7TyfRnuHIv3krj14M8+tng2OELO+m6h4NNgSuM=", pkgpush.Sign("test-secret", base))
	})

	t.Run("deterministic", func(t *testing.T) {
		first := pkgpush.Sign("test-secret", base)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, pkgpush.Sign("test-secret", base))
		}
	})

	t.Run("secret changes the signature", func(t *testing.T) {
		assert.NotEqual(t, pkgpush.Sign("test-secret", base), pkgpush.Sign("other-secret", base))
	})
}

func TestSign_KnownVectors(t *testing.T) {
	cnonce := strings.Repeat("a", 40)

	t.Run("metadata request without body", func(t *testing.T) {
		base := pkgpush.BuildBaseString("GET", "packagist.com", "/api/packages/acme/widgets/", map[string]string{
			"key":       "ak-123",
			"timestamp": "1700000000",
			"cnonce":    cnonce,
		})
		assert.Equal(t, "tK/rDAHQfg1yf6aLFfFovjBKl+9FQYv9N7ND+qsms2Y=", pkgpush.Sign("sk-456", base))
	})

	t.Run("upload request with binary body", func(t *testing.T) {
		base := pkgpush.BuildBaseString("POST", "packagist.com", "/api/packages/acme/widgets/artifacts/", map[string]string{
			"key":       "ak-123",
			"timestamp": "1700000000",
			"cnonce":    cnonce,
			"body":      string([]byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00, 0x08, 0x00}),
		})
		assert.Equal(t, "XBAu4qDuCPsntXwnVOnm4efJg0ByROWNPtW+ED9dro8=", pkgpush.Sign("sk-456", base))
	})
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{name: "https without port", rawURL: "https://packagist.com/api", want: "packagist.com"},
		{name: "https default port stripped", rawURL: "https://packagist.com:443/api", want: "packagist.com"},
		{name: "http default port stripped", rawURL: "http://packagist.com:80/api", want: "packagist.com"},
		{name: "https non-default port kept", rawURL: "https://packagist.com:8443/api", want: "packagist.com:8443"},
		{name: "http non-default port kept", rawURL: "http://127.0.0.1:9000/api", want: "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pkgpush.CanonicalHost(u))
		})
	}
}

func TestNewSigner(t *testing.T) {
	signer := pkgpush.NewSigner("ak-123", "sk-456")
	assert.NotNil(t, signer)
	assert.Equal(t, "ak-123", signer.Key)
	assert.Equal(t, "sk-456", signer.Secret)
}

func TestSigner_Authorize(t *testing.T) {
	const target = "https://packagist.com/api/packages/acme/widgets/artifacts/"

	signer := pkgpush.NewSigner("ak-123", "sk-456")

	t.Run("header carries a recomputable signature", func(t *testing.T) {
		value, err := signer.Authorize(http.MethodPost, target, []byte("artifact-bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(value, pkgpush.SignatureScheme+" "))

		auth, err := pkgpush.ParseAuthorization(value)
		require.NoError(t, err)
		assert.Equal(t, "ak-123", auth.Key)
		assert.Len(t, auth.Cnonce, 2*pkgpush.CnonceBytes)
		assert.InDelta(t, float64(time.Now().Unix()), float64(auth.Timestamp), 5)

		base := pkgpush.BuildBaseString(http.MethodPost, "packagist.com", "/api/packages/acme/widgets/artifacts/", map[string]string{
			"key":       auth.Key,
			"timestamp": strconv.FormatInt(auth.Timestamp, 10),
			"cnonce":    auth.Cnonce,
			"body":      "artifact-bytes",
		})
		assert.Equal(t, pkgpush.Sign("sk-456", base), auth.Signature)
	})

	t.Run("consecutive headers differ", func(t *testing.T) {
		first, err := signer.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)
		second, err := signer.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("empty body is the same case as no body", func(t *testing.T) {
		noBody, err := signer.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)
		emptyBody, err := signer.Authorize(http.MethodGet, target, []byte{})
		require.NoError(t, err)

		// Both must omit the body parameter, so each signature recomputes
		// from key, timestamp and cnonce alone.
		for _, value := range []string{noBody, emptyBody} {
			auth, err := pkgpush.ParseAuthorization(value)
			require.NoError(t, err)

			base := pkgpush.BuildBaseString(http.MethodGet, "packagist.com", "/api/packages/acme/widgets/artifacts/", map[string]string{
				"key":       auth.Key,
				"timestamp": strconv.FormatInt(auth.Timestamp, 10),
				"cnonce":    auth.Cnonce,
			})
			assert.Equal(t, pkgpush.Sign("sk-456", base), auth.Signature)
		}
	})

	t.Run("unparseable url", func(t *testing.T) {
		_, err := signer.Authorize(http.MethodGet, "https://packagist.com/%zz", nil)
		assert.Error(t, err)
	})
}

func TestParseAuthorization(t *testing.T) {
	cnonce := strings.Repeat("a", 40)
	valid := fmt.Sprintf("PACKAGIST Key=ak-123, Timestamp=1700000000, Cnonce=%s, Signature=tK/rDAHQfg1yf6aLFfFovjBKl+9FQYv9N7ND+qsms2Y=", cnonce)

	t.Run("valid header", func(t *testing.T) {
		auth, err := pkgpush.ParseAuthorization(valid)
		require.NoError(t, err)
		assert.Equal(t, "ak-123", auth.Key)
		assert.Equal(t, int64(1700000000), auth.Timestamp)
		assert.Equal(t, cnonce, auth.Cnonce)
		assert.Equal(t, "tK/rDAHQfg1yf6aLFfFovjBKl+9FQYv9N7ND+qsms2Y=", auth.Signature)
	})

	tests := []struct {
		name      string
		value     string
		wantError string
	}{
		{
			name:      "empty value",
			value:     "",
			wantError: "unexpected authorization scheme",
		},
		{
			name:      "wrong scheme",
			value:     "Bearer abc123",
			wantError: "unexpected authorization scheme",
		},
		{
			name:      "missing fields",
			value:     "PACKAGIST Key=ak-123",
			wantError: "missing required authorization fields",
		},
		{
			name:      "bad timestamp",
			value:     "PACKAGIST Key=ak-123, Timestamp=xyz, Cnonce=abc, Signature=sig",
			wantError: "invalid timestamp",
		},
		{
			name:      "unknown field",
			value:     "PACKAGIST Key=ak-123, Nonce=abc",
			wantError: "unknown authorization field",
		},
		{
			name:      "malformed field",
			value:     "PACKAGIST garbage",
			wantError: "malformed authorization field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pkgpush.ParseAuthorization(tt.value)
			assert.Error(t, err)
			assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	const (
		apiKey    = "ak-123"
		apiSecret = "sk-456"
		target    = "http://localhost:8080/api/packages/acme/widgets/artifacts/"
	)

	signer := pkgpush.NewSigner(apiKey, apiSecret)
	verifier := pkgpush.NewVerifier(func(key string) (string, bool) {
		if key == apiKey {
			return apiSecret, true
		}
		return "", false
	})

	newRequest := func(t *testing.T, method, authValue string) *http.Request {
		t.Helper()
		u, err := url.Parse(target)
		require.NoError(t, err)
		req := &http.Request{
			Method: method,
			URL:    u,
			Host:   "localhost:8080",
			Header: http.Header{},
		}
		req.Header.Set("Authorization", authValue)
		return req
	}

	t.Run("valid signed request with body", func(t *testing.T) {
		body := []byte{0x50, 0x4B, 0x03, 0x04}
		value, err := signer.Authorize(http.MethodPost, target, body)
		require.NoError(t, err)

		auth, err := verifier.Verify(newRequest(t, http.MethodPost, value), body)
		require.NoError(t, err)
		assert.Equal(t, apiKey, auth.Key)
	})

	t.Run("valid signed request without body", func(t *testing.T) {
		value, err := signer.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)

		_, err = verifier.Verify(newRequest(t, http.MethodGet, value), nil)
		assert.NoError(t, err)
	})

	t.Run("body mismatch", func(t *testing.T) {
		value, err := signer.Authorize(http.MethodPost, target, []byte("signed-body"))
		require.NoError(t, err)

		_, err = verifier.Verify(newRequest(t, http.MethodPost, value), []byte("different-body"))
		assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
		assert.Contains(t, err.Error(), "signature mismatch")
	})

	t.Run("unknown key", func(t *testing.T) {
		other := pkgpush.NewSigner("ak-unknown", apiSecret)
		value, err := other.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)

		_, err = verifier.Verify(newRequest(t, http.MethodGet, value), nil)
		assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
		assert.Contains(t, err.Error(), "unknown key")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := pkgpush.NewSigner(apiKey, "sk-wrong")
		value, err := other.Authorize(http.MethodGet, target, nil)
		require.NoError(t, err)

		_, err = verifier.Verify(newRequest(t, http.MethodGet, value), nil)
		assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
		assert.Contains(t, err.Error(), "signature mismatch")
	})

	t.Run("stale timestamp", func(t *testing.T) {
		stale := time.Now().Add(-time.Hour).Unix()
		cnonce := strings.Repeat("a", 40)
		base := pkgpush.BuildBaseString(http.MethodGet, "localhost:8080", "/api/packages/acme/widgets/artifacts/", map[string]string{
			"key":       apiKey,
			"timestamp": strconv.FormatInt(stale, 10),
			"cnonce":    cnonce,
		})
		value := fmt.Sprintf("%s Key=%s, Timestamp=%d, Cnonce=%s, Signature=%s",
			pkgpush.SignatureScheme, apiKey, stale, cnonce, pkgpush.Sign(apiSecret, base))

		_, err := verifier.Verify(newRequest(t, http.MethodGet, value), nil)
		assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
		assert.Contains(t, err.Error(), "timestamp outside accepted window")
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := verifier.Verify(newRequest(t, http.MethodGet, "Bearer token"), nil)
		assert.ErrorIs(t, err, pkgpush.ErrBadSignature)
	})
}
