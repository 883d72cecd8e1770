package pkgpush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the registry targeted when none is configured.
	DefaultBaseURL = "https://packagist.com"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultContentType is the content type assumed for artifacts.
	DefaultContentType = "application/zip"

	// UserAgent is the fixed identification string sent with every request.
	UserAgent = "pkgpush/1.0"
)

// Client performs signed operations against a package registry.
//
// A Client is immutable after construction and safe for concurrent use. Each
// request draws its own timestamp and nonce, so independent pushes may run
// concurrently without coordination.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	signer     *Signer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a Client for the registry at baseURL with the given
// credentials. An empty baseURL selects DefaultBaseURL; a trailing slash is
// stripped. Empty credentials are rejected here, before any signing or
// network activity happens.
func New(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	if creds.Key == "" {
		return nil, ErrKeyRequired
	}
	if creds.Secret == "" {
		return nil, ErrSecretRequired
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  UserAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		signer:     NewSigner(creds.Key, creds.Secret),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the normalized registry base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadArtifact uploads the artifact bytes for pkg and returns the
// registry's JSON response verbatim. The response is not interpreted beyond
// being parseable JSON.
//
// A non-2xx status yields an *APIError carrying the status code and the raw
// response body; classify it with errors.Is against ErrUnauthorized,
// ErrForbidden or ErrNotFound.
func (c *Client) UploadArtifact(ctx context.Context, pkg string, artifact []byte, contentType, fileName string) (json.RawMessage, error) {
	_, response, err := c.upload(ctx, pkg, artifact, contentType, fileName)
	return response, err
}

// upload performs the artifact upload and also reports the response status,
// which Push records in its result.
func (c *Client) upload(ctx context.Context, pkg string, artifact []byte, contentType, fileName string) (int, json.RawMessage, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	uploadURL := c.baseURL + "/api/packages/" + pkg + "/artifacts/"

	status, body, err := c.do(ctx, http.MethodPost, uploadURL, artifact, map[string]string{
		"Content-Type": contentType,
		"X-FILENAME":   fileName,
	})
	if err != nil {
		return status, nil, err
	}

	var response json.RawMessage
	if err := json.Unmarshal(body, &response); err != nil {
		return status, nil, fmt.Errorf("parse upload response: %w", err)
	}
	return status, response, nil
}

// GetPackage fetches the registry's metadata for pkg. The request carries no
// body, so the signature parameter set omits the body parameter.
func (c *Client) GetPackage(ctx context.Context, pkg string) (*PackageInfo, error) {
	infoURL := c.baseURL + "/api/packages/" + pkg + "/"

	_, body, err := c.do(ctx, http.MethodGet, infoURL, nil, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var info PackageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse package info: %w", err)
	}
	return &info, nil
}

// Push uploads an artifact and then verifies the package, resolving the
// user-facing package URL.
//
// Success is decided by the upload alone. Verification is best-effort: when
// it fails, or succeeds without a web-view link, the result still reports the
// upload's outcome with a constructed {base}/packages/{package} URL and
// records the failure in VerifyErr.
func (c *Client) Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	status, response, err := c.upload(ctx, opts.Package, opts.Artifact, opts.ContentType, opts.FileName)
	if err != nil {
		return nil, err
	}

	result := &PushResult{
		Package:  opts.Package,
		Status:   status,
		Response: response,
		URL:      c.PackageURL(opts.Package),
	}

	info, err := c.GetPackage(ctx, opts.Package)
	if err != nil {
		result.VerifyErr = err
		return result, nil
	}

	result.Info = info
	if info.Links != nil && info.Links.WebView != "" {
		result.URL = info.Links.WebView
	}
	return result, nil
}

// PackageURL returns the constructed package page URL, used when the registry
// does not report a web-view link.
func (c *Client) PackageURL(pkg string) string {
	return c.baseURL + "/packages/" + pkg
}

// do signs and executes a single request, returning the response status and
// body on any 2xx status and an *APIError on everything else. The status is
// zero when no response was received.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (int, []byte, error) {
	auth, err := c.signer.Authorize(method, rawURL, body)
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader = http.NoBody
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp.StatusCode, respBody, nil
}
