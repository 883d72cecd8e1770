package pkgpush

import "encoding/json"

// Credentials authenticate requests to the registry. Key identifies the API
// token and Secret is the HMAC key. Neither is ever logged or serialized
// outside the signature computation.
type Credentials struct {
	Key    string
	Secret string
}

// PackageInfo is the metadata the registry reports for a package. Every field
// is optional; the client only consults it to pick a human-facing URL.
type PackageInfo struct {
	Name   string         `json:"name,omitempty"`
	Config *PackageConfig `json:"config,omitempty"`
	Links  *PackageLinks  `json:"links,omitempty"`
}

// PackageConfig describes how the registry sources the package.
type PackageConfig struct {
	Type        string `json:"type,omitempty"`
	ArtifactIDs []int  `json:"artifactIds,omitempty"`
}

// PackageLinks holds the URLs the registry exposes for a package.
type PackageLinks struct {
	WebView string `json:"webView,omitempty"`
}

// PushOptions configures a push operation.
type PushOptions struct {
	// Package is the target package identifier, "vendor/name" shape. The
	// client passes it through without validating the shape.
	Package string
	// Artifact is the raw artifact bytes, uploaded unmodified.
	Artifact []byte
	// ContentType of the artifact. Empty selects DefaultContentType.
	ContentType string
	// FileName reported to the registry, usually the artifact's basename.
	FileName string
}

// PushResult is the outcome of a successful push.
type PushResult struct {
	Package string `json:"package"`
	// Status is the HTTP status code of the upload response.
	Status int `json:"status"`
	// Response is the registry's upload response, passed through verbatim.
	Response json.RawMessage `json:"response"`
	// URL is the human-facing package page: the registry's web-view link
	// when verification returned one, a constructed fallback otherwise.
	URL string `json:"url"`
	// Info is the metadata from the verification call, nil when
	// verification failed.
	Info *PackageInfo `json:"info,omitempty"`
	// VerifyErr records a verification failure. Advisory only: the upload
	// itself succeeded and the result still counts as a success.
	VerifyErr error `json:"-"`
}
