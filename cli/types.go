package cli

import (
	"encoding/json"

	"github.com/pkgpush/pkgpush"
)

// PushReport represents the outcome of a push command.
type PushReport struct {
	Package  string               `json:"package"`
	FileName string               `json:"file_name"`
	Size     int64                `json:"size_bytes"`
	SHA256   string               `json:"sha256,omitempty"`
	Status   int                  `json:"status,omitempty"`
	URL      string               `json:"url"`
	Response json.RawMessage      `json:"response,omitempty"`
	Info     *pkgpush.PackageInfo `json:"info,omitempty"`
	// VerifyWarning is set when the post-upload verification call failed.
	// The push itself still succeeded.
	VerifyWarning string `json:"verify_warning,omitempty"`
}
