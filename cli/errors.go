package cli

import "errors"

// Errors for command input validation.
var (
	ErrPackageRequired = errors.New("package name is required")
	ErrFileRequired    = errors.New("artifact file is required")
	ErrEmptyArtifact   = errors.New("artifact file is empty")
)
