package cli

import (
	"fmt"
	"os"
	"strings"
)

// ValidatePackage checks that pkg looks like a "vendor/project" package name.
// The registry is the final authority; this only catches obvious mistakes
// before any network traffic.
func ValidatePackage(pkg string) error {
	if pkg == "" {
		return ErrPackageRequired
	}
	vendor, project, found := strings.Cut(pkg, "/")
	if !found || vendor == "" || project == "" || strings.Contains(project, "/") {
		return fmt.Errorf("invalid package name %q: expected vendor/project", pkg)
	}
	return nil
}

// ReadArtifact reads the artifact file at path into memory.
func ReadArtifact(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrFileRequired
	}
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided artifact file
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	return data, nil
}
