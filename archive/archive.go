// Package archive builds and inspects Composer artifact archives.
// It packs source directories into zip artifacts with a deterministic
// entry order and validates composer.json manifests against the bundled
// schema.
package archive

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kaptinlin/jsonschema"
	"github.com/klauspost/compress/zip"
)

// ManifestFileName is the manifest entry every Composer artifact carries
// at its root.
const ManifestFileName = "composer.json"

// ErrNoManifest indicates an artifact or source tree has no root composer.json.
var ErrNoManifest = errors.New("composer.json not found")

//go:embed composer.schema.json
var composerSchema []byte

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Directories never included in an artifact.
var skippedDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// BuildResult describes a packed artifact.
type BuildResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Files  int    `json:"files"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest is the subset of composer.json fields pkgpush reads.
type Manifest struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Version string `json:"version,omitempty"`
}

// Build packs the contents of srcDir into a Composer artifact zip at
// outPath. The source tree must carry a valid composer.json at its root.
// Files are added in lexical walk order with forward-slash names; VCS
// directories and the output file itself are skipped. On failure the
// partially written output is removed.
func Build(srcDir, outPath string) (*BuildResult, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", srcDir)
	}

	manifest, err := os.ReadFile(filepath.Join(srcDir, ManifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := ValidateManifest(manifest); err != nil {
		return nil, err
	}
	parsed, err := ParseManifest(manifest)
	if err != nil {
		return nil, err
	}

	outAbs, err := filepath.Abs(outPath)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("could not create artifact file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close artifact file", "path", outPath, "err", closeErr)
		}
		if !success {
			if rmErr := os.Remove(outPath); rmErr != nil {
				slog.Warn("failed to remove partial artifact", "path", outPath, "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, h))

	files, err := addTree(zw, srcDir, outAbs)
	if err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("could not sync artifact file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact file: %w", err)
	}

	success = true
	return &BuildResult{
		Name:   parsed.Name,
		Path:   outPath,
		Files:  files,
		Size:   stat.Size(),
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func addTree(zw *zip.Writer, srcDir, outAbs string) (int, error) {
	files := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != srcDir && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, absErr := filepath.Abs(path); absErr == nil && abs == outAbs {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("archive header for %s: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		_, copyErr := io.Copy(w, src)
		if closeErr := src.Close(); closeErr != nil {
			slog.Warn("failed to close source file", "path", path, "err", closeErr)
		}
		if copyErr != nil {
			return fmt.Errorf("add %s: %w", rel, copyErr)
		}

		files++
		return nil
	})
	return files, err
}

// ReadManifest returns the raw composer.json from the root of a zip
// artifact. Returns ErrNoManifest when the archive has no root manifest.
func ReadManifest(artifact []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(artifact), int64(len(artifact)))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != ManifestFileName {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open manifest entry: %w", err)
		}
		data, readErr := io.ReadAll(rc)
		if closeErr := rc.Close(); closeErr != nil {
			slog.Warn("failed to close manifest entry", "err", closeErr)
		}
		if readErr != nil {
			return nil, fmt.Errorf("read manifest entry: %w", readErr)
		}
		return data, nil
	}

	return nil, ErrNoManifest
}

// ParseManifest decodes the fields of a raw composer.json document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// ValidateManifest checks a raw composer.json document against the bundled
// schema: a lowercase vendor/project name is required, and the common
// fields must carry the types Composer expects.
func ValidateManifest(manifest []byte) error {
	var doc any
	if err := json.Unmarshal(manifest, &doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(composerSchema)
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}

	result := schema.ValidateJSON(manifest)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("manifest validation failed: %v", result.Errors)
}

// CheckArtifact reads and validates the composer.json of a zip artifact,
// returning the parsed manifest when it is valid.
func CheckArtifact(artifact []byte) (*Manifest, error) {
	raw, err := ReadManifest(artifact)
	if err != nil {
		return nil, err
	}
	if err := ValidateManifest(raw); err != nil {
		return nil, err
	}
	return ParseManifest(raw)
}

// IsZip reports whether data starts with a ZIP local file header.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}
