package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush/archive"
)

var packOutput string

var packCmd = &cobra.Command{
	Use:   "pack <source-dir>",
	Short: "Build an artifact archive from a source directory",
	Long: `Build a zip artifact from a package source directory.

The directory must contain a composer.json with at least a package name.
VCS directories (.git, .hg, .svn) are skipped. The output name defaults to
the package name with the vendor separator replaced, e.g. acme-widget.zip.

Examples:
  pkgpush pack ./my-package
  pkgpush pack ./my-package -o dist/widget-1.2.0.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output archive path (default: <vendor>-<name>.zip)")

	rootCmd.AddCommand(packCmd)
}

func runPack(_ *cobra.Command, args []string) error {
	srcDir := args[0]
	formatter := getFormatter()

	out := packOutput
	if out == "" {
		out = defaultArchiveName(srcDir)
	}

	result, err := archive.Build(srcDir, out)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return formatter.FormatPack(os.Stdout, result)
}

// defaultArchiveName derives the output file name from the package name in
// composer.json, falling back to the source directory name. Build reports
// the real error when the manifest is missing or malformed.
func defaultArchiveName(srcDir string) string {
	data, err := os.ReadFile(filepath.Join(srcDir, archive.ManifestFileName)) //#nosec G304 -- srcDir is a user-provided source directory
	if err == nil {
		if m, parseErr := archive.ParseManifest(data); parseErr == nil && m.Name != "" {
			return strings.ReplaceAll(m.Name, "/", "-") + ".zip"
		}
	}

	abs, err := filepath.Abs(srcDir)
	if err != nil {
		abs = srcDir
	}
	return filepath.Base(abs) + ".zip"
}
