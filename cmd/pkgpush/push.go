package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush"
	"github.com/pkgpush/pkgpush/archive"
	"github.com/pkgpush/pkgpush/cli"
	"github.com/pkgpush/pkgpush/config"
	"github.com/pkgpush/pkgpush/history"
)

var (
	pushFileName        string
	pushContentType     string
	pushNoManifestCheck bool
)

var pushCmd = &cobra.Command{
	Use:   "push <vendor/package> <artifact>",
	Short: "Upload an artifact to a package",
	Long: `Upload an artifact archive to a package on the registry.

The artifact is uploaded byte for byte. When it looks like a zip archive its
composer.json manifest is checked first; problems are logged as warnings and
never stop the upload.

Examples:
  pkgpush push acme/widget ./acme-widget.zip
  pkgpush push acme/widget ./build.zip --filename widget-1.2.0.zip
  pkgpush push acme/widget ./build.zip --no-manifest-check`,
	Args: cobra.ExactArgs(2),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushFileName, "filename", "", "file name reported to the registry (default: artifact basename)")
	pushCmd.Flags().StringVarP(&pushContentType, "content-type", "t", "", "override content-type (default: application/zip)")
	pushCmd.Flags().BoolVar(&pushNoManifestCheck, "no-manifest-check", false, "skip the composer.json manifest check")

	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	pkg := args[0]
	path := args[1]
	formatter := getFormatter()

	if err := cli.ValidatePackage(pkg); err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	artifact, err := cli.ReadArtifact(path)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	if !pushNoManifestCheck {
		if archive.IsZip(artifact) {
			if _, checkErr := archive.CheckArtifact(artifact); checkErr != nil {
				slog.Warn("composer.json check failed", "file", path, "err", checkErr)
			}
		} else {
			slog.Debug("artifact is not a zip archive, skipping manifest check", "file", path)
		}
	}

	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	client, err := getClient(cfg)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	fileName := pushFileName
	if fileName == "" {
		fileName = filepath.Base(path)
	}

	sum := sha256.Sum256(artifact)
	report := &cli.PushReport{
		Package:  pkg,
		FileName: fileName,
		Size:     int64(len(artifact)),
		SHA256:   hex.EncodeToString(sum[:]),
	}

	result, err := client.Push(cmd.Context(), pkgpush.PushOptions{
		Package:     pkg,
		Artifact:    artifact,
		ContentType: pushContentType,
		FileName:    fileName,
	})
	if err != nil {
		var apiErr *pkgpush.APIError
		if errors.As(err, &apiErr) {
			report.Status = apiErr.StatusCode
		}
		recordPush(cmd.Context(), cfg, report, false)
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	report.Status = result.Status
	report.URL = result.URL
	report.Response = result.Response
	report.Info = result.Info
	if result.VerifyErr != nil {
		report.VerifyWarning = result.VerifyErr.Error()
	}

	recordPush(cmd.Context(), cfg, report, true)

	return formatter.FormatPush(os.Stdout, report)
}

// recordPush appends the push to the local history database. Failures only
// warn; the push outcome never depends on history bookkeeping.
func recordPush(ctx context.Context, cfg *config.Config, report *cli.PushReport, success bool) {
	if !cfg.History.Enabled {
		return
	}

	path := cfg.History.Path
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			slog.Warn("failed to resolve history path", "err", err)
			return
		}
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		slog.Warn("failed to open history database", "path", path, "err", err)
		return
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Record(ctx, history.Entry{
		Package:  report.Package,
		FileName: report.FileName,
		Size:     report.Size,
		SHA256:   report.SHA256,
		Status:   report.Status,
		Success:  success,
		URL:      report.URL,
	}); err != nil {
		slog.Warn("failed to record push", "err", err)
	}
}
