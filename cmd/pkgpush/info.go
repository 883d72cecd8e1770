package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush/cli"
	"github.com/pkgpush/pkgpush/config"
)

var infoCmd = &cobra.Command{
	Use:   "info <vendor/package>",
	Short: "Show package metadata from the registry",
	Long: `Show the metadata the registry reports for a package.

Examples:
  pkgpush info acme/widget
  pkgpush info acme/widget --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	pkg := args[0]
	formatter := getFormatter()

	if err := cli.ValidatePackage(pkg); err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
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

	info, err := client.GetPackage(cmd.Context(), pkg)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return formatter.FormatInfo(os.Stdout, pkg, info)
}
