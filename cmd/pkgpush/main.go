package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush"
	"github.com/pkgpush/pkgpush/cli"
	"github.com/pkgpush/pkgpush/config"
)

var (
	version = "dev"

	cfgFile    string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "pkgpush",
	Version: version,
	Short:   "Push Composer artifacts to a Packagist registry",
	Long: `pkgpush uploads Composer package artifacts to a Packagist-style
registry through its signed HTTP API.

Typical flow:
  pkgpush configure                          # write ~/.pkgpush/config.yaml
  pkgpush pack ./my-package                  # build acme-widget.zip
  pkgpush push acme/widget acme-widget.zip   # upload the artifact`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var configFiles []string
		if cfgFile != "" {
			configFiles = append(configFiles, cfgFile)
		} else if envFile := config.PathFromEnv(); envFile != "" {
			configFiles = append(configFiles, envFile)
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.pkgpush/config.yaml, env: PKGPUSH_CONFIG)")
	rootCmd.PersistentFlags().String("registry", "", "registry base URL (env: PKGPUSH_REGISTRY_URL)")
	rootCmd.PersistentFlags().String("key", "", "registry API key (env: PKGPUSH_REGISTRY_KEY)")
	rootCmd.PersistentFlags().String("secret", "", "registry API secret (env: PKGPUSH_REGISTRY_SECRET)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() cli.Formatter {
	return cli.NewFormatter(jsonOutput, quiet)
}

// getClient creates a registry client from the loaded config.
func getClient(cfg *config.Config) (*pkgpush.Client, error) {
	return pkgpush.New(cfg.Registry.URL, cfg.Credentials())
}
