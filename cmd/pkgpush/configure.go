package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write the config file",
	Long: `Interactively write the pkgpush config file.

You will be prompted for:
  - Registry base URL
  - API key
  - API secret

The registry connection is tested before saving. Settings not covered by
the prompts (history, logging) keep their current values.

Configuration is stored in ~/.pkgpush/config.yaml unless --config is given.`,
	RunE: runConfigure,
}

var configureShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, config file,
environment variables and flags.

Secrets are masked by default; use --show-secrets to reveal them.`,
	RunE: runConfigureShow,
}

var showSecrets bool

func init() {
	configureCmd.AddCommand(configureShowCmd)
	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")

	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if configPath == "" {
		return errors.New("cannot resolve config path, pass --config")
	}

	// Prompt for registry URL
	urlPrompt := promptui.Prompt{
		Label:   "Registry URL",
		Default: cfg.Registry.URL,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("registry URL is required")
			}
			parsedURL, parseErr := url.Parse(input)
			if parseErr != nil {
				return fmt.Errorf("invalid URL: %w", parseErr)
			}
			if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
				return errors.New("URL must start with http:// or https://")
			}
			return nil
		},
	}
	registryURL, err := urlPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	// Prompt for API key
	keyPrompt := promptui.Prompt{
		Label: "API Key",
	}
	keyVal, err := keyPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	// Prompt for API secret
	secretPrompt := promptui.Prompt{
		Label: "API Secret",
		Mask:  '*',
	}
	secretVal, err := secretPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	// Test connection
	fmt.Print("Testing connection... ")
	if connErr := testRegistryConnection(registryURL); connErr != nil {
		fmt.Println("FAILED")
		fmt.Printf("Warning: could not reach registry: %v\n", connErr)

		continuePrompt := promptui.Prompt{
			Label:     "Save configuration anyway",
			IsConfirm: true,
		}
		if _, promptErr := continuePrompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	} else {
		fmt.Println("OK")
	}

	settings := config.SettingsFromConfig(cfg)
	settings.Registry.URL = strings.TrimSuffix(registryURL, "/")
	settings.Registry.Key = keyVal
	settings.Registry.Secret = secretVal

	if err := settings.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", configPath)
	return nil
}

func runConfigureShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	formatter := getFormatter()
	return formatter.FormatConfig(os.Stdout, cfg, showSecrets)
}

// testRegistryConnection checks that the registry answers at all. Any HTTP
// response counts, even 401 or 404; only the connection itself is tested.
func testRegistryConnection(registryURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, registryURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
