package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush/cli"
	"github.com/pkgpush/pkgpush/config"
	"github.com/pkgpush/pkgpush/registrytest"
)

const (
	defaultMockKey    = "test-key"
	defaultMockSecret = "test-secret"
)

var (
	mockPort     int
	mockPackages []string
)

var mockRegistryCmd = &cobra.Command{
	Use:   "mock-registry",
	Short: "Run an in-memory registry for testing",
	Long: `Run an in-memory Packagist-compatible registry.

The registry verifies signed requests exactly like the real API and keeps
uploads in memory, which makes it useful for CI pipelines and local
experiments. Packages listed with --package are pre-created; uploads to
unknown packages return 404 like the real registry.

The registry accepts the key and secret from the loaded configuration.
When no credentials are configured it falls back to test-key/test-secret.

Examples:
  pkgpush mock-registry --package acme/widget
  pkgpush mock-registry --port 8092 --package acme/widget --package acme/gadget`,
	Args: cobra.NoArgs,
	RunE: runMockRegistry,
}

func init() {
	mockRegistryCmd.Flags().IntVar(&mockPort, "port", 8092, "HTTP server port")
	mockRegistryCmd.Flags().StringArrayVar(&mockPackages, "package", nil, "pre-create a package (vendor/name, repeatable)")

	rootCmd.AddCommand(mockRegistryCmd)
}

func runMockRegistry(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	key, secret := cfg.Registry.Key, cfg.Registry.Secret
	if key == "" || secret == "" {
		key, secret = defaultMockKey, defaultMockSecret
		slog.Info("no credentials configured, accepting defaults", "key", key)
	}

	reg := registrytest.New(map[string]string{key: secret})
	for _, pkg := range mockPackages {
		if err := cli.ValidatePackage(pkg); err != nil {
			return err
		}
		reg.AddPackage(registrytest.Package{Name: pkg, Type: "artifact"})
	}

	addr := fmt.Sprintf(":%d", mockPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      reg.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down mock registry...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("starting mock registry", "addr", addr, "packages", len(mockPackages))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
