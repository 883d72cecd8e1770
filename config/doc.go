// Package config provides configuration loading and validation for pkgpush.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right,
//     ~/.pkgpush/config.yaml when none given
//  3. Environment variables (PKGPUSH_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with PKGPUSH_ prefix:
//   - registry.url → PKGPUSH_REGISTRY_URL
//   - registry.key → PKGPUSH_REGISTRY_KEY
//   - registry.secret → PKGPUSH_REGISTRY_SECRET
//   - log.level → PKGPUSH_LOG_LEVEL
//
// # Configuration Structure
//
// The Config struct contains:
//   - Registry: endpoint URL and API credentials
//   - History: local push-history database settings
//   - Log: logging level and format
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Registry URL must be a valid URL
//   - Log level must be debug, info, warn, or error
//   - Log format must be text or json
//
// Credentials are not required at load time; commands that sign requests
// check for them before any network use.
package config
