// Package cli provides shared building blocks for the pkgpush command line:
// input validation, result types, and output formatting.
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := cli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatPush(os.Stdout, report)
//
// The human formatter suppresses success output in quiet mode but always
// prints errors and warnings. The JSON formatter emits indented JSON suitable
// for scripting.
package cli
