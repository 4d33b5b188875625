// Package errors provides foundational, type-safe error primitives used across sitebuilder.
//
// This package contains classified error types and helpers for error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: broad error classification (config, filesystem, build, watch, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, immediate, backoff, user)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and presentation for the command line
//
// Example usage:
//
//	err := errors.FileSystemError("passthrough source missing").
//		WithContext("source", "modules").
//		WithCause(statErr).
//		Build()
package errors
