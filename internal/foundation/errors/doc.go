// Package errors provides the classified error primitives used across postbuilder.
//
// Per-document problems are never errors in this codebase: they are recorded as
// diagnostics and the run continues. The types here are for the conditions that
// do stop a command: broken configuration, an unreadable template registry, a
// layout inheritance cycle, a history database that cannot be opened.
//
// Key features:
//   - ErrorCategory: broad classification (config, source, layout, pipeline, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.LayoutError("layout inheritance cycle").
//		WithContext("chain", "post -> base -> post").
//		Build()
package errors
