// Package logging provides structured logging for the BrightMind backend.
//
// It wraps log/slog with level parsing, format selection (JSON or text),
// and default service/version fields configured from config.yaml.
package logging
