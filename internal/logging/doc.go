// Package logging provides structured (JSON, log/slog), size-rotating file
// logging for the engine, optionally mirrored to stderr. It emits no
// events of its own; callers log through the *slog.Logger that Setup
// returns.
package logging
