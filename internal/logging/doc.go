// Package logging builds slog loggers for shelfsync with console and JSON
// handlers, shared attribute helpers, and standardized field keys so log
// output stays greppable across components.
package logging
