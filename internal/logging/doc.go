// Package logging builds the slog loggers used by tilesplit: a compact console
// handler for terminals, a JSON handler for machines, and a no-op logger for
// library callers that do not supply one.
package logging
