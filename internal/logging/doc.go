// Package logging centralizes slog handler construction and the structured
// field vocabulary shared across the import pipeline and the API server.
//
// Two output formats exist: a compact console format ("ts LEVEL component:
// msg key=value") for interactive runs, and JSON for log files and pipes.
// Components derive their loggers through NewComponentLogger so every line
// carries a component attribute; pipeline code attaches source, shelfmark,
// and run coordinates through the context helpers in internal/remote.
package logging
