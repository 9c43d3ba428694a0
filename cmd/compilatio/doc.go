// Package main hosts the compilatio CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into import
// runs, checkpoint inspection, database maintenance, the read-only API
// server, and configuration scaffolding. It centralizes configuration
// resolution and logger construction so subcommands can focus on
// presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
