// Package remote provides the shared HTTP access layer for catalogue
// sources: a polite JSON/HTML client, a headless-browser fetcher for
// script-rendered listings, the error taxonomy that separates transient from
// permanent failures, and context annotations that carry pipeline
// coordinates (source, shelfmark, run) into structured logs.
//
// The package deliberately performs no retries; the import orchestrator owns
// the retry policy and applies it uniformly around every fetch.
package remote
