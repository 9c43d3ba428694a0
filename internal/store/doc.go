// Package store persists the manuscript aggregate in SQLite and exposes the
// queries the import pipeline, the CLI, and the API server share.
//
// Two tables exist: repositories (holding institutions, keyed by a stable
// short name) and manuscripts (one row per digitized manuscript, unique per
// repository and shelfmark). The import pipeline writes through
// EnsureRepository and the insert/update pair; everything else is read-only.
//
// Schema changes are embedded SQL migrations under migrations/, applied in
// filename order inside one transaction and recorded in schema_migrations.
package store
