// Package source defines the connector contract for catalogue sources: a
// discovery pass that enumerates importable manuscripts and a fetch pass
// that turns one discovered item into a normalized record. Concrete
// connectors live in subpackages and register themselves at init; importing
// compilatio/internal/source/all pulls in the full set. Connectors never
// retry and never write to the aggregate; pacing, retries, and persistence
// belong to the orchestrator.
package source
