// Package manifest normalizes heterogeneous catalogue metadata into the
// Record shape the reconciliation engine consumes. FromIIIF maps IIIF
// Presentation manifests (v2 and v3) through a configurable synonym table;
// FromTEI walks TEI msDesc descriptions; ParseDateRange turns display-form
// date statements into sortable year bounds. All functions are pure: no
// network or database access happens here.
package manifest
