// Package reconcile decides what a normalized record does to the aggregate
// store: insert a new manuscript, overwrite an existing one, or skip. It
// also derives collection names from shelfmark series and repairs rows
// keyed by fallback identifiers.
package reconcile
