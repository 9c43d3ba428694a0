// Package preflight verifies filesystem access before an execute run:
// the data directory, the progress directory, and the database location
// must all be usable before any network work starts.
package preflight
