// Package notifications pushes import run outcomes to an ntfy topic.
// An empty topic disables the service; sends are best effort and never
// block a run from finishing.
package notifications
