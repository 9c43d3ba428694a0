// Package textutil provides text processing utilities for catalogue metadata.
//
// The primary use cases are:
//   - Cleaning metadata values that arrive with embedded HTML markup
//   - Collapsing whitespace and truncating long prose fields
//   - Creating token-based fingerprints for duplicate-title comparison
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric
// characters, and filters tokens shorter than 3 characters.
package textutil
