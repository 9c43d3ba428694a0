// Package language provides unified language code normalization for
// manuscript records.
//
// Catalogue sources disagree about how to state a language: TEI descriptions
// carry ISO 639 codes (mainLang="lat"), IIIF metadata carries names
// ("Latin") or prose lists ("Latin and Middle English"). All conversions to
// the canonical display form are consolidated here so that the normalizer,
// the reconciler, and the API agree on the stored value.
package language
