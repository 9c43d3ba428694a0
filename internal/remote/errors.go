package remote

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, connection
	// resets, HTTP 429 and 5xx.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that will not improve on retry, such as
	// HTTP 404 for a withdrawn manifest.
	ErrPermanent = errors.New("permanent failure")
	// ErrParse marks payloads that were fetched but could not be decoded.
	ErrParse = errors.New("parse failure")
	// ErrSkip marks records that fail a validity gate and should be counted
	// as skipped rather than failed.
	ErrSkip = errors.New("record skipped")
	// ErrConfiguration marks operator errors detected before any phase runs.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes source context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, source, operation, message string, err error) error {
	detail := buildDetail(source, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether err is tagged retry-worthy.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err is tagged as not worth retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

func buildDetail(source, operation, message string) string {
	parts := make([]string, 0, 3)
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, source)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "remote failure"
	}
	return strings.Join(parts, ": ")
}
