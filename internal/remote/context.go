package remote

import "context"

type contextKey string

const (
	sourceKey    contextKey = "source"
	shelfmarkKey contextKey = "shelfmark"
	runIDKey     contextKey = "run_id"
)

// WithSource annotates context with the catalogue source key.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the source key if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sourceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithShelfmark annotates context with the shelfmark being processed.
func WithShelfmark(ctx context.Context, shelfmark string) context.Context {
	if shelfmark == "" {
		return ctx
	}
	return context.WithValue(ctx, shelfmarkKey, shelfmark)
}

// ShelfmarkFromContext returns the in-flight shelfmark if present.
func ShelfmarkFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(shelfmarkKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the import run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the import run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(runIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
