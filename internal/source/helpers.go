package source

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// ResolveURL resolves href against base: absolute links pass through,
// relative ones are joined, and unparseable input yields "".
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// Pace sleeps for delay unless the context ends first. A non-positive delay
// only checks for cancellation.
func Pace(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ForEachPage drives a 1-based pagination loop. fn reports whether more
// pages remain; the politeness delay applies between pages, never before
// the first.
func ForEachPage(ctx context.Context, delay time.Duration, fn func(ctx context.Context, page int) (more bool, err error)) error {
	for page := 1; ; page++ {
		more, err := fn(ctx, page)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := Pace(ctx, delay); err != nil {
			return err
		}
	}
}
