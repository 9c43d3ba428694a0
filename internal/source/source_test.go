package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"compilatio/internal/manifest"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

type stubAdapter struct {
	name string
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{Name: "Stub Library", ShortName: a.name}
}

func (a *stubAdapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	return nil, nil
}

func (a *stubAdapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	return nil, errors.New("not implemented")
}

func TestRegistryLookup(t *testing.T) {
	source.Register("zz-registry-test", "unit test stub", func(deps source.Deps) source.Adapter {
		return &stubAdapter{name: "zz-registry-test"}
	})

	adapter, err := source.Lookup("ZZ-Registry-Test", source.Deps{})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if adapter.Name() != "zz-registry-test" {
		t.Fatalf("unexpected adapter name: %q", adapter.Name())
	}

	if _, err := source.Lookup("no-such-source", source.Deps{}); err == nil {
		t.Fatal("expected error for unknown source")
	}

	names := source.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}

	found := false
	for _, info := range source.Infos() {
		if info.Name == "zz-registry-test" && info.Strategy == "unit test stub" {
			found = true
		}
	}
	if !found {
		t.Fatal("registered connector missing from Infos")
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base string
		href string
		want string
	}{
		{"https://example.org/catalog/page1", "/catalog/item9", "https://example.org/catalog/item9"},
		{"https://example.org/catalog/", "item9", "https://example.org/catalog/item9"},
		{"https://example.org/", "https://other.org/x", "https://other.org/x"},
		{"https://example.org/", "  ", ""},
	}
	for _, tc := range cases {
		if got := source.ResolveURL(tc.base, tc.href); got != tc.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
		}
	}
}

func TestForEachPageStopsOnError(t *testing.T) {
	wantErr := errors.New("listing failed")
	calls := 0
	err := source.ForEachPage(context.Background(), 0, func(ctx context.Context, page int) (bool, error) {
		calls++
		if page == 2 {
			return false, wantErr
		}
		return true, nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected listing error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages visited, got %d", calls)
	}
}

func TestForEachPageHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := source.ForEachPage(ctx, time.Minute, func(ctx context.Context, page int) (bool, error) {
		return true, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
