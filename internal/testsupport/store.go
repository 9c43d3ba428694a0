package testsupport

import (
	"context"
	"testing"

	"compilatio/internal/config"
	"compilatio/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewRepository registers a repository for tests and returns its id.
func NewRepository(t testing.TB, st *store.Store, name, shortName string) int64 {
	t.Helper()

	id, err := st.EnsureRepository(context.Background(), store.RepositorySeed{
		Name:      name,
		ShortName: shortName,
	})
	if err != nil {
		t.Fatalf("store.EnsureRepository: %v", err)
	}
	return id
}

// NewManuscript inserts a minimally valid manuscript for tests.
func NewManuscript(t testing.TB, st *store.Store, repositoryID int64, shelfmark string) *store.Manuscript {
	t.Helper()

	m, err := st.InsertManuscript(context.Background(), &store.Manuscript{
		RepositoryID:    repositoryID,
		Shelfmark:       shelfmark,
		IIIFManifestURL: "https://example.org/iiif/" + shelfmark + "/manifest",
	})
	if err != nil {
		t.Fatalf("store.InsertManuscript: %v", err)
	}
	return m
}
