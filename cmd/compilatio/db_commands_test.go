package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"compilatio/internal/store"
)

func seedRepository(t *testing.T, env *cliTestEnv, seed store.RepositorySeed) int64 {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	id, err := st.EnsureRepository(context.Background(), seed)
	if err != nil {
		t.Fatalf("EnsureRepository failed: %v", err)
	}
	return id
}

func seedManuscript(t *testing.T, env *cliTestEnv, m *store.Manuscript) *store.Manuscript {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	inserted, err := st.InsertManuscript(context.Background(), m)
	if err != nil {
		t.Fatalf("InsertManuscript failed: %v", err)
	}
	return inserted
}

func hasShelfmark(t *testing.T, env *cliTestEnv, repoID int64, shelfmark string) bool {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	row, err := st.FindManuscript(context.Background(), repoID, shelfmark)
	if err != nil {
		t.Fatalf("FindManuscript failed: %v", err)
	}
	return row != nil
}

func TestDBStats(t *testing.T) {
	env := setupCLITestEnv(t)
	repoID := seedRepository(t, env, store.RepositorySeed{Name: "Durham University Library", ShortName: "durham"})
	start := 1100
	seedManuscript(t, env, &store.Manuscript{
		RepositoryID:    repoID,
		Shelfmark:       "A.II.17",
		Title:           "Gospel lectionary",
		DateStart:       &start,
		IIIFManifestURL: "https://example.org/iiif/a-ii-17/manifest",
		ThumbnailURL:    "https://example.org/thumbs/a-ii-17.jpg",
		ImageCount:      120,
	})
	seedManuscript(t, env, &store.Manuscript{
		RepositoryID:    repoID,
		Shelfmark:       "B.IV.24",
		Title:           "Durham cantor's book",
		IIIFManifestURL: "https://example.org/iiif/b-iv-24/manifest",
	})

	out, _, err := runCLI(t, []string{"db", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("db stats failed: %v", err)
	}
	requireContains(t, out, "Durham University Library")
	requireContains(t, out, "manuscripts: 2")
	requireContains(t, out, "dated: 1")
	requireContains(t, out, "Total manuscripts: 2")
}

func TestDBStatsJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	repoID := seedRepository(t, env, store.RepositorySeed{Name: "Beinecke Library", ShortName: "yale"})
	seedManuscript(t, env, &store.Manuscript{
		RepositoryID:    repoID,
		Shelfmark:       "MS 408",
		IIIFManifestURL: "https://example.org/iiif/ms408/manifest",
		ImageCount:      200,
	})

	out, _, err := runCLI(t, []string{"db", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("db stats --json failed: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 repository, got %d", len(entries))
	}
	if entries[0]["short_name"] != "yale" {
		t.Fatalf("unexpected short_name %v", entries[0]["short_name"])
	}
	if entries[0]["with_images"] != float64(1) {
		t.Fatalf("expected with_images 1, got %v", entries[0]["with_images"])
	}
}

func TestDBStatsEmptyDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"db", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("db stats failed: %v", err)
	}
	requireContains(t, out, "Database is empty")
}

func TestDBPath(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"db", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("db path failed: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.Database)
}

func TestDBDedupeRenamesFallbackRow(t *testing.T) {
	env := setupCLITestEnv(t)
	setFixtureCatalogue(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"@context": "http://iiif.io/api/presentation/2/context.json",
			"@id": "https://purl.stanford.edu/wz026zp2442/iiif/manifest",
			"@type": "sc:Manifest",
			"label": %q,
			"sequences": []
		}`, "Cambridge, Corpus Christi College, MS 016II: Chronica maiora II")
	}))
	defer srv.Close()

	repoID := seedRepository(t, env, store.RepositorySeed{Name: "Fixture Library", ShortName: fixtureSourceName})
	seedManuscript(t, env, &store.Manuscript{
		RepositoryID:    repoID,
		Shelfmark:       "MS wz026zp2442",
		Title:           "Chronica maiora II",
		IIIFManifestURL: srv.URL + "/wz026zp2442/iiif/manifest",
	})

	out, _, err := runCLI(t, []string{"db", "dedupe", fixtureSourceName}, env.configPath)
	if err != nil {
		t.Fatalf("db dedupe failed: %v", err)
	}
	requireContains(t, out, "Dry run: no changes were written")
	requireContains(t, out, "renamed: 1")
	if !hasShelfmark(t, env, repoID, "MS wz026zp2442") {
		t.Fatal("dry run renamed the row")
	}

	out, _, err = runCLI(t, []string{"db", "dedupe", fixtureSourceName, "--execute"}, env.configPath)
	if err != nil {
		t.Fatalf("db dedupe --execute failed: %v", err)
	}
	requireContains(t, out, "renamed: 1")
	if !hasShelfmark(t, env, repoID, "MS 016II") {
		t.Fatal("expected the fallback row to be renamed")
	}
	if hasShelfmark(t, env, repoID, "MS wz026zp2442") {
		t.Fatal("fallback shelfmark still present after rename")
	}
}

func TestDBDedupeWithoutRepositoryReportsNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	setFixtureCatalogue(t)

	out, _, err := runCLI(t, []string{"db", "dedupe", fixtureSourceName}, env.configPath)
	if err != nil {
		t.Fatalf("db dedupe failed: %v", err)
	}
	requireContains(t, out, "No manuscripts recorded for source "+fixtureSourceName)
}
