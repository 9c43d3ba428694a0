package main

import (
	"encoding/json"
	"testing"
)

func TestSourcesListsRegistry(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sources"}, env.configPath)
	if err != nil {
		t.Fatalf("sources failed: %v", err)
	}
	requireContains(t, out, "bodleian")
	requireContains(t, out, "durham")
	requireContains(t, out, "yale")
	requireContains(t, out, "Bodleian Library, University of Oxford")
	requireContains(t, out, "Durham University Library")
}

func TestSourcesJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sources", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("sources --json failed: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(entries) < 8 {
		t.Fatalf("expected at least 8 sources, got %d", len(entries))
	}
	found := false
	for _, entry := range entries {
		if entry["name"] != "durham" {
			continue
		}
		found = true
		if entry["strategy"] == "" || entry["strategy"] == nil {
			t.Fatal("expected a strategy for durham")
		}
		if entry["repository"] != "Durham University Library" {
			t.Fatalf("unexpected repository %v", entry["repository"])
		}
	}
	if !found {
		t.Fatal("durham missing from sources JSON")
	}
}
