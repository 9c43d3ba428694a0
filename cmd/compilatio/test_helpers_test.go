package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"compilatio/internal/config"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "compilatio.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
database = %q
log_dir = %q

[imports]
request_delay_ms = 0
retry_delay = 0

[logging]
level = "error"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "data", "compilatio.db"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

// syncBuffer lets a test read command output while the command still runs.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fixtureSourceName is a canned connector registered once per test binary.
// Tests swap its catalogue through setFixtureCatalogue, so no CLI test ever
// reaches the network.
const fixtureSourceName = "fixturelib"

var fixtureCatalogue struct {
	mu         sync.Mutex
	candidates []source.Candidate
	records    map[string]*manifest.Record
}

type fixtureAdapter struct{}

func (fixtureAdapter) Name() string { return fixtureSourceName }

func (fixtureAdapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{
		Name:         "Fixture Library",
		ShortName:    fixtureSourceName,
		CatalogueURL: "https://fixture.example.org/catalogue",
	}
}

func (fixtureAdapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	fixtureCatalogue.mu.Lock()
	defer fixtureCatalogue.mu.Unlock()
	return append([]source.Candidate(nil), fixtureCatalogue.candidates...), nil
}

func (fixtureAdapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	fixtureCatalogue.mu.Lock()
	defer fixtureCatalogue.mu.Unlock()
	rec, ok := fixtureCatalogue.records[cand.Key()]
	if !ok {
		return nil, remote.Wrap(remote.ErrSkip, fixtureSourceName, "fetch", "no longer published", nil)
	}
	clone := *rec
	return &clone, nil
}

var registerFixtureOnce sync.Once

func setFixtureCatalogue(t *testing.T, shelfmarks ...string) {
	t.Helper()
	registerFixtureOnce.Do(func() {
		source.Register(fixtureSourceName, "fixture", func(source.Deps) source.Adapter {
			return fixtureAdapter{}
		})
	})

	fixtureCatalogue.mu.Lock()
	defer fixtureCatalogue.mu.Unlock()
	fixtureCatalogue.candidates = nil
	fixtureCatalogue.records = make(map[string]*manifest.Record)
	for _, shelfmark := range shelfmarks {
		manifestURL := "https://fixture.example.org/iiif/" + strings.ReplaceAll(shelfmark, " ", "-") + "/manifest.json"
		fixtureCatalogue.candidates = append(fixtureCatalogue.candidates, source.Candidate{
			Shelfmark:   shelfmark,
			ManifestURL: manifestURL,
		})
		fixtureCatalogue.records[shelfmark] = &manifest.Record{
			Shelfmark:   shelfmark,
			Collection:  "Fixture Collection",
			Title:       "Codex " + shelfmark,
			ManifestURL: manifestURL,
			ImageCount:  24,
		}
	}
}
