package importer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"compilatio/internal/checkpoint"
	"compilatio/internal/importer"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
	"compilatio/internal/testsupport"
)

// fakeAdapter is a scripted connector. Fetch burns through per-key
// transient failure budgets before succeeding and counts every call, so
// tests can prove what a resumed run did not re-request.
type fakeAdapter struct {
	name          string
	candidates    []source.Candidate
	records       map[string]*manifest.Record
	transient     map[string]int
	fetchCalls    map[string]int
	discoverCalls int
	onFetch       func()
}

func newFakeAdapter(name string, shelfmarks ...string) *fakeAdapter {
	f := &fakeAdapter{
		name:       name,
		records:    map[string]*manifest.Record{},
		transient:  map[string]int{},
		fetchCalls: map[string]int{},
	}
	for _, sm := range shelfmarks {
		manifestURL := "https://example.org/iiif/" + sm + "/manifest.json"
		f.candidates = append(f.candidates, source.Candidate{
			Shelfmark:   sm,
			ManifestURL: manifestURL,
		})
		f.records[sm] = &manifest.Record{
			Shelfmark:   sm,
			Title:       "Codex " + sm,
			ManifestURL: manifestURL,
			ImageCount:  12,
		}
	}
	return f
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Repository() store.RepositorySeed {
	return store.RepositorySeed{Name: "Test Library", ShortName: f.name}
}

func (f *fakeAdapter) Discover(ctx context.Context) ([]source.Candidate, error) {
	f.discoverCalls++
	return f.candidates, nil
}

func (f *fakeAdapter) Fetch(ctx context.Context, cand source.Candidate) (*manifest.Record, error) {
	key := cand.Key()
	f.fetchCalls[key]++
	if f.onFetch != nil {
		f.onFetch()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.transient[key] > 0 {
		f.transient[key]--
		return nil, remote.Wrap(remote.ErrTransient, f.name, "fetch", "connection reset", nil)
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, remote.Wrap(remote.ErrSkip, f.name, "fetch", "no metadata published", nil)
	}
	clone := *rec
	return &clone, nil
}

func TestRunImportsAndUpdates(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 100", "MS 101", "MS 102")
	run := importer.New(cfg, st, adapter, nil)

	sum, err := run.Run(ctx, importer.Options{Execute: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Discovered != 3 || sum.Imported != 3 || sum.Updated != 0 || sum.Failed != 0 {
		t.Fatalf("unexpected first-run summary: %+v", sum)
	}

	repoID, err := st.FindRepositoryID(ctx, "testlib")
	if err != nil {
		t.Fatalf("FindRepositoryID failed: %v", err)
	}
	if repoID == 0 {
		t.Fatal("repository was not created")
	}
	row, err := st.FindManuscript(ctx, repoID, "MS 101")
	if err != nil {
		t.Fatalf("FindManuscript failed: %v", err)
	}
	if row == nil || row.Title != "Codex MS 101" {
		t.Fatalf("imported row missing or wrong: %+v", row)
	}

	adapter.records["MS 101"].Title = "Codex MS 101, revised"
	sum, err = run.Run(ctx, importer.Options{Execute: true})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if sum.Imported != 0 || sum.Updated != 3 {
		t.Fatalf("unexpected second-run summary: %+v", sum)
	}
	row, err = st.FindManuscript(ctx, repoID, "MS 101")
	if err != nil {
		t.Fatalf("FindManuscript after update failed: %v", err)
	}
	if row.Title != "Codex MS 101, revised" {
		t.Fatalf("Title = %q, want the revised form", row.Title)
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 1", "MS 2", "MS 3", "MS 4", "MS 5")
	adapter.transient["MS 2"] = 2 // recovers on the final attempt
	adapter.transient["MS 3"] = 3 // exhausts the budget

	sum, err := importer.New(cfg, st, adapter, nil).Run(ctx, importer.Options{Execute: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Imported != 4 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 4 imported and 1 failed", sum)
	}
	if got := adapter.fetchCalls["MS 2"]; got != 3 {
		t.Fatalf("MS 2 fetched %d times, want 3", got)
	}
	if got := adapter.fetchCalls["MS 3"]; got != 3 {
		t.Fatalf("MS 3 fetched %d times, want 3", got)
	}

	repoID, err := st.FindRepositoryID(ctx, "testlib")
	if err != nil {
		t.Fatalf("FindRepositoryID failed: %v", err)
	}
	row, err := st.FindManuscript(ctx, repoID, "MS 3")
	if err != nil {
		t.Fatalf("FindManuscript failed: %v", err)
	}
	if row != nil {
		t.Fatalf("failed item reached the store: %+v", row)
	}
}

func TestRunResumeSkipsSettledItems(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 10", "MS 11", "MS 12")
	adapter.transient["MS 11"] = 100
	run := importer.New(cfg, st, adapter, nil)

	sum, err := run.Run(ctx, importer.Options{Execute: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Imported != 2 || sum.Failed != 1 {
		t.Fatalf("first-run summary = %+v, want 2 imported and 1 failed", sum)
	}

	adapter.transient["MS 11"] = 0
	clear(adapter.fetchCalls)

	sum, err = run.Run(ctx, importer.Options{Execute: true, Resume: true})
	if err != nil {
		t.Fatalf("resumed Run failed: %v", err)
	}
	if sum.Imported != 1 || sum.Failed != 0 {
		t.Fatalf("resumed summary = %+v, want only the failed item imported", sum)
	}
	if adapter.discoverCalls != 1 {
		t.Fatalf("discovery ran %d times, want the cached list reused", adapter.discoverCalls)
	}
	if adapter.fetchCalls["MS 10"] != 0 || adapter.fetchCalls["MS 12"] != 0 {
		t.Fatalf("resume re-fetched settled items: %v", adapter.fetchCalls)
	}
	if got := adapter.fetchCalls["MS 11"]; got != 1 {
		t.Fatalf("failed item fetched %d times on resume, want 1", got)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 20", "MS 21")

	sum, err := importer.New(cfg, st, adapter, nil).Run(ctx, importer.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !sum.DryRun || sum.Imported != 2 {
		t.Fatalf("summary = %+v, want a dry run with 2 would-be imports", sum)
	}

	repoID, err := st.FindRepositoryID(ctx, "testlib")
	if err != nil {
		t.Fatalf("FindRepositoryID failed: %v", err)
	}
	if repoID != 0 {
		t.Fatalf("dry run created repository id %d", repoID)
	}
	if _, err := os.Stat(filepath.Join(cfg.ProgressDir(), "testlib.json")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote a progress file: stat err = %v", err)
	}
}

func TestRunDiscoverOnlyThenSkipDiscovery(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 30", "MS 31")
	run := importer.New(cfg, st, adapter, nil)

	sum, err := run.Run(ctx, importer.Options{Execute: true, DiscoverOnly: true})
	if err != nil {
		t.Fatalf("discovery-only Run failed: %v", err)
	}
	if sum.Discovered != 2 || sum.Imported != 0 {
		t.Fatalf("summary = %+v, want 2 discovered and nothing imported", sum)
	}
	if len(adapter.fetchCalls) != 0 {
		t.Fatalf("discovery-only run fetched items: %v", adapter.fetchCalls)
	}
	if _, err := os.Stat(filepath.Join(cfg.ProgressDir(), "testlib.discovered.json")); err != nil {
		t.Fatalf("discovery cache missing: %v", err)
	}

	sum, err = run.Run(ctx, importer.Options{Execute: true, SkipDiscovery: true})
	if err != nil {
		t.Fatalf("skip-discovery Run failed: %v", err)
	}
	if adapter.discoverCalls != 1 {
		t.Fatalf("discovery ran %d times, want the cache reused", adapter.discoverCalls)
	}
	if sum.Imported != 2 {
		t.Fatalf("summary = %+v, want 2 imported from the cached list", sum)
	}
}

func TestRunSkipDiscoveryWithoutCacheFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 1")

	_, err := importer.New(cfg, st, adapter, nil).Run(context.Background(), importer.Options{Execute: true, SkipDiscovery: true})
	if err == nil {
		t.Fatal("Run succeeded without a discovery cache")
	}
	if !errors.Is(err, remote.ErrConfiguration) {
		t.Fatalf("err = %v, want a configuration error", err)
	}
}

func TestRunTestModeCapsItems(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 1", "MS 2", "MS 3", "MS 4", "MS 5", "MS 6", "MS 7", "MS 8")

	sum, err := importer.New(cfg, st, adapter, nil).Run(ctx, importer.Options{Execute: true, Test: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Imported != 5 {
		t.Fatalf("test run imported %d items, want 5", sum.Imported)
	}
	page, err := st.ListManuscripts(ctx, store.Filter{})
	if err != nil {
		t.Fatalf("ListManuscripts failed: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("store holds %d rows, want 5", page.Total)
	}
}

func TestRunLimitCapsItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 1", "MS 2", "MS 3", "MS 4")

	sum, err := importer.New(cfg, st, adapter, nil).Run(context.Background(), importer.Options{Execute: true, Limit: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Imported != 2 {
		t.Fatalf("limited run imported %d items, want 2", sum.Imported)
	}
}

func TestRunSettlesSkippedItems(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 40", "MS 41")
	delete(adapter.records, "MS 41")
	run := importer.New(cfg, st, adapter, nil)

	sum, err := run.Run(ctx, importer.Options{Execute: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Imported != 1 || sum.Skipped != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 imported and 1 skipped", sum)
	}

	clear(adapter.fetchCalls)
	sum, err = run.Run(ctx, importer.Options{Execute: true, Resume: true})
	if err != nil {
		t.Fatalf("resumed Run failed: %v", err)
	}
	if adapter.fetchCalls["MS 41"] != 0 {
		t.Fatalf("skipped item was fetched again on resume: %v", adapter.fetchCalls)
	}
	if sum.Imported != 0 || sum.Skipped != 0 {
		t.Fatalf("resumed summary = %+v, want nothing left to do", sum)
	}
}

func TestRunDerivesCollections(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("durham", "DCL MS A.II.17", "DCL MS B.IV.24")
	adapter.records["DCL MS B.IV.24"].Collection = "Handpicked"

	if _, err := importer.New(cfg, st, adapter, nil).Run(ctx, importer.Options{Execute: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	repoID, err := st.FindRepositoryID(ctx, "durham")
	if err != nil {
		t.Fatalf("FindRepositoryID failed: %v", err)
	}
	row, err := st.FindManuscript(ctx, repoID, "DCL MS A.II.17")
	if err != nil {
		t.Fatalf("FindManuscript failed: %v", err)
	}
	if row.Collection != "Cathedral A" {
		t.Fatalf("Collection = %q, want %q", row.Collection, "Cathedral A")
	}
	row, err = st.FindManuscript(ctx, repoID, "DCL MS B.IV.24")
	if err != nil {
		t.Fatalf("FindManuscript failed: %v", err)
	}
	if row.Collection != "Handpicked" {
		t.Fatalf("Collection = %q, want the connector's own value kept", row.Collection)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	adapter := newFakeAdapter("testlib", "MS 50", "MS 51", "MS 52")

	fetches := 0
	adapter.onFetch = func() {
		fetches++
		if fetches == 2 {
			cancel()
		}
	}

	sum, err := importer.New(cfg, st, adapter, nil).Run(ctx, importer.Options{Execute: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sum == nil || sum.Imported != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want the first item settled and no failures", sum)
	}

	cp, err := checkpoint.Open(cfg.ProgressDir(), "testlib", nil)
	if err != nil {
		t.Fatalf("checkpoint.Open failed: %v", err)
	}
	defer cp.Close()
	if err := cp.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, completed, failed := cp.Counts()
	if completed != 1 || failed != 0 {
		t.Fatalf("checkpoint counts = %d completed %d failed, want 1 and 0", completed, failed)
	}
}
