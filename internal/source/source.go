package source

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"compilatio/internal/config"
	"compilatio/internal/manifest"
	"compilatio/internal/remote"
	"compilatio/internal/store"
)

// Candidate is one importable manuscript found during discovery. Shelfmark
// is provisional until normalization refines it. ManifestURL is whatever
// Fetch needs to retrieve the item; for scrape-based sources that can be a
// catalogue page rather than a IIIF endpoint. Extra carries small
// connector-private hints between the two phases and serializes verbatim
// into the discovery cache.
type Candidate struct {
	Shelfmark   string            `json:"shelfmark"`
	ManifestURL string            `json:"manifest_url"`
	SourceURL   string            `json:"source_url,omitempty"`
	Title       string            `json:"title,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Key identifies a candidate across runs for checkpoint bookkeeping: the
// provisional shelfmark when discovery yielded one, else the manifest URL.
func (c Candidate) Key() string {
	if s := strings.TrimSpace(c.Shelfmark); s != "" {
		return s
	}
	return c.ManifestURL
}

// ExtraValue reads a connector hint, tolerating a nil map.
func (c Candidate) ExtraValue(key string) string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra[key]
}

// Deps carries the shared infrastructure connectors are built with.
// Construction performs no I/O.
type Deps struct {
	Client  *remote.Client
	Browser *remote.Browser
	Config  *config.Config
	Logger  *slog.Logger
}

// ThumbnailWidth returns the configured width for derived thumbnails.
func (d Deps) ThumbnailWidth() int {
	if d.Config != nil && d.Config.Imports.ThumbnailWidth > 0 {
		return d.Config.Imports.ThumbnailWidth
	}
	return manifest.DefaultThumbnailWidth
}

// RequestDelay returns the politeness delay between remote operations.
func (d Deps) RequestDelay() time.Duration {
	if d.Config == nil {
		return 0
	}
	return d.Config.RequestDelay()
}

// Adapter is one catalogue connector.
type Adapter interface {
	// Name returns the stable source key used for registry lookup, progress
	// files, and collection derivation.
	Name() string

	// Repository identifies the holding institution, ensured in the store
	// at the start of every run.
	Repository() store.RepositorySeed

	// Discover enumerates every importable item. A discovery error is fatal
	// to the run; there is no partial discovery.
	Discover(ctx context.Context) ([]Candidate, error)

	// Fetch retrieves one discovered item and normalizes it. Failures carry
	// the remote taxonomy markers; the orchestrator owns the retry policy,
	// so connectors never loop on errors themselves.
	Fetch(ctx context.Context, cand Candidate) (*manifest.Record, error)
}

// Builder constructs an adapter from shared dependencies.
type Builder func(Deps) Adapter

// Info describes a registered connector for the sources table.
type Info struct {
	Name     string
	Strategy string
}

var (
	registryMu sync.Mutex
	builders   = map[string]Builder{}
	strategies = map[string]string{}
)

// Register adds a connector under its stable name; connectors call it from
// init. Registering the same name twice panics.
func Register(name, strategy string, build Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" || build == nil {
		panic("source: Register requires a name and a builder")
	}
	if _, dup := builders[name]; dup {
		panic(fmt.Sprintf("source: connector %q registered twice", name))
	}
	builders[name] = build
	strategies[name] = strategy
}

// Names returns the registered connector names in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return slices.Sorted(maps.Keys(builders))
}

// Infos returns name and strategy for every registered connector in sorted
// order.
func Infos() []Info {
	registryMu.Lock()
	defer registryMu.Unlock()
	infos := make([]Info, 0, len(builders))
	for _, name := range slices.Sorted(maps.Keys(builders)) {
		infos = append(infos, Info{Name: name, Strategy: strategies[name]})
	}
	return infos
}

// All constructs every registered connector in name order.
func All(deps Deps) []Adapter {
	names := Names()
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		adapter, err := Lookup(name, deps)
		if err != nil {
			continue
		}
		adapters = append(adapters, adapter)
	}
	return adapters
}

// Lookup constructs the connector registered under name.
func Lookup(name string, deps Deps) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.Lock()
	build, ok := builders[key]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known sources: %s)", name, strings.Join(Names(), ", "))
	}
	return build(deps), nil
}
