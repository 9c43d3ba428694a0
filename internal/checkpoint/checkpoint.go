// Package checkpoint persists per-source import progress so interrupted
// runs resume where they stopped. Each source owns one progress file and
// one discovery cache under the progress directory, plus a lock file that
// keeps concurrent runs of the same source from trampling each other.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"

	"compilatio/internal/fileutil"
	"compilatio/internal/source"
)

// Phase names one stage of an import run.
type Phase string

const (
	PhaseDiscovery Phase = "discovery"
	PhaseImport    Phase = "import"
	PhaseDone      Phase = "done"
)

// progressState is the on-disk progress document. Completed and failed are
// kept sorted so successive writes diff cleanly.
type progressState struct {
	Source          string   `json:"source"`
	RunID           string   `json:"run_id,omitempty"`
	Phase           Phase    `json:"phase"`
	TotalDiscovered int      `json:"total_discovered"`
	Completed       []string `json:"completed"`
	Failed          []string `json:"failed"`
	LastUpdated     string   `json:"last_updated"`
}

// discoveryCache is the on-disk candidate list from the last completed
// discovery phase.
type discoveryCache struct {
	Source       string             `json:"source"`
	DiscoveredAt string             `json:"discovered_at"`
	Candidates   []source.Candidate `json:"candidates"`
}

// Checkpoint tracks one source's run state. All methods mutate in-memory
// state first and persist after; in read-only mode persistence is skipped
// so dry runs leave every file untouched.
type Checkpoint struct {
	dir      string
	source   string
	logger   *slog.Logger
	lock     *flock.Flock
	readOnly bool

	state      progressState
	candidates []source.Candidate
	completed  map[string]struct{}
	failed     map[string]struct{}
}

// Option configures a Checkpoint.
type Option func(*Checkpoint)

// WithReadOnly disables persistence: every mutation updates memory only.
// Dry runs use this so progress files stay byte-identical.
func WithReadOnly() Option {
	return func(c *Checkpoint) {
		c.readOnly = true
	}
}

// Open acquires the source's run lock and returns an empty checkpoint; call
// Load to read any existing state. A second concurrent run of the same
// source fails fast rather than corrupting shared files.
func Open(dir, sourceName string, logger *slog.Logger, opts ...Option) (*Checkpoint, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, sourceName+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another import is already running for source %s", sourceName)
	}

	c := &Checkpoint{
		dir:       dir,
		source:    sourceName,
		logger:    logger,
		lock:      lock,
		state:     progressState{Source: sourceName, Phase: PhaseDiscovery},
		completed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the run lock.
func (c *Checkpoint) Close() error {
	if c.lock == nil {
		return nil
	}
	if err := c.lock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	c.lock = nil
	return nil
}

// Load reads the existing progress file and discovery cache. A missing file
// means a fresh run. A corrupt file is an error: resetting it silently
// would forget which items already imported.
func (c *Checkpoint) Load() error {
	err := fileutil.ReadJSON(c.progressPath(), &c.state)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.state = progressState{Source: c.source, Phase: PhaseDiscovery}
	case err != nil:
		return fmt.Errorf("progress file %s is corrupt, refusing to reset it: %w", c.progressPath(), err)
	}

	c.completed = make(map[string]struct{}, len(c.state.Completed))
	for _, shelfmark := range c.state.Completed {
		c.completed[shelfmark] = struct{}{}
	}
	c.failed = make(map[string]struct{}, len(c.state.Failed))
	for _, shelfmark := range c.state.Failed {
		c.failed[shelfmark] = struct{}{}
	}

	var cache discoveryCache
	err = fileutil.ReadJSON(c.discoveryPath(), &cache)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.candidates = nil
	case err != nil:
		return fmt.Errorf("discovery cache %s is corrupt: %w", c.discoveryPath(), err)
	default:
		c.candidates = cache.Candidates
	}

	c.logger.Debug("checkpoint loaded",
		"source", c.source,
		"phase", c.state.Phase,
		"completed", len(c.completed),
		"failed", len(c.failed),
		"cached_candidates", len(c.candidates))
	return nil
}

// BeginDiscovery stamps the run and enters the discovery phase.
func (c *Checkpoint) BeginDiscovery(runID string) error {
	c.state.RunID = runID
	c.state.Phase = PhaseDiscovery
	return c.persist()
}

// FinishDiscovery records the discovered candidates, writes the discovery
// cache, and moves to the import phase.
func (c *Checkpoint) FinishDiscovery(candidates []source.Candidate) error {
	c.candidates = candidates
	c.state.TotalDiscovered = len(candidates)
	c.state.Phase = PhaseImport

	if !c.readOnly {
		cache := discoveryCache{
			Source:       c.source,
			DiscoveredAt: time.Now().UTC().Format(time.RFC3339),
			Candidates:   candidates,
		}
		if err := fileutil.WriteJSONAtomic(c.discoveryPath(), cache); err != nil {
			return fmt.Errorf("write discovery cache: %w", err)
		}
	}
	return c.persist()
}

// ResumeImport stamps a fresh run over previously loaded state and re-enters
// the import phase. The discovery cache is left as it was written.
func (c *Checkpoint) ResumeImport(runID string) error {
	c.state.RunID = runID
	c.state.Phase = PhaseImport
	return c.persist()
}

// Candidates returns the cached discovery list from the last completed
// discovery phase.
func (c *Checkpoint) Candidates() []source.Candidate {
	return c.candidates
}

// MarkCompleted settles a shelfmark as imported. A success clears any
// earlier failure.
func (c *Checkpoint) MarkCompleted(shelfmark string) error {
	c.completed[shelfmark] = struct{}{}
	delete(c.failed, shelfmark)
	return c.persist()
}

// MarkFailed records a shelfmark that exhausted its attempts. Completed
// wins: an item that imported once never re-enters the failed set.
func (c *Checkpoint) MarkFailed(shelfmark string) error {
	if _, done := c.completed[shelfmark]; done {
		return nil
	}
	c.failed[shelfmark] = struct{}{}
	return c.persist()
}

// IsSettled reports whether a shelfmark completed. Failed items are not
// settled, so resume retries them.
func (c *Checkpoint) IsSettled(shelfmark string) bool {
	_, done := c.completed[shelfmark]
	return done
}

// SetPhase records a phase transition.
func (c *Checkpoint) SetPhase(phase Phase) error {
	c.state.Phase = phase
	return c.persist()
}

// Phase returns the current phase.
func (c *Checkpoint) Phase() Phase {
	return c.state.Phase
}

// RunID returns the identifier of the run that last touched the state.
func (c *Checkpoint) RunID() string {
	return c.state.RunID
}

// Counts reports discovered, completed, and failed totals.
func (c *Checkpoint) Counts() (discovered, completed, failed int) {
	return c.state.TotalDiscovered, len(c.completed), len(c.failed)
}

func (c *Checkpoint) persist() error {
	c.state.Completed = slices.Sorted(maps.Keys(c.completed))
	c.state.Failed = slices.Sorted(maps.Keys(c.failed))
	c.state.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if c.readOnly {
		return nil
	}
	if err := fileutil.WriteJSONAtomic(c.progressPath(), c.state); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	return nil
}

func (c *Checkpoint) progressPath() string {
	return filepath.Join(c.dir, c.source+".json")
}

func (c *Checkpoint) discoveryPath() string {
	return filepath.Join(c.dir, c.source+".discovered.json")
}
