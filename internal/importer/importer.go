// Package importer drives one source's import run end to end: discovery,
// checkpointing, paced fetches under the central retry policy, and
// reconciliation against the aggregate store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"compilatio/internal/checkpoint"
	"compilatio/internal/config"
	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/reconcile"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

// testItemLimit caps test runs so a connector can be exercised without
// walking the whole catalogue.
const testItemLimit = 5

// Options control one run.
type Options struct {
	// Execute writes manuscripts and checkpoint files. Without it the run
	// is a dry run: every decision is computed and logged, nothing
	// persists.
	Execute bool

	// Resume reloads the previous checkpoint, reuses its cached discovery,
	// and skips items that already completed. Failed items run again.
	Resume bool

	// Test caps the run at a handful of items. The caller points a test
	// run at a scratch database before constructing the runner.
	Test bool

	// DiscoverOnly stops after the discovery phase, leaving the candidate
	// cache behind for a later SkipDiscovery run.
	DiscoverOnly bool

	// SkipDiscovery reuses the cached candidate list instead of
	// rediscovering. Errors when no cache exists.
	SkipDiscovery bool

	// Limit caps the number of items processed when positive.
	Limit int

	// Verbose raises per-item outcome logging from debug to info.
	Verbose bool
}

// Summary reports what one run did.
type Summary struct {
	Source     string
	RunID      string
	DryRun     bool
	Discovered int
	Imported   int
	Updated    int
	Skipped    int
	Failed     int
	Elapsed    time.Duration
}

// Runner executes import runs for a single source.
type Runner struct {
	cfg     *config.Config
	store   *store.Store
	adapter source.Adapter
	engine  *reconcile.Engine
	logger  *slog.Logger
}

// New builds a runner around an opened store and a constructed adapter.
func New(cfg *config.Config, st *store.Store, adapter source.Adapter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "importer")
	return &Runner{
		cfg:     cfg,
		store:   st,
		adapter: adapter,
		engine:  reconcile.New(st, logger),
		logger:  logger,
	}
}

// Run executes one import run and reports what it did. Cancelling the
// context stops the run between items and between retry attempts; items
// already settled stay settled.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	name := r.adapter.Name()
	logger := r.logger.With("source", name, "run_id", runID)

	sum := &Summary{Source: name, RunID: runID, DryRun: !opts.Execute}

	seed := r.adapter.Repository()
	var (
		repoID int64
		err    error
	)
	if opts.Execute {
		repoID, err = r.store.EnsureRepository(ctx, seed)
	} else {
		// A dry run must not create the repository row either; an id of
		// zero simply makes every decision read as an insert.
		repoID, err = r.store.FindRepositoryID(ctx, seed.ShortName)
	}
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", seed.ShortName, err)
	}

	var cpOpts []checkpoint.Option
	if !opts.Execute {
		cpOpts = append(cpOpts, checkpoint.WithReadOnly())
	}
	cp, err := checkpoint.Open(r.cfg.ProgressDir(), name, logger, cpOpts...)
	if err != nil {
		return nil, err
	}
	defer cp.Close()

	candidates, err := r.loadCandidates(ctx, logger, cp, opts, runID)
	if err != nil {
		return nil, err
	}
	sum.Discovered = len(candidates)

	if opts.DiscoverOnly {
		sum.Elapsed = time.Since(started)
		logger.Info("discovery-only run complete", "candidates", len(candidates))
		return sum, nil
	}

	limit := opts.Limit
	if opts.Test && (limit <= 0 || limit > testItemLimit) {
		limit = testItemLimit
	}
	if !opts.Execute {
		logger.Info("dry run: decisions are logged, nothing is written")
	}

	processed := 0
	truncated := false
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(started)
			return sum, err
		}
		key := cand.Key()
		if key == "" {
			sum.Skipped++
			continue
		}
		if opts.Resume && cp.IsSettled(key) {
			logger.Debug("already settled", "item", key)
			continue
		}
		if limit > 0 && processed >= limit {
			truncated = true
			break
		}
		if processed > 0 {
			if err := source.Pace(ctx, r.cfg.RequestDelay()); err != nil {
				sum.Elapsed = time.Since(started)
				return sum, err
			}
		}
		processed++
		if err := r.importOne(ctx, logger, cp, repoID, cand, opts, sum); err != nil {
			sum.Elapsed = time.Since(started)
			return sum, err
		}
	}

	// A truncated run leaves the phase at import so status reporting shows
	// the source as unfinished.
	if !truncated {
		if err := cp.SetPhase(checkpoint.PhaseDone); err != nil {
			return sum, err
		}
	}

	sum.Elapsed = time.Since(started)
	logger.Info("run complete",
		"discovered", sum.Discovered,
		"imported", sum.Imported,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"dry_run", sum.DryRun,
		"elapsed", sum.Elapsed.Round(time.Millisecond))
	return sum, nil
}

// loadCandidates produces the run's candidate list, from the discovery
// cache when the options ask for it and from a fresh discovery phase
// otherwise. Resume falls back to discovering when no cache exists yet;
// SkipDiscovery does not.
func (r *Runner) loadCandidates(ctx context.Context, logger *slog.Logger, cp *checkpoint.Checkpoint, opts Options, runID string) ([]source.Candidate, error) {
	if opts.SkipDiscovery || opts.Resume {
		if err := cp.Load(); err != nil {
			return nil, err
		}
		if cached := cp.Candidates(); len(cached) > 0 {
			if err := cp.ResumeImport(runID); err != nil {
				return nil, err
			}
			logger.Info("reusing cached discovery", "candidates", len(cached))
			return cached, nil
		}
		if opts.SkipDiscovery {
			return nil, remote.Wrap(remote.ErrConfiguration, r.adapter.Name(), "discovery", "no cached discovery to reuse", nil)
		}
	}

	if err := cp.BeginDiscovery(runID); err != nil {
		return nil, err
	}
	logger.Info("discovery started")
	candidates, err := r.adapter.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if err := cp.FinishDiscovery(candidates); err != nil {
		return nil, err
	}
	logger.Info("discovery finished", "candidates", len(candidates))
	return candidates, nil
}

// importOne fetches, normalizes, and reconciles a single candidate,
// settling it in the checkpoint. Fetch and reconcile failures are
// recorded and absorbed; the returned error is reserved for conditions
// that end the run, cancellation and checkpoint write failures.
func (r *Runner) importOne(ctx context.Context, logger *slog.Logger, cp *checkpoint.Checkpoint, repoID int64, cand source.Candidate, opts Options, sum *Summary) error {
	key := cand.Key()

	rec, err := r.fetchWithRetry(ctx, logger, cand)
	if err != nil {
		if errors.Is(err, remote.ErrSkip) {
			logItem(logger, opts, "item skipped", "item", key, "reason", err.Error())
			sum.Skipped++
			return cp.MarkCompleted(key)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("item failed", "item", key, "error", err)
		sum.Failed++
		return cp.MarkFailed(key)
	}

	if rec.Collection == "" {
		rec.Collection = reconcile.DeriveCollection(r.adapter.Name(), rec.Shelfmark)
	}

	decision, err := r.engine.Reconcile(ctx, repoID, rec, opts.Execute)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("item failed", "item", key, "error", err)
		sum.Failed++
		return cp.MarkFailed(key)
	}

	switch decision.Action {
	case reconcile.ActionInsert:
		sum.Imported++
		logItem(logger, opts, "item imported", "item", key, "shelfmark", rec.Shelfmark)
	case reconcile.ActionUpdate:
		sum.Updated++
		logItem(logger, opts, "item updated", "item", key, "shelfmark", rec.Shelfmark)
	case reconcile.ActionSkip:
		sum.Skipped++
		logItem(logger, opts, "item skipped", "item", key, "reason", decision.Reason)
	}

	// Settling follows the store write, never precedes it, so an
	// interrupted run re-attempts rather than losing the item.
	return cp.MarkCompleted(key)
}

// fetchWithRetry runs one fetch under the run's retry policy. Only
// transient failures retry; permanent, parse, skip, and configuration
// failures surface on the first attempt. Connectors never loop on their
// own.
func (r *Runner) fetchWithRetry(ctx context.Context, logger *slog.Logger, cand source.Candidate) (*manifest.Record, error) {
	attempts := r.cfg.Imports.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.Debug("retrying fetch", "item", cand.Key(), "attempt", attempt, "attempts", attempts)
			if err := source.Pace(ctx, r.cfg.RetryDelay()); err != nil {
				return nil, err
			}
		}
		rec, err := r.adapter.Fetch(ctx, cand)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !remote.IsTransient(err) {
			break
		}
	}
	return nil, lastErr
}

// logItem logs one item outcome, at info when the run is verbose.
func logItem(logger *slog.Logger, opts Options, msg string, args ...any) {
	if opts.Verbose {
		logger.Info(msg, args...)
		return
	}
	logger.Debug(msg, args...)
}
