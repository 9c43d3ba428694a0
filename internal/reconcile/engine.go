package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"compilatio/internal/logging"
	"compilatio/internal/manifest"
	"compilatio/internal/store"
)

// Action is the write decision for one normalized record.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Decision reports what Reconcile decided: the action, the row it touched
// (insert and update in execute mode), and the reason for a skip.
type Decision struct {
	Action     Action
	Reason     string
	Manuscript *store.Manuscript
}

// Engine maps normalized records onto aggregate store rows.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a reconciliation engine over the aggregate store.
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{store: st, logger: logger}
}

// Reconcile decides the action for rec within the repository and, when
// execute is true, applies it. Dry runs reach the same decision without
// touching the store.
//
// Records are looked up by their natural key (repository, shelfmark).
// Absent records insert; present records update with a full overwrite of
// every mutable field, never a field-by-field merge.
func (e *Engine) Reconcile(ctx context.Context, repositoryID int64, rec *manifest.Record, execute bool) (*Decision, error) {
	if err := rec.Validate(); err != nil {
		return &Decision{Action: ActionSkip, Reason: err.Error()}, nil
	}

	if IsFallbackShelfmark(rec.Shelfmark) {
		e.logger.Warn("record keyed by fallback identifier",
			"shelfmark", rec.Shelfmark,
			"manifest_url", rec.ManifestURL)
	}

	existing, err := e.store.FindManuscript(ctx, repositoryID, rec.Shelfmark)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		decision := &Decision{Action: ActionInsert}
		if !execute {
			return decision, nil
		}
		inserted, err := e.store.InsertManuscript(ctx, rowFromRecord(repositoryID, rec))
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", rec.Shelfmark, err)
		}
		decision.Manuscript = inserted
		return decision, nil
	}

	updated := *existing
	applyRecord(&updated, rec)
	decision := &Decision{Action: ActionUpdate, Manuscript: &updated}
	if !execute {
		return decision, nil
	}
	if err := e.store.UpdateManuscript(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update %s: %w", rec.Shelfmark, err)
	}
	return decision, nil
}

func rowFromRecord(repositoryID int64, rec *manifest.Record) *store.Manuscript {
	m := &store.Manuscript{
		RepositoryID: repositoryID,
		Shelfmark:    rec.Shelfmark,
	}
	applyRecord(m, rec)
	return m
}

// applyRecord copies every mutable field from the record onto the row.
// Identity fields (id, repository, shelfmark, created_at) stay put.
func applyRecord(m *store.Manuscript, rec *manifest.Record) {
	m.Collection = rec.Collection
	m.Title = rec.Title
	m.DateDisplay = rec.DateDisplay
	m.DateStart = rec.DateStart
	m.DateEnd = rec.DateEnd
	m.Contents = rec.Contents
	m.Provenance = rec.Provenance
	m.Language = rec.Language
	m.Folios = rec.Folios
	m.IIIFManifestURL = rec.ManifestURL
	m.ThumbnailURL = rec.ThumbnailURL
	m.SourceURL = rec.SourceURL
	m.ImageCount = rec.ImageCount
}
