package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/exclusion"
	"github.com/mirador-app/mirador-server/internal/search"
	"github.com/mirador-app/mirador-server/internal/store"
	"github.com/mirador-app/mirador-server/internal/validation"
)

// syncOrder lists entity types in dependency order: a scene row
// references its studio, junctions reference both sides, so referenced
// types land first. Galleries come after scenes because the gallery
// upsert owns the scene_galleries junction.
var syncOrder = []domain.EntityType{
	domain.TypeStudio,
	domain.TypeTag,
	domain.TypePerformer,
	domain.TypeGroup,
	domain.TypeScene,
	domain.TypeGallery,
	domain.TypeImage,
}

// Mirror pulls the upstream catalog into the local store, keeps the
// search index in step, and triggers exclusion recomputes afterwards.
type Mirror struct {
	client    *Client
	store     store.Store
	index     *search.Index
	engine    *exclusion.Engine
	validator *validation.Validator
	logger    *slog.Logger

	pageSize int

	// One sync at a time; concurrent triggers get ErrSyncRunning.
	mu      sync.Mutex
	running bool

	statusMu sync.RWMutex
	last     *SyncReport
}

// ErrSyncRunning is returned when a sync is triggered while one is
// already in progress.
var ErrSyncRunning = fmt.Errorf("catalog: sync already running")

// SyncReport summarizes one completed (or failed) sync run.
type SyncReport struct {
	RunID      string                    `json:"run_id"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Pulled     map[domain.EntityType]int `json:"pulled"`
	Removed    map[domain.EntityType]int `json:"removed"`
	Error      string                    `json:"error,omitempty"`
}

// NewMirror creates a catalog mirror.
func NewMirror(client *Client, st store.Store, index *search.Index, engine *exclusion.Engine, pageSize int, logger *slog.Logger) *Mirror {
	return &Mirror{
		client:    client,
		store:     st,
		index:     index,
		engine:    engine,
		validator: validation.New(),
		logger:    logger.With("component", "catalog"),
		pageSize:  pageSize,
	}
}

// Running reports whether a sync is currently in progress.
func (m *Mirror) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Enabled reports whether the underlying upstream client is configured.
func (m *Mirror) Enabled() bool {
	return m.client.Enabled()
}

// LastReport returns the most recent sync report, or nil before the
// first run.
func (m *Mirror) LastReport() *SyncReport {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.last
}

// Sync pulls every entity type from the upstream, soft-deletes rows the
// upstream no longer has, rebuilds the tag closures and the search
// index, and recomputes all users' exclusions.
func (m *Mirror) Sync(ctx context.Context) (*SyncReport, error) {
	if !m.client.Enabled() {
		return nil, ErrDisabled
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrSyncRunning
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	report := &SyncReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Pulled:    make(map[domain.EntityType]int),
		Removed:   make(map[domain.EntityType]int),
	}
	m.logger.Info("catalog sync started", "run_id", report.RunID)

	err := m.run(ctx, report)
	report.FinishedAt = time.Now()
	if err != nil {
		report.Error = err.Error()
		m.logger.Error("catalog sync failed", "run_id", report.RunID, "error", err)
	} else {
		m.logger.Info("catalog sync finished",
			"run_id", report.RunID,
			"duration", report.FinishedAt.Sub(report.StartedAt),
		)
	}

	m.statusMu.Lock()
	m.last = report
	m.statusMu.Unlock()

	if err != nil {
		return report, err
	}
	return report, nil
}

func (m *Mirror) run(ctx context.Context, report *SyncReport) error {
	// The index is rebuilt from scratch each sync: fresh documents are
	// added per page below, so a failed sync leaves a partial index
	// until the next successful run.
	if err := m.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}

	for _, typ := range syncOrder {
		pulled, removed, err := m.syncType(ctx, typ)
		if err != nil {
			return fmt.Errorf("sync %s: %w", typ, err)
		}
		report.Pulled[typ] = pulled
		report.Removed[typ] = removed
	}

	// Inherited tag closures depend on both the entities and the
	// hierarchy, so they rebuild after everything has landed.
	if err := m.store.RebuildTagClosures(ctx); err != nil {
		return fmt.Errorf("rebuild tag closures: %w", err)
	}

	// The mirrored universe changed under every user's rules.
	if err := m.engine.RecomputeAllUsers(ctx); err != nil {
		return fmt.Errorf("recompute exclusions: %w", err)
	}

	return nil
}

// syncType pulls all pages of one type, upserting and indexing as it
// goes, then soft-deletes whatever the upstream stopped sending.
func (m *Mirror) syncType(ctx context.Context, typ domain.EntityType) (pulled, removed int, err error) {
	var seen []string

	for page := 1; ; page++ {
		p, err := m.client.ListEntities(ctx, typ, page, m.pageSize)
		if err != nil {
			return 0, 0, err
		}
		if p.Len() == 0 {
			break
		}

		if err := m.validatePage(typ, p); err != nil {
			return 0, 0, fmt.Errorf("page %d: %w", page, err)
		}
		if err := m.upsertPage(ctx, typ, p); err != nil {
			return 0, 0, err
		}
		if err := m.index.IndexDocuments(docsForPage(typ, p)); err != nil {
			return 0, 0, fmt.Errorf("index page: %w", err)
		}

		seen = append(seen, pageIDs(typ, p)...)
		pulled += p.Len()

		if p.Len() < m.pageSize {
			break
		}
	}

	removed, err = m.store.SoftDeleteMissing(ctx, typ, seen)
	if err != nil {
		return 0, 0, err
	}
	if removed > 0 {
		m.logger.Info("soft-deleted entities missing upstream", "type", typ, "count", removed)
	}
	return pulled, removed, nil
}

// validatePage rejects upstream payloads with missing required fields
// before they reach the store. A single bad row fails the whole sync;
// a partial mirror is worse than a stale one.
func (m *Mirror) validatePage(typ domain.EntityType, p *Page) error {
	var err error
	switch typ {
	case domain.TypeScene:
		err = validateAll(m.validator, p.Scenes)
	case domain.TypePerformer:
		err = validateAll(m.validator, p.Performers)
	case domain.TypeStudio:
		err = validateAll(m.validator, p.Studios)
	case domain.TypeTag:
		err = validateAll(m.validator, p.Tags)
	case domain.TypeGroup:
		err = validateAll(m.validator, p.Groups)
	case domain.TypeGallery:
		err = validateAll(m.validator, p.Galleries)
	case domain.TypeImage:
		err = validateAll(m.validator, p.Images)
	}
	if err != nil {
		return fmt.Errorf("invalid upstream %s: %w", typ, err)
	}
	return nil
}

func validateAll[T any](v *validation.Validator, entities []T) error {
	for _, e := range entities {
		if err := v.Validate(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) upsertPage(ctx context.Context, typ domain.EntityType, p *Page) error {
	switch typ {
	case domain.TypeScene:
		return m.store.UpsertScenes(ctx, p.Scenes)
	case domain.TypePerformer:
		return m.store.UpsertPerformers(ctx, p.Performers)
	case domain.TypeStudio:
		return m.store.UpsertStudios(ctx, p.Studios)
	case domain.TypeTag:
		return m.store.UpsertTags(ctx, p.Tags)
	case domain.TypeGroup:
		return m.store.UpsertGroups(ctx, p.Groups)
	case domain.TypeGallery:
		return m.store.UpsertGalleries(ctx, p.Galleries)
	case domain.TypeImage:
		return m.store.UpsertImages(ctx, p.Images)
	}
	return fmt.Errorf("unknown entity type %q", typ)
}

func pageIDs(typ domain.EntityType, p *Page) []string {
	var out []string
	switch typ {
	case domain.TypeScene:
		for _, e := range p.Scenes {
			out = append(out, e.ID)
		}
	case domain.TypePerformer:
		for _, e := range p.Performers {
			out = append(out, e.ID)
		}
	case domain.TypeStudio:
		for _, e := range p.Studios {
			out = append(out, e.ID)
		}
	case domain.TypeTag:
		for _, e := range p.Tags {
			out = append(out, e.ID)
		}
	case domain.TypeGroup:
		for _, e := range p.Groups {
			out = append(out, e.ID)
		}
	case domain.TypeGallery:
		for _, e := range p.Galleries {
			out = append(out, e.ID)
		}
	case domain.TypeImage:
		for _, e := range p.Images {
			out = append(out, e.ID)
		}
	}
	return out
}

// docsForPage converts a page into search documents. Scenes, galleries
// and images are titled, everything else is named; performers carry
// their aliases into the index.
func docsForPage(typ domain.EntityType, p *Page) []*search.Document {
	var docs []*search.Document
	switch typ {
	case domain.TypeScene:
		for _, e := range p.Scenes {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Title, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypePerformer:
		for _, e := range p.Performers {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Name, e.Aliases, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypeStudio:
		for _, e := range p.Studios {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Name, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypeTag:
		for _, e := range p.Tags {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Name, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypeGroup:
		for _, e := range p.Groups {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Name, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypeGallery:
		for _, e := range p.Galleries {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Title, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	case domain.TypeImage:
		for _, e := range p.Images {
			docs = append(docs, search.NewDocument(typ, e.ID, e.Title, nil, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli()))
		}
	}
	return docs
}
