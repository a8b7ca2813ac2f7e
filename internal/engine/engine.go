package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/schemacanvas/schemacanvas/internal/config"
	"github.com/schemacanvas/schemacanvas/internal/discovery"
	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/layout"
	"github.com/schemacanvas/schemacanvas/internal/projectstore"
	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/spec"
	"github.com/schemacanvas/schemacanvas/internal/state"
	"github.com/schemacanvas/schemacanvas/internal/synth"
	"github.com/schemacanvas/schemacanvas/internal/typemap"
	"github.com/schemacanvas/schemacanvas/internal/validation"
)

var (
	// ErrNoProjectStore is returned by persistence operations before a store is attached.
	ErrNoProjectStore = errors.New("no project store configured")
	// ErrNameRequired is returned when saving a project that has no name.
	ErrNameRequired = errors.New("project name is required")
)

// InvalidError carries the report of a failed pre-save validation.
type InvalidError struct {
	Report *validation.Report
}

func (e *InvalidError) Error() string {
	msgs := make([]string, 0, len(e.Report.Errors))
	for _, fe := range e.Report.Errors {
		msgs = append(msgs, fe.String())
	}
	return fmt.Sprintf("project has %d validation errors: %s", len(e.Report.Errors), strings.Join(msgs, "; "))
}

// Notifier receives graph and persistence events, typically the WebSocket hub.
type Notifier interface {
	BroadcastGraphChanged(kind string, dirty bool)
	BroadcastSaved(projectID, name string)
}

// Engine is the editor core shared by the HTTP API and the CLI. Every
// operation runs under one mutex, so each request sees and leaves a
// consistent graph.
type Engine struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *graph.Store
	Synth  *synth.Synthesizer

	statePath string
	validator *validation.Validator

	mu       sync.Mutex
	projects projectstore.Store
	settings spec.Settings
	state    *state.State
	notifier Notifier
}

// New creates an Engine with an empty graph and the settings implied by cfg.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	store := graph.New()
	e := &Engine{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Synth:     synth.New(store, logger),
		statePath: config.ExpandHome(state.DefaultPath),
		validator: validation.New(),
		state:     state.New(),
	}
	e.settings = e.defaultSettings()
	store.Subscribe(e.onGraphEvent)
	return e
}

func (e *Engine) defaultSettings() spec.Settings {
	db, _ := json.Marshal(map[string]string{"db_provider": e.Config.Editor.DBProvider})
	return spec.Settings{Database: db}
}

// onGraphEvent runs inside store calls, so e.mu is already held.
func (e *Engine) onGraphEvent(ev graph.Event) {
	if e.notifier != nil {
		e.notifier.BroadcastGraphChanged(string(ev.Kind), ev.Dirty)
	}
}

// SetNotifier attaches the receiver of graph and save events.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// SetProjectStore attaches the persistence backend.
func (e *Engine) SetProjectStore(ps projectstore.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.projects = ps
}

// OpenProjectStore opens the backend selected by the storage config.
func (e *Engine) OpenProjectStore(ctx context.Context) error {
	ps, err := projectstore.Open(ctx, e.Config.Storage)
	if err != nil {
		return fmt.Errorf("opening project store: %w", err)
	}
	e.SetProjectStore(ps)
	e.Logger.Info("project store ready", "driver", e.Config.Storage.Driver)
	return nil
}

// LoadState reads the editor state from disk, restoring the draft when the
// previous session ended with unsaved edits.
func (e *Engine) LoadState() (*state.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := state.Load(e.statePath)
	if err != nil {
		return nil, err
	}
	e.state = st
	if !st.Dirty {
		return st, nil
	}
	draft, err := st.ReadDraft()
	if err != nil {
		e.Logger.Warn("draft unreadable", "path", st.DraftPath, "error", err)
		return st, nil
	}
	if draft != nil {
		e.load(draft)
		e.Logger.Info("restored draft", "project", st.ProjectName, "models", len(draft.Schema.Models))
	}
	return st, nil
}

// State returns a copy of the editor state.
func (e *Engine) State() state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state
}

// Edit runs fn against the graph. Listeners see one event per store
// transaction fn commits; the draft is written afterwards.
func (e *Engine) Edit(fn func(store *graph.Store, syn *synth.Synthesizer) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.Store, e.Synth)
	e.persistDraft()
	return err
}

// View runs fn with read access to the graph.
func (e *Engine) View(fn func(store *graph.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.Store)
}

// Snapshot returns a deep copy of the current graph.
func (e *Engine) Snapshot() *schema.Schema {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Store.Snapshot()
}

// Dirty reports whether the graph changed since it was last loaded or saved.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Store.Dirty()
}

// Layout projects the graph for the canvas.
func (e *Engine) Layout() layout.View {
	return layout.Project(e.Snapshot())
}

// AttachForeignKey runs a foreign key intent through the synthesizer.
func (e *Engine) AttachForeignKey(in synth.ForeignKeyIntent) (synth.Result, error) {
	var res synth.Result
	err := e.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		var err error
		res, err = syn.AttachForeignKey(in)
		return err
	})
	return res, err
}

// DeclareRelationship runs a relationship intent through the synthesizer,
// taking the foreign key default from the editor config.
func (e *Engine) DeclareRelationship(in synth.RelationshipIntent) (synth.Result, error) {
	if in.AutoForeignKey == nil {
		auto := e.Config.Editor.AutoForeignKeyDefault()
		in.AutoForeignKey = &auto
	}
	var res synth.Result
	err := e.Edit(func(_ *graph.Store, syn *synth.Synthesizer) error {
		var err error
		res, err = syn.DeclareRelationship(in)
		return err
	})
	return res, err
}

// Settings returns the pass-through configuration sections.
func (e *Engine) Settings() spec.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings replaces the pass-through configuration sections.
func (e *Engine) SetSettings(s spec.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	e.persistDraft()
}

// Export flattens the graph and settings into a ProjectSpec.
func (e *Engine) Export() *spec.ProjectSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return spec.Export(e.Store.Snapshot(), e.settings)
}

// Import replaces the graph and settings with ps. The result counts as unsaved
// edits; the open project, if any, stays the save target.
func (e *Engine) Import(ps *spec.ProjectSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.load(ps)
	e.Store.MarkDirty()
	e.persistDraft()
}

func (e *Engine) load(ps *spec.ProjectSpec) {
	im := spec.Import(ps)
	im.Load(e.Store)
	e.settings = im.Settings
}

// Validate checks the current project without changing it.
func (e *Engine) Validate() *validation.Report {
	return e.validator.ValidateProject(e.Export())
}

// Reset clears the graph and forgets the open project.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Store.Clear()
	e.settings = e.defaultSettings()
	e.state.CloseProject()
	if err := e.state.DiscardDraft(); err != nil {
		e.Logger.Warn("discarding draft", "error", err)
	}
	e.saveState()
}

// Current returns the id and name of the open project; both are empty for a
// project never saved.
func (e *Engine) Current() (id, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ProjectID, e.state.ProjectName
}

// Save validates the project and writes it to the project store, updating the
// open project or creating one. An empty name falls back to the open
// project's name, then to project.name in the settings.
func (e *Engine) Save(ctx context.Context, name, description string) (*projectstore.Project, error) {
	return e.save(ctx, name, description, false)
}

// SaveAs always creates a new project.
func (e *Engine) SaveAs(ctx context.Context, name, description string) (*projectstore.Project, error) {
	return e.save(ctx, name, description, true)
}

func (e *Engine) save(ctx context.Context, name, description string, fresh bool) (*projectstore.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projects == nil {
		return nil, ErrNoProjectStore
	}
	ps := spec.Export(e.Store.Snapshot(), e.settings)
	if report := e.validator.ValidateProject(ps); !report.Valid() {
		return nil, &InvalidError{Report: report}
	}

	if name == "" && !fresh {
		name = e.state.ProjectName
	}
	if name == "" {
		name = e.settings.ProjectName()
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	data, err := spec.Encode(ps)
	if err != nil {
		return nil, err
	}
	in := projectstore.Input{Name: name, Description: description, SchemaData: data}

	var p *projectstore.Project
	if e.state.ProjectID != "" && !fresh {
		p, err = e.projects.Update(ctx, e.state.ProjectID, in)
		if errors.Is(err, projectstore.ErrNotFound) {
			e.Logger.Warn("open project vanished, creating a new one", "id", e.state.ProjectID)
			p, err = e.projects.Create(ctx, in)
		}
	} else {
		p, err = e.projects.Create(ctx, in)
	}
	if err != nil {
		// the in-memory graph stays as edited
		return nil, fmt.Errorf("saving project %q: %w", name, err)
	}

	e.state.MarkSaved(p.ID, p.Name)
	e.Store.MarkSaved()
	e.saveState()
	if e.notifier != nil {
		e.notifier.BroadcastSaved(p.ID, p.Name)
	}
	e.Logger.Info("project saved", "id", p.ID, "name", p.Name, "models", len(ps.Schema.Models))
	return p, nil
}

// Open loads a stored project into the graph.
func (e *Engine) Open(ctx context.Context, id string) (*projectstore.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projects == nil {
		return nil, ErrNoProjectStore
	}
	p, err := e.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ps, err := spec.Decode(p.SchemaData)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", id, err)
	}
	e.load(ps)
	e.state.OpenProject(p.ID, p.Name)
	e.saveState()
	e.Logger.Info("project opened", "id", p.ID, "name", p.Name)
	return p, nil
}

// ListProjects lists stored projects without their schema data.
func (e *Engine) ListProjects(ctx context.Context) ([]projectstore.Project, error) {
	ps, err := e.projectStore()
	if err != nil {
		return nil, err
	}
	return ps.List(ctx)
}

// GetProject fetches a stored project.
func (e *Engine) GetProject(ctx context.Context, id string) (*projectstore.Project, error) {
	ps, err := e.projectStore()
	if err != nil {
		return nil, err
	}
	return ps.Get(ctx, id)
}

// DeleteProject removes a stored project. Deleting the open project detaches
// the graph from it without clearing the graph.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projects == nil {
		return ErrNoProjectStore
	}
	if err := e.projects.Delete(ctx, id); err != nil {
		return err
	}
	if e.state.ProjectID == id {
		e.state.CloseProject()
		e.state.Dirty = e.Store.Dirty()
		e.saveState()
	}
	e.Logger.Info("project deleted", "id", id)
	return nil
}

func (e *Engine) projectStore() (projectstore.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.projects == nil {
		return nil, ErrNoProjectStore
	}
	return e.projects, nil
}

// Discover introspects the configured source database and seeds the graph from it.
func (e *Engine) Discover(ctx context.Context) (*discovery.Report, error) {
	d, err := discovery.New(&e.Config.Source)
	if err != nil {
		return nil, fmt.Errorf("creating discoverer: %w", err)
	}
	defer d.Close()

	if err := d.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to source: %w", err)
	}
	cat, err := d.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering schema: %w", err)
	}
	return e.Seed(cat)
}

// Seed replaces the graph with the tables and enums of cat. The result is a
// new, unsaved project.
func (e *Engine) Seed(cat *discovery.Catalog) (*discovery.Report, error) {
	types, err := typemap.LoadOverrides(e.Config.Source.TypeMap)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	report, err := discovery.NewSeeder(e.Store, e.Synth, types, e.Logger).Seed(cat)
	if err != nil {
		return nil, err
	}
	e.settings = e.defaultSettings()
	if cat.Database != "" {
		e.settings.Project, _ = json.Marshal(map[string]string{"name": cat.Database})
	}
	e.state.CloseProject()
	e.persistDraft()
	return report, nil
}

// canvasState is the full_state payload pushed to canvas clients.
type canvasState struct {
	View    layout.View       `json:"view"`
	Spec    *spec.ProjectSpec `json:"spec"`
	Dirty   bool              `json:"dirty"`
	Project *projectRef       `json:"project,omitempty"`
}

type projectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FullState renders the canvas view, spec and save status as JSON.
func (e *Engine) FullState() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Store.Snapshot()
	st := canvasState{
		View:  layout.Project(snap),
		Spec:  spec.Export(snap, e.settings),
		Dirty: e.Store.Dirty(),
	}
	if e.state.ProjectID != "" {
		st.Project = &projectRef{ID: e.state.ProjectID, Name: e.state.ProjectName}
	}
	return json.Marshal(st)
}

// Close releases the project store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.projects == nil {
		return nil
	}
	err := e.projects.Close()
	e.projects = nil
	return err
}

// persistDraft writes the draft and marks the state dirty while the graph
// has unsaved edits. Failures are logged; the draft is best effort.
func (e *Engine) persistDraft() {
	dirty := e.Store.Dirty()
	if dirty {
		if err := e.state.WriteDraft(spec.Export(e.Store.Snapshot(), e.settings)); err != nil {
			e.Logger.Warn("writing draft", "path", e.state.DraftPath, "error", err)
			return
		}
	}
	if e.state.Dirty != dirty {
		e.state.Dirty = dirty
		e.saveState()
	}
}

func (e *Engine) saveState() {
	if err := e.state.Save(e.statePath); err != nil {
		e.Logger.Warn("saving state", "path", e.statePath, "error", err)
	}
}
