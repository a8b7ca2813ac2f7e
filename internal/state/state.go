package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schemacanvas/schemacanvas/internal/config"
	"github.com/schemacanvas/schemacanvas/internal/spec"
)

const (
	DefaultPath      = "~/.schemacanvas/state.yaml"
	DefaultDraftPath = "~/.schemacanvas/draft.json"
)

// State remembers what the editor had open between runs.
type State struct {
	LastUpdated time.Time `yaml:"last_updated"`
	ProjectID   string    `yaml:"project_id,omitempty"`
	ProjectName string    `yaml:"project_name,omitempty"`
	SavedAt     time.Time `yaml:"saved_at,omitempty"`
	DraftPath   string    `yaml:"draft_path,omitempty"`
	Dirty       bool      `yaml:"dirty,omitempty"`
}

// Load reads the editor state from disk. A missing file yields a fresh state.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.DraftPath == "" {
		s.DraftPath = config.ExpandHome(DefaultDraftPath)
	}
	return s, nil
}

// Save writes the editor state to disk.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates a fresh editor state.
func New() *State {
	return &State{
		LastUpdated: time.Now(),
		DraftPath:   config.ExpandHome(DefaultDraftPath),
	}
}

// OpenProject records the project now being edited.
func (s *State) OpenProject(id, name string) {
	s.ProjectID = id
	s.ProjectName = name
	s.Dirty = false
}

// MarkSaved records a successful save of the current project.
func (s *State) MarkSaved(id, name string) {
	s.OpenProject(id, name)
	s.SavedAt = time.Now()
}

// CloseProject forgets the current project.
func (s *State) CloseProject() {
	s.ProjectID = ""
	s.ProjectName = ""
	s.Dirty = false
}

// WriteDraft stores ps as the local draft. The last write wins.
func (s *State) WriteDraft(ps *spec.ProjectSpec) error {
	return spec.WriteFile(s.DraftPath, ps)
}

// ReadDraft returns the local draft, or nil when none was written.
func (s *State) ReadDraft() (*spec.ProjectSpec, error) {
	ps, err := spec.ReadFile(s.DraftPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return ps, err
}

// DiscardDraft removes the local draft.
func (s *State) DiscardDraft() error {
	err := os.Remove(s.DraftPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
