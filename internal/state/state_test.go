package state

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/spec"
)

func TestLoadMissingReturnsFresh(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ProjectID != "" || s.DraftPath == "" {
		t.Errorf("fresh state = %+v", s)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")

	s := New()
	s.DraftPath = filepath.Join(dir, "draft.json")
	s.MarkSaved("p-1", "shop")
	s.Dirty = true
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.ProjectID != "p-1" || loaded.ProjectName != "shop" || !loaded.Dirty {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}

	loaded.CloseProject()
	if loaded.ProjectID != "" || loaded.Dirty {
		t.Errorf("after close = %+v", loaded)
	}
}

func TestDraftLastWriteWins(t *testing.T) {
	s := New()
	s.DraftPath = filepath.Join(t.TempDir(), "draft.json")

	draft, err := s.ReadDraft()
	if err != nil || draft != nil {
		t.Fatalf("ReadDraft() with no draft = %v, %v", draft, err)
	}

	first := spec.Export(&schema.Schema{}, spec.Settings{Project: json.RawMessage(`{"name":"first"}`)})
	second := spec.Export(&schema.Schema{}, spec.Settings{Project: json.RawMessage(`{"name":"second"}`)})
	if err := s.WriteDraft(first); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDraft(second); err != nil {
		t.Fatal(err)
	}

	draft, err = s.ReadDraft()
	if err != nil {
		t.Fatalf("ReadDraft() error: %v", err)
	}
	if got := draft.Settings().ProjectName(); got != "second" {
		t.Errorf("draft project = %q, want second", got)
	}

	if err := s.DiscardDraft(); err != nil {
		t.Fatal(err)
	}
	if err := s.DiscardDraft(); err != nil {
		t.Errorf("discarding a missing draft: %v", err)
	}
}
