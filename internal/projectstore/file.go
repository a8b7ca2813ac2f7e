package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// File stores each project as <id>.json in one directory.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

func (f *File) Create(_ context.Context, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := newProject(in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(p); err != nil {
		return nil, err
	}
	return p.clone(), nil
}

func (f *File) Update(_ context.Context, id string, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.read(id)
	if err != nil {
		return nil, err
	}
	p.apply(in)
	if err := f.write(p); err != nil {
		return nil, err
	}
	return p.clone(), nil
}

func (f *File) Get(_ context.Context, id string) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(id)
}

func (f *File) List(_ context.Context) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	projects := []Project{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := f.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			// foreign files in the directory are not projects
			continue
		}
		projects = append(projects, p.summary())
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

func (f *File) Delete(_ context.Context, id string) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return err
}

func (f *File) Close() error { return nil }

func (f *File) read(id string) (*Project, error) {
	path, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", id, err)
	}
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", id, err)
	}
	return p, nil
}

// write replaces the project file through a rename so readers never see a partial file.
func (f *File) write(p *Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	path, err := f.path(p.ID)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".project-*.tmp")
	if err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
