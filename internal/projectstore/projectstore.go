// Package projectstore persists named projects. A project is an opaque
// ProjectSpec document plus a little metadata; the backends never look inside.
package projectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

// ErrNotFound is returned when no project has the requested id.
var ErrNotFound = errors.New("project not found")

// Project is one persisted project.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SchemaData  json.RawMessage `json:"schema_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Input carries the writable fields of a project.
type Input struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SchemaData  json.RawMessage `json:"schema_data"`
}

// Store is implemented by every persistence backend. List omits SchemaData.
type Store interface {
	Create(ctx context.Context, in Input) (*Project, error)
	Update(ctx context.Context, id string, in Input) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the backend selected by cfg, wrapped in a read cache when
// cfg.CacheSize is positive.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverFile, "":
		s, err = NewFile(cfg.Directory)
	case config.DriverPostgres:
		s, err = NewPostgres(ctx, cfg.PostgresURL)
	case config.DriverMongo:
		s, err = NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverRemote:
		s = NewRemote(cfg.RemoteURL, cfg.RemoteToken)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCached(s, cfg.CacheSize)
	}
	return s, nil
}

func (in Input) validate() error {
	if in.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if len(in.SchemaData) > 0 && !json.Valid(in.SchemaData) {
		return fmt.Errorf("schema data is not valid JSON")
	}
	return nil
}

func (in Input) data() json.RawMessage {
	if len(in.SchemaData) == 0 {
		return json.RawMessage(`{}`)
	}
	return bytes.Clone(in.SchemaData)
}

func newProject(in Input) *Project {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		SchemaData:  in.data(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Project) apply(in Input) {
	p.Name = in.Name
	p.Description = in.Description
	p.SchemaData = in.data()
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
}

func (p *Project) clone() *Project {
	c := *p
	c.SchemaData = bytes.Clone(p.SchemaData)
	return &c
}

func (p *Project) summary() Project {
	s := *p
	s.SchemaData = nil
	return s
}
