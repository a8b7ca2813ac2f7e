package api

import (
	"time"

	"github.com/schemacanvas/schemacanvas/internal/projectstore"
	"github.com/schemacanvas/schemacanvas/internal/schema"
	"github.com/schemacanvas/schemacanvas/internal/validation"
)

// CreatedResponse returns the id assigned to a new entity.
type CreatedResponse struct {
	ID string `json:"id"`
}

// ModelRequest is the body of POST /api/models. Without columns the model
// starts with an autoincrementing integer primary key named id.
type ModelRequest struct {
	Name      string           `json:"name"`
	Tablename string           `json:"tablename,omitempty"`
	Columns   []schema.Column  `json:"columns,omitempty"`
	Position  *schema.Position `json:"position,omitempty"`
}

func (req ModelRequest) toModel() schema.Model {
	cols := req.Columns
	if len(cols) == 0 {
		cols = []schema.Column{{
			Name:          "id",
			Type:          schema.ColumnType{Name: schema.TypeInteger},
			PrimaryKey:    true,
			Autoincrement: true,
		}}
	}
	return schema.Model{
		Name:      req.Name,
		Tablename: req.Tablename,
		Columns:   cols,
		Position:  req.Position,
	}
}

// ValidationFailure is returned with 422 when a save is refused.
type ValidationFailure struct {
	Error  string             `json:"error"`
	Report *validation.Report `json:"report"`
}

// SaveRequest is the body of POST /api/projects.
type SaveRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	// AsNew saves a copy instead of updating the open project.
	AsNew bool `json:"as_new,omitempty"`
}

// ProjectResponse describes a stored project without its schema data.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func projectResponse(p *projectstore.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CurrentResponse is the body of GET /api/projects/current.
type CurrentResponse struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Dirty bool   `json:"dirty"`
}

// StatsResponse summarizes the graph.
type StatsResponse struct {
	schema.Stats
	Summary string `json:"summary"`
}
