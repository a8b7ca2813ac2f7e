package projectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createProjectsTable = `
	CREATE TABLE IF NOT EXISTS schemacanvas_projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		schema_data JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)
`

// Postgres stores projects in a single JSONB-backed table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the projects table if needed.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}
	poolCfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	p := NewPostgresFromPool(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresFromPool wraps an existing pool. The caller owns EnsureSchema.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the projects table.
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createProjectsTable); err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}
	return nil
}

func (r *Postgres) Create(ctx context.Context, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := newProject(in)

	query := `
		INSERT INTO schemacanvas_projects (id, name, description, schema_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.SchemaData,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	return p, nil
}

func (r *Postgres) Update(ctx context.Context, id string, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Project{ID: id}
	p.apply(in)

	query := `
		UPDATE schemacanvas_projects
		SET name = $2, description = $3, schema_data = $4, updated_at = $5
		WHERE id = $1
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.SchemaData,
		p.UpdatedAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return p, nil
}

func (r *Postgres) Get(ctx context.Context, id string) (*Project, error) {
	query := `
		SELECT id, name, description, schema_data, created_at, updated_at
		FROM schemacanvas_projects WHERE id = $1
	`
	var p Project
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.SchemaData,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return &p, nil
}

func (r *Postgres) List(ctx context.Context) ([]Project, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM schemacanvas_projects ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schemacanvas_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Postgres) Close() error {
	r.pool.Close()
	return nil
}
