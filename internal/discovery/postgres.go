package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

// Postgres reads a PostgreSQL schema from pg_catalog and information_schema.
type Postgres struct {
	cfg    *config.SourceConfig
	pool   *pgxpool.Pool
	schema string
}

func NewPostgres(cfg *config.SourceConfig) (*Postgres, error) {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	return &Postgres{cfg: cfg, schema: s}, nil
}

func (p *Postgres) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.ConnString() + " password=" + quoteDSN(p.cfg.Password) + " default_query_exec_mode=simple_protocol")
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	// the catalog is read in one batch on one connection
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	p.pool = pool
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// catalogQuery is one batched catalog read. Each row is scanned into dest and
// then handed to row.
type catalogQuery struct {
	what string
	sql  string
	dest []any
	row  func() error
}

// Discover lists the base tables, then reads columns, keys, indexes and enums
// for the whole schema in a single batch. Rows for relations that are not base
// tables are skipped.
func (p *Postgres) Discover(ctx context.Context) (*Catalog, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	rows, err := p.pool.Query(ctx, tablesSQL, p.schema)
	if err != nil {
		return nil, fmt.Errorf("discovering tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("discovering tables: %w", err)
	}

	cat := &Catalog{Database: p.cfg.Database, SchemaName: p.schema, Tables: make([]Table, len(names))}
	byName := make(map[string]*Table, len(names))
	for i, name := range names {
		cat.Tables[i].Name = name
		byName[name] = &cat.Tables[i]
	}

	queries := []catalogQuery{
		columnsQuery(byName),
		primaryKeysQuery(byName),
		foreignKeysQuery(byName),
		indexesQuery(byName),
		enumsQuery(cat),
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.sql, p.schema)
	}
	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, q := range queries {
		rows, err := results.Query()
		if err != nil {
			return nil, fmt.Errorf("discovering %s: %w", q.what, err)
		}
		if _, err := pgx.ForEachRow(rows, q.dest, q.row); err != nil {
			return nil, fmt.Errorf("discovering %s: %w", q.what, err)
		}
	}
	return cat, nil
}

const tablesSQL = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1
	  AND table_type = 'BASE TABLE'
	ORDER BY table_name`

func columnsQuery(byName map[string]*Table) catalogQuery {
	var (
		table, nullable string
		col             Column
	)
	return catalogQuery{
		what: "columns",
		sql: `
			SELECT
				table_name,
				column_name,
				data_type,
				udt_name,
				is_nullable,
				column_default,
				character_maximum_length,
				numeric_precision,
				numeric_scale,
				COALESCE(column_default LIKE 'nextval(%', false) OR is_identity = 'YES'
			FROM information_schema.columns
			WHERE table_schema = $1
			ORDER BY table_name, ordinal_position`,
		dest: []any{&table, &col.Name, &col.DataType, &col.UDTName, &nullable, &col.Default, &col.MaxLength, &col.Precision, &col.Scale, &col.Sequence},
		row: func() error {
			c := col
			// the next scan must not share pointers with a stored column
			col = Column{}
			if t, ok := byName[table]; ok {
				c.Nullable = nullable == "YES"
				t.Columns = append(t.Columns, c)
			}
			return nil
		},
	}
}

func primaryKeysQuery(byName map[string]*Table) catalogQuery {
	var table, column string
	return catalogQuery{
		what: "primary keys",
		sql: `
			SELECT t.relname, a.attname
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
			WHERE ix.indisprimary
			  AND n.nspname = $1
			ORDER BY t.relname, k.ord`,
		dest: []any{&table, &column},
		row: func() error {
			if t, ok := byName[table]; ok {
				t.PrimaryKey = append(t.PrimaryKey, column)
			}
			return nil
		},
	}
}

// foreignKeysQuery pairs constrained and referenced columns by position, so a
// composite key arrives as one row per column pair in key order.
func foreignKeysQuery(byName map[string]*Table) catalogQuery {
	var table, constraint, column, refTable, refColumn string
	return catalogQuery{
		what: "foreign keys",
		sql: `
			SELECT cl.relname, con.conname, a.attname, rcl.relname, ra.attname
			FROM pg_constraint con
			JOIN pg_class cl ON cl.oid = con.conrelid
			JOIN pg_namespace n ON n.oid = cl.relnamespace
			JOIN pg_class rcl ON rcl.oid = con.confrelid
			CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)
			JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
			JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refnum
			WHERE con.contype = 'f'
			  AND n.nspname = $1
			ORDER BY cl.relname, con.conname, k.ord`,
		dest: []any{&table, &constraint, &column, &refTable, &refColumn},
		row: func() error {
			t, ok := byName[table]
			if !ok {
				return nil
			}
			n := len(t.ForeignKeys)
			if n == 0 || t.ForeignKeys[n-1].Name != constraint {
				t.ForeignKeys = append(t.ForeignKeys, ForeignKey{Name: constraint, ReferencedTable: refTable})
				n++
			}
			fk := &t.ForeignKeys[n-1]
			fk.Columns = append(fk.Columns, column)
			fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
			return nil
		},
	}
}

// indexesQuery flags columns covered by a single-column index. Multi-column
// indexes have no place on the canvas.
func indexesQuery(byName map[string]*Table) catalogQuery {
	var (
		table, column string
		unique        bool
	)
	return catalogQuery{
		what: "indexes",
		sql: `
			SELECT t.relname, a.attname, ix.indisunique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ix.indkey[0]
			WHERE n.nspname = $1
			  AND NOT ix.indisprimary
			  AND ix.indnatts = 1`,
		dest: []any{&table, &column, &unique},
		row: func() error {
			t, ok := byName[table]
			if !ok {
				return nil
			}
			if c := t.Column(column); c != nil {
				if unique {
					c.Unique = true
				} else {
					c.Indexed = true
				}
			}
			return nil
		},
	}
}

func enumsQuery(cat *Catalog) catalogQuery {
	var name, label string
	return catalogQuery{
		what: "enums",
		sql: `
			SELECT t.typname, e.enumlabel
			FROM pg_type t
			JOIN pg_enum e ON e.enumtypid = t.oid
			JOIN pg_namespace n ON n.oid = t.typnamespace
			WHERE n.nspname = $1
			ORDER BY t.typname, e.enumsortorder`,
		dest: []any{&name, &label},
		row: func() error {
			if n := len(cat.Enums); n == 0 || cat.Enums[n-1].Name != name {
				cat.Enums = append(cat.Enums, Enum{Name: name})
			}
			last := &cat.Enums[len(cat.Enums)-1]
			last.Values = append(last.Values, label)
			return nil
		},
	}
}

// ConnString returns a keyword/value DSN without the password.
func (p *Postgres) ConnString() string {
	ssl := "disable"
	if p.cfg.SSL {
		ssl = "require"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		quoteDSN(p.cfg.Host), p.cfg.Port, quoteDSN(p.cfg.Database), quoteDSN(p.cfg.Username), ssl)
}

// quoteDSN quotes a DSN value holding spaces, quotes or backslashes.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
