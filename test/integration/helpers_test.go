//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

// pgInstance describes the Postgres used by the suite: either the one named
// by SCHEMACANVAS_TEST_PG_URL or a container started on first use.
type pgInstance struct {
	url  string
	host string
	port int
	db   string
	user string
	pass string
}

var (
	pgOnce   sync.Once
	pgShared *pgInstance
	pgErr    error
)

func postgres(t *testing.T) *pgInstance {
	t.Helper()
	pgOnce.Do(func() {
		if raw := os.Getenv("SCHEMACANVAS_TEST_PG_URL"); raw != "" {
			pgShared, pgErr = parsePGURL(raw)
			return
		}
		pgShared, pgErr = startPostgres(context.Background())
	})
	if pgErr != nil {
		t.Skipf("skipping: no PostgreSQL available: %v", pgErr)
	}
	return pgShared
}

// startPostgres runs a postgres container for the whole test binary. The
// container is reaped by the testcontainers sidecar when the process exits.
func startPostgres(ctx context.Context) (inst *pgInstance, err error) {
	defer func() {
		// the docker provider panics when no daemon is reachable
		if r := recover(); r != nil {
			err = fmt.Errorf("starting postgres container: %v", r)
		}
	}()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("schemacanvas_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}
	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		testcontainers.TerminateContainer(ctr)
		return nil, err
	}
	return parsePGURL(connStr)
}

func parsePGURL(raw string) (*pgInstance, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}
	port := 5432
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("parsing postgres port: %w", err)
		}
	}
	pass, _ := u.User.Password()
	return &pgInstance{
		url:  raw,
		host: u.Hostname(),
		port: port,
		db:   u.Path[1:],
		user: u.User.Username(),
		pass: pass,
	}, nil
}

// source returns a discovery config for the given schema of the instance.
func (p *pgInstance) source(schemaName string) config.SourceConfig {
	return config.SourceConfig{
		Host:     p.host,
		Port:     p.port,
		Database: p.db,
		Schema:   schemaName,
		Username: p.user,
		Password: p.pass,
	}
}

func mongoURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv("SCHEMACANVAS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("skipping: SCHEMACANVAS_TEST_MONGO_URI not set")
	}
	return uri
}

func mongoDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("SCHEMACANVAS_TEST_MONGO_DATABASE", "schemacanvas_test")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
