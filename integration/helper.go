package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apihttp "github.com/iyhunko/barcode-pricing/internal/http"
	"github.com/iyhunko/barcode-pricing/internal/pricing"
	reposql "github.com/iyhunko/barcode-pricing/internal/repository/sql"
	"github.com/iyhunko/barcode-pricing/internal/service"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
)

const migrationsSource = "file://../migrations"

var defaultRate = decimal.NewFromInt(89500)

// TestDB holds the test database connection and the container backing it.
type TestDB struct {
	DB       *sql.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestDB starts a PostgreSQL container and applies the migrations.
// The test is skipped when docker is not reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %s", err)
	}

	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=testdb",
			"listen_addresses='*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	// orphaned containers are reaped after two minutes
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	hostAndPort := resource.GetHostPort("5432/tcp")
	databaseURL := fmt.Sprintf("postgres://testuser:secret@%s/testdb?sslmode=disable", hostAndPort)

	log.Println("Connecting to database on url: ", databaseURL)

	var db *sql.DB
	if err = pool.Retry(func() error {
		var err error
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}

	if err := reposql.RunMigrations(db, migrationsSource); err != nil {
		t.Fatalf("Could not run migrations: %s", err)
	}

	return &TestDB{
		DB:       db,
		Pool:     pool,
		Resource: resource,
	}
}

// Cleanup closes the database connection and purges the container.
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		if err := tdb.DB.Close(); err != nil {
			t.Errorf("Could not close database: %s", err)
		}
	}

	if tdb.Pool != nil && tdb.Resource != nil {
		if err := tdb.Pool.Purge(tdb.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// TruncateTables empties every table in the test database.
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"events", "products"} {
		_, err := tdb.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Fatalf("Could not truncate table %s: %s", table, err)
		}
	}
}

// NewService wires a product service on top of the test database.
func (tdb *TestDB) NewService(t *testing.T) (*service.ProductService, *reposql.Store) {
	t.Helper()

	store := reposql.NewStore(tdb.DB)
	engine, err := pricing.NewEngine(store, defaultRate)
	if err != nil {
		t.Fatalf("Could not create pricing engine: %s", err)
	}
	return service.NewProductService(store, engine), store
}

// NewRouter returns a gin engine serving the product API on top of the test database.
func (tdb *TestDB) NewRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	productService, _ := tdb.NewService(t)
	return apihttp.InitRouter(gin.New(), productService)
}
