package testhelpers

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"consultapp/internal/models"
	"consultapp/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the tenants table. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.RunMigrations(ctx, connString); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, database.PoolConfig{DSN: connString, MaxConns: 4})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE tenants`); err != nil {
		t.Fatalf("Failed to reset tenants: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestTenant inserts a tenant row directly
func SetupTestTenant(t *testing.T, db *TestDB, tenantID, ownerID string) *models.Tenant {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	tenant := &models.Tenant{
		TenantID:    tenantID,
		OwnerID:     ownerID,
		DisplayName: "Test Tenant",
		Theme:       models.DefaultTheme(),
		Links:       []models.TenantLink{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	theme, _ := json.Marshal(tenant.Theme)

	query := `
		INSERT INTO tenants (tenant_id, owner_id, display_name, theme, links, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '[]', 1, $5, $5)
	`
	if _, err := db.Pool.Exec(context.Background(), query, tenantID, ownerID, tenant.DisplayName, theme, now); err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenant
}
