package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"consultapp/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool the repositories need. pgxmock's
// pool satisfies it as well.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TenantRepository is the tenant document store. Lookups return (nil, nil)
// when the record is absent.
type TenantRepository interface {
	Get(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.Tenant, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Tenant, error)
	ListDuplicateOwners(ctx context.Context, limit int) ([]string, error)
	// Upsert writes the tenant unless the slug belongs to another owner,
	// in which case it returns models.ErrSlugTaken. CreatedAt and Version
	// are refreshed from the stored row.
	Upsert(ctx context.Context, tenant *models.Tenant) error
	// Update replaces the tenant if the stored version still equals
	// expectedVersion, otherwise models.ErrConflict.
	Update(ctx context.Context, tenant *models.Tenant, expectedVersion int64) error
	// Rename moves a tenant to tenant.TenantID and removes fromID in one
	// transaction.
	Rename(ctx context.Context, fromID string, expectedVersion int64, tenant *models.Tenant) error
	Delete(ctx context.Context, tenantID, ownerID string) (bool, error)
	DeleteVersion(ctx context.Context, tenantID, ownerID string, version int64) (bool, error)
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `tenant_id, owner_id, display_name, theme, links, version, created_at, updated_at`

const upsertTenantSQL = `
		INSERT INTO tenants (tenant_id, owner_id, display_name, theme, links, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    theme = EXCLUDED.theme,
		    links = EXCLUDED.links,
		    version = tenants.version + 1,
		    updated_at = EXCLUDED.updated_at
		WHERE tenants.owner_id = EXCLUDED.owner_id
		RETURNING created_at, version
	`

// Same owner guard as upsertTenantSQL, but an existing target row takes the
// source's created_at.
const renameTenantSQL = `
		INSERT INTO tenants (tenant_id, owner_id, display_name, theme, links, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    theme = EXCLUDED.theme,
		    links = EXCLUDED.links,
		    version = tenants.version + 1,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at
		WHERE tenants.owner_id = EXCLUDED.owner_id
		RETURNING created_at, version
	`

func (r *tenantRepo) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_id = $1`
	tenant, err := scanTenant(r.db.QueryRow(ctx, query, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "get tenant %s", tenantID)
	}
	return tenant, nil
}

func (r *tenantRepo) GetByOwner(ctx context.Context, ownerID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE owner_id = $1 ORDER BY updated_at DESC LIMIT 1`
	tenant, err := scanTenant(r.db.QueryRow(ctx, query, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "get tenant by owner")
	}
	return tenant, nil
}

func (r *tenantRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE owner_id = $1 ORDER BY updated_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, storeError(err, "list tenants by owner")
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list tenants by owner")
	}
	return tenants, nil
}

func (r *tenantRepo) ListDuplicateOwners(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT owner_id
		FROM tenants
		GROUP BY owner_id
		HAVING COUNT(*) > 1
		ORDER BY owner_id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, storeError(err, "list duplicate owners")
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *tenantRepo) Upsert(ctx context.Context, tenant *models.Tenant) error {
	theme, links, err := encodeDocument(tenant)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, upsertTenantSQL,
		tenant.TenantID, tenant.OwnerID, tenant.DisplayName, theme, links, tenant.CreatedAt, tenant.UpdatedAt,
	).Scan(&tenant.CreatedAt, &tenant.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrSlugTaken
	}
	if err != nil {
		return storeError(err, "upsert tenant %s", tenant.TenantID)
	}
	return nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant, expectedVersion int64) error {
	theme, links, err := encodeDocument(tenant)
	if err != nil {
		return err
	}

	query := `
		UPDATE tenants
		SET display_name = $1, theme = $2, links = $3, updated_at = $4, version = version + 1
		WHERE tenant_id = $5 AND owner_id = $6 AND version = $7
	`
	tag, err := r.db.Exec(ctx, query, tenant.DisplayName, theme, links, tenant.UpdatedAt,
		tenant.TenantID, tenant.OwnerID, expectedVersion)
	if err != nil {
		return storeError(err, "update tenant %s", tenant.TenantID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update tenant %s: %w", tenant.TenantID, models.ErrConflict)
	}
	tenant.Version = expectedVersion + 1
	return nil
}

func (r *tenantRepo) Rename(ctx context.Context, fromID string, expectedVersion int64, tenant *models.Tenant) error {
	theme, links, err := encodeDocument(tenant)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeError(err, "begin rename")
	}

	err = tx.QueryRow(ctx, renameTenantSQL,
		tenant.TenantID, tenant.OwnerID, tenant.DisplayName, theme, links, tenant.CreatedAt, tenant.UpdatedAt,
	).Scan(&tenant.CreatedAt, &tenant.Version)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrSlugTaken
		}
		return storeError(err, "rename tenant %s to %s", fromID, tenant.TenantID)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM tenants WHERE tenant_id = $1 AND owner_id = $2 AND version = $3`,
		fromID, tenant.OwnerID, expectedVersion)
	if err != nil {
		_ = tx.Rollback(ctx)
		return storeError(err, "delete renamed tenant %s", fromID)
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("delete renamed tenant %s: %w", fromID, models.ErrConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError(err, "commit rename")
	}
	return nil
}

func (r *tenantRepo) Delete(ctx context.Context, tenantID, ownerID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE tenant_id = $1 AND owner_id = $2`, tenantID, ownerID)
	if err != nil {
		return false, storeError(err, "delete tenant %s", tenantID)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *tenantRepo) DeleteVersion(ctx context.Context, tenantID, ownerID string, version int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM tenants WHERE tenant_id = $1 AND owner_id = $2 AND version = $3`,
		tenantID, ownerID, version)
	if err != nil {
		return false, storeError(err, "delete tenant %s", tenantID)
	}
	return tag.RowsAffected() > 0, nil
}

func encodeDocument(tenant *models.Tenant) ([]byte, []byte, error) {
	theme, err := json.Marshal(tenant.Theme)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal theme: %w", err)
	}
	links := tenant.Links
	if links == nil {
		links = []models.TenantLink{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal links: %w", err)
	}
	return theme, linksJSON, nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	var theme, links []byte
	if err := row.Scan(&tenant.TenantID, &tenant.OwnerID, &tenant.DisplayName, &theme, &links,
		&tenant.Version, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(theme, &tenant.Theme); err != nil {
		return nil, fmt.Errorf("decode theme: %w", err)
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &tenant.Links); err != nil {
			return nil, fmt.Errorf("decode links: %w", err)
		}
	}
	if tenant.Links == nil {
		tenant.Links = []models.TenantLink{}
	}
	return tenant, nil
}

// storeError wraps a database failure. Connection, timeout and resource
// failures are tagged models.ErrUnavailable; anything else stays untyped and
// surfaces as an internal error.
func storeError(err error, format string, args ...any) error {
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	if isTransient(err) {
		return models.Unavailable(wrapped)
	}
	return wrapped
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08", "40", "53", "57": // connection, rollback, resources, operator intervention
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
