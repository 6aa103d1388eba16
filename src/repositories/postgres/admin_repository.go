// Package postgres stores admin accounts in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

const accountColumns = `
	id, username, display_name, profile_image, password_hash, role,
	can_products, can_categories, can_orders, can_customers, can_blogs,
	created_at, updated_at
`

// AdminRepository implements repositories.AdminRepository on the admin_accounts table
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a repository over an existing pool
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*models.AdminAccount, error) {
	a := &models.AdminAccount{}
	var role string
	err := row.Scan(
		&a.ID, &a.Username, &a.DisplayName, &a.ProfileImage, &a.PasswordHash, &role,
		&a.Permissions.Products, &a.Permissions.Categories, &a.Permissions.Orders,
		&a.Permissions.Customers, &a.Permissions.Blogs,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	a.Role = models.Role(role)
	return a, nil
}

func (r *AdminRepository) Create(ctx context.Context, account *models.AdminAccount) (*models.AdminAccount, error) {
	id := account.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	p := account.Permissions

	query := `
		INSERT INTO admin_accounts (
			id, username, display_name, profile_image, password_hash, role,
			can_products, can_categories, can_orders, can_customers, can_blogs,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING ` + accountColumns

	created, err := scanAccount(r.pool.QueryRow(ctx, query,
		id, account.Username, account.DisplayName, account.ProfileImage, account.PasswordHash, string(account.Role),
		p.Products, p.Categories, p.Orders, p.Customers, p.Blogs,
		now,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repositories.ErrConflict
		}
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}
	return created, nil
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM admin_accounts WHERE lower(username) = lower($1)`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, username))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to find admin account: %w", err)
	}
	return account, err
}

func (r *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM admin_accounts WHERE id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to find admin account: %w", err)
	}
	return account, err
}

// UpdatePermissions overwrites all five flags in a single statement
func (r *AdminRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error) {
	query := `
		UPDATE admin_accounts
		SET can_products = $2,
		    can_categories = $3,
		    can_orders = $4,
		    can_customers = $5,
		    can_blogs = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id,
		permissions.Products, permissions.Categories, permissions.Orders,
		permissions.Customers, permissions.Blogs,
	))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}
	return account, err
}

func (r *AdminRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error) {
	query := `
		UPDATE admin_accounts
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id, string(role)))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return account, err
}

func (r *AdminRepository) List(ctx context.Context) ([]*models.AdminAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM admin_accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.AdminAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admin accounts: %w", err)
	}
	return accounts, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM admin_accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admin accounts: %w", err)
	}
	return count, nil
}

var _ repositories.AdminRepository = (*AdminRepository)(nil)
