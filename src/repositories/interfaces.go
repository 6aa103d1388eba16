package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
)

// AdminRepository defines the credential store for admin accounts.
// Implementations set CreatedAt/UpdatedAt on every write and must treat each
// write as atomic for a single record (last writer wins).
type AdminRepository interface {
	// Create inserts a new account. Returns ErrConflict when the username is taken.
	Create(ctx context.Context, account *models.AdminAccount) (*models.AdminAccount, error)
	// FindByUsername returns ErrNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error)
	// FindByID returns ErrNotFound when no account matches.
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)
	// UpdatePermissions replaces the whole permission record.
	UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error)
	List(ctx context.Context) ([]*models.AdminAccount, error)
	Count(ctx context.Context) (int64, error)
}
