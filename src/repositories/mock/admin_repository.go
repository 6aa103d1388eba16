package mock

import (
	"context"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
)

// AdminRepository is a mock implementation of repositories.AdminRepository
type AdminRepository struct {
	// Function stubs that can be overridden in tests
	CreateFunc            func(ctx context.Context, account *models.AdminAccount) (*models.AdminAccount, error)
	FindByUsernameFunc    func(ctx context.Context, username string) (*models.AdminAccount, error)
	FindByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)
	UpdatePermissionsFunc func(ctx context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error)
	UpdateRoleFunc        func(ctx context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error)
	ListFunc              func(ctx context.Context) ([]*models.AdminAccount, error)
	CountFunc             func(ctx context.Context) (int64, error)

	// Call tracking
	Calls map[string][]interface{}
}

// NewAdminRepository creates a new mock admin repository
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{
		Calls: make(map[string][]interface{}),
	}
}

func (m *AdminRepository) Create(ctx context.Context, account *models.AdminAccount) (*models.AdminAccount, error) {
	m.Calls["Create"] = append(m.Calls["Create"], account)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return account, nil
}

func (m *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	m.Calls["FindByUsername"] = append(m.Calls["FindByUsername"], username)
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, repositories.ErrNotFound
}

func (m *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	m.Calls["FindByID"] = append(m.Calls["FindByID"], id)
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *AdminRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error) {
	m.Calls["UpdatePermissions"] = append(m.Calls["UpdatePermissions"], id, permissions)
	if m.UpdatePermissionsFunc != nil {
		return m.UpdatePermissionsFunc(ctx, id, permissions)
	}
	return nil, repositories.ErrNotFound
}

func (m *AdminRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error) {
	m.Calls["UpdateRole"] = append(m.Calls["UpdateRole"], id, role)
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, repositories.ErrNotFound
}

func (m *AdminRepository) List(ctx context.Context) ([]*models.AdminAccount, error) {
	m.Calls["List"] = append(m.Calls["List"], nil)
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *AdminRepository) Count(ctx context.Context) (int64, error) {
	m.Calls["Count"] = append(m.Calls["Count"], nil)
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

// Ensure AdminRepository implements the interface
var _ repositories.AdminRepository = (*AdminRepository)(nil)
