package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories/memory"
	"github.com/khabaroff/storefront-admin/src/repositories/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *memory.AdminRepository, username string, role models.Role, p models.Permissions) *models.AdminIdentity {
	t.Helper()
	account, err := repo.Create(context.Background(), &models.AdminAccount{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "unused",
		Role:         role,
		Permissions:  p,
	})
	require.NoError(t, err)
	return &models.AdminIdentity{AccountID: account.ID, Username: account.Username, Role: account.Role}
}

func TestAuthorizer_Moderator(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAdminRepository()
	gate := NewAuthorizer(repo)

	mod := seedAccount(t, repo, "mod1", models.RoleModerator, models.Permissions{Products: true})

	tests := []struct {
		capability models.Capability
		want       Decision
	}{
		{models.CapabilityProducts, Allow},
		{models.CapabilityOrders, Deny},
		{models.CapabilityCategories, Deny},
		{models.CapabilityCustomers, Deny},
		{models.CapabilityBlogs, Deny},
		{models.Capability("settings"), Deny},
		{models.Capability(""), Deny},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			got, err := gate.Authorize(ctx, mod, tt.capability)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizer_AdminBypassesFlags(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewAdminRepository()
	gate := NewAuthorizer(repo)

	admin := &models.AdminIdentity{AccountID: uuid.New(), Role: models.RoleAdmin}

	for _, c := range models.Capabilities {
		got, err := gate.Authorize(ctx, admin, c)
		require.NoError(t, err)
		assert.Equal(t, Allow, got, c)
	}
	assert.Empty(t, repo.Calls["FindByID"], "admins are decided by role alone")
}

func TestAuthorizer_PermissionChangeAppliesImmediately(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAdminRepository()
	gate := NewAuthorizer(repo)
	mod := seedAccount(t, repo, "mod1", models.RoleModerator, models.Permissions{Products: true})

	got, err := gate.Authorize(ctx, mod, models.CapabilityOrders)
	require.NoError(t, err)
	assert.Equal(t, Deny, got)

	_, err = repo.UpdatePermissions(ctx, mod.AccountID, models.Permissions{Orders: true})
	require.NoError(t, err)

	got, err = gate.Authorize(ctx, mod, models.CapabilityOrders)
	require.NoError(t, err)
	assert.Equal(t, Allow, got)

	got, err = gate.Authorize(ctx, mod, models.CapabilityProducts)
	require.NoError(t, err)
	assert.Equal(t, Deny, got)
}

func TestAuthorizer_MissingAccountOrIdentity(t *testing.T) {
	ctx := context.Background()
	gate := NewAuthorizer(mock.NewAdminRepository())

	got, err := gate.Authorize(ctx, &models.AdminIdentity{AccountID: uuid.New(), Role: models.RoleModerator}, models.CapabilityProducts)
	require.NoError(t, err)
	assert.Equal(t, Deny, got)

	got, err = gate.Authorize(ctx, nil, models.CapabilityProducts)
	require.NoError(t, err)
	assert.Equal(t, Deny, got)

	got, err = gate.Authorize(ctx, &models.AdminIdentity{AccountID: uuid.New(), Role: models.Role("owner")}, models.CapabilityProducts)
	require.NoError(t, err)
	assert.Equal(t, Deny, got)
}

func TestAuthorizer_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewAdminRepository()
	repo.FindByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
		return nil, errors.New("connection reset")
	}
	gate := NewAuthorizer(repo)
	mod := &models.AdminIdentity{AccountID: uuid.New(), Role: models.RoleModerator}

	got, err := gate.Authorize(ctx, mod, models.CapabilityProducts)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, Deny, got)

	_, err = gate.Capabilities(ctx, mod)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAuthorizer_Capabilities(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAdminRepository()
	gate := NewAuthorizer(repo)

	mod := seedAccount(t, repo, "mod1", models.RoleModerator, models.Permissions{Products: true, Blogs: true})
	admin := seedAccount(t, repo, "root", models.RoleAdmin, models.Permissions{})

	decisions, err := gate.Capabilities(ctx, mod)
	require.NoError(t, err)
	assert.Equal(t, map[models.Capability]Decision{
		models.CapabilityProducts:   Allow,
		models.CapabilityCategories: Deny,
		models.CapabilityOrders:     Deny,
		models.CapabilityCustomers:  Deny,
		models.CapabilityBlogs:      Allow,
	}, decisions)

	decisions, err = gate.Capabilities(ctx, admin)
	require.NoError(t, err)
	for _, c := range models.Capabilities {
		assert.Equal(t, Allow, decisions[c], c)
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}
