// Package repotest holds the behaviour every AdminRepository backend must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAdminRepositoryContract exercises repo. newRepo must return an empty store.
func RunAdminRepositoryContract(t *testing.T, newRepo func(t *testing.T) repositories.AdminRepository) {
	t.Helper()

	account := func(username string) *models.AdminAccount {
		return &models.AdminAccount{
			Username:     username,
			DisplayName:  "Display " + username,
			PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
			Role:         models.RoleModerator,
			Permissions:  models.Permissions{Products: true},
		}
	}

	t.Run("create then find by username and id", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, account("mod1"))
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero())

		byName, err := repo.FindByUsername(ctx, "mod1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)
		assert.Equal(t, models.RoleModerator, byName.Role)
		assert.Equal(t, models.Permissions{Products: true}, byName.Permissions)
		assert.Equal(t, "Display mod1", byName.DisplayName)

		byID, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "mod1", byID.Username)
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.UpdatePermissions(ctx, uuid.New(), models.AllPermissions())
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.UpdateRole(ctx, uuid.New(), models.RoleAdmin)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("duplicate username conflicts without altering the original", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		original, err := repo.Create(ctx, account("mod1"))
		require.NoError(t, err)

		dup := account("mod1")
		dup.Role = models.RoleAdmin
		dup.Permissions = models.AllPermissions()
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, repositories.ErrConflict)

		stored, err := repo.FindByUsername(ctx, "mod1")
		require.NoError(t, err)
		assert.Equal(t, original.ID, stored.ID)
		assert.Equal(t, models.RoleModerator, stored.Role)
		assert.Equal(t, models.Permissions{Products: true}, stored.Permissions)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("permission update replaces the whole record", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, account("mod1"))
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		next := models.Permissions{Orders: true, Blogs: true}
		updated, err := repo.UpdatePermissions(ctx, created.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Permissions)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

		stored, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, next, stored.Permissions)
		assert.Equal(t, models.RoleModerator, stored.Role)
	})

	t.Run("role update keeps permissions", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, account("mod1"))
		require.NoError(t, err)

		updated, err := repo.UpdateRole(ctx, created.ID, models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
		assert.Equal(t, models.Permissions{Products: true}, updated.Permissions)
	})

	t.Run("list is ordered by username", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for _, name := range []string{"charlie", "alpha", "bravo"} {
			_, err := repo.Create(ctx, account(name))
			require.NoError(t, err)
		}

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "alpha", list[0].Username)
		assert.Equal(t, "bravo", list[1].Username)
		assert.Equal(t, "charlie", list[2].Username)
	})
}
