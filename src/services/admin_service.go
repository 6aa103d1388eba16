package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/rs/zerolog/log"
)

// MinPasswordLength is the shortest password accepted at provisioning
const MinPasswordLength = 8

// AdminService handles admin account provisioning and permission changes
type AdminService struct {
	repo   repositories.AdminRepository
	hasher PasswordHasher
}

// NewAdminService creates a new admin service
func NewAdminService(repo repositories.AdminRepository, hasher PasswordHasher) *AdminService {
	return &AdminService{repo: repo, hasher: hasher}
}

// CreateAdminInput describes a new account. Permissions must carry all five flags.
type CreateAdminInput struct {
	Username     string
	Password     string
	DisplayName  string
	ProfileImage string
	Role         string
	Permissions  models.PermissionFlags
}

// CreateAdmin validates input, hashes the password and stores the account
func (as *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.AdminAccount, error) {
	username := normalizeUsername(in.Username)
	if n := utf8.RuneCountInString(username); n < 1 || n > 255 {
		return nil, fmt.Errorf("%w: username must be between 1 and 255 characters", ErrInvalidInput)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	permissions, err := in.Permissions.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := as.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = username
	}

	created, err := as.repo.Create(ctx, &models.AdminAccount{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		ProfileImage: in.ProfileImage,
		PasswordHash: hash,
		Role:         role,
		Permissions:  permissions,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: create account: %w", ErrUnavailable, err)
	}

	log.Info().
		Str("admin_id", created.ID.String()).
		Str("username", created.Username).
		Str("role", string(created.Role)).
		Msg("admin account created")

	return created, nil
}

// UpdatePermissions replaces the account's whole permission record
func (as *AdminService) UpdatePermissions(ctx context.Context, id uuid.UUID, flags models.PermissionFlags) (*models.AdminAccount, error) {
	permissions, err := flags.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	account, err := as.repo.UpdatePermissions(ctx, id, permissions)
	if err != nil {
		return nil, as.mapLookupError(err, "update permissions")
	}

	log.Info().
		Str("admin_id", id.String()).
		Strs("granted", capabilityNames(permissions.Granted())).
		Msg("admin permissions replaced")

	return account, nil
}

// UpdateRole changes the account's role. Tokens already issued keep the old
// role until they expire unless the resolver reads roles from the store.
func (as *AdminService) UpdateRole(ctx context.Context, id uuid.UUID, roleName string) (*models.AdminAccount, error) {
	if roleName == "" {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	account, err := as.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, as.mapLookupError(err, "update role")
	}

	log.Info().
		Str("admin_id", id.String()).
		Str("role", string(role)).
		Msg("admin role changed")

	return account, nil
}

// GetAdmin retrieves an account by id
func (as *AdminService) GetAdmin(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	account, err := as.repo.FindByID(ctx, id)
	if err != nil {
		return nil, as.mapLookupError(err, "find account")
	}
	return account, nil
}

// GetAdminByUsername retrieves an account by username
func (as *AdminService) GetAdminByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	account, err := as.repo.FindByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, as.mapLookupError(err, "find account")
	}
	return account, nil
}

// ListAdmins returns every account ordered by username
func (as *AdminService) ListAdmins(ctx context.Context) ([]*models.AdminAccount, error) {
	accounts, err := as.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %w", ErrUnavailable, err)
	}
	return accounts, nil
}

// HasAdmins checks if any admin accounts exist
func (as *AdminService) HasAdmins(ctx context.Context) (bool, error) {
	count, err := as.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: count accounts: %w", ErrUnavailable, err)
	}
	return count > 0, nil
}

// EnsureInitialAdmin creates a full-access account when the store is empty.
// It reports whether an account was created.
func (as *AdminService) EnsureInitialAdmin(ctx context.Context, username, password string) (bool, error) {
	hasAdmins, err := as.HasAdmins(ctx)
	if err != nil {
		return false, err
	}
	if hasAdmins {
		return false, nil
	}

	_, err = as.CreateAdmin(ctx, CreateAdminInput{
		Username:    username,
		Password:    password,
		Role:        string(models.RoleAdmin),
		Permissions: models.FlagsOf(models.AllPermissions()),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Seed creates each account that does not exist yet. Existing usernames are left untouched.
func (as *AdminService) Seed(ctx context.Context, inputs []CreateAdminInput) (int, error) {
	created := 0
	for _, in := range inputs {
		_, err := as.CreateAdmin(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrUsernameTaken):
			log.Debug().Str("username", in.Username).Msg("seed account already exists")
		default:
			return created, fmt.Errorf("seed account %q: %w", in.Username, err)
		}
	}
	return created, nil
}

func (as *AdminService) mapLookupError(err error, action string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrAdminNotFound
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, action, err)
}

func capabilityNames(caps []models.Capability) []string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return names
}
