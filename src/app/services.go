package app

import (
	"context"
	"fmt"

	"github.com/khabaroff/storefront-admin/src/config"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/rs/zerolog/log"
)

// Services holds the admin domain services built over one store
type Services struct {
	Auth       *services.AuthService
	Sessions   *services.SessionManager
	Resolver   *services.SessionResolver
	Authorizer *services.Authorizer
	Admins     *services.AdminService
}

// NewServices builds the services from cfg. revocations may be nil.
func NewServices(cfg *config.Config, repo repositories.AdminRepository, revocations services.RevocationList) (*Services, error) {
	roleSource, err := services.ParseRoleSource(cfg.SessionRoleSource)
	if err != nil {
		return nil, err
	}

	sessions, err := services.NewSessionManager(services.SessionConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.SessionTTL,
	}, revocations)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}

	hasher := services.NewBcryptHasher(cfg.BcryptCost)
	auth, err := services.NewAuthService(repo, hasher, sessions)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:       auth,
		Sessions:   sessions,
		Resolver:   services.NewSessionResolver(sessions, repo, roleSource),
		Authorizer: services.NewAuthorizer(repo),
		Admins:     services.NewAdminService(repo, hasher),
	}, nil
}

// SeedAccounts creates the ADMIN_USERNAME account on an empty store and every
// missing account from ADMIN_SEED_FILE
func SeedAccounts(ctx context.Context, cfg *config.Config, admins *services.AdminService) error {
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := admins.EnsureInitialAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to create initial admin user: %w", err)
		}
		if created {
			log.Info().Str("username", cfg.AdminUsername).Msg("initial admin user created")
		}
	}

	if cfg.AdminSeedFile == "" {
		return nil
	}

	seed, err := config.LoadSeedFile(cfg.AdminSeedFile)
	if err != nil {
		return err
	}

	inputs := make([]services.CreateAdminInput, len(seed.Accounts))
	for i, acc := range seed.Accounts {
		inputs[i] = services.CreateAdminInput{
			Username:     acc.Username,
			Password:     acc.Password,
			DisplayName:  acc.DisplayName,
			ProfileImage: acc.ProfileImage,
			Role:         acc.Role,
			Permissions:  acc.Permissions,
		}
	}

	n, err := admins.Seed(ctx, inputs)
	if err != nil {
		return err
	}
	log.Info().
		Int("created", n).
		Int("listed", len(inputs)).
		Str("file", cfg.AdminSeedFile).
		Msg("admin seed file applied")
	return nil
}
