package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/rs/zerolog/log"
)

// AuthService verifies admin credentials and issues session tokens
type AuthService struct {
	repo     repositories.AdminRepository
	hasher   PasswordHasher
	sessions *SessionManager

	// dummyHash is compared against when the username is unknown so both
	// failure paths spend the same hashing time
	dummyHash string
}

// NewAuthService creates a new authentication service
func NewAuthService(repo repositories.AdminRepository, hasher PasswordHasher, sessions *SessionManager) (*AuthService, error) {
	dummy, err := hasher.Hash("not-a-real-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		sessions:  sessions,
		dummyHash: dummy,
	}, nil
}

// Authenticate verifies username and password and mints a session token.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*Token, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_, _ = s.hasher.Verify(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: find account: %w", ErrUnavailable, err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("%w: verify password: %w", ErrUnavailable, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !account.Role.Valid() {
		return nil, fmt.Errorf("%w: account %s has stored role %q", ErrUnavailable, account.ID, account.Role)
	}

	token, err := s.sessions.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	log.Debug().
		Str("admin_id", account.ID.String()).
		Str("role", string(account.Role)).
		Msg("admin authenticated")

	return token, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RoleSource selects where the resolver takes an identity's role from
type RoleSource string

const (
	// RoleSourceToken trusts the role embedded in the token until it expires
	RoleSourceToken RoleSource = "token"
	// RoleSourceStore re-reads the account on every request; role changes and
	// deleted accounts take effect immediately at the cost of one lookup
	RoleSourceStore RoleSource = "store"
)

// ParseRoleSource accepts "token" (default when empty) or "store"
func ParseRoleSource(s string) (RoleSource, error) {
	switch RoleSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleSourceToken:
		return RoleSourceToken, nil
	case RoleSourceStore:
		return RoleSourceStore, nil
	default:
		return "", fmt.Errorf("unknown session role source %q", s)
	}
}

// SessionResolver turns a raw bearer token into an admin identity
type SessionResolver struct {
	sessions   *SessionManager
	repo       repositories.AdminRepository
	roleSource RoleSource
}

// NewSessionResolver creates a resolver. repo is only consulted for RoleSourceStore.
func NewSessionResolver(sessions *SessionManager, repo repositories.AdminRepository, roleSource RoleSource) *SessionResolver {
	if roleSource == "" {
		roleSource = RoleSourceToken
	}
	return &SessionResolver{sessions: sessions, repo: repo, roleSource: roleSource}
}

// Resolve verifies raw and returns the identity it carries
func (r *SessionResolver) Resolve(ctx context.Context, raw string) (*models.AdminIdentity, error) {
	identity, err := r.sessions.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	if r.roleSource != RoleSourceStore {
		return identity, nil
	}

	account, err := r.repo.FindByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("%w: find account: %w", ErrUnavailable, err)
	}
	identity.Role = account.Role
	identity.Username = account.Username
	return identity, nil
}

// Logout revokes the identity's token when a revocation list is configured
func (r *SessionResolver) Logout(ctx context.Context, identity *models.AdminIdentity) error {
	return r.sessions.Revoke(ctx, identity)
}
