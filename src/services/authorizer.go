package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
)

// Decision is the outcome of an authorization check
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Authorizer decides whether an identity may use a capability.
//
// Admins are allowed everything by role. Moderators are checked against the
// permission flags stored on their account, which are read on every call, so a
// permission change applies to the very next request while the role itself
// comes from the token (see RoleSource).
type Authorizer struct {
	repo repositories.AdminRepository
}

// NewAuthorizer creates an authorization gate over repo
func NewAuthorizer(repo repositories.AdminRepository) *Authorizer {
	return &Authorizer{repo: repo}
}

// Authorize returns Allow or Deny. The error is non-nil only when the store failed.
func (a *Authorizer) Authorize(ctx context.Context, identity *models.AdminIdentity, capability models.Capability) (Decision, error) {
	if identity == nil {
		return Deny, nil
	}
	if identity.Role == models.RoleAdmin {
		return Allow, nil
	}
	if identity.Role != models.RoleModerator || !capability.Known() {
		return Deny, nil
	}

	permissions, found, err := a.storedPermissions(ctx, identity)
	if err != nil || !found {
		return Deny, err
	}
	return Decision(permissions.Allows(capability)), nil
}

// Capabilities evaluates every defined capability with a single store read
func (a *Authorizer) Capabilities(ctx context.Context, identity *models.AdminIdentity) (map[models.Capability]Decision, error) {
	decisions := make(map[models.Capability]Decision, len(models.Capabilities))
	for _, c := range models.Capabilities {
		decisions[c] = Deny
	}
	if identity == nil {
		return decisions, nil
	}

	switch identity.Role {
	case models.RoleAdmin:
		for _, c := range models.Capabilities {
			decisions[c] = Allow
		}
	case models.RoleModerator:
		permissions, found, err := a.storedPermissions(ctx, identity)
		if err != nil {
			return nil, err
		}
		if found {
			for _, c := range models.Capabilities {
				decisions[c] = Decision(permissions.Allows(c))
			}
		}
	}
	return decisions, nil
}

func (a *Authorizer) storedPermissions(ctx context.Context, identity *models.AdminIdentity) (models.Permissions, bool, error) {
	account, err := a.repo.FindByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Permissions{}, false, nil
		}
		return models.Permissions{}, false, fmt.Errorf("%w: load permissions: %w", ErrUnavailable, err)
	}
	return account.Permissions, true, nil
}
