package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the coarse access level of an admin account
type Role string

const (
	// RoleAdmin grants every capability regardless of permission flags
	RoleAdmin Role = "admin"
	// RoleModerator is limited to the capabilities flagged in its permissions
	RoleModerator Role = "moderator"
)

// DefaultRole is assigned when an account is provisioned without a role
const DefaultRole = RoleModerator

// ErrInvalidRole indicates a role outside the admin/moderator pair
var ErrInvalidRole = errors.New("invalid role")

// Valid reports whether r is one of the defined roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// ParseRole converts user input to a Role. An empty string yields DefaultRole.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return DefaultRole, nil
	}
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Capability names an administrative area gated by a permission flag
type Capability string

const (
	CapabilityProducts   Capability = "products"
	CapabilityCategories Capability = "categories"
	CapabilityOrders     Capability = "orders"
	CapabilityCustomers  Capability = "customers"
	CapabilityBlogs      Capability = "blogs"
)

// Capabilities lists every defined capability in display order
var Capabilities = []Capability{
	CapabilityProducts,
	CapabilityCategories,
	CapabilityOrders,
	CapabilityCustomers,
	CapabilityBlogs,
}

// ErrInvalidCapability indicates a capability name outside the defined set
var ErrInvalidCapability = errors.New("unknown capability")

// ParseCapability converts user input to a known Capability
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if !c.Known() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCapability, s)
	}
	return c, nil
}

// Known reports whether c is one of the defined capabilities
func (c Capability) Known() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}
