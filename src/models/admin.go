package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminAccount represents a dashboard operator account
type AdminAccount struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	DisplayName  string      `json:"display_name"`
	ProfileImage string      `json:"profile_image,omitempty"`
	PasswordHash string      `json:"-"` // never expose
	Role         Role        `json:"role"`
	Permissions  Permissions `json:"permissions"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin reports whether the account holds the full-access role
func (a *AdminAccount) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AdminIdentity is the identity carried by a verified session token
type AdminIdentity struct {
	AccountID uuid.UUID `json:"admin_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
