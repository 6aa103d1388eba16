package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie the login handler sets and the auth middleware reads
const SessionCookieName = "admin_token"

// IdentityKey is the gin context key holding the *models.AdminIdentity
const IdentityKey = "admin_identity"

// IdentityResolver turns a raw session token into an identity
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string) (*models.AdminIdentity, error)
}

// CapabilityGate decides whether an identity may use a capability
type CapabilityGate interface {
	Authorize(ctx context.Context, identity *models.AdminIdentity, capability models.Capability) (services.Decision, error)
}

// ExtractToken returns the session token from the admin_token cookie or,
// failing that, from an "Authorization: Bearer" header
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminAuthMiddleware resolves the session token and stores the identity in context
func AdminAuthMiddleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			c.Abort()
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if services.IsSessionError(err) {
				log.Debug().
					Err(err).
					Str("request_id", GetRequestID(c)).
					Msg("session rejected")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			} else {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify session"})
			}
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set("admin_id", identity.AccountID.String())
		c.Set("username", identity.Username)
		c.Set("role", string(identity.Role))
		c.Next()
	}
}

// GetAdminIdentity returns the identity set by AdminAuthMiddleware
func GetAdminIdentity(c *gin.Context) (*models.AdminIdentity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*models.AdminIdentity)
	return identity, ok && identity != nil
}

// RequireRole allows only identities holding one of roles. Must run after AdminAuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetAdminIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": services.ErrForbidden.Error()})
		c.Abort()
	}
}

// CapabilitySource picks the capability a request needs
type CapabilitySource func(c *gin.Context) (models.Capability, error)

// Capability always requires capability
func Capability(capability models.Capability) CapabilitySource {
	return func(*gin.Context) (models.Capability, error) {
		return capability, nil
	}
}

// CapabilityParam reads the capability from a path parameter
func CapabilityParam(name string) CapabilitySource {
	return func(c *gin.Context) (models.Capability, error) {
		return models.ParseCapability(c.Param(name))
	}
}

// RequireCapability runs the authorization gate. Unknown capabilities are denied.
// Must run after AdminAuthMiddleware.
func RequireCapability(gate CapabilityGate, source CapabilitySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetAdminIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		capability, err := source(c)
		if err != nil {
			if !errors.Is(err, models.ErrInvalidCapability) {
				_ = c.Error(err)
			}
			deny(c, identity, capability)
			return
		}

		decision, err := gate.Authorize(c.Request.Context(), identity, capability)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check permissions"})
			c.Abort()
			return
		}
		if decision != services.Allow {
			deny(c, identity, capability)
			return
		}

		c.Next()
	}
}

func deny(c *gin.Context, identity *models.AdminIdentity, capability models.Capability) {
	log.Info().
		Str("request_id", GetRequestID(c)).
		Str("admin_id", identity.AccountID.String()).
		Str("role", string(identity.Role)).
		Str("capability", string(capability)).
		Msg("capability denied")

	c.JSON(http.StatusForbidden, gin.H{"error": services.ErrForbidden.Error()})
	c.Abort()
}
