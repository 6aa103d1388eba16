package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/storefront-admin/src/middleware"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/services"
)

// Routes bundles what the admin API needs to register its endpoints
type Routes struct {
	Admin      *AdminHandler
	Health     *HealthHandler
	Resolver   *services.SessionResolver
	Authorizer *services.Authorizer

	// LoginLimiter throttles /admin/login; nil disables throttling
	LoginLimiter *middleware.RateLimiter
}

// Register mounts health and admin endpoints on router
func (r Routes) Register(router gin.IRouter) {
	if r.Health != nil {
		router.GET("/health", r.Health.HandleHealth)
		router.GET("/ready", r.Health.HandleReady)
		router.GET("/info", r.Health.HandleInfo)
	}

	admin := router.Group("/admin")
	if r.LoginLimiter != nil {
		admin.POST("/login", r.LoginLimiter.Middleware(), r.Admin.HandleAdminLogin)
	} else {
		admin.POST("/login", r.Admin.HandleAdminLogin)
	}

	session := admin.Group("", middleware.AdminAuthMiddleware(r.Resolver))
	{
		session.POST("/logout", r.Admin.HandleAdminLogout)
		session.GET("/me", r.Admin.HandleAdminStatus)
		session.GET("/capabilities", r.Admin.HandleCapabilities)
		session.GET("/authz/:capability",
			middleware.RequireCapability(r.Authorizer, middleware.CapabilityParam("capability")),
			r.Admin.HandleAuthorize)
	}

	accounts := session.Group("/accounts", middleware.RequireRole(models.RoleAdmin))
	{
		accounts.GET("", r.Admin.HandleListAccounts)
		accounts.POST("", r.Admin.HandleCreateAccount)
		accounts.PUT("/:id/permissions", r.Admin.HandleUpdatePermissions)
		accounts.PUT("/:id/role", r.Admin.HandleUpdateRole)
	}
}
