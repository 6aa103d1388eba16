package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/middleware"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/rs/zerolog/log"
)

// CookieConfig controls the admin_token cookie
type CookieConfig struct {
	Secure bool
	Domain string
}

// AdminHandler handles admin session and account operations
type AdminHandler struct {
	authService  *services.AuthService
	resolver     *services.SessionResolver
	authorizer   *services.Authorizer
	adminService *services.AdminService
	cookie       CookieConfig
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	authService *services.AuthService,
	resolver *services.SessionResolver,
	authorizer *services.Authorizer,
	adminService *services.AdminService,
	cookie CookieConfig,
) *AdminHandler {
	return &AdminHandler{
		authService:  authService,
		resolver:     resolver,
		authorizer:   authorizer,
		adminService: adminService,
		cookie:       cookie,
	}
}

// AdminLoginRequest represents the request body for admin login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse represents the response for successful login
type AdminLoginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt int64                `json:"expires_at"`
	Admin     models.AdminIdentity `json:"admin"`
}

// HandleAdminLogin authenticates an admin and returns a session token
func (ah *AdminHandler) HandleAdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	token, err := ah.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Info().
				Str("request_id", middleware.GetRequestID(c)).
				Str("client_ip", c.ClientIP()).
				Msg("admin login failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid username or password",
			})
			return
		}
		ah.internalError(c, err, "failed to authenticate")
		return
	}

	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, token.Value, maxAge, "/", ah.cookie.Domain, ah.cookie.Secure, true)

	log.Info().
		Str("request_id", middleware.GetRequestID(c)).
		Str("admin_id", token.Identity.AccountID.String()).
		Str("role", string(token.Identity.Role)).
		Msg("admin logged in")

	c.JSON(http.StatusOK, AdminLoginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.Unix(),
		Admin:     token.Identity,
	})
}

// HandleAdminLogout revokes the session (when revocation is enabled) and clears the cookie
func (ah *AdminHandler) HandleAdminLogout(c *gin.Context) {
	identity, ok := middleware.GetAdminIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := ah.resolver.Logout(c.Request.Context(), identity); err != nil {
		ah.internalError(c, err, "failed to end session")
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", ah.cookie.Domain, ah.cookie.Secure, true)

	c.JSON(http.StatusOK, gin.H{
		"status": "logged out",
	})
}

// AdminStatusResponse describes the current session and its account
type AdminStatusResponse struct {
	Authenticated bool                  `json:"authenticated"`
	Session       *models.AdminIdentity `json:"session"`
	Account       *models.AdminAccount  `json:"account"`
}

// HandleAdminStatus returns the current admin and the stored account
func (ah *AdminHandler) HandleAdminStatus(c *gin.Context) {
	identity, ok := middleware.GetAdminIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	account, err := ah.adminService.GetAdmin(c.Request.Context(), identity.AccountID)
	if err != nil {
		ah.serviceError(c, err, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, AdminStatusResponse{
		Authenticated: true,
		Session:       identity,
		Account:       account,
	})
}

// HandleCapabilities lists the allow/deny decision for every capability
func (ah *AdminHandler) HandleCapabilities(c *gin.Context) {
	identity, ok := middleware.GetAdminIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	decisions, err := ah.authorizer.Capabilities(c.Request.Context(), identity)
	if err != nil {
		ah.internalError(c, err, "failed to check permissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":         identity.Role,
		"capabilities": decisions,
	})
}

// HandleAuthorize answers an auth-request style check. The capability gate
// middleware has already decided; reaching this handler means Allow.
func (ah *AdminHandler) HandleAuthorize(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// AccountListResponse represents a list of admin accounts with total count
type AccountListResponse struct {
	Accounts []*models.AdminAccount `json:"accounts"`
	Total    int                    `json:"total"`
}

// HandleListAccounts returns every admin account
func (ah *AdminHandler) HandleListAccounts(c *gin.Context) {
	accounts, err := ah.adminService.ListAdmins(c.Request.Context())
	if err != nil {
		ah.internalError(c, err, "failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []*models.AdminAccount{}
	}

	c.JSON(http.StatusOK, AccountListResponse{
		Accounts: accounts,
		Total:    len(accounts),
	})
}

// CreateAccountRequest represents the request body for provisioning an account
type CreateAccountRequest struct {
	Username     string                 `json:"username" binding:"required,max=255"`
	Password     string                 `json:"password" binding:"required"`
	DisplayName  string                 `json:"display_name"`
	ProfileImage string                 `json:"profile_image"`
	Role         string                 `json:"role"`
	Permissions  models.PermissionFlags `json:"permissions"`
}

// HandleCreateAccount provisions a new admin account
func (ah *AdminHandler) HandleCreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	account, err := ah.adminService.CreateAdmin(c.Request.Context(), services.CreateAdminInput{
		Username:     req.Username,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		ProfileImage: req.ProfileImage,
		Role:         req.Role,
		Permissions:  req.Permissions,
	})
	if err != nil {
		ah.serviceError(c, err, "failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

// HandleUpdatePermissions replaces an account's permission record
func (ah *AdminHandler) HandleUpdatePermissions(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	var flags models.PermissionFlags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	account, err := ah.adminService.UpdatePermissions(c.Request.Context(), id, flags)
	if err != nil {
		ah.serviceError(c, err, "failed to update permissions")
		return
	}

	c.JSON(http.StatusOK, account)
}

// UpdateRoleRequest represents the request body for a role change
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// HandleUpdateRole changes an account's role
func (ah *AdminHandler) HandleUpdateRole(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	account, err := ah.adminService.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		ah.serviceError(c, err, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, account)
}

func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid account id",
		})
		return uuid.Nil, false
	}
	return id, true
}

// serviceError maps service errors to status codes. Unavailable causes are
// logged and replaced by message.
func (ah *AdminHandler) serviceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ah.internalError(c, err, message)
	}
}

func (ah *AdminHandler) internalError(c *gin.Context, err error, message string) {
	_ = c.Error(err)
	log.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Str("path", c.FullPath()).
		Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
