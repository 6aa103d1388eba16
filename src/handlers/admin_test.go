package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/middleware"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/khabaroff/storefront-admin/src/repositories/memory"
	"github.com/khabaroff/storefront-admin/src/repositories/mock"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-for-unit-tests-32ch!"

type revocationSet struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (r *revocationSet) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[tokenID] = until
	return nil
}

func (r *revocationSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[tokenID]
	return ok, nil
}

type testServer struct {
	router *gin.Engine
	admins *services.AdminService
}

func newTestServer(t *testing.T, repo repositories.AdminRepository) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher := services.NewBcryptHasher(bcrypt.MinCost)
	sessions, err := services.NewSessionManager(services.SessionConfig{Secret: testSecret}, &revocationSet{ids: map[string]time.Time{}})
	require.NoError(t, err)
	auth, err := services.NewAuthService(repo, hasher, sessions)
	require.NoError(t, err)

	resolver := services.NewSessionResolver(sessions, repo, services.RoleSourceToken)
	authorizer := services.NewAuthorizer(repo)
	admins := services.NewAdminService(repo, hasher)

	limiter := middleware.NewLoginRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 6000, Burst: 1000})
	t.Cleanup(limiter.Stop)

	router := gin.New()
	Routes{
		Admin:        NewAdminHandler(auth, resolver, authorizer, admins, CookieConfig{Secure: true}),
		Health:       NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{"store": okCheck}),
		Resolver:     resolver,
		Authorizer:   authorizer,
		LoginLimiter: limiter,
	}.Register(router)

	return &testServer{router: router, admins: admins}
}

// newSeededServer creates root (admin) and mod1 (moderator with products only)
func newSeededServer(t *testing.T) (*testServer, *models.AdminAccount, *models.AdminAccount) {
	t.Helper()
	s := newTestServer(t, memory.NewAdminRepository())
	ctx := context.Background()

	root, err := s.admins.CreateAdmin(ctx, services.CreateAdminInput{
		Username: "root", Password: "correct horse", Role: "admin",
		Permissions: models.FlagsOf(models.Permissions{}),
	})
	require.NoError(t, err)
	mod, err := s.admins.CreateAdmin(ctx, services.CreateAdminInput{
		Username: "mod1", Password: "battery staple",
		Permissions: models.FlagsOf(models.Permissions{Products: true}),
	})
	require.NoError(t, err)

	return s, root, mod
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AdminLoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHandleAdminLogin(t *testing.T) {
	s, _, mod := newSeededServer(t)

	t.Run("success sets cookie", func(t *testing.T) {
		w := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "mod1", Password: "battery staple"})
		assertStatusCode(t, w, http.StatusOK)

		var resp AdminLoginResponse
		decode(t, w, &resp)
		assert.Equal(t, mod.ID, resp.Admin.AccountID)
		assert.Equal(t, models.RoleModerator, resp.Admin.Role)
		assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
		assert.Equal(t, resp.Token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		wrong := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "mod1", Password: "nope-nope"})
		unknown := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "ghost", Password: "battery staple"})

		assertStatusCode(t, wrong, http.StatusUnauthorized)
		assertStatusCode(t, unknown, http.StatusUnauthorized)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
		assertJSONError(t, wrong, "invalid username or password")
	})

	t.Run("missing fields", func(t *testing.T) {
		w := s.do(http.MethodPost, "/admin/login", "", gin.H{"username": "mod1"})
		assertStatusCode(t, w, http.StatusBadRequest)
	})
}

func TestHandleAdminLogin_StoreDown(t *testing.T) {
	repo := mock.NewAdminRepository()
	repo.FindByUsernameFunc = func(ctx context.Context, username string) (*models.AdminAccount, error) {
		return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}
	s := newTestServer(t, repo)

	w := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "mod1", Password: "battery staple"})
	assertStatusCode(t, w, http.StatusInternalServerError)
	assertJSONError(t, w, "failed to authenticate")
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestHandleAdminLogin_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := memory.NewAdminRepository()
	hasher := services.NewBcryptHasher(bcrypt.MinCost)
	sessions, err := services.NewSessionManager(services.SessionConfig{Secret: testSecret}, nil)
	require.NoError(t, err)
	auth, err := services.NewAuthService(repo, hasher, sessions)
	require.NoError(t, err)
	resolver := services.NewSessionResolver(sessions, repo, services.RoleSourceToken)
	authorizer := services.NewAuthorizer(repo)

	limiter := middleware.NewLoginRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	defer limiter.Stop()

	router := gin.New()
	Routes{
		Admin:        NewAdminHandler(auth, resolver, authorizer, services.NewAdminService(repo, hasher), CookieConfig{}),
		Resolver:     resolver,
		Authorizer:   authorizer,
		LoginLimiter: limiter,
	}.Register(router)
	s := &testServer{router: router}

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "x", Password: "y"})
		assertStatusCode(t, w, http.StatusUnauthorized)
	}
	w := s.do(http.MethodPost, "/admin/login", "", AdminLoginRequest{Username: "x", Password: "y"})
	assertStatusCode(t, w, http.StatusTooManyRequests)
}

func TestHandleAdminStatus(t *testing.T) {
	s, _, mod := newSeededServer(t)
	token := s.login(t, "mod1", "battery staple")

	w := s.do(http.MethodGet, "/admin/me", token, nil)
	assertStatusCode(t, w, http.StatusOK)

	var resp struct {
		Authenticated bool                 `json:"authenticated"`
		Session       models.AdminIdentity `json:"session"`
		Account       map[string]any       `json:"account"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, mod.ID, resp.Session.AccountID)
	assert.Equal(t, "mod1", resp.Account["username"])
	assert.NotContains(t, resp.Account, "password_hash")
	assert.NotContains(t, w.Body.String(), "$2a$")

	w = s.do(http.MethodGet, "/admin/me", "", nil)
	assertStatusCode(t, w, http.StatusUnauthorized)
}

func TestHandleCapabilitiesAndAuthorize(t *testing.T) {
	s, _, _ := newSeededServer(t)
	modToken := s.login(t, "mod1", "battery staple")
	rootToken := s.login(t, "root", "correct horse")

	w := s.do(http.MethodGet, "/admin/capabilities", modToken, nil)
	assertStatusCode(t, w, http.StatusOK)
	var caps struct {
		Role         models.Role                `json:"role"`
		Capabilities map[models.Capability]bool `json:"capabilities"`
	}
	decode(t, w, &caps)
	assert.Equal(t, models.RoleModerator, caps.Role)
	assert.Equal(t, map[models.Capability]bool{
		models.CapabilityProducts:   true,
		models.CapabilityCategories: false,
		models.CapabilityOrders:     false,
		models.CapabilityCustomers:  false,
		models.CapabilityBlogs:      false,
	}, caps.Capabilities)

	tests := []struct {
		name       string
		token      string
		capability string
		want       int
	}{
		{"moderator granted", modToken, "products", http.StatusNoContent},
		{"moderator not granted", modToken, "orders", http.StatusForbidden},
		{"moderator unknown", modToken, "settings", http.StatusForbidden},
		{"admin with no flags", rootToken, "orders", http.StatusNoContent},
		{"admin unknown", rootToken, "settings", http.StatusForbidden},
		{"no session", "", "products", http.StatusUnauthorized},
		{"bad session", "abc.def.ghi", "products", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/admin/authz/"+tt.capability, tt.token, nil)
			assertStatusCode(t, w, tt.want)
		})
	}
}

func TestAccountRoutes_RequireAdminRole(t *testing.T) {
	s, _, mod := newSeededServer(t)
	modToken := s.login(t, "mod1", "battery staple")

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/admin/accounts"},
		{http.MethodPost, "/admin/accounts"},
		{http.MethodPut, "/admin/accounts/" + mod.ID.String() + "/permissions"},
		{http.MethodPut, "/admin/accounts/" + mod.ID.String() + "/role"},
	} {
		w := s.do(req.method, req.path, modToken, gin.H{})
		assertStatusCode(t, w, http.StatusForbidden)
	}
}

func TestHandleCreateAccount(t *testing.T) {
	s, _, _ := newSeededServer(t)
	rootToken := s.login(t, "root", "correct horse")

	allFlags := gin.H{"products": true, "categories": false, "orders": true, "customers": false, "blogs": false}

	w := s.do(http.MethodPost, "/admin/accounts", rootToken, gin.H{
		"username": "mod2", "password": "longenough", "permissions": allFlags,
	})
	assertStatusCode(t, w, http.StatusCreated)
	var created models.AdminAccount
	decode(t, w, &created)
	assert.Equal(t, "mod2", created.Username)
	assert.Equal(t, models.RoleModerator, created.Role)
	assert.Equal(t, models.Permissions{Products: true, Orders: true}, created.Permissions)

	t.Run("duplicate username", func(t *testing.T) {
		w := s.do(http.MethodPost, "/admin/accounts", rootToken, gin.H{
			"username": "MOD2", "password": "longenough", "permissions": allFlags,
		})
		assertStatusCode(t, w, http.StatusConflict)
	})

	t.Run("incomplete permissions", func(t *testing.T) {
		w := s.do(http.MethodPost, "/admin/accounts", rootToken, gin.H{
			"username": "mod3", "password": "longenough", "permissions": gin.H{"products": true},
		})
		assertStatusCode(t, w, http.StatusBadRequest)

		_, err := s.admins.GetAdminByUsername(context.Background(), "mod3")
		assert.ErrorIs(t, err, services.ErrAdminNotFound)
	})

	t.Run("invalid role", func(t *testing.T) {
		w := s.do(http.MethodPost, "/admin/accounts", rootToken, gin.H{
			"username": "mod4", "password": "longenough", "role": "owner", "permissions": allFlags,
		})
		assertStatusCode(t, w, http.StatusBadRequest)
	})

	t.Run("listed", func(t *testing.T) {
		w := s.do(http.MethodGet, "/admin/accounts", rootToken, nil)
		assertStatusCode(t, w, http.StatusOK)
		var list AccountListResponse
		decode(t, w, &list)
		assert.Equal(t, 3, list.Total)
	})
}

func TestHandleUpdatePermissions_AppliesToNextRequest(t *testing.T) {
	s, _, mod := newSeededServer(t)
	rootToken := s.login(t, "root", "correct horse")
	modToken := s.login(t, "mod1", "battery staple")

	assertStatusCode(t, s.do(http.MethodGet, "/admin/authz/orders", modToken, nil), http.StatusForbidden)

	w := s.do(http.MethodPut, "/admin/accounts/"+mod.ID.String()+"/permissions", rootToken, gin.H{
		"products": false, "categories": false, "orders": true, "customers": false, "blogs": false,
	})
	assertStatusCode(t, w, http.StatusOK)

	assertStatusCode(t, s.do(http.MethodGet, "/admin/authz/orders", modToken, nil), http.StatusNoContent)
	assertStatusCode(t, s.do(http.MethodGet, "/admin/authz/products", modToken, nil), http.StatusForbidden)

	t.Run("unknown account", func(t *testing.T) {
		w := s.do(http.MethodPut, "/admin/accounts/"+uuid.NewString()+"/permissions", rootToken, gin.H{
			"products": true, "categories": true, "orders": true, "customers": true, "blogs": true,
		})
		assertStatusCode(t, w, http.StatusNotFound)
	})

	t.Run("bad id", func(t *testing.T) {
		w := s.do(http.MethodPut, "/admin/accounts/not-a-uuid/permissions", rootToken, gin.H{})
		assertStatusCode(t, w, http.StatusBadRequest)
		assertJSONError(t, w, "invalid account id")
	})

	t.Run("partial record", func(t *testing.T) {
		w := s.do(http.MethodPut, "/admin/accounts/"+mod.ID.String()+"/permissions", rootToken, gin.H{"products": true})
		assertStatusCode(t, w, http.StatusBadRequest)
	})
}

func TestHandleUpdateRole(t *testing.T) {
	s, _, mod := newSeededServer(t)
	rootToken := s.login(t, "root", "correct horse")

	w := s.do(http.MethodPut, "/admin/accounts/"+mod.ID.String()+"/role", rootToken, UpdateRoleRequest{Role: "admin"})
	assertStatusCode(t, w, http.StatusOK)
	var updated models.AdminAccount
	decode(t, w, &updated)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	// a fresh login carries the new role
	modToken := s.login(t, "mod1", "battery staple")
	assertStatusCode(t, s.do(http.MethodGet, "/admin/accounts", modToken, nil), http.StatusOK)

	w = s.do(http.MethodPut, "/admin/accounts/"+mod.ID.String()+"/role", rootToken, UpdateRoleRequest{Role: "owner"})
	assertStatusCode(t, w, http.StatusBadRequest)

	w = s.do(http.MethodPut, "/admin/accounts/"+mod.ID.String()+"/role", rootToken, gin.H{})
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestHandleAdminLogout_RevokesToken(t *testing.T) {
	s, _, _ := newSeededServer(t)
	token := s.login(t, "mod1", "battery staple")

	assertStatusCode(t, s.do(http.MethodGet, "/admin/me", token, nil), http.StatusOK)

	w := s.do(http.MethodPost, "/admin/logout", token, nil)
	assertStatusCode(t, w, http.StatusOK)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)

	w = s.do(http.MethodGet, "/admin/me", token, nil)
	assertStatusCode(t, w, http.StatusUnauthorized)
	assertJSONError(t, w, "invalid or expired token")
}
