package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/storefront-admin/src/database"
)

func okCheck(context.Context) error { return nil }

func TestHandleHealth_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	handler := NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{"store": okCheck})
	handler.HandleHealth(c)

	assertStatusCode(t, w, http.StatusOK)

	var response struct {
		Status       string                 `json:"status"`
		Uptime       string                 `json:"uptime"`
		Dependencies map[string]checkResult `json:"dependencies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %v", response.Status)
	}
	if response.Dependencies["store"].Status != "connected" {
		t.Errorf("expected store 'connected', got %v", response.Dependencies["store"])
	}
	if response.Uptime == "" {
		t.Error("expected uptime field")
	}
}

func TestHandleHealth_DBError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	db := database.NewDatabaseFromPool(nil) // nil pool = DB error
	handler := NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{
		"store": db.Health,
		"redis": okCheck,
	})
	handler.HandleHealth(c)

	assertStatusCode(t, w, http.StatusServiceUnavailable)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["status"] != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %v", response["status"])
	}
}

func TestHandleHealth_WithTestDB(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		gin.SetMode(gin.TestMode)
		w, c := createTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

		db := database.NewDatabaseFromPool(tdb.Pool)
		NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{"store": db.Health}).HandleHealth(c)

		assertStatusCode(t, w, http.StatusOK)
	})
}

func TestHandleReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{"store": okCheck}).HandleReady(c)
	assertStatusCode(t, w, http.StatusOK)

	w, c = createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	failing := func(context.Context) error { return errors.New("down") }
	NewHealthHandler("storefront-admin", "test", map[string]HealthCheck{"store": failing}).HandleReady(c)
	assertStatusCode(t, w, http.StatusServiceUnavailable)
}

func TestHandleInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/info", nil)

	NewHealthHandler("storefront-admin", "1.2.3", nil).HandleInfo(c)

	assertStatusCode(t, w, http.StatusOK)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["service"] != "storefront-admin" || response["version"] != "1.2.3" {
		t.Errorf("unexpected info response: %v", response)
	}
}
