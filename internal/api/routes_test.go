package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sniper/internal/models"
)

// stubLifecycle - минимальная заглушка PositionSource для маршрутизации
type stubLifecycle struct{}

func (stubLifecycle) Position() *models.Position { return nil }
func (stubLifecycle) UnrealizedPnl() float64     { return 0 }
func (stubLifecycle) ClearFailed() error         { return nil }

func TestSetupRoutes_HealthCheck(t *testing.T) {
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("expected body OK, got %s", w.Body.String())
	}
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestSetupRoutes_MissingDependenciesReturn404(t *testing.T) {
	router := SetupRoutes(nil)

	paths := []string{
		"/api/v1/status",
		"/api/v1/position",
		"/api/v1/stats",
		"/api/v1/rejections",
	}

	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d without dependencies, got %d", path, http.StatusNotFound, w.Code)
		}
	}
}

func TestSetupRoutes_AdminCommandsRequireToken(t *testing.T) {
	deps := &Dependencies{
		Lifecycle:      &stubLifecycle{},
		AdminTokenHash: "$2a$12$thisisnotarealhashbutlongenoughtopassconfigvalid",
	}
	router := SetupRoutes(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/position/clear", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d without token, got %d", http.StatusUnauthorized, w.Code)
	}
}
