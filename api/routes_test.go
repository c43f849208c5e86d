package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garnizeh/hnjobs/api"
	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
	"github.com/garnizeh/hnjobs/pkg/repository/mock"
	"github.com/golang-jwt/jwt/v5"
)

func newTestRouter(mocks *mock.Mocks) http.Handler {
	cfg := &config.Config{JWTSecret: "testsecret", TokenDuration: time.Hour}
	repo := &repository.Repository{
		Story:   mocks.Stories,
		Comment: mocks.Comments,
		Admin:   mocks.Admins,
		Schema:  mocks.Schemas,
	}
	return api.SetupRoutes(cfg, "test", "now", repo, mocks.Queue, nil, nil)
}

func TestRoutesPublicEndpoints(t *testing.T) {
	router := newTestRouter(mock.NewMocks())

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/v1/jobs?month=2025-08", http.StatusOK},
		{http.MethodGet, "/v1/comments?hn_id=123", http.StatusNotFound},
		{http.MethodGet, "/v1/stories/12345", http.StatusNotFound},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != c.want {
			t.Fatalf("%s %s: expected %d got %d body=%s", c.method, c.path, c.want, w.Code, w.Body.String())
		}
	}
}

func TestRoutesAdminRequiresToken(t *testing.T) {
	router := newTestRouter(mock.NewMocks())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/admin/sync/42"},
		{http.MethodPost, "/v1/admin/process"},
		{http.MethodPut, "/v1/admin/comments/1/status"},
		{http.MethodGet, "/v1/admin/schemas"},
		{http.MethodGet, "/v1/admin/schemas/v1"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token got %d", p.method, p.path, w.Code)
		}
	}
}

func TestRoutesAdminSchemaByVersion(t *testing.T) {
	mocks := mock.NewMocks()
	if _, err := mocks.Schemas.CreateSchema(context.Background(), "v1", "default", `{"type":"object"}`); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	router := newTestRouter(mocks)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@b", "exp": time.Now().Add(time.Hour).Unix()})
	tokStr, err := token.SignedString([]byte("testsecret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/schemas/v1", nil)
	req.Header.Set("Authorization", "Bearer "+tokStr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var got models.Schema
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	if got.Version != "v1" {
		t.Fatalf("unexpected schema: %+v", got)
	}
}
