package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"kasku/internal/logger"
	"kasku/internal/middleware"
	"kasku/internal/models"
	"kasku/internal/services"
	"kasku/internal/session"
	"kasku/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
	logger.Init("test")
}

// --- mock audit service ---

type auditCall struct {
	Action       string
	ResourceType string
	ResourceID   string
	Changes      map[string]any
}

type mockAuditService struct {
	mu    sync.Mutex
	calls []auditCall
}

func (m *mockAuditService) Log(_ context.Context, _ *services.AccountContext, action, resourceType, resourceID, _ string, changes map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, auditCall{Action: action, ResourceType: resourceType, ResourceID: resourceID, Changes: changes})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Action
	}
	return out
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

var testIdentity = session.Identity{UserID: "user-1", Email: "owner@test.com", Name: "Owner"}

func testAccountContext() *services.AccountContext {
	return &services.AccountContext{
		Account:  models.Account{Base: models.Base{ID: "account-1"}, Slug: "keluarga", Name: "Keluarga"},
		MemberID: "0192f1a0-7c3e-7b10-8a4d-000000000501",
		Role:     models.MemberRoleOwner,
		Identity: testIdentity,
	}
}

func injectIdentity(id session.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, &id)
		c.Set(middleware.TokenKey, "token-"+id.UserID)
		c.Next()
	}
}

func injectAccount(ac *services.AccountContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, &ac.Identity)
		c.Set(middleware.AccountContextKey, ac)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	if _, ok := result["error"].(string); !ok {
		t.Fatalf("expected error message in response, got: %v", result)
	}
	if result["code"] != code {
		t.Errorf("expected error code %q, got %q", code, result["code"])
	}
}
