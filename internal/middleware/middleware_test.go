package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/logger"
	"kasku/internal/models"
	"kasku/internal/services"
	"kasku/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

type stubResolver map[string]*session.Identity

func (s stubResolver) Resolve(_ context.Context, token string) (*session.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return nil, apperrors.ErrUnauthorized
}

type stubAccess struct {
	fn func(id *session.Identity, slug string, requireOwner bool) (*services.AccountContext, error)
}

func (s *stubAccess) ResolveAccountContext(_ context.Context, id *session.Identity, slug string, requireOwner bool) (*services.AccountContext, error) {
	return s.fn(id, slug, requireOwner)
}

var _ services.AccessServicer = (*stubAccess)(nil)

var alice = &session.Identity{UserID: "user-1", Email: "alice@test.com", Name: "Alice"}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func assertCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	body := parseBody(t, rec)
	if body["code"] != code {
		t.Errorf("expected code %q, got %v", code, body["code"])
	}
	if _, ok := body["error"].(string); !ok {
		t.Errorf("expected string error message, got %v", body["error"])
	}
}

func TestRequireAuth(t *testing.T) {
	r := gin.New()
	r.Use(Authenticate(stubResolver{"good": alice}))
	r.GET("/me", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetIdentity(c).UserID})
	})

	t.Run("valid_token", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/me", "good")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseBody(t, rec)["userId"] != "user-1" {
			t.Errorf("expected identity of user-1, got %s", rec.Body.String())
		}
	})

	t.Run("missing_token", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodGet, "/me", ""), http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("invalid_token", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodGet, "/me", "forged"), http.StatusUnauthorized, "UNAUTHORIZED")
	})
}

func TestAccountAccess(t *testing.T) {
	access := &stubAccess{fn: func(id *session.Identity, slug string, requireOwner bool) (*services.AccountContext, error) {
		if slug != "keluarga" {
			return nil, apperrors.ErrAccountNotFound
		}
		if id == nil {
			return nil, apperrors.ErrUnauthorized
		}
		if requireOwner && id.UserID != "user-1" {
			return nil, apperrors.ErrOwnerRequired
		}
		return &services.AccountContext{
			Account:  models.Account{Slug: slug},
			MemberID: "member-" + id.UserID,
			Role:     models.MemberRoleOwner,
			Identity: *id,
		}, nil
	}}

	bob := &session.Identity{UserID: "user-2", Email: "bob@test.com"}
	r := gin.New()
	r.Use(Authenticate(stubResolver{"alice": alice, "bob": bob}))
	scoped := r.Group("/api/:account")
	scoped.GET("/wallets", AccountAccess(access, false), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"memberId": GetAccountContext(c).MemberID})
	})
	scoped.POST("/wallets/transfer", AccountAccess(access, true), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("member_resolves", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/api/keluarga/wallets", "bob")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseBody(t, rec)["memberId"] != "member-user-2" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("unknown_account_before_session", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodGet, "/api/nope/wallets", ""), http.StatusNotFound, "ACCOUNT_NOT_FOUND")
	})

	t.Run("no_session", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodGet, "/api/keluarga/wallets", ""), http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("owner_required", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodPost, "/api/keluarga/wallets/transfer", "bob"), http.StatusForbidden, "OWNER_REQUIRED")
	})

	t.Run("owner_passes", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/keluarga/wallets/transfer", "alice")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.Wrap(apperrors.ErrWalletNotFound, errors.New("record not found")))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("connection reset"))
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("app_error", func(t *testing.T) {
		assertCode(t, doRequest(r, http.MethodGet, "/app", ""), http.StatusNotFound, "WALLET_NOT_FOUND")
	})

	t.Run("unexpected_error_is_generic", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/plain", "")
		assertCode(t, rec, http.StatusInternalServerError, "INTERNAL_ERROR")
		if parseBody(t, rec)["error"] != apperrors.ErrInternalServer.Message {
			t.Errorf("internal detail leaked: %s", rec.Body.String())
		}
	})

	t.Run("no_error", func(t *testing.T) {
		if rec := doRequest(r, http.MethodGet, "/ok", ""); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://kasku.app"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("preflight", func(t *testing.T) {
		rec := doRequest(r, http.MethodOptions, "/ping", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://kasku.app" {
			t.Errorf("unexpected allow origin %q", got)
		}
	})

	t.Run("simple_request", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/ping", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("Vary") != "Origin" {
			t.Errorf("expected Vary: Origin")
		}
	})
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/api/:account", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generates_request_id", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/api/keluarga", "")
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("echoes_incoming_request_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/keluarga", http.NoBody)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
			t.Errorf("expected abc-123, got %q", got)
		}
	})
}
