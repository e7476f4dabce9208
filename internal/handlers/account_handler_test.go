package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/services"
	"kasku/internal/session"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn     func(id session.Identity, input services.CreateAccountInput) (*services.AccountSummary, error)
	listAccountsFn      func(id session.Identity) ([]services.AccountSummary, error)
	checkSlugFn         func(slug string) (string, bool, error)
	getDefaultAccountFn func(id session.Identity) (*services.AccountSummary, error)
	setDefaultAccountFn func(id session.Identity, slug string) (*services.AccountSummary, error)
	getAccountFn        func(ac *services.AccountContext) (*services.AccountDetail, error)
	updateAccountFn     func(ac *services.AccountContext, input services.UpdateAccountInput) (*models.Account, error)
}

func (m *mockAccountService) CreateAccount(_ context.Context, id session.Identity, input services.CreateAccountInput) (*services.AccountSummary, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(id, input)
	}
	return &services.AccountSummary{}, nil
}

func (m *mockAccountService) ListAccounts(_ context.Context, id session.Identity) ([]services.AccountSummary, error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(id)
	}
	return []services.AccountSummary{}, nil
}

func (m *mockAccountService) CheckSlug(_ context.Context, slug string) (string, bool, error) {
	if m.checkSlugFn != nil {
		return m.checkSlugFn(slug)
	}
	return slug, true, nil
}

func (m *mockAccountService) GetDefaultAccount(_ context.Context, id session.Identity) (*services.AccountSummary, error) {
	if m.getDefaultAccountFn != nil {
		return m.getDefaultAccountFn(id)
	}
	return nil, apperrors.ErrNoDefault
}

func (m *mockAccountService) SetDefaultAccount(_ context.Context, id session.Identity, slug string) (*services.AccountSummary, error) {
	if m.setDefaultAccountFn != nil {
		return m.setDefaultAccountFn(id, slug)
	}
	return &services.AccountSummary{}, nil
}

func (m *mockAccountService) GetAccount(_ context.Context, ac *services.AccountContext) (*services.AccountDetail, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ac)
	}
	return &services.AccountDetail{Account: ac.Account, MemberID: ac.MemberID, Role: ac.Role}, nil
}

func (m *mockAccountService) UpdateAccount(_ context.Context, ac *services.AccountContext, input services.UpdateAccountInput) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(ac, input)
	}
	account := ac.Account
	return &account, nil
}

var _ services.AccountServicer = (*mockAccountService)(nil)

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/accounts", injectIdentity(testIdentity))
	auth.POST("", handler.CreateAccount)
	auth.GET("", handler.ListAccounts)
	auth.GET("/check-slug", handler.CheckSlug)
	auth.GET("/default", handler.GetDefaultAccount)
	auth.POST("/default", handler.SetDefaultAccount)
	scoped := r.Group("/keluarga", injectAccount(testAccountContext()))
	scoped.GET("", handler.GetAccount)
	scoped.PATCH("", handler.UpdateAccount)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockAccountService{createAccountFn: func(id session.Identity, input services.CreateAccountInput) (*services.AccountSummary, error) {
			if id.UserID != "user-1" {
				t.Errorf("expected caller user-1, got %s", id.UserID)
			}
			return &services.AccountSummary{
				Account:   models.Account{Base: models.Base{ID: "account-9"}, Slug: "kas-keluarga", Name: input.Name},
				Role:      models.MemberRoleOwner,
				IsDefault: true,
			}, nil
		}}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Kas Keluarga"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		account := parseJSON(t, rec)["account"].(map[string]interface{})
		if account["slug"] != "kas-keluarga" || account["role"] != "owner" || account["isDefault"] != true {
			t.Errorf("unexpected account %v", account)
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"slug":"kas"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 409 when slug taken", func(t *testing.T) {
		svc := &mockAccountService{createAccountFn: func(session.Identity, services.CreateAccountInput) (*services.AccountSummary, error) {
			return nil, apperrors.ErrSlugTaken
		}}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Kas","slug":"kas-keluarga"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SLUG_TAKEN")
	})
}

func TestAccountHandler_CheckSlug(t *testing.T) {
	t.Run("reports availability", func(t *testing.T) {
		svc := &mockAccountService{checkSlugFn: func(slug string) (string, bool, error) {
			return "kas-keluarga", false, nil
		}}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/check-slug?slug=Kas-Keluarga", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["slug"] != "kas-keluarga" || result["available"] != false {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("invalid slug is unavailable", func(t *testing.T) {
		svc := &mockAccountService{checkSlugFn: func(slug string) (string, bool, error) {
			return slug, false, apperrors.ErrInvalidSlug
		}}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/check-slug?slug=a", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["available"] != false || result["message"] == nil {
			t.Errorf("expected unavailable with message, got %v", result)
		}
	})

	t.Run("missing slug is 400", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/check-slug", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_Default(t *testing.T) {
	t.Run("no default is 404", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/default", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_DEFAULT_ACCOUNT")
	})

	t.Run("set default passes the slug", func(t *testing.T) {
		var got string
		svc := &mockAccountService{setDefaultAccountFn: func(_ session.Identity, slug string) (*services.AccountSummary, error) {
			got = slug
			return &services.AccountSummary{Account: models.Account{Slug: slug}, IsDefault: true}, nil
		}}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts/default", `{"slug":"kantor"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got != "kantor" {
			t.Errorf("expected kantor, got %q", got)
		}
	})
}

func TestAccountHandler_GetAndUpdate(t *testing.T) {
	t.Run("get returns the detail", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/keluarga", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["role"] != "owner" || result["memberId"] != "0192f1a0-7c3e-7b10-8a4d-000000000501" {
			t.Errorf("unexpected detail %v", result)
		}
	})

	t.Run("update is audited", func(t *testing.T) {
		audit := &mockAuditService{}
		svc := &mockAccountService{updateAccountFn: func(ac *services.AccountContext, input services.UpdateAccountInput) (*models.Account, error) {
			account := ac.Account
			account.Name = *input.Name
			return &account, nil
		}}
		r := setupAccountRouter(NewAccountHandler(svc, audit))

		rec := doRequest(r, "PATCH", "/keluarga", `{"name":"Keluarga Besar"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		account := parseJSON(t, rec)["account"].(map[string]interface{})
		if account["name"] != "Keluarga Besar" {
			t.Errorf("expected updated name, got %v", account["name"])
		}
		if actions := audit.actions(); len(actions) != 1 || actions[0] != "UPDATE_ACCOUNT" {
			t.Errorf("expected UPDATE_ACCOUNT audit, got %v", actions)
		}
	})
}
