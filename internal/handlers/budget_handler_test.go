package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	listBudgetsFn       func(ac *services.AccountContext, period *models.BudgetPeriod) ([]models.Budget, error)
	createBudgetFn      func(ac *services.AccountContext, input services.CreateBudgetInput) (*models.Budget, error)
	updateBudgetFn      func(ac *services.AccountContext, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error)
	deleteBudgetFn      func(ac *services.AccountContext, budgetID string) error
	getBudgetProgressFn func(ac *services.AccountContext, budgetID string) (*services.BudgetProgress, error)
}

func (m *mockBudgetService) ListBudgets(_ context.Context, ac *services.AccountContext, period *models.BudgetPeriod) ([]models.Budget, error) {
	if m.listBudgetsFn != nil {
		return m.listBudgetsFn(ac, period)
	}
	return []models.Budget{}, nil
}

func (m *mockBudgetService) CreateBudget(_ context.Context, ac *services.AccountContext, input services.CreateBudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(ac, input)
	}
	return &models.Budget{Base: models.Base{ID: "0192f1a0-7c3e-7b10-8a4d-000000000301"}, Category: input.Category, Amount: input.Amount, Period: input.Period}, nil
}

func (m *mockBudgetService) UpdateBudget(_ context.Context, ac *services.AccountContext, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(ac, budgetID, input)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}}, nil
}

func (m *mockBudgetService) DeleteBudget(_ context.Context, ac *services.AccountContext, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(ac, budgetID)
	}
	return nil
}

func (m *mockBudgetService) GetBudgetProgress(_ context.Context, ac *services.AccountContext, budgetID string) (*services.BudgetProgress, error) {
	if m.getBudgetProgressFn != nil {
		return m.getBudgetProgressFn(ac, budgetID)
	}
	return &services.BudgetProgress{BudgetID: budgetID}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	scoped := r.Group("/keluarga", injectAccount(testAccountContext()))
	scoped.GET("/budgets", handler.ListBudgets)
	scoped.POST("/budgets", handler.CreateBudget)
	scoped.PATCH("/budgets/:id", handler.UpdateBudget)
	scoped.DELETE("/budgets/:id", handler.DeleteBudget)
	scoped.GET("/budgets/:id/progress", handler.GetBudgetProgress)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/keluarga/budgets",
			`{"category":"Makan","amount":1500000,"period":"monthly","startDate":"2025-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["category"] != "Makan" || budget["amount"] != "1500000" {
			t.Errorf("unexpected budget %v", budget)
		}
	})

	t.Run("returns 400 on missing category", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/keluarga/budgets", `{"amount":1,"startDate":"2025-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing start date", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/keluarga/budgets", `{"category":"Makan","amount":1}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown period or status", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		for _, body := range []string{
			`{"category":"Makan","amount":1,"period":"daily","startDate":"2025-01-01T00:00:00Z"}`,
			`{"category":"Makan","amount":1,"status":"fine","startDate":"2025-01-01T00:00:00Z"}`,
		} {
			if rec := doRequest(r, "POST", "/keluarga/budgets", body); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", body, rec.Code)
			}
		}
	})
}

func TestBudgetHandler_ListBudgets(t *testing.T) {
	t.Run("filters by period", func(t *testing.T) {
		var got *models.BudgetPeriod
		svc := &mockBudgetService{listBudgetsFn: func(_ *services.AccountContext, period *models.BudgetPeriod) ([]models.Budget, error) {
			got = period
			return []models.Budget{{Category: "Makan"}}, nil
		}}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/keluarga/budgets?period=weekly", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got == nil || *got != models.BudgetPeriodWeekly {
			t.Errorf("expected weekly filter, got %v", got)
		}
		if budgets := parseJSON(t, rec)["budgets"].([]interface{}); len(budgets) != 1 {
			t.Errorf("expected 1 budget, got %d", len(budgets))
		}
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/keluarga/budgets?period=daily", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_Progress(t *testing.T) {
	t.Run("returns progress", func(t *testing.T) {
		svc := &mockBudgetService{getBudgetProgressFn: func(_ *services.AccountContext, budgetID string) (*services.BudgetProgress, error) {
			return &services.BudgetProgress{
				BudgetID:   budgetID,
				Budgeted:   decimal.NewFromInt(1000),
				Spent:      decimal.NewFromInt(900),
				Remaining:  decimal.NewFromInt(100),
				Percentage: 90,
				Status:     models.BudgetStatusWarning,
			}, nil
		}}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/keluarga/budgets/0192f1a0-7c3e-7b10-8a4d-000000000301/progress", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		progress := parseJSON(t, rec)["progress"].(map[string]interface{})
		if progress["status"] != "warning" || progress["percentage"].(float64) != 90 {
			t.Errorf("unexpected progress %v", progress)
		}
	})

	t.Run("foreign budget is 404", func(t *testing.T) {
		svc := &mockBudgetService{getBudgetProgressFn: func(*services.AccountContext, string) (*services.BudgetProgress, error) {
			return nil, apperrors.ErrBudgetNotFound
		}}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/keluarga/budgets/0192f1a0-7c3e-7b10-8a4d-0000000003ff/progress", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update passes only given fields", func(t *testing.T) {
		var got services.UpdateBudgetInput
		svc := &mockBudgetService{updateBudgetFn: func(_ *services.AccountContext, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error) {
			got = input
			return &models.Budget{Base: models.Base{ID: budgetID}}, nil
		}}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/keluarga/budgets/0192f1a0-7c3e-7b10-8a4d-000000000301", `{"amount":2000}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.Amount == nil || !got.Amount.Equal(decimal.NewFromInt(2000)) {
			t.Errorf("expected amount 2000, got %v", got.Amount)
		}
		if got.Category != nil || got.Period != nil || got.Status != nil {
			t.Errorf("unexpected fields set: %+v", got)
		}
	})

	t.Run("delete returns success indicator", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, "DELETE", "/keluarga/budgets/0192f1a0-7c3e-7b10-8a4d-000000000301", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["success"] != true {
			t.Error("expected success true")
		}
		if actions := audit.actions(); len(actions) != 1 || actions[0] != "DELETE_BUDGET" {
			t.Errorf("expected DELETE_BUDGET audit, got %v", actions)
		}
	})
}
