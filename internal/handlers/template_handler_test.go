package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
	"finsav/internal/pagination"
	"finsav/internal/services"
)

const testTemplateID = "0195f1a2-7c3d-7000-8000-00000000000e"

type mockTemplateService struct {
	ensureSystemFn    func() error
	getTemplatesFn    func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTemplate], error)
	getTemplateByIDFn func(userID, templateID string) (*models.BudgetTemplate, error)
	createTemplateFn  func(userID, name, description string, categories []services.TemplateCategoryInput) (*models.BudgetTemplate, error)
	updateTemplateFn  func(userID, templateID string, update services.TemplateUpdate) (*models.BudgetTemplate, error)
	deleteTemplateFn  func(userID, templateID string) error
	instantiateFn     func(userID, templateID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error)
	saveAsTemplateFn  func(userID, budgetID, name, description string) (*models.BudgetTemplate, error)
}

func (m *mockTemplateService) EnsureSystemTemplates() error {
	if m.ensureSystemFn != nil {
		return m.ensureSystemFn()
	}
	return nil
}

func (m *mockTemplateService) GetTemplates(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTemplate], error) {
	if m.getTemplatesFn != nil {
		return m.getTemplatesFn(userID, page)
	}
	return &pagination.PageResponse[models.BudgetTemplate]{Data: []models.BudgetTemplate{}, Page: 1, PageSize: 20}, nil
}

func (m *mockTemplateService) GetTemplateByID(userID, templateID string) (*models.BudgetTemplate, error) {
	if m.getTemplateByIDFn != nil {
		return m.getTemplateByIDFn(userID, templateID)
	}
	return &models.BudgetTemplate{Base: models.Base{ID: templateID}, Name: "50-30-20 Rule"}, nil
}

func (m *mockTemplateService) CreateTemplate(userID, name, description string, categories []services.TemplateCategoryInput) (*models.BudgetTemplate, error) {
	if m.createTemplateFn != nil {
		return m.createTemplateFn(userID, name, description, categories)
	}
	return &models.BudgetTemplate{Base: models.Base{ID: testTemplateID}, Name: name, Description: description}, nil
}

func (m *mockTemplateService) UpdateTemplate(userID, templateID string, update services.TemplateUpdate) (*models.BudgetTemplate, error) {
	if m.updateTemplateFn != nil {
		return m.updateTemplateFn(userID, templateID, update)
	}
	return &models.BudgetTemplate{Base: models.Base{ID: templateID}}, nil
}

func (m *mockTemplateService) DeleteTemplate(userID, templateID string) error {
	if m.deleteTemplateFn != nil {
		return m.deleteTemplateFn(userID, templateID)
	}
	return nil
}

func (m *mockTemplateService) CreateBudgetFromTemplate(userID, templateID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error) {
	if m.instantiateFn != nil {
		return m.instantiateFn(userID, templateID, name, totalBudget, period, startDate)
	}
	return &models.Budget{Base: models.Base{ID: testBudgetID}, UserID: userID, Name: name, TotalBudget: totalBudget}, nil
}

func (m *mockTemplateService) SaveBudgetAsTemplate(userID, budgetID, name, description string) (*models.BudgetTemplate, error) {
	if m.saveAsTemplateFn != nil {
		return m.saveAsTemplateFn(userID, budgetID, name, description)
	}
	return &models.BudgetTemplate{Base: models.Base{ID: testTemplateID}, Name: name}, nil
}

var _ services.TemplateServicer = (*mockTemplateService)(nil)

func setupTemplateRouter(handler *TemplateHandler) *gin.Engine {
	r := gin.New()
	authed := r.Group("", injectUserID(testUserID))
	authed.GET("/templates", handler.GetTemplates)
	authed.GET("/templates/:id", handler.GetTemplate)
	authed.POST("/templates", handler.CreateTemplate)
	authed.PUT("/templates/:id", handler.UpdateTemplate)
	authed.DELETE("/templates/:id", handler.DeleteTemplate)
	authed.POST("/templates/:id/budgets", handler.CreateBudgetFromTemplate)
	authed.POST("/budgets/:id/save-as-template", handler.SaveBudgetAsTemplate)
	return r
}

func TestTemplateHandler_GetTemplates(t *testing.T) {
	svc := &mockTemplateService{
		getTemplatesFn: func(_ string, _ pagination.PageRequest) (*pagination.PageResponse[models.BudgetTemplate], error) {
			return &pagination.PageResponse[models.BudgetTemplate]{
				Data:       []models.BudgetTemplate{{Base: models.Base{ID: testTemplateID}, Name: "Envelope System"}},
				TotalItems: 1,
				Page:       1,
				PageSize:   20,
			}, nil
		},
	}
	handler := NewTemplateHandler(svc, &mockAuditService{})
	r := setupTemplateRouter(handler)

	rec := doRequest(r, "GET", "/templates", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	items := result["data"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 template, got %d", len(items))
	}
}

func TestTemplateHandler_GetTemplate(t *testing.T) {
	t.Run("returns the template", func(t *testing.T) {
		handler := NewTemplateHandler(&mockTemplateService{}, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "GET", "/templates/"+testTemplateID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		template := result["template"].(map[string]interface{})
		if template["name"] != "50-30-20 Rule" {
			t.Errorf("unexpected template payload: %v", template)
		}
	})

	t.Run("returns 404 when not visible", func(t *testing.T) {
		svc := &mockTemplateService{
			getTemplateByIDFn: func(_, _ string) (*models.BudgetTemplate, error) {
				return nil, apperrors.ErrTemplateNotFound
			},
		}
		handler := NewTemplateHandler(svc, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "GET", "/templates/"+testTemplateID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TEMPLATE_NOT_FOUND")
	})
}

func TestTemplateHandler_CreateTemplate(t *testing.T) {
	t.Run("returns 201 with nested categories", func(t *testing.T) {
		var gotCategories []services.TemplateCategoryInput
		svc := &mockTemplateService{
			createTemplateFn: func(_, name, description string, categories []services.TemplateCategoryInput) (*models.BudgetTemplate, error) {
				gotCategories = categories
				return &models.BudgetTemplate{Base: models.Base{ID: testTemplateID}, Name: name}, nil
			},
		}
		handler := NewTemplateHandler(svc, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "POST", "/templates", `{
			"name": "My Split",
			"description": "Custom allocation",
			"categories": [
				{"name": "Needs", "percentage": 60, "group": "Essential",
				 "subcategories": [{"name": "Housing", "percentage": 30}]},
				{"name": "Wants", "percentage": 40, "group": "Non-essential"}
			]
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(gotCategories) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(gotCategories))
		}
		if len(gotCategories[0].Subcategories) != 1 || gotCategories[0].Subcategories[0].Name != "Housing" {
			t.Errorf("expected nested subcategory, got %+v", gotCategories[0])
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		handler := NewTemplateHandler(&mockTemplateService{}, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "POST", "/templates", `{"description":"no name"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTemplateHandler_UpdateTemplate(t *testing.T) {
	t.Run("nil categories leaves list unchanged", func(t *testing.T) {
		var gotUpdate services.TemplateUpdate
		svc := &mockTemplateService{
			updateTemplateFn: func(_, templateID string, update services.TemplateUpdate) (*models.BudgetTemplate, error) {
				gotUpdate = update
				return &models.BudgetTemplate{Base: models.Base{ID: templateID}}, nil
			},
		}
		handler := NewTemplateHandler(svc, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "PUT", "/templates/"+testTemplateID, `{"name":"Renamed"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUpdate.Name == nil || *gotUpdate.Name != "Renamed" {
			t.Errorf("expected name update, got %+v", gotUpdate)
		}
		if gotUpdate.Categories != nil {
			t.Errorf("expected nil categories, got %+v", gotUpdate.Categories)
		}
	})

	t.Run("system templates are read only", func(t *testing.T) {
		svc := &mockTemplateService{
			updateTemplateFn: func(_, _ string, _ services.TemplateUpdate) (*models.BudgetTemplate, error) {
				return nil, apperrors.ErrTemplateReadOnly
			},
		}
		handler := NewTemplateHandler(svc, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "PUT", "/templates/"+testTemplateID, `{"name":"Hijacked"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TEMPLATE_READ_ONLY")
	})
}

func TestTemplateHandler_DeleteTemplate(t *testing.T) {
	handler := NewTemplateHandler(&mockTemplateService{}, &mockAuditService{})
	r := setupTemplateRouter(handler)

	rec := doRequest(r, "DELETE", "/templates/"+testTemplateID, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTemplateHandler_CreateBudgetFromTemplate(t *testing.T) {
	t.Run("returns 201 with the new budget", func(t *testing.T) {
		var gotTotal float64
		svc := &mockTemplateService{
			instantiateFn: func(_, _, name string, totalBudget float64, _ models.BudgetPeriod, _ time.Time) (*models.Budget, error) {
				gotTotal = totalBudget
				return &models.Budget{Base: models.Base{ID: testBudgetID}, Name: name, TotalBudget: totalBudget}, nil
			},
		}
		handler := NewTemplateHandler(svc, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "POST", "/templates/"+testTemplateID+"/budgets", `{
			"name": "April",
			"total_budget": 3000,
			"period": "monthly",
			"start_date": "2025-04-01T00:00:00Z"
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotTotal != 3000 {
			t.Errorf("expected total 3000, got %v", gotTotal)
		}
	})

	t.Run("rejects missing period", func(t *testing.T) {
		handler := NewTemplateHandler(&mockTemplateService{}, &mockAuditService{})
		r := setupTemplateRouter(handler)

		rec := doRequest(r, "POST", "/templates/"+testTemplateID+"/budgets", `{
			"name": "April",
			"total_budget": 3000,
			"start_date": "2025-04-01T00:00:00Z"
		}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTemplateHandler_SaveBudgetAsTemplate(t *testing.T) {
	var gotName, gotDescription string
	svc := &mockTemplateService{
		saveAsTemplateFn: func(_, _, name, description string) (*models.BudgetTemplate, error) {
			gotName, gotDescription = name, description
			return &models.BudgetTemplate{Base: models.Base{ID: testTemplateID}, Name: name}, nil
		},
	}
	handler := NewTemplateHandler(svc, &mockAuditService{})
	r := setupTemplateRouter(handler)

	rec := doRequest(r, "POST", "/budgets/"+testBudgetID+"/save-as-template", `{}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotName != "" || gotDescription != "" {
		t.Errorf("expected empty name and description to pass through for defaulting, got %q/%q", gotName, gotDescription)
	}
}
