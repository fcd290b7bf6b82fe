package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
	"finsav/internal/pagination"
	"finsav/internal/services"
)

// TemplateHandler handles budget template requests.
type TemplateHandler struct {
	templateService services.TemplateServicer
	auditService    services.AuditServicer
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService services.TemplateServicer, auditService services.AuditServicer) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, auditService: auditService}
}

// TemplateSubcategoryRequest represents one subcategory in a template payload.
type TemplateSubcategoryRequest struct {
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	Percentage float64 `json:"percentage" binding:"gte=0"`
	Color      string  `json:"color" binding:"omitempty,hex_color"`
}

// TemplateCategoryRequest represents one category in a template payload.
type TemplateCategoryRequest struct {
	Name          string                       `json:"name" binding:"required,min=1,max=100"`
	Percentage    float64                      `json:"percentage" binding:"gte=0"`
	Group         models.CategoryGroup         `json:"group" binding:"omitempty,category_group"`
	Color         string                       `json:"color" binding:"omitempty,hex_color"`
	Subcategories []TemplateSubcategoryRequest `json:"subcategories" binding:"omitempty,dive"`
}

// CreateTemplateRequest represents the request payload for creating a template.
type CreateTemplateRequest struct {
	Name        string                    `json:"name" binding:"required,min=1,max=100"`
	Description string                    `json:"description" binding:"max=500"`
	Categories  []TemplateCategoryRequest `json:"categories" binding:"omitempty,dive"`
}

// UpdateTemplateRequest represents the request payload for updating a template.
type UpdateTemplateRequest struct {
	Name        *string                   `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string                   `json:"description" binding:"omitempty,max=500"`
	Categories  []TemplateCategoryRequest `json:"categories" binding:"omitempty,dive"`
}

// InstantiateTemplateRequest represents the payload for creating a budget
// from a template.
type InstantiateTemplateRequest struct {
	Name        string              `json:"name" binding:"required,min=1,max=100"`
	TotalBudget float64             `json:"total_budget" binding:"gte=0"`
	Period      models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	StartDate   time.Time           `json:"start_date" binding:"required"`
}

// SaveAsTemplateRequest represents the payload for deriving a template
// from a budget. Both fields default from the budget's name.
type SaveAsTemplateRequest struct {
	Name        string `json:"name" binding:"omitempty,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

func templateCategoryInputs(reqs []TemplateCategoryRequest) []services.TemplateCategoryInput {
	inputs := make([]services.TemplateCategoryInput, 0, len(reqs))
	for _, r := range reqs {
		in := services.TemplateCategoryInput{
			Name:       r.Name,
			Percentage: r.Percentage,
			Group:      r.Group,
			Color:      r.Color,
		}
		for _, sub := range r.Subcategories {
			in.Subcategories = append(in.Subcategories, services.TemplateSubcategoryInput{
				Name:       sub.Name,
				Percentage: sub.Percentage,
				Color:      sub.Color,
			})
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// GetTemplates handles listing templates visible to the user.
// @Summary     Get templates
// @Description Get system templates plus the user's custom templates
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetTemplate] "Paginated templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates [get]
func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.templateService.GetTemplates(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTemplate handles fetching a single template.
// @Summary     Get a template
// @Description Get a template by ID
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.BudgetTemplate "Template"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	template, err := h.templateService.GetTemplateByID(userID, templateID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// CreateTemplate handles creating a custom template.
// @Summary     Create a template
// @Description Create a custom budget template
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTemplateRequest true "Template details"
// @Success     201 {object} models.BudgetTemplate "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	template, err := h.templateService.CreateTemplate(userID, req.Name, req.Description, templateCategoryInputs(req.Categories))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TEMPLATE", "template", template.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name})

	c.JSON(http.StatusCreated, gin.H{"template": template})
}

// UpdateTemplate handles updating a custom template.
// @Summary     Update a template
// @Description Update a custom template; system templates are read-only
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Template ID"
// @Param       request body UpdateTemplateRequest true "Fields to update"
// @Success     200 {object} models.BudgetTemplate "Updated template"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "System template"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.TemplateUpdate{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Categories != nil {
		update.Categories = templateCategoryInputs(req.Categories)
	}

	template, err := h.templateService.UpdateTemplate(userID, templateID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TEMPLATE", "template", templateID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// DeleteTemplate handles deleting a custom template.
// @Summary     Delete a template
// @Description Delete a custom template; system templates are read-only
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "System template"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.templateService.DeleteTemplate(userID, templateID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TEMPLATE", "template", templateID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

// CreateBudgetFromTemplate handles instantiating a template into a budget.
// @Summary     Create budget from template
// @Description Expand a template's percentage allocations into a budget at the given total
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                     true "Template ID"
// @Param       request body InstantiateTemplateRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /templates/{id}/budgets [post]
func (h *TemplateHandler) CreateBudgetFromTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InstantiateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.templateService.CreateBudgetFromTemplate(userID, templateID, req.Name, req.TotalBudget, req.Period, req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_BUDGET_FROM_TEMPLATE", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"template_id": templateID, "total_budget": req.TotalBudget})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// SaveBudgetAsTemplate handles deriving a template from a budget.
// @Summary     Save budget as template
// @Description Derive a custom template from a budget's category limits
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Budget ID"
// @Param       request body SaveAsTemplateRequest true "Template name and description"
// @Success     201 {object} models.BudgetTemplate "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/save-as-template [post]
func (h *TemplateHandler) SaveBudgetAsTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SaveAsTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	template, err := h.templateService.SaveBudgetAsTemplate(userID, budgetID, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SAVE_BUDGET_AS_TEMPLATE", "template", template.ID, c.ClientIP(),
		map[string]interface{}{"budget_id": budgetID})

	c.JSON(http.StatusCreated, gin.H{"template": template})
}
