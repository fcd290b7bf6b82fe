package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
	"finsav/internal/pagination"
	"finsav/internal/uuid"
)

type templateService struct {
	db *gorm.DB
}

// NewTemplateService creates a new budget template service backed by the
// given database.
func NewTemplateService(db *gorm.DB) TemplateServicer {
	return &templateService{db: db}
}

// seedTemplate is a declarative fixture for one built-in template.
type seedTemplate struct {
	Name         string
	Description  string
	TemplateType models.TemplateType
	Categories   []TemplateCategoryInput
}

// systemTemplates defines the built-in budgeting methods seeded on startup.
var systemTemplates = []seedTemplate{
	{
		Name:         "50-30-20 Rule",
		Description:  "Allocate 50% of your income to needs, 30% to wants, and 20% to savings and debt repayment.",
		TemplateType: models.TemplateTypeFiftyThirty20,
		Categories: []TemplateCategoryInput{
			{Name: "Needs", Percentage: 50, Group: models.GroupEssential, Color: "#4caf50", Subcategories: []TemplateSubcategoryInput{
				{Name: "Housing", Percentage: 25, Color: "#81c784"},
				{Name: "Utilities", Percentage: 10, Color: "#a5d6a7"},
				{Name: "Groceries", Percentage: 10, Color: "#c8e6c9"},
				{Name: "Transportation", Percentage: 5, Color: "#e8f5e9"},
			}},
			{Name: "Wants", Percentage: 30, Group: models.GroupNonEssential, Color: "#2196f3", Subcategories: []TemplateSubcategoryInput{
				{Name: "Dining Out", Percentage: 10, Color: "#64b5f6"},
				{Name: "Entertainment", Percentage: 10, Color: "#90caf9"},
				{Name: "Shopping", Percentage: 5, Color: "#bbdefb"},
				{Name: "Subscriptions", Percentage: 5, Color: "#e3f2fd"},
			}},
			{Name: "Savings", Percentage: 20, Group: models.GroupSavings, Color: "#9c27b0", Subcategories: []TemplateSubcategoryInput{
				{Name: "Emergency Fund", Percentage: 10, Color: "#ba68c8"},
				{Name: "Retirement", Percentage: 5, Color: "#ce93d8"},
				{Name: "Debt Repayment", Percentage: 5, Color: "#e1bee7"},
			}},
		},
	},
	{
		Name:         "Zero-Based Budget",
		Description:  "Assign every dollar of your income to a specific category until your income minus expenses equals zero.",
		TemplateType: models.TemplateTypeZeroBased,
		Categories: []TemplateCategoryInput{
			{Name: "Housing", Percentage: 25, Group: models.GroupEssential, Color: "#4caf50", Subcategories: []TemplateSubcategoryInput{
				{Name: "Rent/Mortgage", Percentage: 20, Color: "#81c784"},
				{Name: "Home Maintenance", Percentage: 5, Color: "#a5d6a7"},
			}},
			{Name: "Utilities", Percentage: 10, Group: models.GroupEssential, Color: "#2196f3", Subcategories: []TemplateSubcategoryInput{
				{Name: "Electricity", Percentage: 3, Color: "#64b5f6"},
				{Name: "Water", Percentage: 2, Color: "#90caf9"},
				{Name: "Internet", Percentage: 3, Color: "#bbdefb"},
				{Name: "Phone", Percentage: 2, Color: "#e3f2fd"},
			}},
			{Name: "Food", Percentage: 15, Group: models.GroupEssential, Color: "#ff9800", Subcategories: []TemplateSubcategoryInput{
				{Name: "Groceries", Percentage: 10, Color: "#ffb74d"},
				{Name: "Dining Out", Percentage: 5, Color: "#ffe0b2"},
			}},
			{Name: "Transportation", Percentage: 10, Group: models.GroupEssential, Color: "#f44336", Subcategories: []TemplateSubcategoryInput{
				{Name: "Gas", Percentage: 5, Color: "#e57373"},
				{Name: "Car Maintenance", Percentage: 3, Color: "#ef9a9a"},
				{Name: "Public Transit", Percentage: 2, Color: "#ffcdd2"},
			}},
			{Name: "Personal", Percentage: 10, Group: models.GroupNonEssential, Color: "#9c27b0", Subcategories: []TemplateSubcategoryInput{
				{Name: "Clothing", Percentage: 3, Color: "#ba68c8"},
				{Name: "Entertainment", Percentage: 4, Color: "#ce93d8"},
				{Name: "Subscriptions", Percentage: 3, Color: "#e1bee7"},
			}},
			{Name: "Savings", Percentage: 20, Group: models.GroupSavings, Color: "#009688", Subcategories: []TemplateSubcategoryInput{
				{Name: "Emergency Fund", Percentage: 10, Color: "#4db6ac"},
				{Name: "Retirement", Percentage: 10, Color: "#80cbc4"},
			}},
			{Name: "Debt Repayment", Percentage: 10, Group: models.GroupSavings, Color: "#607d8b", Subcategories: []TemplateSubcategoryInput{
				{Name: "Credit Card", Percentage: 5, Color: "#90a4ae"},
				{Name: "Loans", Percentage: 5, Color: "#b0bec5"},
			}},
		},
	},
	{
		Name:         "Envelope System",
		Description:  "Divide your cash into different envelopes for specific spending categories.",
		TemplateType: models.TemplateTypeEnvelopeSystem,
		Categories: []TemplateCategoryInput{
			{Name: "Housing", Percentage: 30, Group: models.GroupEssential, Color: "#4caf50"},
			{Name: "Utilities", Percentage: 10, Group: models.GroupEssential, Color: "#2196f3"},
			{Name: "Groceries", Percentage: 15, Group: models.GroupEssential, Color: "#ff9800"},
			{Name: "Transportation", Percentage: 10, Group: models.GroupEssential, Color: "#f44336"},
			{Name: "Entertainment", Percentage: 5, Group: models.GroupNonEssential, Color: "#9c27b0"},
			{Name: "Dining Out", Percentage: 5, Group: models.GroupNonEssential, Color: "#e91e63"},
			{Name: "Clothing", Percentage: 5, Group: models.GroupNonEssential, Color: "#00bcd4"},
			{Name: "Savings", Percentage: 15, Group: models.GroupSavings, Color: "#009688"},
			{Name: "Miscellaneous", Percentage: 5, Group: models.GroupOther, Color: "#607d8b"},
		},
	},
}

// EnsureSystemTemplates seeds the built-in templates if none exist yet.
// Safe to call on every startup.
func (s *templateService) EnsureSystemTemplates() error {
	var count int64
	if err := s.db.Model(&models.BudgetTemplate{}).Where("kind = ?", models.TemplateKindSystem).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range systemTemplates {
			template := &models.BudgetTemplate{
				Name:         seed.Name,
				Description:  seed.Description,
				Kind:         models.TemplateKindSystem,
				TemplateType: seed.TemplateType,
				IsPublic:     true,
			}
			template.ID = uuid.New()
			if err := tx.Omit("Categories").Create(template).Error; err != nil {
				return err
			}
			if err := persistTemplateCategories(tx, template.ID, seed.Categories); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// persistTemplateCategories inserts a template's category rows and their
// subcategory rows.
func persistTemplateCategories(tx *gorm.DB, templateID string, inputs []TemplateCategoryInput) error {
	for _, in := range inputs {
		group := in.Group
		if group == "" {
			group = models.GroupOther
		}
		color := in.Color
		if color == "" {
			color = "#3f51b5"
		}
		category := models.TemplateCategory{
			TemplateID: templateID,
			Name:       in.Name,
			Percentage: in.Percentage,
			Group:      group,
			Color:      color,
		}
		category.ID = uuid.New()
		if err := tx.Omit("Subcategories").Create(&category).Error; err != nil {
			return err
		}
		for _, sub := range in.Subcategories {
			row := models.TemplateSubcategory{
				CategoryID: category.ID,
				Name:       sub.Name,
				Percentage: sub.Percentage,
				Color:      sub.Color,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// loadTemplate fetches a template visible to the user: any system
// template or one of the user's own.
func (s *templateService) loadTemplate(userID, templateID string) (*models.BudgetTemplate, error) {
	var template models.BudgetTemplate
	err := s.db.
		Preload("Categories").
		Preload("Categories.Subcategories").
		Where("id = ? AND (kind = ? OR user_id = ?)", templateID, models.TemplateKindSystem, userID).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrTemplateNotFound, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &template, nil
}

// GetTemplates returns a page of system templates plus the user's own,
// newest first.
func (s *templateService) GetTemplates(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTemplate], error) {
	page.Defaults()

	query := s.db.Model(&models.BudgetTemplate{}).
		Where("kind = ? OR user_id = ?", models.TemplateKindSystem, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var templates []models.BudgetTemplate
	err := query.
		Preload("Categories").
		Preload("Categories.Subcategories").
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&templates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(templates, page.Page, page.PageSize, total)
	return &resp, nil
}

func (s *templateService) GetTemplateByID(userID, templateID string) (*models.BudgetTemplate, error) {
	return s.loadTemplate(userID, templateID)
}

// CreateTemplate creates a custom template owned by the user.
func (s *templateService) CreateTemplate(userID, name, description string, categories []TemplateCategoryInput) (*models.BudgetTemplate, error) {
	for _, in := range categories {
		if in.Percentage < 0 {
			return nil, apperrors.ErrNegativeLimit
		}
		for _, sub := range in.Subcategories {
			if sub.Percentage < 0 {
				return nil, apperrors.ErrNegativeLimit
			}
		}
	}

	template := &models.BudgetTemplate{
		Name:         name,
		Description:  description,
		Kind:         models.TemplateKindCustom,
		TemplateType: models.TemplateTypeCustom,
		UserID:       &userID,
	}
	template.ID = uuid.New()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Create(template).Error; err != nil {
			return err
		}
		return persistTemplateCategories(tx, template.ID, categories)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.loadTemplate(userID, template.ID)
}

// UpdateTemplate modifies a custom template. System templates are
// read-only; supplying Categories replaces the whole category list.
func (s *templateService) UpdateTemplate(userID, templateID string, update TemplateUpdate) (*models.BudgetTemplate, error) {
	template, err := s.loadTemplate(userID, templateID)
	if err != nil {
		return nil, err
	}
	if template.Kind == models.TemplateKindSystem {
		return nil, apperrors.ErrTemplateReadOnly
	}

	if update.Name != nil {
		template.Name = *update.Name
	}
	if update.Description != nil {
		template.Description = *update.Description
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Save(template).Error; err != nil {
			return err
		}
		if update.Categories == nil {
			return nil
		}
		var categoryIDs []string
		for i := range template.Categories {
			categoryIDs = append(categoryIDs, template.Categories[i].ID)
		}
		if len(categoryIDs) > 0 {
			if err := tx.Where("category_id IN ?", categoryIDs).Delete(&models.TemplateSubcategory{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("template_id = ?", template.ID).Delete(&models.TemplateCategory{}).Error; err != nil {
			return err
		}
		return persistTemplateCategories(tx, template.ID, update.Categories)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.loadTemplate(userID, templateID)
}

// DeleteTemplate removes a custom template. System templates are read-only.
func (s *templateService) DeleteTemplate(userID, templateID string) error {
	template, err := s.loadTemplate(userID, templateID)
	if err != nil {
		return err
	}
	if template.Kind == models.TemplateKindSystem {
		return apperrors.ErrTemplateReadOnly
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var categoryIDs []string
		for i := range template.Categories {
			categoryIDs = append(categoryIDs, template.Categories[i].ID)
		}
		if len(categoryIDs) > 0 {
			if err := tx.Where("category_id IN ?", categoryIDs).Delete(&models.TemplateSubcategory{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("template_id = ?", template.ID).Delete(&models.TemplateCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(template).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CreateBudgetFromTemplate instantiates the template's percentage
// allocations at the given total and creates the resulting budget. The
// budget inherits the template's budgeting method tag.
func (s *templateService) CreateBudgetFromTemplate(userID, templateID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error) {
	if totalBudget < 0 {
		return nil, apperrors.ErrNegativeLimit
	}
	template, err := s.loadTemplate(userID, templateID)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:       userID,
		Name:         name,
		TotalBudget:  totalBudget,
		Period:       period,
		StartDate:    startDate,
		EndDate:      period.EndDate(startDate),
		TemplateType: template.TemplateType,
		Notifications: models.NotificationSettings{
			Enabled:         true,
			ThresholdAlerts: true,
		},
	}
	budget.ID = uuid.New()

	categories := instantiateCategories(template, totalBudget)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Create(budget).Error; err != nil {
			return err
		}
		return persistCategories(tx, budget.ID, categories)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var created models.Budget
	err = s.db.
		Preload("Categories", "parent_id IS NULL").
		Preload("Categories.Subcategories").
		Where("id = ?", budget.ID).
		First(&created).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &created, nil
}

// SaveBudgetAsTemplate derives a custom template from a budget's
// category limits. The inverse is lossy: only top-level categories and
// their share of the total carry over.
func (s *templateService) SaveBudgetAsTemplate(userID, budgetID, name, description string) (*models.BudgetTemplate, error) {
	var budget models.Budget
	err := s.db.
		Preload("Categories", "parent_id IS NULL").
		Where("id = ? AND user_id = ?", budgetID, userID).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrBudgetNotFound, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if name == "" {
		name = fmt.Sprintf("Template from %s", budget.Name)
	}
	if description == "" {
		description = fmt.Sprintf("Created from budget: %s", budget.Name)
	}

	template := &models.BudgetTemplate{
		Name:         name,
		Description:  description,
		Kind:         models.TemplateKindCustom,
		TemplateType: models.TemplateTypeCustom,
		UserID:       &userID,
	}
	template.ID = uuid.New()

	derived := deriveTemplateCategories(&budget)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Create(template).Error; err != nil {
			return err
		}
		for i := range derived {
			derived[i].TemplateID = template.ID
		}
		if len(derived) == 0 {
			return nil
		}
		return tx.Create(&derived).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.loadTemplate(userID, template.ID)
}
